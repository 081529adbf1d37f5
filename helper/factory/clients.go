package factory

import (
	"context"
	"sync"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/cache"
	custcon "github.com/CE-Thesis-2023/aqara-ltd/internal/concurrent"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/configs"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"
	custmqtt "github.com/CE-Thesis-2023/aqara-ltd/internal/mqtt"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const workersPerCamera = 4

var once sync.Once

var (
	workerPool *ants.Pool

	mu           sync.Mutex
	eventClients map[string]*autopaho.ConnectionManager
)

func Init(ctx context.Context, configs *configs.Configs) {
	once.Do(func() {
		cache.Init()
		workerPool = custcon.New(workersPerCamera*len(configs.Cameras) + workersPerCamera)
		eventClients = make(map[string]*autopaho.ConnectionManager)
	})
}

func Pool() *ants.Pool {
	return workerPool
}

// ConnectEvents opens the push event connection of a camera, replacing
// any previous one.
func ConnectEvents(ctx context.Context, camera *configs.CameraConfigs, options ...custmqtt.ClientOptioner) error {
	options = append([]custmqtt.ClientOptioner{
		custmqtt.WithClientGlobalConfigs(&camera.Mqtt),
	}, options...)
	cm, err := custmqtt.NewClient(ctx, options...)
	if err != nil {
		return err
	}

	mu.Lock()
	previous := eventClients[camera.Name]
	eventClients[camera.Name] = cm
	mu.Unlock()

	if previous != nil {
		if err := previous.Disconnect(ctx); err != nil {
			logger.SDebug("factory.ConnectEvents: previous connection disconnect",
				zap.String("camera", camera.Name),
				zap.Error(err))
		}
	}
	return nil
}

func StopEvents(ctx context.Context) {
	mu.Lock()
	defer mu.Unlock()
	for name, cm := range eventClients {
		if err := cm.Disconnect(ctx); err != nil {
			logger.SError("factory.StopEvents: disconnect",
				zap.String("camera", name),
				zap.Error(err))
		}
		delete(eventClients, name)
	}
}

func Stop(ctx context.Context) {
	StopEvents(ctx)
	if workerPool != nil {
		workerPool.Release()
	}
}
