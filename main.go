package main

import (
	"context"
	"time"

	eventsapi "github.com/CE-Thesis-2023/aqara-ltd/api/events"
	"github.com/CE-Thesis-2023/aqara-ltd/biz/service"
	"github.com/CE-Thesis-2023/aqara-ltd/helper/factory"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/app"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/configs"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"
	custmqtt "github.com/CE-Thesis-2023/aqara-ltd/internal/mqtt"
	"github.com/CE-Thesis-2023/aqara-ltd/sidecar"

	"go.uber.org/zap"
)

func main() {
	app.Run(
		time.Second*10,
		func(configs *configs.Configs, zl *zap.Logger) []app.Optioner {
			ctx := context.Background()

			factory.Init(ctx, configs)
			service.Init(configs, factory.Pool(),
				service.WithEventConnector(connectEvents),
			)
			eventsapi.Init(ctx, factory.Pool())

			return []app.Optioner{
				app.WithHttpServer(sidecar.NewHttpSidecar(
					&configs.Sidecar,
					service.GetCameraService(),
					service.GetEventService(),
				)),
				app.WithFactoryHook(func(runCtx context.Context) error {
					service.GetCameraService().Start(runCtx)
					return nil
				}),
				app.WithShutdownHook(func(shutdownCtx context.Context) {
					service.GetCameraService().Shutdown(shutdownCtx)
					factory.Stop(shutdownCtx)
				}),
			}
		},
	)
}

func connectEvents(ctx context.Context, camera *configs.CameraConfigs) error {
	return factory.ConnectEvents(ctx, camera,
		custmqtt.WithOnReconnection(eventsapi.Register(camera)),
		custmqtt.WithOnConnectError(func(err error) {
			logger.SError("MQTT Connection failed",
				zap.String("camera", camera.Name),
				zap.Error(err))
		}),
		custmqtt.WithClientError(eventsapi.ClientErrorHandler),
		custmqtt.WithOnServerDisconnect(eventsapi.DisconnectHandler),
		custmqtt.WithHandlerRegister(eventsapi.RouterHandler(camera)),
	)
}
