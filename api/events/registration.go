package eventsapi

import (
	"context"
	"time"

	"github.com/CE-Thesis-2023/aqara-ltd/helper"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/aqara"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/configs"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"
	custmqtt "github.com/CE-Thesis-2023/aqara-ltd/internal/mqtt"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"go.uber.org/zap"
)

// Register subscribes to the camera's event topics every time the
// connection comes up.
func Register(camera *configs.CameraConfigs) func(cm *autopaho.ConnectionManager, connack *paho.Connack) {
	return func(cm *autopaho.ConnectionManager, connack *paho.Connack) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		subs := makeSubscriptions(camera)
		if _, err := cm.Subscribe(ctx, &paho.Subscribe{
			Subscriptions: subs,
		}); err != nil {
			logger.SError("unable to make MQTT subscriptions",
				zap.String("where", "api.events.Register"),
				zap.String("camera", camera.Name),
				zap.Reflect("subs", subs),
				zap.Error(err),
			)
			return
		}

		logger.SInfo("MQTT subscriptions made success",
			zap.String("camera", camera.Name),
			zap.Reflect("subs", subs))
	}
}

func makeSubscriptions(camera *configs.CameraConfigs) []paho.SubscribeOptions {
	subs := make([]paho.SubscribeOptions, 0, len(camera.Mqtt.Topics))
	for _, topic := range camera.Mqtt.Topics {
		subs = append(subs, paho.SubscribeOptions{Topic: topic, QoS: 0})
	}
	return subs
}

func ClientErrorHandler(err error) {
	logger := logger.Logger()

	logger.Error("MQTT Client", zap.Error(err))
}

func DisconnectHandler(d *paho.Disconnect) {
	logger := logger.Logger()

	reason := ""
	if d.Properties != nil {
		reason = d.Properties.ReasonString
	}
	logger.Error("MQTT Server Disconnect",
		zap.Uint8("code", d.ReasonCode),
		zap.String("reason", reason))
}

func RouterHandler(camera *configs.CameraConfigs) custmqtt.RouterRegister {
	return func(router *paho.StandardRouter) {
		handlers := GetStandardEventsHandler()
		decoder := aqara.NewEventDecoder(camera.Mqtt.KeepaliveTopic)
		for _, topic := range camera.Mqtt.Topics {
			router.RegisterHandler(
				topic,
				WrapForHandlers(handlers.ReceiveCameraEvent(camera.Name, decoder)),
			)
		}
	}
}

func WrapForHandlers(handler func(p *paho.Publish) error) func(p *paho.Publish) {
	return func(p *paho.Publish) {
		if err := handler(p); err != nil {
			helper.EventHandlerErrorHandler(err)
		}
	}
}
