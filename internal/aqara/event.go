package aqara

import (
	"strings"

	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const (
	DefaultKeepaliveTopic = "broker/ping"

	legacyKeyPrefix = "avdt_"
	aiReportName    = "camera_ai_report"
)

// InboundEvent is one decoded push notification.
type InboundEvent struct {
	Key     string      `json:"key"`
	Payload interface{} `json:"payload"`
}

type EventDecoder struct {
	keepaliveTopic string
}

func NewEventDecoder(keepaliveTopic string) *EventDecoder {
	if len(keepaliveTopic) == 0 {
		keepaliveTopic = DefaultKeepaliveTopic
	}
	return &EventDecoder{keepaliveTopic: keepaliveTopic}
}

var defaultDecoder = NewEventDecoder(DefaultKeepaliveTopic)

// Decode uses the default keepalive topic.
func Decode(topic string, payload []byte) *InboundEvent {
	return defaultDecoder.Decode(topic, payload)
}

// Decode turns a broker message into an event. Keepalives, unknown shapes
// and malformed payloads all yield nil.
func (d *EventDecoder) Decode(topic string, payload []byte) *InboundEvent {
	if topic == d.keepaliveTopic {
		return nil
	}
	ev, err := DecodePayload(string(payload))
	if err != nil {
		logger.SDebug("event dropped",
			zap.String("topic", topic),
			zap.Int("size", len(payload)),
			zap.Error(err))
		return nil
	}
	return ev
}

// DecodePayload recognises the legacy {"cmd", "data": {"action"}} shape
// and the {"method", "params": {"name", "value"}} AI report shape.
func DecodePayload(text string) (*InboundEvent, error) {
	body, ok := extractObject(text)
	if !ok {
		return nil, custerror.Wrap(custerror.ErrMalformedEvent, "no JSON object found")
	}
	var msg map[string]interface{}
	if err := sonic.UnmarshalString(body, &msg); err != nil {
		return nil, custerror.Wrap(custerror.ErrMalformedEvent, "%s", err)
	}

	if _, ok := msg["cmd"]; ok {
		data, _ := msg["data"].(map[string]interface{})
		action, _ := data["action"].(string)
		if len(action) == 0 {
			return nil, custerror.Wrap(custerror.ErrMalformedEvent, "legacy event without data.action")
		}
		return &InboundEvent{Key: legacyKeyPrefix + action, Payload: data}, nil
	}

	if _, ok := msg["method"]; ok {
		params, _ := msg["params"].(map[string]interface{})
		name, _ := params["name"].(string)
		if !strings.Contains(name, aiReportName) {
			return nil, custerror.Wrap(custerror.ErrMalformedEvent, "unsupported params.name %q", name)
		}
		value, _ := params["value"].(map[string]interface{})
		res, _ := value["res"].(string)
		if len(res) == 0 {
			return nil, custerror.Wrap(custerror.ErrMalformedEvent, "ai report without value.res")
		}
		return &InboundEvent{Key: res, Payload: value["payload"]}, nil
	}

	return nil, custerror.Wrap(custerror.ErrMalformedEvent, "unknown message shape")
}
