package eventsapi

import (
	"context"
	"sync"
	"time"

	"github.com/CE-Thesis-2023/aqara-ltd/biz/service"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/aqara"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"

	"github.com/eclipse/paho.golang/paho"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// EventHandler reacts to one decoded event of a camera.
type EventHandler func(ctx context.Context, camera string, ev *aqara.InboundEvent) error

var (
	once     sync.Once
	handlers *StandardEventHandler
)

func Init(ctx context.Context, pool *ants.Pool) {
	once.Do(func() {
		handlers = NewStandardEventHandler(service.GetEventService(), pool)
	})
}

func GetStandardEventsHandler() *StandardEventHandler {
	return handlers
}

type StandardEventHandler struct {
	pool   *ants.Pool
	events *service.EventService

	mu       sync.RWMutex
	registry map[string]EventHandler
}

func NewStandardEventHandler(events *service.EventService, pool *ants.Pool) *StandardEventHandler {
	return &StandardEventHandler{
		pool:     pool,
		events:   events,
		registry: make(map[string]EventHandler),
	}
}

// Handle registers fn for an event key. Keys without a handler are only
// recorded.
func (h *StandardEventHandler) Handle(key string, fn EventHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registry[key] = fn
}

func (h *StandardEventHandler) lookup(key string) (EventHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn, ok := h.registry[key]
	return fn, ok
}

// ReceiveCameraEvent builds the broker handler of one camera.
func (h *StandardEventHandler) ReceiveCameraEvent(camera string, decoder *aqara.EventDecoder) func(p *paho.Publish) error {
	return func(p *paho.Publish) error {
		ev := decoder.Decode(p.Topic, p.Payload)
		if ev == nil {
			return nil
		}
		logger.SDebug("ReceiveCameraEvent",
			zap.String("camera", camera),
			zap.String("topic", p.Topic),
			zap.String("key", ev.Key))

		return h.pool.Submit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			if err := h.dispatch(ctx, camera, ev); err != nil {
				logger.SError("ReceiveCameraEvent: handler failed",
					zap.String("camera", camera),
					zap.String("key", ev.Key),
					zap.Error(err))
			}
		})
	}
}

func (h *StandardEventHandler) dispatch(ctx context.Context, camera string, ev *aqara.InboundEvent) error {
	h.events.Record(camera, ev)
	if fn, ok := h.lookup(ev.Key); ok {
		return fn(ctx, camera, ev)
	}
	return nil
}
