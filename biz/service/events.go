package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/aqara"
	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"
	"github.com/CE-Thesis-2023/aqara-ltd/models/events"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

const (
	activeSuffix   = "_active"
	inactiveSuffix = "_inactive"
)

// EventService keeps the last event per camera and key, plus the on/off
// state of detector flags, in memory.
type EventService struct {
	cache *ristretto.Cache
}

func NewEventService(cache *ristretto.Cache) *EventService {
	return &EventService{cache: cache}
}

// ActivityFlag splits keys such as avdt_motion_active or
// avdt_motion_inactive into the detector name and its state.
func ActivityFlag(key string) (string, bool, bool) {
	switch {
	case strings.HasSuffix(key, inactiveSuffix):
		return strings.TrimSuffix(key, inactiveSuffix), false, true
	case strings.HasSuffix(key, activeSuffix):
		return strings.TrimSuffix(key, activeSuffix), true, true
	}
	return "", false, false
}

func recordKey(camera string, key string) string {
	return fmt.Sprintf("event/%s/%s", camera, key)
}

func flagKey(camera string, name string) string {
	return fmt.Sprintf("flag/%s/%s", camera, name)
}

func (s *EventService) Record(camera string, ev *aqara.InboundEvent) *events.EventRecord {
	rec := &events.EventRecord{
		Camera:     camera,
		Key:        ev.Key,
		Payload:    ev.Payload,
		ReceivedAt: time.Now(),
	}
	if name, active, ok := ActivityFlag(ev.Key); ok {
		rec.Active = &active
		s.cache.Set(flagKey(camera, name), active, 1)
	}
	s.cache.Set(recordKey(camera, ev.Key), rec, 1)
	s.cache.Wait()

	logger.SDebug("event recorded",
		zap.String("camera", camera),
		zap.String("key", ev.Key))
	return rec
}

func (s *EventService) Last(camera string, key string) (*events.EventRecord, error) {
	v, found := s.cache.Get(recordKey(camera, key))
	if !found {
		return nil, custerror.FormatNotFound("no %s event seen on camera %s", key, camera)
	}
	return v.(*events.EventRecord), nil
}

// Flag reports the last known state of a detector, e.g. avdt_motion.
func (s *EventService) Flag(camera string, name string) (bool, bool) {
	v, found := s.cache.Get(flagKey(camera, name))
	if !found {
		return false, false
	}
	return v.(bool), true
}
