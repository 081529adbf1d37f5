package service

import (
	"testing"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/aqara"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/cache"
	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
)

func newTestEventService(t *testing.T) *EventService {
	t.Helper()
	c, err := cache.New()
	if err != nil {
		t.Fatalf("cache.New: %s", err)
	}
	t.Cleanup(c.Close)
	return NewEventService(c)
}

func TestActivityFlag(t *testing.T) {
	cases := []struct {
		key    string
		name   string
		active bool
		ok     bool
	}{
		{"avdt_motion_active", "avdt_motion", true, true},
		{"avdt_motion_inactive", "avdt_motion", false, true},
		{"ai_pet", "", false, false},
	}
	for _, tc := range cases {
		name, active, ok := ActivityFlag(tc.key)
		if name != tc.name || active != tc.active || ok != tc.ok {
			t.Errorf("ActivityFlag(%q) = (%q, %v, %v)", tc.key, name, active, ok)
		}
	}
}

func TestEventService_RecordAndLast(t *testing.T) {
	s := newTestEventService(t)

	s.Record("hall", &aqara.InboundEvent{Key: "avdt_motion_active", Payload: map[string]interface{}{"action": "motion_active"}})
	if on, known := s.Flag("hall", "avdt_motion"); !known || !on {
		t.Errorf("Flag after active = (%v, %v)", on, known)
	}
	s.Record("hall", &aqara.InboundEvent{Key: "avdt_motion_inactive"})
	if on, known := s.Flag("hall", "avdt_motion"); !known || on {
		t.Errorf("Flag after inactive = (%v, %v)", on, known)
	}

	s.Record("hall", &aqara.InboundEvent{Key: "ai_pet", Payload: map[string]interface{}{"x": float64(1)}})
	rec, err := s.Last("hall", "ai_pet")
	if err != nil {
		t.Fatalf("Last: %s", err)
	}
	if rec.Camera != "hall" || rec.Active != nil || rec.ReceivedAt.IsZero() {
		t.Errorf("record = %+v", rec)
	}

	if _, err := s.Last("porch", "ai_pet"); custerror.Code(err) != custerror.CodeNotFound {
		t.Errorf("Last on other camera err = %v", err)
	}
	if _, known := s.Flag("porch", "avdt_motion"); known {
		t.Error("flag leaked across cameras")
	}
}
