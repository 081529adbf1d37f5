package aqara

import (
	"errors"
	"reflect"
	"testing"

	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
)

func TestDecode_Legacy(t *testing.T) {
	ev := Decode("camera/event", []byte(`{"cmd":1,"data":{"action":"motion_active"}}`))
	if ev == nil {
		t.Fatal("Decode returned nil")
	}
	if ev.Key != "avdt_motion_active" {
		t.Errorf("key = %q", ev.Key)
	}
	want := map[string]interface{}{"action": "motion_active"}
	if !reflect.DeepEqual(ev.Payload, want) {
		t.Errorf("payload = %#v, want %#v", ev.Payload, want)
	}
}

func TestDecode_Modern(t *testing.T) {
	raw := `{"method":"properties_changed","params":{"name":"camera_ai_report","value":{"res":"ai_pet","payload":{"x":1}}}}`
	ev := Decode("camera/event", []byte(raw))
	if ev == nil {
		t.Fatal("Decode returned nil")
	}
	if ev.Key != "ai_pet" {
		t.Errorf("key = %q", ev.Key)
	}
	want := map[string]interface{}{"x": float64(1)}
	if !reflect.DeepEqual(ev.Payload, want) {
		t.Errorf("payload = %#v, want %#v", ev.Payload, want)
	}
}

func TestDecode_EmbeddedInText(t *testing.T) {
	raw := "lumi_msg: " + `{"cmd":"report","data":{"action":"voice_inactive","ts":"{x}"}}` + " end"
	ev := Decode("camera/event", []byte(raw))
	if ev == nil || ev.Key != "avdt_voice_inactive" {
		t.Fatalf("Decode = %+v", ev)
	}
}

func TestDecode_Dropped(t *testing.T) {
	cases := map[string]string{
		"garbage":         "garbage",
		"unbalanced":      `{"cmd":1,"data":{"action":"x"}`,
		"bad json":        `{cmd:1}`,
		"unknown shape":   `{"hello":"world"}`,
		"legacy no data":  `{"cmd":1}`,
		"other method":    `{"method":"props","params":{"name":"battery","value":{"res":"low"}}}`,
		"modern no res":   `{"method":"props","params":{"name":"camera_ai_report","value":{}}}`,
		"params not dict": `{"method":"props","params":[1,2]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if ev := Decode("camera/event", []byte(raw)); ev != nil {
				t.Errorf("Decode(%q) = %+v, want nil", raw, ev)
			}
			if _, err := DecodePayload(raw); !errors.Is(err, custerror.ErrMalformedEvent) {
				t.Errorf("DecodePayload(%q) err = %v", raw, err)
			}
		})
	}
}

func TestDecode_KeepaliveIgnored(t *testing.T) {
	valid := []byte(`{"cmd":1,"data":{"action":"motion_active"}}`)
	if ev := Decode(DefaultKeepaliveTopic, valid); ev != nil {
		t.Errorf("keepalive decoded: %+v", ev)
	}

	d := NewEventDecoder("hub/alive")
	if ev := d.Decode("hub/alive", valid); ev != nil {
		t.Errorf("custom keepalive decoded: %+v", ev)
	}
	if ev := d.Decode(DefaultKeepaliveTopic, valid); ev == nil {
		t.Error("regular topic dropped by custom decoder")
	}
}
