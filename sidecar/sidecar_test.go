package sidecar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/configs"
	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
	"github.com/CE-Thesis-2023/aqara-ltd/models/events"
	"github.com/CE-Thesis-2023/aqara-ltd/models/web"
)

type fakeCameras struct {
	ptz       []*events.PtzCtrlRequest
	probed    bool
	streamErr error
}

func (f *fakeCameras) Names() []string {
	return []string{"hall"}
}

func (f *fakeCameras) Ptz(ctx context.Context, name string, req *events.PtzCtrlRequest) error {
	if name != "hall" {
		return custerror.FormatNotFound("camera %s not found", name)
	}
	if _, err := req.Validate(); err != nil {
		return err
	}
	f.ptz = append(f.ptz, req)
	return nil
}

func (f *fakeCameras) Stream(ctx context.Context, name string, probe bool) (*web.GetStreamResponse, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	f.probed = probe
	return &web.GetStreamResponse{Camera: name, Tier: "main", Url: "rtsp://192.0.2.10/ch1"}, nil
}

func (f *fakeCameras) Device(ctx context.Context, name string) (*web.GetDeviceResponse, error) {
	return &web.GetDeviceResponse{Camera: name, Status: web.CameraReady}, nil
}

func (f *fakeCameras) Reconnect(ctx context.Context, name string) error {
	return nil
}

type fakeEvents struct{}

func (fakeEvents) Last(camera string, key string) (*events.EventRecord, error) {
	if key != "ai_pet" {
		return nil, custerror.FormatNotFound("no %s event", key)
	}
	return &events.EventRecord{Camera: camera, Key: key, ReceivedAt: time.Unix(0, 0)}, nil
}

func newTestServer(t *testing.T, cameras *fakeCameras) *httptest.Server {
	t.Helper()
	s := NewHttpSidecar(&configs.HttpConfigs{Name: "test", Port: 0}, cameras, fakeEvents{})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %s", url, err)
	}
	resp.Body.Close()
	return resp
}

func TestPtzRoute(t *testing.T) {
	cameras := &fakeCameras{}
	srv := newTestServer(t, cameras)

	cases := []struct {
		name   string
		camera string
		body   string
		want   int
	}{
		{"step", "hall", `{"direction":"up","span_x":10}`, http.StatusNoContent},
		{"preset", "hall", `{"direction":"preset","angle_x":-170,"angle_y":50}`, http.StatusNoContent},
		{"unknown direction", "hall", `{"direction":"zoom"}`, http.StatusBadRequest},
		{"angle_x out of range", "hall", `{"direction":"preset","angle_x":171}`, http.StatusBadRequest},
		{"angle_y out of range", "hall", `{"direction":"preset","angle_y":-16}`, http.StatusBadRequest},
		{"negative span", "hall", `{"direction":"left","span_y":-1}`, http.StatusBadRequest},
		{"malformed body", "hall", `{"direction":`, http.StatusBadRequest},
		{"unknown camera", "attic", `{"direction":"up"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/cameras/"+tc.camera+"/ptz", tc.body)
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
	if len(cameras.ptz) != 2 {
		t.Fatalf("accepted %d requests, want 2", len(cameras.ptz))
	}
	if x, _ := cameras.ptz[0].Spans(); x != 10 {
		t.Errorf("span_x = %d", x)
	}
}

func TestStreamRoute(t *testing.T) {
	cameras := &fakeCameras{}
	srv := newTestServer(t, cameras)

	resp, err := http.Get(srv.URL + "/cameras/hall/stream?probe=true")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body web.GetStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Url != "rtsp://192.0.2.10/ch1" || !cameras.probed {
		t.Errorf("body = %+v, probed = %v", body, cameras.probed)
	}

	cameras.streamErr = custerror.Wrap(custerror.ErrStreamUnavailable, "no variant")
	resp2, err := http.Get(srv.URL + "/cameras/hall/stream")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp2.StatusCode)
	}
}

func TestEventAndDeviceRoutes(t *testing.T) {
	srv := newTestServer(t, &fakeCameras{})

	for path, want := range map[string]int{
		"/cameras/hall/events/ai_pet":  http.StatusOK,
		"/cameras/hall/events/ai_face": http.StatusNotFound,
		"/cameras/hall/device":         http.StatusOK,
		"/cameras":                     http.StatusOK,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("GET %s = %d, want %d", path, resp.StatusCode, want)
		}
	}

	if resp := post(t, srv.URL+"/cameras/hall/reconnect", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("reconnect status = %d", resp.StatusCode)
	}
}
