package sidecar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/configs"
	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"
	"github.com/CE-Thesis-2023/aqara-ltd/models/events"
	"github.com/CE-Thesis-2023/aqara-ltd/models/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type CameraController interface {
	Names() []string
	Ptz(ctx context.Context, name string, req *events.PtzCtrlRequest) error
	Stream(ctx context.Context, name string, probe bool) (*web.GetStreamResponse, error)
	Device(ctx context.Context, name string) (*web.GetDeviceResponse, error)
	Reconnect(ctx context.Context, name string) error
}

type EventStore interface {
	Last(camera string, key string) (*events.EventRecord, error)
}

type HttpSidecar struct {
	name    string
	server  *http.Server
	cameras CameraController
	events  EventStore
}

func NewHttpSidecar(c *configs.HttpConfigs, cameras CameraController, events EventStore) *HttpSidecar {
	s := &HttpSidecar{
		name:    c.Name,
		cameras: cameras,
		events:  events,
	}
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", c.Port),
		ReadTimeout: 5 * time.Second,
		Handler:     s.Handler(),
	}
	return s
}

func (s *HttpSidecar) Name() string {
	return s.name
}

func (s *HttpSidecar) Start() error {
	logger.SInfo("Starting HTTP sidecar",
		zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

func (s *HttpSidecar) Stop(ctx context.Context) error {
	logger.SInfo("Stopping HTTP sidecar")
	if err := s.server.Shutdown(ctx); err != nil {
		logger.SError("Failed to stop HTTP sidecar",
			zap.Error(err))
		return err
	}
	return nil
}

func (s *HttpSidecar) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/cameras", s.handleListCameras)
	r.Route("/cameras/{name}", func(r chi.Router) {
		r.Post("/ptz", s.handlePtz)
		r.Get("/stream", s.handleStream)
		r.Get("/device", s.handleDevice)
		r.Get("/events/{key}", s.handleLastEvent)
		r.Post("/reconnect", s.handleReconnect)
	})
	return r
}

func (s *HttpSidecar) handleListCameras(w http.ResponseWriter, r *http.Request) {
	devices := make([]*web.GetDeviceResponse, 0)
	for _, name := range s.cameras.Names() {
		dev, err := s.cameras.Device(r.Context(), name)
		if err != nil {
			continue
		}
		devices = append(devices, dev)
	}
	respondJSON(w, http.StatusOK, devices)
}

func (s *HttpSidecar) handlePtz(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req events.PtzCtrlRequest
	if err := json.
		NewDecoder(r.Body).
		Decode(&req); err != nil {
		respondError(w, custerror.FormatInvalidArgument("malformed request body: %s", err))
		return
	}
	if err := s.cameras.Ptz(r.Context(), name, &req); err != nil {
		logger.SError("failed to send PTZ command",
			zap.String("camera", name),
			zap.Error(err))
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HttpSidecar) handleStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	probe, _ := strconv.ParseBool(r.URL.Query().Get("probe"))
	resp, err := s.cameras.Stream(r.Context(), name, probe)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *HttpSidecar) handleDevice(w http.ResponseWriter, r *http.Request) {
	resp, err := s.cameras.Device(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *HttpSidecar) handleLastEvent(w http.ResponseWriter, r *http.Request) {
	rec, err := s.events.Last(chi.URLParam(r, "name"), chi.URLParam(r, "key"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *HttpSidecar) handleReconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.cameras.Reconnect(r.Context(), chi.URLParam(r, "name")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusOf(err error) int {
	switch custerror.Code(err) {
	case custerror.CodeInvalidArgument:
		return http.StatusBadRequest
	case custerror.CodeNotFound:
		return http.StatusNotFound
	case custerror.CodeFailedPrecondition:
		return http.StatusConflict
	case custerror.CodeUnavailable:
		return http.StatusServiceUnavailable
	case custerror.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusOf(err), &web.ErrorResponse{
		Error: err.Error(),
		Code:  custerror.Code(err),
	})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.SDebug("sidecar response write failed", zap.Error(err))
	}
}
