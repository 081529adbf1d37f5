package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/aqara"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/configs"
	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"
	custrtsp "github.com/CE-Thesis-2023/aqara-ltd/internal/rtsp"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/shell"
	"github.com/CE-Thesis-2023/aqara-ltd/models/events"
	"github.com/CE-Thesis-2023/aqara-ltd/models/web"

	"github.com/avast/retry-go"
	"github.com/go-co-op/gocron"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// SessionOpener opens the shell of one camera.
type SessionOpener func(ctx context.Context, camera *configs.CameraConfigs) (aqara.Shell, error)

// EventConnector subscribes to a camera's push events once its broker is
// running.
type EventConnector func(ctx context.Context, camera *configs.CameraConfigs) error

func OpenShellSession(ctx context.Context, camera *configs.CameraConfigs) (aqara.Shell, error) {
	return shell.Open(ctx, camera.Host, shell.DialectFor(camera.Model))
}

type Camera struct {
	configs configs.CameraConfigs

	mu          sync.RWMutex
	reopenMu    sync.Mutex
	client      *aqara.Client
	info        *aqara.DeviceInfo
	status      web.CameraStatus
	provisioned bool
}

func (c *Camera) Name() string {
	return c.configs.Name
}

func (c *Camera) Status() web.CameraStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Camera) setStatus(s web.CameraStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Camera) Client() (*aqara.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil || c.status != web.CameraReady {
		return nil, custerror.FormatUnavailable("camera %s is %s", c.configs.Name, c.status)
	}
	return c.client, nil
}

type CameraService struct {
	cameras      map[string]*Camera
	provisioning configs.ProvisioningConfigs
	refreshEvery time.Duration

	opener       SessionOpener
	connector    EventConnector
	pool         *ants.Pool
	scheduler    *gocron.Scheduler
	openAttempts uint
	openDelay    time.Duration
	probe        func(url string) (*custrtsp.ProbeResult, error)
}

func NewCameraService(globalConfigs *configs.Configs, pool *ants.Pool, options ...CameraServiceOptioner) *CameraService {
	s := &CameraService{
		cameras:      make(map[string]*Camera, len(globalConfigs.Cameras)),
		provisioning: globalConfigs.Provisioning,
		refreshEvery: globalConfigs.Refresh.PropertiesInterval,
		opener:       OpenShellSession,
		pool:         pool,
		scheduler:    gocron.NewScheduler(time.UTC),
		openAttempts: 3,
		openDelay:    2 * time.Second,
		probe:        custrtsp.Probe,
	}
	for _, o := range options {
		o(s)
	}
	for _, cam := range globalConfigs.Cameras {
		s.cameras[cam.Name] = &Camera{
			configs: cam,
			status:  web.CameraConnecting,
		}
	}
	return s
}

type CameraServiceOptioner func(s *CameraService)

func WithSessionOpener(o SessionOpener) CameraServiceOptioner {
	return func(s *CameraService) {
		s.opener = o
	}
}

func WithEventConnector(c EventConnector) CameraServiceOptioner {
	return func(s *CameraService) {
		s.connector = c
	}
}

func WithOpenRetry(attempts uint, delay time.Duration) CameraServiceOptioner {
	return func(s *CameraService) {
		s.openAttempts = attempts
		s.openDelay = delay
	}
}

func WithStreamProbe(p func(url string) (*custrtsp.ProbeResult, error)) CameraServiceOptioner {
	return func(s *CameraService) {
		s.probe = p
	}
}

// Start connects every configured camera in the background and starts
// the property refresh schedule.
func (s *CameraService) Start(ctx context.Context) {
	s.scheduler.StartAsync()
	for _, cam := range s.cameras {
		cam := cam
		if err := s.pool.Submit(func() {
			if err := s.connect(ctx, cam); err != nil {
				logger.SError("camera connection failed",
					zap.String("camera", cam.Name()),
					zap.Error(err))
			}
		}); err != nil {
			logger.SError("unable to schedule camera connection",
				zap.String("camera", cam.Name()),
				zap.Error(err))
		}
	}
}

func (s *CameraService) connect(ctx context.Context, cam *Camera) error {
	cam.setStatus(web.CameraConnecting)

	var sh aqara.Shell
	err := retry.Do(func() error {
		opened, err := s.opener(ctx, &cam.configs)
		if err != nil {
			return err
		}
		sh = opened
		return nil
	},
		retry.Attempts(s.openAttempts),
		retry.Delay(s.openDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.SDebug("retrying camera session",
				zap.String("camera", cam.Name()),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		cam.setStatus(web.CameraFailed)
		return err
	}

	client := aqara.NewClient(sh, aqara.WithProvisioning(&s.provisioning))
	info := client.DeviceInfo(ctx)
	client.DetectMotor(ctx)

	cam.mu.Lock()
	cam.client = client
	cam.info = info
	cam.status = web.CameraReady
	cam.provisioned = false
	cam.mu.Unlock()

	logger.SInfo("camera connected",
		zap.String("camera", cam.Name()),
		zap.String("device", info.Name),
		zap.String("firmware", info.Firmware),
		zap.String("dialect", client.Dialect().Kind.String()))

	if err := s.pool.Submit(func() { s.provision(ctx, cam) }); err != nil {
		logger.SError("unable to schedule provisioning",
			zap.String("camera", cam.Name()),
			zap.Error(err))
	}
	s.scheduleRefresh(cam)
	return nil
}

// provision runs once per session.
func (s *CameraService) provision(ctx context.Context, cam *Camera) {
	cam.mu.Lock()
	if cam.provisioned || cam.client == nil {
		cam.mu.Unlock()
		return
	}
	cam.provisioned = true
	client := cam.client
	cam.mu.Unlock()

	if err := client.EnsureBinary(ctx, aqara.MotorHelper); err != nil {
		logger.SError("motor helper provisioning failed",
			zap.String("camera", cam.Name()),
			zap.Error(err))
	}
	brokerReady := true
	if err := client.EnsureBroker(ctx); err != nil {
		brokerReady = false
		logger.SError("broker provisioning failed",
			zap.String("camera", cam.Name()),
			zap.Error(err))
	}
	if err := client.EnsurePersistence(ctx); err != nil {
		logger.SError("boot script provisioning failed",
			zap.String("camera", cam.Name()),
			zap.Error(err))
	}
	client.RefreshProperties(ctx)

	if brokerReady && s.connector != nil && cam.configs.Mqtt.Enabled {
		if err := s.connector(ctx, &cam.configs); err != nil {
			logger.SError("event subscription failed",
				zap.String("camera", cam.Name()),
				zap.Error(err))
		}
	}
	logger.SInfo("camera provisioned",
		zap.String("camera", cam.Name()),
		zap.Bool("motor", client.MotorReady()),
		zap.Bool("broker", brokerReady))
}

func (s *CameraService) scheduleRefresh(cam *Camera) {
	if s.refreshEvery <= 0 {
		return
	}
	s.scheduler.RemoveByTag(cam.Name())
	if _, err := s.scheduler.
		Every(s.refreshEvery).
		WaitForSchedule().
		Tag(cam.Name()).
		SingletonMode().
		Do(s.refresh, cam); err != nil {
		logger.SError("unable to schedule property refresh",
			zap.String("camera", cam.Name()),
			zap.Error(err))
	}
}

func (s *CameraService) refresh(cam *Camera) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := s.session(ctx, cam)
	if err != nil {
		return
	}
	props := client.RefreshProperties(ctx)
	logger.SDebug("properties refreshed",
		zap.String("camera", cam.Name()),
		zap.Int("count", len(props)))
}

func (s *CameraService) camera(name string) (*Camera, error) {
	cam, ok := s.cameras[name]
	if !ok {
		return nil, custerror.FormatNotFound("camera %s not found", name)
	}
	return cam, nil
}

func (s *CameraService) client(ctx context.Context, name string) (*Camera, *aqara.Client, error) {
	cam, err := s.camera(name)
	if err != nil {
		return nil, nil, err
	}
	client, err := s.session(ctx, cam)
	if err != nil {
		return nil, nil, err
	}
	return cam, client, nil
}

// session returns the camera's client, reopening the shell first when the
// current one was dropped after losing its prompt framing.
func (s *CameraService) session(ctx context.Context, cam *Camera) (*aqara.Client, error) {
	client, err := cam.Client()
	if err != nil {
		return nil, err
	}
	if client.Connected() {
		return client, nil
	}

	cam.reopenMu.Lock()
	defer cam.reopenMu.Unlock()
	if client, err := cam.Client(); err == nil && client.Connected() {
		return client, nil
	}
	logger.SWarn("camera session dropped, reopening",
		zap.String("camera", cam.Name()))
	if err := s.reopen(ctx, cam); err != nil {
		return nil, err
	}
	return cam.Client()
}

// Names lists the configured cameras.
func (s *CameraService) Names() []string {
	names := make([]string, 0, len(s.cameras))
	for name := range s.cameras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reconnect drops the current session of a camera, if any, and opens a
// new one. Provisioning runs again for the new session.
func (s *CameraService) Reconnect(ctx context.Context, name string) error {
	cam, err := s.camera(name)
	if err != nil {
		return err
	}
	cam.reopenMu.Lock()
	defer cam.reopenMu.Unlock()
	return s.reopen(ctx, cam)
}

// reopen replaces the session of a camera. Callers hold cam.reopenMu.
func (s *CameraService) reopen(ctx context.Context, cam *Camera) error {
	cam.mu.Lock()
	old := cam.client
	cam.client = nil
	cam.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return s.connect(ctx, cam)
}

func (s *CameraService) Ptz(ctx context.Context, name string, req *events.PtzCtrlRequest) error {
	dir, err := req.Validate()
	if err != nil {
		return err
	}
	_, client, err := s.client(ctx, name)
	if err != nil {
		return err
	}
	if !client.MotorReady() {
		return custerror.FormatFailedPrecondition("camera %s has no motor helper", name)
	}

	logger.SInfo("requested to perform PTZ control",
		zap.String("camera", name),
		zap.Reflect("request", req))
	if dir == aqara.Preset {
		client.MoveToPreset(ctx, req.AngleX, req.AngleY, req.SpanX, req.SpanY)
		return nil
	}
	spanX, spanY := req.Spans()
	client.Move(ctx, dir, spanX, spanY)
	return nil
}

func (s *CameraService) Stream(ctx context.Context, name string, probe bool) (*web.GetStreamResponse, error) {
	cam, client, err := s.client(ctx, name)
	if err != nil {
		return nil, err
	}
	tier := aqara.ParseTier(cam.configs.Stream)
	url, err := client.ResolveStream(ctx, tier, cam.configs.RtspAuth)
	if err != nil {
		logger.SError("failed to resolve stream",
			zap.String("camera", name),
			zap.Error(err))
		return nil, err
	}
	resp := &web.GetStreamResponse{
		Camera: name,
		Tier:   tier.String(),
		Url:    url,
	}
	if probe {
		result, err := s.probe(url)
		if err != nil {
			return nil, err
		}
		resp.Medias = &result.Medias
	}
	return resp, nil
}

func (s *CameraService) Device(ctx context.Context, name string) (*web.GetDeviceResponse, error) {
	cam, err := s.camera(name)
	if err != nil {
		return nil, err
	}
	cam.mu.RLock()
	resp := &web.GetDeviceResponse{
		Camera:       name,
		Status:       cam.status,
		Info:         cam.info,
		Capabilities: map[string]bool{},
	}
	client := cam.client
	cam.mu.RUnlock()

	if client != nil {
		resp.Dialect = client.Dialect().Kind.String()
		resp.MotorReady = client.MotorReady()
		resp.Capabilities = aqara.Capabilities(client.Properties())
	}
	return resp, nil
}

func (s *CameraService) Shutdown(ctx context.Context) {
	s.scheduler.Stop()
	for _, cam := range s.cameras {
		cam.mu.Lock()
		if cam.client != nil {
			cam.client.Close()
			cam.client = nil
		}
		cam.status = web.CameraConnecting
		cam.mu.Unlock()
	}
	logger.SInfo("camera sessions closed")
}
