package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/configs"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"
	"go.uber.org/zap"
)

// HttpServer is a long running server started and stopped with the app.
type HttpServer interface {
	Name() string
	Start() error
	Stop(ctx context.Context) error
}

// Run loads the configuration, starts the registered servers and blocks
// until SIGINT/SIGTERM or until a server fails to start. The context handed
// to the factory hook is cancelled when shutdown begins.
func Run(shutdownTimeout time.Duration, registration RegistrationFunc) {
	configs.Init(context.Background())
	globalConfigs := configs.Get()

	loggerConfigs := globalConfigs.Logger
	logger.Init(context.Background(), logger.WithGlobalConfigs(&loggerConfigs))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := Options{}
	for _, optioner := range registration(globalConfigs, logger.Logger()) {
		optioner(&opts)
	}

	logger.SInfo("Run: configs loaded",
		zap.Int("cameras", len(globalConfigs.Cameras)),
		zap.String("sidecar", globalConfigs.Sidecar.Name),
		zap.Int("port", globalConfigs.Sidecar.Port))
	logger.SDebug("Run: configs", zap.String("configs", globalConfigs.String()))

	failed := make(chan string, len(opts.httpServers))
	for _, s := range opts.httpServers {
		s := s
		go func() {
			logger.SInfo("Run: start HTTP server", zap.String("name", s.Name()))
			if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.SError("Run: HTTP server stopped unexpectedly",
					zap.String("name", s.Name()),
					zap.Error(err))
				failed <- s.Name()
			}
		}()
	}

	if opts.factoryHook != nil {
		if err := opts.factoryHook(ctx); err != nil {
			logger.SFatal("Run: factory hook failed", zap.Error(err))
			return
		}
	}

	select {
	case <-ctx.Done():
		logger.SInfo("Run: shutdown signal received")
	case name := <-failed:
		logger.SWarn("Run: shutting down after server failure", zap.String("name", name))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, s := range opts.httpServers {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Stop(shutdownCtx); err != nil {
				logger.SWarn("Run: stop HTTP server",
					zap.String("name", s.Name()),
					zap.Error(err))
			}
		}()
	}
	wg.Wait()

	if opts.shutdownHook != nil {
		opts.shutdownHook(shutdownCtx)
	}
	logger.SInfo("Run: shutdown complete")
	logger.Close()
}

type RegistrationFunc func(configs *configs.Configs, logger *zap.Logger) []Optioner

// FactoryHook runs once the servers are listening.
type FactoryHook func(ctx context.Context) error
type ShutdownHook func(ctx context.Context)

type Options struct {
	httpServers []HttpServer

	factoryHook  FactoryHook
	shutdownHook ShutdownHook
}

type Optioner func(opts *Options)

func WithHttpServer(server HttpServer) Optioner {
	return func(opts *Options) {
		if server != nil {
			opts.httpServers = append(opts.httpServers, server)
		}
	}
}

func WithFactoryHook(cb FactoryHook) Optioner {
	return func(opts *Options) {
		opts.factoryHook = cb
	}
}

func WithShutdownHook(cb ShutdownHook) Optioner {
	return func(opts *Options) {
		opts.shutdownHook = cb
	}
}
