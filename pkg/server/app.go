package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ExtremeScan/internal/domain/models"
	"ExtremeScan/internal/middleware"
	"ExtremeScan/internal/service/notify"
	"ExtremeScan/internal/service/ratelimit"
	"ExtremeScan/internal/usecase"
	"ExtremeScan/pkg/config"
	xhttp "ExtremeScan/pkg/http"
	pkgkafka "ExtremeScan/pkg/kafka"
	applogger "ExtremeScan/pkg/logger"
)

// Closer releases one infrastructure client at shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// Closers run in order after every component has stopped.
type Closers []Closer

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	service  *usecase.BackgroundService
	patch    models.ServiceConfigPatch
	pipeline *middleware.SignalPipeline
	consumer *pkgkafka.Consumer
	kh       pkgkafka.MessageHandler
	server   *xhttp.Server
	hub      *notify.Hub
	limiter  *ratelimit.Limiter
	closers  Closers
}

// New creates a new App instance with all dependencies. consumer and kh
// are nil when Kafka is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	service *usecase.BackgroundService,
	patch models.ServiceConfigPatch,
	pipeline *middleware.SignalPipeline,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	server *xhttp.Server,
	hub *notify.Hub,
	limiter *ratelimit.Limiter,
	closers Closers,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		service:  service,
		patch:    patch,
		pipeline: pipeline,
		consumer: consumer,
		kh:       kh,
		server:   server,
		hub:      hub,
		limiter:  limiter,
		closers:  closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done or the
// HTTP listener fails, then shuts down.
func (a *App) RunContext(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.pipeline.Start(runCtx)

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return a.shutdown(err)
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.service.Initialize(a.patch); err != nil {
		// the API can still start the agent later
		a.log.Error("background service start error", applogger.Error(err))
	}

	if err := a.server.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return a.shutdown(err)
	}

	if a.limiter != nil {
		go a.sweepLimiter(runCtx)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-a.server.Errors():
		runErr = fmt.Errorf("http server: %w", err)
	}
	return a.shutdown(runErr)
}

func (a *App) sweepLimiter(ctx context.Context) {
	idle := a.cfg.Server.RateLimit.IdleTTL
	if idle <= 0 {
		return
	}
	t := time.NewTicker(idle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Sweep(idle); n > 0 {
				a.log.Debug("rate limiter swept", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown stops components in reverse dependency order.
func (a *App) shutdown(cause error) error {
	a.log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.service.Close()

	if err := a.server.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	a.pipeline.Stop()
	if a.hub != nil {
		a.hub.Close()
	}

	a.log.Info("shutdown complete")
	// flush aggregated logs while the producer is still open
	a.log.RemoveCollector()

	for _, c := range a.closers {
		if c.Close == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
		}
	}
	return cause
}
