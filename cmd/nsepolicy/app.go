package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/theSolTrain/nse-policy-generator/attachment"
	"github.com/theSolTrain/nse-policy-generator/bus"
	"github.com/theSolTrain/nse-policy-generator/config"
	"github.com/theSolTrain/nse-policy-generator/events"
	"github.com/theSolTrain/nse-policy-generator/generate"
	policyapi "github.com/theSolTrain/nse-policy-generator/processor/policy-api"
	"github.com/theSolTrain/nse-policy-generator/render"
	"github.com/theSolTrain/nse-policy-generator/session"
	"github.com/theSolTrain/nse-policy-generator/storage"
)

// App is the main application that wires together all components.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// NATS, only when storage or events need it
	bus *bus.Bus

	// Storage
	kv storage.KV

	renderer render.Renderer
	api      *policyapi.Component
	server   *http.Server
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		renderer: render.NewChrome(render.ChromeConfig{
			ExecPath:      cfg.Render.ChromePath,
			Timeout:       cfg.Render.Timeout,
			MaxConcurrent: cfg.Render.MaxConcurrent,
			NoSandbox:     cfg.Render.NoSandbox,
			Page:          cfg.Render.Page,
		}, logger),
	}
}

// Start initializes all components. On failure everything already started
// is shut down.
func (a *App) Start(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			a.Shutdown(5 * time.Second)
		}
	}()

	if a.cfg.UsesNATS() {
		b, err := bus.Connect(bus.Options{
			URL:      a.cfg.NATS.URL,
			Embedded: a.cfg.NATS.Embedded,
			StoreDir: a.cfg.NATS.StoreDir,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("start NATS: %w", err)
		}
		a.bus = b
	}

	kv, err := a.openStorage(ctx)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	a.kv = kv

	var publisher events.Publisher = events.NoopPublisher{}
	if a.cfg.NATS.Publish {
		publisher = events.NewNATSPublisher(a.bus.Conn, a.cfg.NATS.Subject, a.logger)
	}

	api, err := policyapi.NewComponent(policyapi.Config{
		Prefix:         a.cfg.Server.Prefix,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
	}, policyapi.Deps{
		Generator:   generate.New(a.renderer, a.logger, generate.WithPublisher(publisher)),
		Sessions:    session.NewManager(storage.NewDraftStore(kv, a.logger), a.logger),
		Attachments: attachment.NewRegistry(a.cfg.Attachments.MaxBytes, a.cfg.Attachments.Types...),
		Logger:      a.logger,
	})
	if err != nil {
		return fmt.Errorf("create policy-api: %w", err)
	}
	if err := api.Start(ctx); err != nil {
		return fmt.Errorf("start policy-api: %w", err)
	}
	a.api = api

	a.server = &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Debug("Components initialized",
		"storage", a.cfg.Storage.Driver,
		"nats", a.bus != nil,
		"publish", a.cfg.NATS.Publish)
	return nil
}

func (a *App) openStorage(ctx context.Context) (storage.KV, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverMemory:
		return storage.NewMemoryKV(), nil
	case config.DriverSQLite:
		return storage.OpenSQLite(a.cfg.Storage.Path)
	case config.DriverNATS:
		return storage.NewJetStreamKV(ctx, a.bus.JS, a.cfg.NATS.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", a.cfg.Storage.Driver)
	}
}

// Handler returns the HTTP handler. Start must have succeeded.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Serve listens until ctx is cancelled or the listener fails.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}
	a.logger.Info("Listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		return nil
	}
}

// Shutdown stops the server and releases storage and NATS.
func (a *App) Shutdown(timeout time.Duration) {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("HTTP shutdown incomplete", "error", err)
		}
		cancel()
	}
	if a.api != nil {
		_ = a.api.Stop(timeout)
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.logger.Warn("Failed to close storage", "error", err)
		}
		a.kv = nil
	}
	if a.bus != nil {
		a.bus.Close()
		a.bus = nil
	}
}
