// Package policyapi provides the HTTP surface of the policy generator:
// stateless PDF generation, previews, the clause registry and
// draft-backed composition sessions.
package policyapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theSolTrain/nse-policy-generator/attachment"
	"github.com/theSolTrain/nse-policy-generator/session"
)

// Component serves the policy API.
type Component struct {
	name        string
	config      Config
	generator   session.Generator
	sessions    *session.Manager
	attachments *attachment.Registry
	metrics     *metrics
	logger      *slog.Logger

	// Lifecycle state machine
	// States: 0=stopped, 1=starting, 2=running, 3=stopping
	state     atomic.Int32
	startTime time.Time
	mu        sync.RWMutex
}

const (
	stateStopped  = 0
	stateStarting = 1
	stateRunning  = 2
	stateStopping = 3
)

// Deps are the collaborators a Component serves.
type Deps struct {
	Generator   session.Generator
	Sessions    *session.Manager
	Attachments *attachment.Registry
	Logger      *slog.Logger
}

// NewComponent constructs a policy-api Component.
func NewComponent(config Config, deps Deps) (*Component, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = session.NewManager(nil, logger)
	}
	attachments := deps.Attachments
	if attachments == nil {
		attachments = attachment.DefaultRegistry()
	}

	return &Component{
		name:        "policy-api",
		config:      config,
		generator:   deps.Generator,
		sessions:    sessions,
		attachments: attachments,
		metrics:     newMetrics(func() float64 { return float64(sessions.Len()) }),
		logger:      logger,
	}, nil
}

// Start marks the component ready to serve.
func (c *Component) Start(_ context.Context) error {
	if !c.state.CompareAndSwap(stateStopped, stateStarting) {
		current := c.state.Load()
		if current == stateRunning || current == stateStarting {
			return fmt.Errorf("component already running or starting")
		}
		return fmt.Errorf("component in invalid state: %d", current)
	}

	c.mu.Lock()
	c.startTime = time.Now()
	c.mu.Unlock()

	c.state.Store(stateRunning)
	c.logger.Info("policy-api started", "prefix", c.config.Prefix)
	return nil
}

// Stop marks the component stopped. In-flight requests are drained by the
// HTTP server.
func (c *Component) Stop(_ time.Duration) error {
	if !c.state.CompareAndSwap(stateRunning, stateStopping) {
		current := c.state.Load()
		if current == stateStopped || current == stateStopping {
			return nil
		}
		return fmt.Errorf("component in unexpected state: %d", current)
	}
	c.state.Store(stateStopped)
	c.logger.Info("policy-api stopped")
	return nil
}

// HealthStatus is the /healthz payload.
type HealthStatus struct {
	Healthy  bool          `json:"healthy"`
	Status   string        `json:"status"`
	Uptime   time.Duration `json:"uptime_ns"`
	Sessions int           `json:"sessions"`
}

// Health returns the current health status.
func (c *Component) Health() HealthStatus {
	state := c.state.Load()

	c.mu.RLock()
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	var uptime time.Duration
	switch state {
	case stateStarting:
		status = "starting"
	case stateRunning:
		status = "running"
		uptime = time.Since(startTime)
	case stateStopping:
		status = "stopping"
	}

	return HealthStatus{
		Healthy:  state == stateRunning,
		Status:   status,
		Uptime:   uptime,
		Sessions: c.sessions.Len(),
	}
}

// Handler returns the complete HTTP surface: the API under the configured
// prefix plus /healthz and /metrics, instrumented.
func (c *Component) Handler() http.Handler {
	mux := http.NewServeMux()
	c.RegisterHTTPHandlers(c.config.Prefix, mux)
	mux.HandleFunc("GET /healthz", c.handleHealth)
	mux.Handle("GET /metrics", c.metrics.handler())
	return c.metrics.instrument(mux)
}
