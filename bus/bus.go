// Package bus connects to NATS, either an external server or one embedded
// in the process, and exposes the JetStream context built on it.
package bus

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Options selects how to reach NATS.
type Options struct {
	// URL of an external server. Ignored when Embedded is set.
	URL string

	// Embedded starts an in-process server with JetStream enabled.
	Embedded bool

	// StoreDir holds embedded JetStream data. Empty keeps it in a
	// temporary directory chosen by the server.
	StoreDir string

	// ReadyTimeout bounds the wait for an embedded server.
	ReadyTimeout time.Duration
}

// Bus is a live NATS connection with its JetStream context.
type Bus struct {
	Conn *nats.Conn
	JS   jetstream.JetStream

	embedded *server.Server
	logger   *slog.Logger
}

// Connect dials NATS as described by opts.
func Connect(opts Options, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{logger: logger}

	url := opts.URL
	if opts.Embedded {
		ns, err := startEmbedded(opts)
		if err != nil {
			return nil, err
		}
		b.embedded = ns
		url = ns.ClientURL()
		logger.Info("Started embedded NATS server", "url", url)
	} else if url == "" {
		return nil, errors.New("nats url is required unless embedded")
	}

	conn, err := nats.Connect(url, nats.Name("nsepolicy"))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	b.Conn = conn

	js, err := jetstream.New(conn)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	b.JS = js

	logger.Debug("Connected to NATS", "url", url)
	return b, nil
}

func startEmbedded(opts Options) (*server.Server, error) {
	timeout := opts.ReadyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ns, err := server.NewServer(&server.Options{
		Port:      -1,
		JetStream: true,
		StoreDir:  opts.StoreDir,
		NoLog:     true,
		NoSigs:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(timeout) {
		ns.Shutdown()
		return nil, errors.New("embedded NATS server failed to start")
	}
	return ns, nil
}

// Close drains the connection and stops an embedded server.
func (b *Bus) Close() {
	if b.Conn != nil {
		if err := b.Conn.Drain(); err != nil {
			b.logger.Debug("NATS drain failed", "error", err)
		}
		b.Conn.Close()
	}
	if b.embedded != nil {
		b.embedded.Shutdown()
		b.embedded.WaitForShutdown()
	}
}
