// Package events announces generated documents to other services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectDocumentGenerated carries DocumentGenerated payloads.
const SubjectDocumentGenerated = "policy.document.generated"

// DocumentGenerated describes one successfully rendered policy.
type DocumentGenerated struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id,omitempty"`
	SchoolName    string    `json:"school_name"`
	AdmissionYear string    `json:"admission_year"`
	Filename      string    `json:"filename"`
	Clauses       []string  `json:"clauses"`
	Pages         int       `json:"pages"`
	Bytes         int       `json:"bytes"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Publisher sends generation events. Publishing is best effort; callers
// log failures and carry on.
type Publisher interface {
	PublishGenerated(ctx context.Context, ev DocumentGenerated) error
}

// NoopPublisher discards events.
type NoopPublisher struct{}

func (NoopPublisher) PublishGenerated(context.Context, DocumentGenerated) error { return nil }

// NATSPublisher publishes events as JSON on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSPublisher publishes on subject, or SubjectDocumentGenerated when
// subject is empty.
func NewNATSPublisher(conn *nats.Conn, subject string, logger *slog.Logger) *NATSPublisher {
	if subject == "" {
		subject = SubjectDocumentGenerated
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}
}

func (p *NATSPublisher) PublishGenerated(ctx context.Context, ev DocumentGenerated) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	p.logger.Debug("Published document event", "subject", p.subject, "id", ev.ID)
	return nil
}
