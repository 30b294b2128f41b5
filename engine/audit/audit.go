// Package audit publishes generated Cypher statements and load progress to
// NATS. Publishing is best effort: failures are logged and never interrupt
// the caller.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sanjuz-cas/llm-kg-project/pkg/natsutil"
)

// CypherGenerated records one statement produced by the LLM for a question.
type CypherGenerated struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	Query    string    `json:"query"`
	Rows     int       `json:"rows"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// RowLoaded records one record written by a load run.
type RowLoaded struct {
	RunID     string    `json:"run_id"`
	Line      int       `json:"line"`
	PatientID string    `json:"patient_id"`
	Gene      string    `json:"gene,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher sends audit events. A nil *Publisher, or one without a
// connection, drops every event.
type Publisher struct {
	conn         natsutil.MsgPublisher
	auditSubject string
	eventSubject string
	logger       *slog.Logger
	now          func() time.Time
}

// New creates a Publisher. conn may be nil.
func New(conn natsutil.MsgPublisher, auditSubject, eventSubject string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:         conn,
		auditSubject: auditSubject,
		eventSubject: eventSubject,
		logger:       logger,
		now:          time.Now,
	}
}

func (p *Publisher) enabled() bool { return p != nil && p.conn != nil }

// CypherGenerated publishes ev on the audit subject, filling ID and At when
// unset.
func (p *Publisher) CypherGenerated(ctx context.Context, ev CypherGenerated) {
	if !p.enabled() || p.auditSubject == "" {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = p.now().UTC()
	}
	if err := natsutil.Publish(ctx, p.conn, p.auditSubject, ev); err != nil {
		p.logger.Warn("audit publish failed", "subject", p.auditSubject, "err", err)
	}
}

// RowLoaded publishes ev on the event subject.
func (p *Publisher) RowLoaded(ctx context.Context, ev RowLoaded) {
	if !p.enabled() || p.eventSubject == "" {
		return
	}
	if ev.At.IsZero() {
		ev.At = p.now().UTC()
	}
	if err := natsutil.Publish(ctx, p.conn, p.eventSubject, ev); err != nil {
		p.logger.Warn("event publish failed", "subject", p.eventSubject, "err", err)
	}
}
