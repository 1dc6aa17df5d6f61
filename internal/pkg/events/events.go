package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects published after a call mutation commits
const (
	SubjectCallCreated = "calls.created"
	SubjectCallUpdated = "calls.updated"
	SubjectCallDeleted = "calls.deleted"
)

// CallEvent is the payload of every calls.* message
type CallEvent struct {
	CallID     string      `json:"callId"`
	UserID     string      `json:"userId"`
	Call       interface{} `json:"call,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close()
}

// NATS publishes JSON messages on a core NATS connection
type NATS struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewNATS(url string, logger *zap.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("callboard-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return &NATS{conn: conn, logger: logger}, nil
}

func (p *NATS) Publish(ctx context.Context, subject string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *NATS) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", zap.Error(err))
		p.conn.Close()
	}
}

// Noop drops every message. Used when NATS_URL is empty.
type Noop struct{}

func (Noop) Publish(context.Context, string, interface{}) error { return nil }
func (Noop) Close()                                             {}

var (
	_ Publisher = (*NATS)(nil)
	_ Publisher = Noop{}
)
