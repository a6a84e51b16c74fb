// Package notify publishes store changes to NATS so rendering
// collaborators can subscribe instead of polling the HTTP surface.
// The notifier is optional: a nil *Notifier is a no-op.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects for the rendering feed.
const (
	SubjectMessageAppended = "lens.conversation.message"
	SubjectAnswerAssembled = "lens.answer.assembled"
	SubjectStreamFailed    = "lens.stream.failed"
	SubjectModelSelected   = "lens.model.selected"
)

type Notifier struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func New(url, token string, logger *slog.Logger) (*Notifier, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Notifier{conn: nc, logger: logger}, nil
}

// Publish sends one JSON payload on a subject. A nil notifier drops it.
func (n *Notifier) Publish(subject string, data any) {
	if n == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		n.logger.Error("marshal notify payload", "subject", subject, "error", err)
		return
	}
	if err := n.conn.Publish(subject, payload); err != nil {
		n.logger.Warn("notify publish failed", "subject", subject, "error", err)
	}
}

func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.conn.Close()
}
