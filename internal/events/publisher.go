// Package events announces completed transactions outside the ledger.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"economy-ledger/internal/domain"
)

const EventTransactionCompleted = "transaction.completed"

// TransactionEvent is the payload published for every completed exchange.
type TransactionEvent struct {
	Type        string             `json:"type"`
	Transaction domain.Transaction `json:"transaction"`
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushTimeout(timeout time.Duration) error
	Drain() error
}

// NATSPublisher publishes transaction events to a NATS subject. The message
// id header carries the transaction id so JetStream streams can deduplicate.
type NATSPublisher struct {
	conn    conn
	subject string
	logger  *slog.Logger
}

// NewNATSPublisher connects to url and publishes on subject.
func NewNATSPublisher(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("economy-ledger"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	logger.Info("Connected to NATS", "url", url, "subject", subject)
	return newNATSPublisher(nc, subject, logger), nil
}

func newNATSPublisher(c conn, subject string, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: subject, logger: logger}
}

func (p *NATSPublisher) PublishTransaction(ctx context.Context, tx domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(TransactionEvent{Type: EventTransactionCompleted, Transaction: tx})
	if err != nil {
		return fmt.Errorf("encode transaction event: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Header.Set(nats.MsgIdHdr, tx.ID.String())
	msg.Data = data

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Close flushes pending messages and drains the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.FlushTimeout(5 * time.Second); err != nil {
		p.logger.Warn("Failed to flush NATS connection", "error", err)
	}
	return p.conn.Drain()
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishTransaction(context.Context, domain.Transaction) error { return nil }

func (Nop) Close() error { return nil }

var (
	_ domain.Publisher = (*NATSPublisher)(nil)
	_ domain.Publisher = Nop{}
)
