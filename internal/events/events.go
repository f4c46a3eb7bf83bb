// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/and161185/grader-market/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectListingCreated  = "listing.created"
	SubjectListingUpdated  = "listing.updated"
	SubjectListingDeleted  = "listing.deleted"
	SubjectChatInteraction = "chat.interaction"
)

// Publisher sends a JSON-encoded payload to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// ListingDeleted is the payload of listing.deleted.
type ListingDeleted struct {
	ID uuid.UUID `json:"id"`
}

// ChatInteraction is the payload of chat.interaction.
type ChatInteraction struct {
	ClientID string            `json:"clientId,omitempty"`
	Input    string            `json:"input"`
	Source   model.ReplySource `json:"source"`
	Results  int               `json:"results"`
	At       time.Time         `json:"at"`
}

type conn interface {
	Publish(subj string, data []byte) error
}

// NATS publishes over a NATS connection.
type NATS struct {
	nc  conn
	raw *nats.Conn
	log *zap.Logger
}

// Connect dials url and returns a NATS publisher.
func Connect(url string, timeout time.Duration, log *zap.Logger) (*NATS, error) {
	log = log.Named("events")
	nc, err := nats.Connect(url,
		nats.Name("grader-market"),
		nats.Timeout(timeout),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subj := ""
			if sub != nil {
				subj = sub.Subject
			}
			log.Error("nats error", zap.String("subject", subj), zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	log.Info("connected to nats", zap.String("url", nc.ConnectedUrl()))
	return &NATS{nc: nc, raw: nc, log: log}, nil
}

func (p *NATS) Publish(_ context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	if err = p.nc.Publish(subject, data); err != nil {
		p.log.Error("publish failed", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.log.Debug("published", zap.String("subject", subject), zap.Int("bytes", len(data)))
	return nil
}

// Close flushes buffered messages and closes the connection.
func (p *NATS) Close() {
	if p.raw == nil || p.raw.IsClosed() {
		return
	}
	if err := p.raw.Drain(); err != nil {
		p.log.Error("nats drain", zap.Error(err))
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
