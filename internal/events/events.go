// Package events publishes chat-gate decisions to NATS for downstream
// consumers (moderation dashboards, analytics).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ChatDecision is the payload published for every can-chat evaluation.
type ChatDecision struct {
	InitiatorID string    `json:"initiator_id"`
	TargetID    string    `json:"target_id"`
	Allowed     bool      `json:"can_chat"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher emits domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishChatDecision(ctx context.Context, ev ChatDecision) error
	Close() error
}

// Config configures the NATS connection.
type Config struct {
	NATSURL       string        `yaml:"nats_url" mapstructure:"nats_url"`
	SubjectPrefix string        `yaml:"subject_prefix" mapstructure:"subject_prefix"`
	MaxReconnects int           `yaml:"max_reconnects" mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" mapstructure:"reconnect_wait"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// conn is the subset of *nats.Conn used by NATSPublisher.
type conn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSPublisher publishes JSON events on <prefix>.chat.allowed and
// <prefix>.chat.denied.
type NATSPublisher struct {
	nc     conn
	prefix string
}

// Connect dials NATS and returns a publisher. An empty URL yields a Nop
// publisher so the service runs without a broker.
func Connect(cfg Config) (Publisher, error) {
	if cfg.NATSURL == "" {
		return Nop{}, nil
	}

	log := zap.L().With(zap.String("component", "events"))
	opts := []nats.Option{
		nats.Name("helpmap"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("nats connection closed")
		}),
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, nats.Timeout(cfg.Timeout))
	}

	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, eris.Wrapf(err, "events: connect %s", cfg.NATSURL)
	}
	return newNATSPublisher(nc, cfg.SubjectPrefix), nil
}

func newNATSPublisher(nc conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "helpmap"
	}
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(ev ChatDecision) string {
	if ev.Allowed {
		return p.prefix + ".chat.allowed"
	}
	return p.prefix + ".chat.denied"
}

func (p *NATSPublisher) PublishChatDecision(_ context.Context, ev ChatDecision) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "events: marshal chat decision")
	}
	subj := p.Subject(ev)
	if err := p.nc.Publish(subj, data); err != nil {
		return eris.Wrapf(err, "events: publish %s", subj)
	}
	return nil
}

// Close drains in-flight messages before closing the connection.
func (p *NATSPublisher) Close() error {
	return eris.Wrap(p.nc.Drain(), "events: drain")
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishChatDecision(context.Context, ChatDecision) error { return nil }

func (Nop) Close() error { return nil }
