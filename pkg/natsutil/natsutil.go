// Package natsutil publishes and consumes JSON messages over NATS, carrying
// the OpenTelemetry trace context in message headers.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// MsgPublisher is the part of *nats.Conn that Publish needs.
type MsgPublisher interface {
	PublishMsg(*nats.Msg) error
}

// headerCarrier adapts nats.Msg headers to propagation.TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Connect dials url and logs connection state changes.
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("natsutil: connect %s: %w", url, err)
	}
	return nc, nil
}

// Publish encodes v as JSON and publishes it on subject with the trace
// context from ctx injected into the headers.
func Publish[T any](ctx context.Context, nc MsgPublisher, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("natsutil: encode %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return nc.PublishMsg(msg)
}

// Subscribe decodes each message on subject into T and calls handler with
// the extracted trace context. Messages that do not decode are dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		if ctx, v, ok := decode[T](msg); ok {
			handler(ctx, v)
		}
	})
}

func decode[T any](msg *nats.Msg) (context.Context, T, bool) {
	var v T
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return nil, v, false
	}
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
	return ctx, v, true
}
