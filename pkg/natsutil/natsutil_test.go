package natsutil

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type testMsg struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type capture struct {
	msgs []*nats.Msg
	err  error
}

func (c *capture) PublishMsg(m *nats.Msg) error {
	c.msgs = append(c.msgs, m)
	return c.err
}

func withTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })
}

func spanContext() trace.SpanContext {
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
}

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*headerCarrier)(msg)

	assert.Empty(t, carrier.Get("traceparent"))
	assert.Nil(t, carrier.Keys())

	carrier.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", carrier.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, carrier.Keys())
}

func TestPublishInjectsTraceContext(t *testing.T) {
	withTraceContext(t)
	ctx := trace.ContextWithSpanContext(context.Background(), spanContext())

	c := &capture{}
	require.NoError(t, Publish(ctx, c, "amrgraph.audit.cypher", testMsg{Name: "q", Value: 1}))
	require.Len(t, c.msgs, 1)

	msg := c.msgs[0]
	assert.Equal(t, "amrgraph.audit.cypher", msg.Subject)
	assert.JSONEq(t, `{"name":"q","value":1}`, string(msg.Data))
	assert.Contains(t, msg.Header.Get("traceparent"), "0102030405060708090a0b0c0d0e0f10")
}

func TestPublishError(t *testing.T) {
	c := &capture{err: nats.ErrConnectionClosed}
	err := Publish(context.Background(), c, "s", testMsg{})
	assert.True(t, errors.Is(err, nats.ErrConnectionClosed))
}

func TestPublishEncodeError(t *testing.T) {
	err := Publish(context.Background(), &capture{}, "s", func() {})
	assert.Error(t, err)
}

func TestDecodeRoundTrip(t *testing.T) {
	withTraceContext(t)
	ctx := trace.ContextWithSpanContext(context.Background(), spanContext())
	c := &capture{}
	require.NoError(t, Publish(ctx, c, "s", testMsg{Name: "gene", Value: 7}))

	gotCtx, v, ok := decode[testMsg](c.msgs[0])
	require.True(t, ok)
	assert.Equal(t, testMsg{Name: "gene", Value: 7}, v)
	assert.Equal(t, spanContext().TraceID(), trace.SpanContextFromContext(gotCtx).TraceID())
}

func TestDecodeDropsMalformed(t *testing.T) {
	_, _, ok := decode[testMsg](&nats.Msg{Data: []byte("{invalid json")})
	assert.False(t, ok)
}
