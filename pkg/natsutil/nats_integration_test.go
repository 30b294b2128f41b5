//go:build integration

package natsutil

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func liveConn(t *testing.T) *nats.Conn {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := Connect(url, "natsutil-integration", slog.Default())
	if err != nil {
		t.Skipf("no NATS server at %s: %v", url, err)
	}
	t.Cleanup(nc.Close)
	return nc
}

type statement struct {
	Question string `json:"question"`
	Query    string `json:"query"`
}

func TestPublishSubscribeCarriesTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	nc := liveConn(t)
	subject := "amrgraph.test." + time.Now().Format("150405.000")

	type delivery struct {
		v   statement
		ctx context.Context
	}
	got := make(chan delivery, 1)
	sub, err := Subscribe(nc, subject, func(ctx context.Context, v statement) { got <- delivery{v, ctx} })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))
	want := statement{Question: "Which genes?", Query: "MATCH (g:Gene) RETURN g.name"}
	if err := Publish(ctx, nc, subject, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case d := <-got:
		if d.v != want {
			t.Fatalf("got %+v, want %+v", d.v, want)
		}
		if sc := trace.SpanContextFromContext(d.ctx); sc.TraceID() != traceID {
			t.Fatalf("trace id %s, want %s", sc.TraceID(), traceID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
