// Package bootstrap wires the process-wide pieces every command needs:
// configuration, logging, tracing, the Neo4j driver and the optional NATS
// connection.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sanjuz-cas/llm-kg-project/engine/audit"
	"github.com/sanjuz-cas/llm-kg-project/engine/domain"
	"github.com/sanjuz-cas/llm-kg-project/pkg/config"
	"github.com/sanjuz-cas/llm-kg-project/pkg/logging"
	"github.com/sanjuz-cas/llm-kg-project/pkg/natsutil"
	"github.com/sanjuz-cas/llm-kg-project/pkg/telemetry"
)

// Options selects what Setup reads and enables.
type Options struct {
	Service string
	EnvFile string
	Trace   bool
}

// Runtime holds the shared dependencies of a command. Close releases them
// in reverse order.
type Runtime struct {
	Config *config.Config
	Logger *slog.Logger

	closers []func(context.Context) error
}

// Setup loads configuration and installs logging and tracing.
func Setup(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.Load(config.LoadOptions{EnvFile: opts.EnvFile})
	if err != nil {
		return nil, err
	}
	logger, flush, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: logging: %w", err)
	}
	logger = logger.With("service", opts.Service)
	slog.SetDefault(logger)

	rt := &Runtime{Config: cfg, Logger: logger}
	rt.onClose(func(context.Context) error { flush(); return nil })

	shutdown, err := telemetry.Setup(ctx, telemetry.Options{ServiceName: opts.Service, Enabled: opts.Trace})
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("bootstrap: telemetry: %w", err)
	}
	rt.onClose(shutdown)
	return rt, nil
}

// Neo4j checks the credentials, opens a driver and verifies it can reach
// the server.
func (rt *Runtime) Neo4j(ctx context.Context) (neo4j.DriverWithContext, error) {
	if err := rt.Config.RequireNeo4j(); err != nil {
		return nil, err
	}
	c := rt.Config.Neo4j
	driver, err := neo4j.NewDriverWithContext(c.URI, neo4j.BasicAuth(c.Username, c.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("bootstrap: neo4j connect %s: %w", c.URI, err)
	}
	rt.onClose(driver.Close)
	rt.Logger.Info("connected to Neo4j", "uri", c.URI)
	return driver, nil
}

// Events returns the audit publisher. It publishes nothing when NATS_URL is
// unset or the server cannot be reached.
func (rt *Runtime) Events() *audit.Publisher {
	c := rt.Config.NATS
	if c.URL == "" {
		return audit.New(nil, c.AuditSubject, c.EventSubject, rt.Logger)
	}
	nc, err := natsutil.Connect(c.URL, "amrgraph", rt.Logger)
	if err != nil {
		rt.Logger.Warn("audit events disabled", "err", err)
		return audit.New(nil, c.AuditSubject, c.EventSubject, rt.Logger)
	}
	rt.onClose(func(context.Context) error { return drain(nc) })
	return audit.New(nc, c.AuditSubject, c.EventSubject, rt.Logger)
}

// NATS returns a raw connection for subscribers. Unlike Events it fails
// when NATS_URL is unset.
func (rt *Runtime) NATS() (*nats.Conn, error) {
	if rt.Config.NATS.URL == "" {
		return nil, &domain.ConfigError{Key: config.KeyNATSURL, Source: "environment"}
	}
	nc, err := natsutil.Connect(rt.Config.NATS.URL, "amrgraph", rt.Logger)
	if err != nil {
		return nil, err
	}
	rt.onClose(func(context.Context) error { return drain(nc) })
	return nc, nil
}

// Close runs the registered cleanups, newest first, and joins their errors.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func (rt *Runtime) onClose(f func(context.Context) error) {
	rt.closers = append(rt.closers, f)
}

func drain(nc *nats.Conn) error {
	if err := nc.Drain(); err != nil {
		nc.Close()
		return err
	}
	return nil
}
