package repo

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Result is the minimal interface needed from a neo4j result.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// Runner runs a single Cypher statement.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
}

// Session is the minimal interface needed from a neo4j session. Work passed
// to ExecuteWrite and ExecuteRead runs inside one managed transaction.
type Session interface {
	Runner
	ExecuteWrite(ctx context.Context, work func(tx Runner) (any, error)) (any, error)
	ExecuteRead(ctx context.Context, work func(tx Runner) (any, error)) (any, error)
	Close(ctx context.Context) error
}

// Opener opens sessions. Tests substitute fakes for the driver-backed opener.
type Opener interface {
	OpenSession(ctx context.Context) Session
}

// DriverOpener opens sessions on a neo4j driver against one database.
// An empty database selects the server default.
type DriverOpener struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// OpenSession implements Opener.
func (o DriverOpener) OpenSession(ctx context.Context) Session {
	return &driverSession{sess: o.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: o.Database})}
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (s *driverSession) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	res, err := s.sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *driverSession) ExecuteWrite(ctx context.Context, work func(tx Runner) (any, error)) (any, error) {
	return s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(txRunner{tx: tx})
	})
}

func (s *driverSession) ExecuteRead(ctx context.Context, work func(tx Runner) (any, error)) (any, error) {
	return s.sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(txRunner{tx: tx})
	})
}

func (s *driverSession) Close(ctx context.Context) error {
	return s.sess.Close(ctx)
}

type txRunner struct {
	tx neo4j.ManagedTransaction
}

func (t txRunner) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res, nil
}
