package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/sanjuz-cas/llm-kg-project/engine/audit"
	"github.com/sanjuz-cas/llm-kg-project/engine/domain"
	"github.com/sanjuz-cas/llm-kg-project/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *Runtime {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range []string{config.KeyNeo4jURI, config.KeyNeo4jUsername, config.KeyNeo4jPassword, config.KeyNATSURL} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	rt, err := Setup(t.Context(), Options{Service: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close(context.Background()) })
	return rt
}

func TestSetupWithoutEnvFile(t *testing.T) {
	rt := setup(t)
	assert.NotNil(t, rt.Logger)
	assert.Equal(t, "gemini-2.5-pro", rt.Config.LLM.Model)
	assert.NoError(t, rt.Close(t.Context()))
}

func TestSetupExplicitEnvFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Setup(t.Context(), Options{Service: "test", EnvFile: "nope.env"})
	assert.Error(t, err)
}

func TestNeo4jRequiresCredentials(t *testing.T) {
	rt := setup(t)
	_, err := rt.Neo4j(t.Context())
	var cerr *domain.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, config.KeyNeo4jURI, cerr.Key)
	assert.Equal(t, "NEO4J_URI not found in .env file.", err.Error())
}

func TestEventsDisabledWithoutURL(t *testing.T) {
	rt := setup(t)
	ev := rt.Events()
	require.NotNil(t, ev)
	// No connection: publishing is a no-op.
	ev.RowLoaded(t.Context(), audit.RowLoaded{RunID: "r", Line: 2, PatientID: "P1"})
}

func TestNATSRequiresURL(t *testing.T) {
	rt := setup(t)
	_, err := rt.NATS()
	assert.ErrorIs(t, err, domain.ErrMissingConfig)
}

func TestCloseRunsNewestFirst(t *testing.T) {
	var order []int
	rt := &Runtime{}
	rt.onClose(func(context.Context) error { order = append(order, 1); return nil })
	rt.onClose(func(context.Context) error { order = append(order, 2); return errors.New("boom") })

	err := rt.Close(t.Context())
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []int{2, 1}, order)
	assert.NoError(t, rt.Close(t.Context()), "second close is a no-op")
}
