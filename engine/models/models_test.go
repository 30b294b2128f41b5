package models

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeCatalog struct {
	models []Model
	err    error
	closed bool
}

func (c *fakeCatalog) Models(context.Context) ([]Model, error) { return c.models, c.err }
func (c *fakeCatalog) Close() error                           { c.closed = true; return nil }

func opener(c *fakeCatalog, err error) OpenFunc {
	return func(context.Context, string) (Catalog, error) {
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

var catalog = []Model{
	{Name: "models/gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro", Methods: []string{"generateContent", "countTokens"}, InputTokenLimit: 1048576, OutputTokenLimit: 65536},
	{Name: "models/text-embedding-004", Methods: []string{"embedContent"}},
	{Name: "models/gemini-2.5-flash", Methods: []string{"generateContent"}},
}

func TestRunListsGenerateContentModels(t *testing.T) {
	cat := &fakeCatalog{models: catalog}
	var out bytes.Buffer
	l := &Lister{Open: opener(cat, nil)}

	require.NoError(t, l.Run(context.Background(), &out, "key"))

	want := "Available Gemini models for your API key:\n" +
		rule + "\n" +
		"models/gemini-2.5-pro\n" +
		"models/gemini-2.5-flash\n" +
		rule + "\n" +
		"\nCopy one of the model names from this list and set it as LLM_MODEL in your .env file.\n"
	assert.Equal(t, want, out.String())
	assert.NotContains(t, out.String(), "embedding")
	assert.True(t, cat.closed)
	assert.Len(t, rule, 35)
}

func TestRunVerbose(t *testing.T) {
	var out bytes.Buffer
	l := &Lister{Open: opener(&fakeCatalog{models: catalog[:1]}, nil), Verbose: true}
	require.NoError(t, l.Run(context.Background(), &out, "key"))
	assert.Contains(t, out.String(), "models/gemini-2.5-pro  (Gemini 2.5 Pro, in=1048576 out=65536 tokens)")
}

func TestRunMissingKey(t *testing.T) {
	var out bytes.Buffer
	l := &Lister{Open: func(context.Context, string) (Catalog, error) {
		t.Fatal("must not connect without a key")
		return nil, nil
	}}
	require.NoError(t, l.Run(context.Background(), &out, "  "))
	assert.Equal(t, "Error: GOOGLE_API_KEY not found in .env file.\n", out.String())
}

func TestRunReportsErrorsWithoutFailing(t *testing.T) {
	tests := []struct {
		name string
		open OpenFunc
		hint string
	}{
		{
			name: "bad key",
			open: opener(&fakeCatalog{err: status.Error(codes.InvalidArgument, "API key not valid. Please pass a valid API key.")}, nil),
			hint: "Please ensure your GOOGLE_API_KEY in the .env file is correct.\n",
		},
		{
			name: "network",
			open: opener(nil, errors.New("dial tcp: lookup generativelanguage.googleapis.com: no such host")),
			hint: "and that the API is reachable.\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, (&Lister{Open: tt.open}).Run(context.Background(), &out, "key"))
			assert.True(t, strings.HasPrefix(out.String(), "An error occurred: "), out.String())
			assert.True(t, strings.HasSuffix(out.String(), tt.hint), out.String())
			assert.NotContains(t, out.String(), "Available Gemini models")
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestRunOnlyFailsOnWriter(t *testing.T) {
	l := &Lister{Open: opener(&fakeCatalog{models: catalog}, nil)}
	assert.Error(t, l.Run(context.Background(), failingWriter{}, "key"))
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{status.Error(codes.Unauthenticated, "no"), true},
		{status.Error(codes.PermissionDenied, "no"), true},
		{status.Error(codes.InvalidArgument, "API key expired"), true},
		{status.Error(codes.InvalidArgument, "bad request body"), false},
		{status.Error(codes.Unavailable, "try later"), false},
		{&googleapi.Error{Code: 403, Message: "forbidden"}, true},
		{fmt.Errorf("list: %w", &googleapi.Error{Code: 400, Message: "API key not valid"}), true},
		{&googleapi.Error{Code: 500}, false},
		{errors.New("eof"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAuthError(tt.err), "%v", tt.err)
	}
}

func TestModelSupports(t *testing.T) {
	assert.True(t, catalog[0].Supports(MethodGenerateContent))
	assert.False(t, catalog[1].Supports(MethodGenerateContent))
}
