// Package models lists the Gemini models an API key can use for content
// generation. It is a diagnostic: failures are printed, never returned.
package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/sanjuz-cas/llm-kg-project/engine/domain"
	"github.com/sanjuz-cas/llm-kg-project/pkg/fn"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MethodGenerateContent is the capability the Q&A chain needs.
const MethodGenerateContent = "generateContent"

const rule = "-----------------------------------"

// Model is one entry of the provider catalog.
type Model struct {
	Name             string
	DisplayName      string
	Methods          []string
	InputTokenLimit  int32
	OutputTokenLimit int32
}

// Supports reports whether the model advertises method.
func (m Model) Supports(method string) bool {
	return slices.Contains(m.Methods, method)
}

// Catalog enumerates provider models.
type Catalog interface {
	Models(ctx context.Context) ([]Model, error)
}

// OpenFunc connects a Catalog for an API key.
type OpenFunc func(ctx context.Context, apiKey string) (Catalog, error)

// Lister prints the generateContent-capable models.
type Lister struct {
	Open    OpenFunc
	Logger  *slog.Logger
	Verbose bool
}

// Run writes the model list to w. A missing key, a rejected key and network
// failures are all reported on w; Run itself only fails if w does.
func (l *Lister) Run(ctx context.Context, w io.Writer, apiKey string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(apiKey) == "" {
		err := &domain.ConfigError{Key: "GOOGLE_API_KEY", Source: ".env file"}
		_, werr := fmt.Fprintf(w, "Error: %s\n", err)
		return werr
	}

	names, err := l.list(ctx, apiKey)
	if err != nil {
		logger.Debug("list models failed", "err", err, "auth", IsAuthError(err))
		_, werr := fmt.Fprintf(w, "An error occurred: %v\n%s\n", err, Hint(err))
		return werr
	}

	var b strings.Builder
	b.WriteString("Available Gemini models for your API key:\n")
	b.WriteString(rule + "\n")
	for _, n := range names {
		b.WriteString(n + "\n")
	}
	b.WriteString(rule + "\n")
	b.WriteString("\nCopy one of the model names from this list and set it as LLM_MODEL in your .env file.\n")
	_, werr := io.WriteString(w, b.String())
	return werr
}

func (l *Lister) list(ctx context.Context, apiKey string) ([]string, error) {
	cat, err := l.Open(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if c, ok := cat.(io.Closer); ok {
		defer c.Close()
	}
	all, err := cat.Models(ctx)
	if err != nil {
		return nil, err
	}
	return fn.FilterMap(all, func(m Model) (string, bool) {
		return l.format(m), m.Supports(MethodGenerateContent)
	}), nil
}

func (l *Lister) format(m Model) string {
	if !l.Verbose {
		return m.Name
	}
	return fmt.Sprintf("%s  (%s, in=%d out=%d tokens)", m.Name, m.DisplayName, m.InputTokenLimit, m.OutputTokenLimit)
}

// IsAuthError reports whether err means the API key was rejected.
func IsAuthError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return true
		case http.StatusBadRequest:
			return strings.Contains(strings.ToLower(gerr.Message), "api key")
		}
	}
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return true
	case codes.InvalidArgument:
		return strings.Contains(strings.ToLower(err.Error()), "api key")
	}
	return false
}

// Hint is the follow-up line printed after an error.
func Hint(err error) string {
	if IsAuthError(err) {
		return "Please ensure your GOOGLE_API_KEY in the .env file is correct."
	}
	return "Please ensure your GOOGLE_API_KEY in the .env file is correct and that the API is reachable."
}
