package models

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GenAICatalog lists models through the Gemini API client.
type GenAICatalog struct {
	client *genai.Client
}

// OpenGenAI is an OpenFunc backed by the Gemini API.
func OpenGenAI(ctx context.Context, apiKey string) (Catalog, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GenAICatalog{client: client}, nil
}

func (c *GenAICatalog) Models(ctx context.Context) ([]Model, error) {
	it := c.client.ListModels(ctx)
	var out []Model
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Model{
			Name:             m.Name,
			DisplayName:      m.DisplayName,
			Methods:          m.SupportedGenerationMethods,
			InputTokenLimit:  m.InputTokenLimit,
			OutputTokenLimit: m.OutputTokenLimit,
		})
	}
}

func (c *GenAICatalog) Close() error { return c.client.Close() }
