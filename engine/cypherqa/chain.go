// Package cypherqa answers natural-language questions over the knowledge
// graph. An LLM writes a Cypher statement from the graph schema, the
// statement runs against Neo4j, and the LLM phrases the rows as an answer.
package cypherqa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sanjuz-cas/llm-kg-project/engine/audit"
	"github.com/sanjuz-cas/llm-kg-project/engine/graph"
	"github.com/sanjuz-cas/llm-kg-project/pkg/fn"
	"github.com/sanjuz-cas/llm-kg-project/pkg/metrics"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

// DefaultTopK caps how many result rows reach the answer prompt.
const DefaultTopK = 10

var (
	// ErrDangerousRequestsNotAllowed is returned by New without the explicit
	// opt-in. Generated statements run unreviewed and may read or modify
	// any data the Neo4j user can reach.
	ErrDangerousRequestsNotAllowed = errors.New("cypherqa: executing LLM-generated Cypher requires AllowDangerousRequests; " +
		"generated statements can read or modify any data the database user can access")
	ErrNoStatement = errors.New("cypherqa: the model returned no Cypher statement")
)

// Graph is what the chain needs from the store. *graph.GraphStore
// implements it.
type Graph interface {
	Schema(ctx context.Context) (graph.Schema, error)
	Query(ctx context.Context, cypher string, params map[string]any, opts graph.QueryOptions) ([]map[string]any, error)
}

// Options configures a Chain.
type Options struct {
	// AllowDangerousRequests must be true; see ErrDangerousRequestsNotAllowed.
	AllowDangerousRequests bool
	Temperature            float64
	// TopK caps the rows passed to the answer prompt. Zero means DefaultTopK.
	TopK int
	// ReadOnly runs generated statements in read transactions, so writes fail.
	ReadOnly bool
	// Trace receives the generated statement and the rows for each question.
	Trace io.Writer

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Audit   *audit.Publisher
}

// Result is the outcome of one question.
type Result struct {
	Question string
	Query    string
	Context  []map[string]any
	Answer   string
}

// Chain is safe for sequential use; the schema cache is guarded for
// concurrent callers.
type Chain struct {
	llm   llms.Model
	graph Graph
	opts  Options

	mu     sync.Mutex
	schema string

	invoke fn.Stage[string, Result]
}

// New builds a Chain. It refuses to build without
// Options.AllowDangerousRequests.
func New(llm llms.Model, g Graph, opts Options) (*Chain, error) {
	if !opts.AllowDangerousRequests {
		return nil, ErrDangerousRequestsNotAllowed
	}
	if llm == nil || g == nil {
		return nil, errors.New("cypherqa: llm and graph are required")
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Chain{llm: llm, graph: g, opts: opts}
	c.invoke = fn.Traced("cypherqa.invoke",
		fn.Then(
			fn.Then(fn.Lift(c.generate), fn.Lift(c.execute)),
			fn.Lift(c.answer),
		),
	)
	return c, nil
}

// Invoke answers one question. No state carries between calls apart from
// the cached schema.
func (c *Chain) Invoke(ctx context.Context, question string) (Result, error) {
	res, err := c.invoke(ctx, question).Unwrap()
	if err != nil {
		c.count("error")
		return Result{}, err
	}
	c.count("ok")
	return res, nil
}

// RefreshSchema reloads the schema used by the generation prompt.
func (c *Chain) RefreshSchema(ctx context.Context) error {
	s, err := c.graph.Schema(ctx)
	if err != nil {
		return fmt.Errorf("cypherqa: schema: %w", err)
	}
	c.mu.Lock()
	c.schema = s.String()
	c.mu.Unlock()
	return nil
}

func (c *Chain) cachedSchema(ctx context.Context) (string, error) {
	c.mu.Lock()
	s := c.schema
	c.mu.Unlock()
	if s != "" {
		return s, nil
	}
	if err := c.RefreshSchema(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schema, nil
}

func (c *Chain) generate(ctx context.Context, question string) (Result, error) {
	schema, err := c.cachedSchema(ctx)
	if err != nil {
		return Result{}, err
	}
	reply, err := c.call(ctx, "cypher", cypherPrompt, map[string]any{
		"schema":   schema,
		"question": question,
	})
	if err != nil {
		return Result{}, err
	}
	query := ExtractCypher(reply)
	if query == "" {
		return Result{}, ErrNoStatement
	}
	c.opts.Logger.Debug("generated cypher", "question", question, "query", query)
	c.tracef("Generated Cypher:\n%s\n", query)
	return Result{Question: question, Query: query}, nil
}

func (c *Chain) execute(ctx context.Context, r Result) (Result, error) {
	rows, err := c.graph.Query(ctx, r.Query, nil, graph.QueryOptions{
		Limit:    c.opts.TopK,
		ReadOnly: c.opts.ReadOnly,
	})
	ev := audit.CypherGenerated{Question: r.Question, Query: r.Query, Rows: len(rows)}
	if err != nil {
		ev.Error = err.Error()
	}
	c.opts.Audit.CypherGenerated(ctx, ev)
	if err != nil {
		return Result{}, fmt.Errorf("cypherqa: run generated statement: %w", err)
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.CypherRows.Observe(float64(len(rows)))
	}
	r.Context = rows
	c.tracef("Full Context:\n%s\n", formatContext(rows))
	return r, nil
}

func (c *Chain) answer(ctx context.Context, r Result) (Result, error) {
	reply, err := c.call(ctx, "answer", qaPrompt, map[string]any{
		"context":  formatContext(r.Context),
		"question": r.Question,
	})
	if err != nil {
		return Result{}, err
	}
	r.Answer = reply
	return r, nil
}

func (c *Chain) call(ctx context.Context, step string, tmpl prompts.PromptTemplate, values map[string]any) (string, error) {
	prompt, err := tmpl.Format(values)
	if err != nil {
		return "", fmt.Errorf("cypherqa: %s prompt: %w", step, err)
	}
	start := time.Now()
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, llms.WithTemperature(c.opts.Temperature))
	if c.opts.Metrics != nil {
		c.opts.Metrics.ObserveLLM(step, start)
	}
	if err != nil {
		return "", fmt.Errorf("cypherqa: %s: %w", step, err)
	}
	return out, nil
}

func (c *Chain) tracef(format string, args ...any) {
	if c.opts.Trace != nil {
		fmt.Fprintf(c.opts.Trace, format, args...)
	}
}

func (c *Chain) count(result string) {
	if c.opts.Metrics != nil {
		c.opts.Metrics.Questions.WithLabelValues(result).Inc()
	}
}
