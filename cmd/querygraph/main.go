// Command querygraph is an interactive shell that answers questions about
// the antibiotic resistance graph. Gemini writes a Cypher statement for each
// question, the statement runs against Neo4j and Gemini phrases the answer.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sanjuz-cas/llm-kg-project/engine/cypherqa"
	"github.com/sanjuz-cas/llm-kg-project/engine/graph"
	"github.com/sanjuz-cas/llm-kg-project/engine/shell"
	"github.com/sanjuz-cas/llm-kg-project/pkg/bootstrap"
	"github.com/sanjuz-cas/llm-kg-project/pkg/metrics"
	"github.com/sanjuz-cas/llm-kg-project/pkg/resilience"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms/googleai"
)

type flags struct {
	allowDangerous bool
	model          string
	readOnly       bool
	verbose        bool
	envFile        string
	metricsAddr    string
	trace          bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "querygraph --allow-dangerous-requests",
		Short: "Ask questions about the antibiotic resistance graph",
		Long: `Starts an interactive question loop over the Neo4j graph.

Statements written by the model are executed without review and can read or
modify anything the Neo4j user can reach. The shell only starts when
--allow-dangerous-requests is given; add --read-only to run them in read
transactions.

Needs GOOGLE_API_KEY, NEO4J_URI, NEO4J_USERNAME and NEO4J_PASSWORD from the
environment or the .env file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), f)
		},
	}
	fl := cmd.Flags()
	fl.BoolVar(&f.allowDangerous, "allow-dangerous-requests", false, "acknowledge that model-generated Cypher runs unreviewed")
	fl.StringVar(&f.model, "model", "", "Gemini model name (overrides LLM_MODEL)")
	fl.BoolVar(&f.readOnly, "read-only", false, "run generated statements in read transactions")
	fl.BoolVar(&f.verbose, "verbose", true, "print the generated Cypher and the rows it returned")
	fl.StringVar(&f.envFile, "env-file", "", "dotenv file to read (default .env when present)")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides METRICS_ADDR)")
	fl.BoolVar(&f.trace, "trace", false, "print OpenTelemetry spans to stderr")
	return cmd
}

func run(ctx context.Context, in io.Reader, out io.Writer, f flags) error {
	if !f.allowDangerous {
		return cypherqa.ErrDangerousRequestsNotAllowed
	}

	rt, err := bootstrap.Setup(ctx, bootstrap.Options{Service: "querygraph", EnvFile: f.envFile, Trace: f.trace})
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())
	cfg := rt.Config

	if err := cfg.RequireLLM(); err != nil {
		return err
	}
	model := f.model
	if model == "" {
		model = cfg.LLM.Model
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.LLM.APIKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return fmt.Errorf("querygraph: gemini client: %w", err)
	}

	driver, err := rt.Neo4j(ctx)
	if err != nil {
		return err
	}

	m := metrics.New()
	addr := f.metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		m.ServeAsync(ctx, addr, rt.Logger, driver.VerifyConnectivity)
	}

	opts := cypherqa.Options{
		AllowDangerousRequests: f.allowDangerous,
		Temperature:            cfg.LLM.Temperature,
		TopK:                   cfg.QA.TopK,
		ReadOnly:               f.readOnly,
		Logger:                 rt.Logger,
		Metrics:                m,
		Audit:                  rt.Events(),
	}
	if f.verbose {
		opts.Trace = out
	}
	chain, err := cypherqa.New(llm, graph.New(driver, cfg.Neo4j.Database), opts)
	if err != nil {
		return err
	}
	if err := chain.RefreshSchema(ctx); err != nil {
		return err
	}
	rt.Logger.Debug("question shell ready", "model", model, "read_only", f.readOnly)

	sh := shell.New(chain, in, out,
		shell.WithLimiter(resilience.NewLimiter(cfg.QA.RatePerMinute, 1)),
		shell.WithLogger(rt.Logger),
	)
	return sh.Run(ctx)
}
