// Command loadgraph loads the antibiotic resistance CSV into Neo4j as a
// graph of patients, specimens, outcomes and resistance genes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sanjuz-cas/llm-kg-project/engine/graph"
	"github.com/sanjuz-cas/llm-kg-project/engine/tabular"
	"github.com/sanjuz-cas/llm-kg-project/engine/uploader"
	"github.com/sanjuz-cas/llm-kg-project/pkg/bootstrap"
	"github.com/sanjuz-cas/llm-kg-project/pkg/fn"
	"github.com/sanjuz-cas/llm-kg-project/pkg/metrics"
	"github.com/spf13/cobra"
)

type flags struct {
	csv         string
	wipe        bool
	envFile     string
	metricsAddr string
	trace       bool
	comma       string
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
		Use:   "loadgraph --csv PATH",
		Short: "Load the antibiotic resistance CSV into Neo4j",
		Long: `Reads patient rows from a CSV file and merges them into Neo4j as
Patient, Specimen, Outcome and Gene nodes. Rows without a Patient_ID are
skipped. Re-running the load does not duplicate nodes or relationships.

Connection settings come from NEO4J_URI, NEO4J_USERNAME and NEO4J_PASSWORD,
read from the environment or the .env file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.csv, "csv", "", "path to the antibiotic resistance CSV file")
	fl.BoolVar(&f.wipe, "wipe", false, "delete every node and relationship before loading")
	fl.StringVar(&f.envFile, "env-file", "", "dotenv file to read (default .env when present)")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides METRICS_ADDR)")
	fl.BoolVar(&f.trace, "trace", false, "print OpenTelemetry spans to stderr")
	fl.StringVar(&f.comma, "delimiter", ",", "field delimiter of the CSV file")
	cmd.MarkFlagRequired("csv")
	return cmd
}

func run(ctx context.Context, out io.Writer, f flags) error {
	comma := []rune(f.comma)
	if len(comma) != 1 {
		return fmt.Errorf("--delimiter must be a single character, got %q", f.comma)
	}

	rt, err := bootstrap.Setup(ctx, bootstrap.Options{Service: "loadgraph", EnvFile: f.envFile, Trace: f.trace})
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	driver, err := rt.Neo4j(ctx)
	if err != nil {
		return err
	}

	m := metrics.New()
	addr := f.metricsAddr
	if addr == "" {
		addr = rt.Config.Metrics.Addr
	}
	if addr != "" {
		m.ServeAsync(ctx, addr, rt.Logger, driver.VerifyConnectivity)
	}

	src, err := tabular.Open(f.csv, tabular.WithComma(comma[0]))
	if err != nil {
		return err
	}
	defer src.Close()
	records, err := src.ReadAll(ctx)
	if err != nil {
		return err
	}
	rt.Logger.Info("csv read", "path", f.csv, "rows", src.Rows(), "skipped", src.Skipped())

	u := uploader.New(graph.New(driver, rt.Config.Neo4j.Database), uploader.Options{
		Logger:  rt.Logger,
		Metrics: m,
		Events:  rt.Events(),
	})

	if f.wipe {
		fmt.Fprintln(out, "Clearing the database...")
		if err := u.Wipe(ctx, true); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Processing %d rows from the CSV file...\n", len(records))
	sum, err := u.Upload(ctx, &uploader.SliceSource{Records: records, Dropped: src.Skipped()})
	if err != nil {
		fmt.Fprintf(out, "Stopped after %d rows; rows already written stay in the database.\n", sum.Rows)
		return err
	}
	printSummary(out, sum)
	return nil
}

func printSummary(w io.Writer, s uploader.Summary) {
	fmt.Fprintln(w, "Data loaded successfully into Neo4j.")
	fmt.Fprintf(w, "  rows loaded:   %d\n", s.Rows)
	fmt.Fprintf(w, "  rows skipped:  %d\n", s.Skipped)
	fmt.Fprintf(w, "  genes linked:  %d\n", s.Genes)
	fmt.Fprintf(w, "  duration:      %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  patients:      %d\n", s.Patients)
	printCounts(w, "nodes", s.Nodes)
	printCounts(w, "relationships", s.Relationships)
	if len(s.TopGenes) > 0 {
		fmt.Fprintln(w, "  most common genes:")
		for _, g := range s.TopGenes {
			fmt.Fprintf(w, "    %-14s %d\n", g.Gene, g.Patients)
		}
	}
}

func printCounts(w io.Writer, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", title)
	for _, k := range fn.SortedKeys(counts) {
		fmt.Fprintf(w, "    %-14s %d\n", k, counts[k])
	}
}
