// Command auditwatch prints the Cypher statements generated by querygraph,
// and optionally the rows written by loadgraph, as they are published on
// NATS.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sanjuz-cas/llm-kg-project/engine/audit"
	"github.com/sanjuz-cas/llm-kg-project/pkg/bootstrap"
	"github.com/sanjuz-cas/llm-kg-project/pkg/natsutil"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		rows    bool
	)
	cmd := &cobra.Command{
		Use:           "auditwatch",
		Short:         "Follow generated Cypher statements published on NATS",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), envFile, rows)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to read (default .env when present)")
	cmd.Flags().BoolVar(&rows, "rows", false, "also print rows written by loadgraph")
	return cmd
}

func run(ctx context.Context, out io.Writer, envFile string, rows bool) error {
	rt, err := bootstrap.Setup(ctx, bootstrap.Options{Service: "auditwatch", EnvFile: envFile})
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	nc, err := rt.NATS()
	if err != nil {
		return err
	}

	p := &printer{w: out}
	subject := rt.Config.NATS.AuditSubject
	if _, err := natsutil.Subscribe(nc, subject, func(_ context.Context, ev audit.CypherGenerated) {
		p.print(formatCypher(ev))
	}); err != nil {
		return fmt.Errorf("auditwatch: subscribe %s: %w", subject, err)
	}
	if rows {
		subject := rt.Config.NATS.EventSubject
		if _, err := natsutil.Subscribe(nc, subject, func(_ context.Context, ev audit.RowLoaded) {
			p.print(formatRow(ev))
		}); err != nil {
			return fmt.Errorf("auditwatch: subscribe %s: %w", subject, err)
		}
	}
	rt.Logger.Info("watching", "subject", subject, "rows", rows)

	<-ctx.Done()
	return nil
}

// printer serialises output from concurrent subscription callbacks.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) print(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	io.WriteString(p.w, s)
}

func formatCypher(ev audit.CypherGenerated) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ev.At.Format(time.TimeOnly), ev.Question)
	for _, line := range strings.Split(ev.Query, "\n") {
		b.WriteString("    " + line + "\n")
	}
	if ev.Error != "" {
		fmt.Fprintf(&b, "    error: %s\n", ev.Error)
	} else {
		fmt.Fprintf(&b, "    rows: %d\n", ev.Rows)
	}
	return b.String()
}

func formatRow(ev audit.RowLoaded) string {
	s := fmt.Sprintf("[%s] run %s line %d patient %s", ev.At.Format(time.TimeOnly), ev.RunID, ev.Line, ev.PatientID)
	if ev.Gene != "" {
		s += " gene " + ev.Gene
	}
	return s + "\n"
}
