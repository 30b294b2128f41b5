// Command checkmodels lists the Gemini models available to GOOGLE_API_KEY
// that can generate content. It always exits 0; problems are printed.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sanjuz-cas/llm-kg-project/engine/models"
	"github.com/sanjuz-cas/llm-kg-project/pkg/bootstrap"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(models.OpenGenAI).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func newRootCmd(open models.OpenFunc) *cobra.Command {
	var (
		envFile string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:           "checkmodels",
		Short:         "List the Gemini models your API key can use",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), open, envFile, verbose)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to read (default .env when present)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "also print display names and token limits")
	return cmd
}

func run(ctx context.Context, out io.Writer, open models.OpenFunc, envFile string, verbose bool) error {
	rt, err := bootstrap.Setup(ctx, bootstrap.Options{Service: "checkmodels", EnvFile: envFile})
	if err != nil {
		_, werr := fmt.Fprintf(out, "An error occurred: %v\n", err)
		return werr
	}
	defer rt.Close(context.Background())

	l := &models.Lister{Open: open, Logger: rt.Logger, Verbose: verbose}
	return l.Run(ctx, out, rt.Config.LLM.APIKey)
}
