package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/varannot/internal/control"
)

var (
	workers           int
	requestsPerSecond float64
	populations       []string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <input.vcf> [output.tsv]",
	Short: "Annotate a VCF file",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAnnotate,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, annotateCmd} {
		flags := cmd.Flags()
		flags.IntVar(&workers, "workers", 0, "variants annotated concurrently (overrides config)")
		flags.Float64Var(&requestsPerSecond, "rps", 0, "requests per second to the service (overrides config)")
		flags.StringSliceVar(&populations, "populations", nil, "population preference list (overrides config)")
	}
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	input := args[0]
	output := cfg.Output.Path
	if len(args) > 1 {
		output = args[1]
	}
	if output == "" {
		return errors.New("no output path given")
	}

	if workers > 0 {
		cfg.Annotation.MaxWorkers = workers
	}
	if requestsPerSecond > 0 {
		cfg.Service.RequestsPerSecond = requestsPerSecond
	}
	if len(populations) > 0 {
		cfg.Annotation.TargetPopulations = populations
	}

	ctx, stop := signalContext()
	defer stop()

	app, err := control.New(ctx, control.FromAppConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize annotator: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Stop(shutdownCtx); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start annotator: %w", err)
	}

	run, err := app.Run(ctx, input, output)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("Received signal, run cancelled", "run", run.ID.String())
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d variants, %d fully resolved, %d partial -> %s\n",
		run.ID, run.Total, run.Resolved, run.Partial, run.Output)
	return nil
}
