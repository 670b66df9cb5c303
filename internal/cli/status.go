package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vietddude/varannot/internal/core/config"
	"github.com/vietddude/varannot/internal/core/domain"
	redisclient "github.com/vietddude/varannot/internal/infra/redis"
	"github.com/vietddude/varannot/internal/infra/storage"
	"github.com/vietddude/varannot/internal/infra/storage/postgres"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show the status of recent annotation runs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "number of runs to list")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runs, closeFn, err := openRunStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeFn()
	}()

	var list []*domain.Run
	if len(args) == 1 {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		run, err := runs.Get(ctx, id)
		if err != nil {
			return err
		}
		list = []*domain.Run{run}
	} else {
		list, err = runs.List(ctx, statusLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
	}

	return printRuns(cmd.OutOrStdout(), list)
}

// openRunStore returns the persistent run store: Redis when configured,
// otherwise PostgreSQL.
func openRunStore(ctx context.Context, cfg *config.AppConfig) (storage.RunStore, func() error, error) {
	switch {
	case cfg.Redis.URL != "":
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redisclient.NewStatusStore(client, cfg.Redis.RunTTL), client.Close, nil
	case cfg.Database.URL != "":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return postgres.NewVariantRepo(db), db.Close, nil
	}
	return nil, nil, errors.New("no run store configured: set redis.url or database.url")
}

func printRuns(out io.Writer, runs []*domain.Run) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tSTATE\tPROGRESS\tRESOLVED\tDBSNP\tUPDATED\tMESSAGE")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%s\t%s\t%s\n",
			r.ID, r.State, r.Completed, r.Total, r.Resolved, r.DbsnpVersion,
			r.UpdatedAt.Format(time.RFC3339), r.Message)
	}
	return w.Flush()
}
