// File: cmd/report.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/config"
	"github.com/xkilldash9x/pwscript/internal/observability"
	"github.com/xkilldash9x/pwscript/internal/store"
)

// reportStore is the part of store.Store the CLI uses.
type reportStore interface {
	SaveRun(ctx context.Context, report *schemas.RunReport) error
	GetRun(ctx context.Context, id string) (*schemas.RunReport, error)
	ListRuns(ctx context.Context, limit int) ([]schemas.RunReport, error)
}

// storeProvider creates the report store. Tests inject a fake instead of a
// database connection.
type storeProvider interface {
	// Create returns the store and a cleanup function releasing it.
	Create(ctx context.Context, cfg config.Interface) (reportStore, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns the PostgreSQL backed provider.
func NewStoreProvider() storeProvider {
	return defaultStoreProvider{}
}

// Create connects to the configured database and applies the schema.
func (defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (reportStore, func(), error) {
	if cfg.Database().URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (PWSCRIPT_DATABASE_URL)")
	}
	logger := observability.GetLogger()
	st, cleanup, err := store.Open(ctx, cfg.Database().URL, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return st, cleanup, nil
}

func newReportCmd(provider storeProvider) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect run reports saved with --save-report",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, provider, func(ctx context.Context, st reportStore) error {
				runs, err := st.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				return writeRunTable(cmd.OutOrStdout(), runs)
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print one run report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, provider, func(ctx context.Context, st reportStore) error {
				run, err := st.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(run, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode run: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			})
		},
	}

	reportCmd.AddCommand(listCmd, showCmd)
	return reportCmd
}

func withStore(cmd *cobra.Command, provider storeProvider, fn func(context.Context, reportStore) error) error {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	st, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer cleanup()
	return fn(ctx, st)
}

func writeRunTable(w io.Writer, runs []schemas.RunReport) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs saved.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSCRIPT\tPASSED\tFAILED\tSTATUS")
	for _, r := range runs {
		status := "passed"
		switch {
		case r.Cancelled:
			status = "stopped"
		case r.Failed > 0:
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Script, r.Passed, r.Failed, status)
	}
	return tw.Flush()
}
