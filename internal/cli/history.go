package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webgrade/webgrade/internal/config"
	"github.com/webgrade/webgrade/internal/history"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local audit history store",
	}
	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyDiffCmd())
	return cmd
}

// openHistory opens the configured store. The returned func closes it.
func openHistory() (*history.Store, func(), error) {
	env := config.New()
	path := env.HistoryPath()
	if path == "" {
		return nil, nil, errors.New("history is disabled (WEBGRADE_HISTORY_PATH=-)")
	}

	logger, err := envLogger(env)
	if err != nil {
		return nil, nil, err
	}

	store, err := history.Open(path, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open history store: %w", err)
	}
	cleanup := func() {
		_ = store.Close()
		_ = logger.Sync()
	}
	return store, cleanup, nil
}

func historyListCmd() *cobra.Command {
	var (
		url   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded audits, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openHistory()
			if err != nil {
				return err
			}
			defer closeStore()

			entries, err := store.List(cmd.Context(), url, limit)
			if err != nil {
				return fmt.Errorf("list audits: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No audits recorded.")
				return nil
			}
			for _, entry := range entries {
				fmt.Fprintf(out, "%s  %s  %6.2f  %s\n",
					entry.ID, entry.FetchedAt, entry.Overall, entry.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "only audits of this URL")
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "maximum entries")
	return cmd
}

func historyDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <base-id> <head-id>",
		Short: "Compare two recorded audits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openHistory()
			if err != nil {
				return err
			}
			defer closeStore()

			diff, err := store.DiffAudits(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("diff audits: %w", err)
			}

			encoded, err := json.MarshalIndent(diff, "", "  ")
			if err != nil {
				return fmt.Errorf("encode diff: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
}
