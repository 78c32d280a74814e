package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"tickrx/internal/store"
)

var subscribersCmd = &cobra.Command{
	Use:   "subscribers",
	Short: "Manage email subscribers",
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all subscribers as CSV (timestamp,email,user_agent,source)",
	RunE:  runExport,
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored subscribers",
	RunE:  runCount,
}

func init() {
	subscribersCmd.AddCommand(exportCmd, countCmd)
	rootCmd.AddCommand(subscribersCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Store.Sqlite.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	total, err := st.CountSubscribers(cmd.Context())
	if err != nil {
		return err
	}
	written, err := exportSubscribers(cmd.Context(), st, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	log.WithFields(map[string]any{"total": total, "written": written}).Info("subscribers exported")
	return nil
}

func runCount(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Store.Sqlite.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	n, err := st.CountSubscribers(cmd.Context())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
	return err
}

const exportPage = 1000

func exportSubscribers(ctx context.Context, st *store.Store, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"timestamp", "email", "user_agent", "source"}); err != nil {
		return 0, err
	}

	written := 0
	for offset := 0; ; offset += exportPage {
		subs, err := st.ListSubscribers(ctx, exportPage, offset)
		if err != nil {
			return written, err
		}
		for _, s := range subs {
			ts := time.Unix(s.TS, 0).UTC().Format(time.RFC3339)
			if err := w.Write([]string{ts, s.Email, s.UserAgent, s.Source}); err != nil {
				return written, err
			}
			written++
		}
		if len(subs) < exportPage {
			break
		}
	}
	w.Flush()
	return written, w.Error()
}
