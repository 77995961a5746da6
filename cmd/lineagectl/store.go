package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lineagekit/internal/analysis"
	"lineagekit/internal/reshape"
	"lineagekit/internal/storage"
)

func newReshapeCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reshape <file>",
		Short: "Regroup a one-line comma-separated point dump into x,y,z rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			if err := reshape.Triples(f, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return nil
		},
	}
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", "", "store backend: memory|sqlite (default sqlite when built with it)")
	cmd.Flags().String("db-path", "", "sqlite database path")
}

// storeKind resolves --store over the config, falling back to the build's
// default backend.
func (a *app) storeKind(cmd *cobra.Command) string {
	if kind := stringFlag(cmd, "store", a.cfg.Store.Kind); kind != "" {
		return kind
	}
	return storage.DefaultStoreKind()
}

func newBatchesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List persisted dominant-lineage batches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := a.openStore(cmd,
				a.storeKind(cmd),
				stringFlag(cmd, "db-path", a.cfg.Store.DBPath),
			)
			if err != nil {
				return err
			}
			defer closeStore()

			batches, err := store.ListBatches(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(batches) == 0 {
				fmt.Fprintln(out, "no batches found")
				return nil
			}
			for _, b := range batches {
				created := b.CreatedAtUTC
				if ts, err := time.Parse(time.RFC3339, b.CreatedAtUTC); err == nil {
					created = humanize.Time(ts)
				}
				fmt.Fprintf(out, "batch_id=%s created=%q runs=%s glob=%s\n", b.ID, created, humanize.Comma(int64(b.Runs)), b.Glob)
			}
			return nil
		},
	}
	addStoreFlags(cmd)
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <id>",
		Short: "Re-emit the dominant-lineage CSV of a persisted batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := a.openStore(cmd,
				a.storeKind(cmd),
				stringFlag(cmd, "db-path", a.cfg.Store.DBPath),
			)
			if err != nil {
				return err
			}
			defer closeStore()

			_, summaries, ok, err := store.GetBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("batch not found: %s", args[0])
			}
			w, closeOut, err := createOutput(cmd, stringFlag(cmd, "output", ""))
			if err != nil {
				return err
			}
			if err := analysis.WriteCSV(w, summaries, analysis.WindowsOf(summaries)); err != nil {
				_ = closeOut()
				return err
			}
			return closeOut()
		},
	}
	addStoreFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "output CSV (default stdout)")
	return cmd
}
