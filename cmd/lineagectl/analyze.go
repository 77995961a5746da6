package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lineagekit/internal/analysis"
	"lineagekit/internal/benchmark"
	"lineagekit/internal/model"
	"lineagekit/internal/phylogeny"
	"lineagekit/internal/plotting"
	"lineagekit/internal/storage"
)

// loadScoredTable reads a phylogeny snapshot and scores it on a CEC2013
// function.
func (a *app) loadScoredTable(path string, functionID int, dataDir string) (*phylogeny.Table, error) {
	f, err := benchmark.New(functionID, benchmark.WithDataDir(dataDir))
	if err != nil {
		return nil, err
	}
	if f.Dimension() != 2 {
		return nil, fmt.Errorf("%s: genotypes are two-dimensional", f)
	}
	table, err := phylogeny.ReadTableFile(path)
	if err != nil {
		return nil, err
	}
	if err := table.EvaluateFitness(f); err != nil {
		return nil, err
	}
	a.logger.Debug("scored phylogeny", zap.String("path", path), zap.Stringer("function", f), zap.Int("organisms", table.Len()))
	return table, nil
}

func newFitnessCmd(a *app) *cobra.Command {
	var problem int
	cmd := &cobra.Command{
		Use:   "fitness <phylogeny.csv>",
		Short: "Append CEC2013 fitness and genotype coordinates to a phylogeny snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.loadScoredTable(args[0], problem, stringFlag(cmd, "data-dir", a.cfg.Analysis.DataDir))
			if err != nil {
				return err
			}
			w, closeOut, err := createOutput(cmd, stringFlag(cmd, "output", ""))
			if err != nil {
				return err
			}
			if err := table.WriteCSV(w); err != nil {
				_ = closeOut()
				return err
			}
			return closeOut()
		},
	}
	cmd.Flags().IntVar(&problem, "problem", 0, "CEC2013 function id (1-20)")
	cmd.Flags().String("data-dir", "", "CEC2013 data directory for composition functions")
	cmd.Flags().StringP("output", "o", "", "output CSV (default stdout)")
	_ = cmd.MarkFlagRequired("problem")
	return cmd
}

func newDominantCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dominant <run-dir-glob> <out.csv>",
		Short: "Summarize the dominant lineage of every matching run directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ac := a.cfg.Analysis
			opts := analysis.Options{
				Glob:         args[0],
				SnapshotPath: stringFlag(cmd, "snapshot", ac.SnapshotPath),
				RunLogName:   stringFlag(cmd, "run-log", ac.RunLog),
				Windows:      intSliceFlag(cmd, "windows", ac.Windows),
				StopAtMRCA:   boolFlag(cmd, "stop-at-mrca", ac.StopAtMRCA),
				Workers:      intFlag(cmd, "workers", ac.Workers),
				ProblemMap:   ac.ProblemMap,
				DataDir:      stringFlag(cmd, "data-dir", ac.DataDir),
			}
			for _, w := range opts.Windows {
				if w <= 0 {
					return fmt.Errorf("window %d must be positive", w)
				}
			}

			report, err := analysis.NewAnalyzer(opts, a.logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, o := range report.Outcomes {
				fmt.Fprintln(out, o.RunDir)
				if o.Skipped() {
					fmt.Fprintln(out, "skipped")
				}
			}

			summaries := report.Summaries()
			if err := writeSummaries(args[1], summaries, opts.Windows); err != nil {
				return err
			}

			kind := a.storeKind(cmd)
			if kind == "memory" {
				return nil
			}
			batch := model.Batch{
				ID:           uuid.NewString(),
				Glob:         opts.Glob,
				Runs:         len(summaries),
				CreatedAtUTC: time.Now().UTC().Format(time.RFC3339),
			}
			store, closeStore, err := a.openStore(cmd, kind, stringFlag(cmd, "db-path", a.cfg.Store.DBPath))
			if err != nil {
				return err
			}
			defer closeStore()
			if err := store.SaveBatch(cmd.Context(), batch, summaries); err != nil {
				return err
			}
			fmt.Fprintf(out, "batch %s (%d runs)\n", batch.ID, batch.Runs)
			return nil
		},
	}
	cmd.Flags().String("snapshot", "", "phylogeny CSV relative to each run directory")
	cmd.Flags().String("run-log", "", "run log name inside each run directory")
	cmd.Flags().IntSlice("windows", nil, "rolling-mean windows")
	cmd.Flags().Bool("stop-at-mrca", false, "end each lineage at the live population's most recent common ancestor")
	cmd.Flags().Int("workers", 0, "run directories analyzed concurrently")
	cmd.Flags().String("data-dir", "", "CEC2013 data directory for composition functions")
	addStoreFlags(cmd)
	return cmd
}

func writeSummaries(path string, summaries []model.LineageSummary, windows []int) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	if err := analysis.WriteCSV(f, summaries, windows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (a *app) openStore(cmd *cobra.Command, kind, dbPath string) (storage.Store, func(), error) {
	store, err := storage.NewStore(kind, dbPath)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := storage.CloseIfSupported(store); err != nil {
			a.logger.Warn("close store", zap.Error(err))
		}
	}
	if err := store.Init(cmd.Context()); err != nil {
		closeStore()
		return nil, nil, err
	}
	return store, closeStore, nil
}

func newMRCACmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mrca <phylogeny.csv>",
		Short: "Print the most recent common ancestor of the live population",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := phylogeny.ReadTableFile(args[0])
			if err != nil {
				return err
			}
			alive := table.Alive()
			mrca, err := table.MRCA(alive)
			if err != nil {
				return err
			}
			depth, err := table.Depth(mrca)
			if err != nil {
				return err
			}
			a.logger.Debug("resolved mrca", zap.String("path", args[0]), zap.Int("alive", len(alive)))
			fmt.Fprintf(cmd.OutOrStdout(), "mrca=%d depth=%d alive=%d\n", mrca, depth, len(alive))
			return nil
		},
	}
}

func newLineageCmd(a *app) *cobra.Command {
	var (
		problem    int
		start      int
		stopAtMRCA bool
	)
	cmd := &cobra.Command{
		Use:   "lineage <phylogeny.csv>",
		Short: "Print the walk from an organism back to the root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if problem == 0 && start == 0 {
				return errors.New("lineage requires --problem or --start")
			}
			var (
				table *phylogeny.Table
				err   error
			)
			if problem != 0 {
				table, err = a.loadScoredTable(args[0], problem, stringFlag(cmd, "data-dir", a.cfg.Analysis.DataDir))
			} else {
				table, err = phylogeny.ReadTableFile(args[0])
			}
			if err != nil {
				return err
			}

			var (
				lineage phylogeny.Lineage
				mrca    int
			)
			if start == 0 {
				lineage, mrca, err = analysis.DominantLineage(table, stopAtMRCA)
			} else {
				lineage, mrca, err = walkFrom(table, start, stopAtMRCA)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range lineage.Steps {
				fmt.Fprintf(out, "id=%d parent_id=%d x=%.2f y=%.2f fitness=%.2f\n", s.ID, s.ParentID, s.X, s.Y, s.Fitness)
			}
			fmt.Fprintf(out, "start_id=%d lin_id=%d mrca_id=%d steps=%d\n", lineage.StartID, lineage.LineageID, mrca, lineage.Len())
			return nil
		},
	}
	cmd.Flags().IntVar(&problem, "problem", 0, "CEC2013 function id; walks from the dominant organism")
	cmd.Flags().IntVar(&start, "start", 0, "organism id to walk from")
	cmd.Flags().BoolVar(&stopAtMRCA, "stop-at-mrca", false, "end the walk at the live population's most recent common ancestor")
	cmd.Flags().String("data-dir", "", "CEC2013 data directory for composition functions")
	return cmd
}

func walkFrom(table *phylogeny.Table, start int, stopAtMRCA bool) (phylogeny.Lineage, int, error) {
	mrca, err := table.MRCA(table.Alive())
	if err != nil && !errors.Is(err, phylogeny.ErrNoLiveOrganisms) {
		return phylogeny.Lineage{}, 0, err
	}
	var stop phylogeny.StopFunc
	if stopAtMRCA && mrca != 0 {
		stop = phylogeny.StopAt(mrca)
	}
	lineage, err := table.Walk(start, stop)
	return lineage, mrca, err
}

func newPlotCmd(a *app) *cobra.Command {
	var (
		problem    int
		window     int
		title      string
		stopAtMRCA bool
	)
	cmd := &cobra.Command{
		Use:   "plot <phylogeny.csv>",
		Short: "Plot fitness along the dominant lineage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.loadScoredTable(args[0], problem, stringFlag(cmd, "data-dir", a.cfg.Analysis.DataDir))
			if err != nil {
				return err
			}
			lineage, _, err := analysis.DominantLineage(table, stopAtMRCA)
			if err != nil {
				return err
			}
			if title == "" {
				title = args[0]
			}
			out, _ := cmd.Flags().GetString("output")
			if err := plotting.LineagePlot(lineage, window, title, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d steps)\n", out, lineage.Len())
			return nil
		},
	}
	cmd.Flags().IntVar(&problem, "problem", 0, "CEC2013 function id (1-20)")
	cmd.Flags().IntVar(&window, "window", 50, "rolling-mean window")
	cmd.Flags().StringVar(&title, "title", "", "plot title (default the snapshot path)")
	cmd.Flags().BoolVar(&stopAtMRCA, "stop-at-mrca", false, "end the lineage at the live population's most recent common ancestor")
	cmd.Flags().String("data-dir", "", "CEC2013 data directory for composition functions")
	cmd.Flags().StringP("output", "o", "", "image path; format follows the extension")
	_ = cmd.MarkFlagRequired("problem")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
