package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lineagekit/internal/jobs"
	"lineagekit/internal/qsub"
)

var (
	errNoDataDirs    = errors.New("no data directories given")
	errNoNotDoneLogs = errors.New("no not-done logs given")
)

func newScanCmd(a *app) *cobra.Command {
	var (
		dataDirs []string
		expected string
	)
	cmd := &cobra.Command{
		Use:   "scan -d DIR...",
		Short: "Find runs without a completion marker and write a not-done log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(dataDirs) == 0 {
				return errNoDataDirs
			}
			sc := a.cfg.Scan
			commandFile := stringFlag(cmd, "command-file", sc.CommandFile)
			out := cmd.OutOrStdout()
			runs, warnings := jobs.Discover(dataDirs, commandFile)

			var names []string
			if expected != "" {
				f, err := os.Open(expected)
				if err != nil {
					return err
				}
				names, err = jobs.ReadExpected(f)
				_ = f.Close()
				if err != nil {
					return err
				}
			}

			result := jobs.Scan(runs, names, jobs.ScanOptions{
				FinalUpdate:    intFlag(cmd, "final-update", sc.FinalUpdate),
				UseGenerations: boolFlag(cmd, "use-generations", sc.UseGenerations),
				RunLogName:     a.cfg.Analysis.RunLog,
			})
			warnings = append(warnings, result.Warnings...)

			var missing []string
			for _, e := range result.Entries {
				a.logger.Debug("scanned run", zap.String("job", e.Name), zap.Stringer("status", e.Status), zap.Int("last_update", e.LastUpdate))
				if e.Status == jobs.StatusMissing {
					missing = append(missing, e.Name)
				}
			}
			// Tells a bare directory apart from an absent one.
			_, located := jobs.Locate(missing, dataDirs, commandFile)
			warnings = append(warnings, located...)
			for _, w := range warnings {
				fmt.Fprintf(out, "WARNING: %s\n", w)
			}
			fmt.Fprintf(out, "complete=%d failed=%d not-started=%d missing=%d\n",
				result.Count(jobs.StatusComplete),
				result.Count(jobs.StatusFailed),
				result.Count(jobs.StatusNotStarted),
				result.Count(jobs.StatusMissing),
			)

			path := stringFlag(cmd, "output", sc.NotDoneLog)
			f, err := createFile(path)
			if err != nil {
				return err
			}
			if err := jobs.WriteNotDone(f, result, a.cfg.Analysis.RunLog); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %d unfinished jobs to %s\n", len(result.Unfinished()), path)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&dataDirs, "data-directory", "d", nil, "experiment directory holding run directories (repeatable)")
	cmd.Flags().StringVar(&expected, "expected", "", "file listing the run names that should exist")
	cmd.Flags().Int("final-update", 0, "update a run must reach to count as complete")
	cmd.Flags().Bool("use-generations", false, "take the final update from each run's GENERATIONS parameter")
	cmd.Flags().String("command-file", "", "file marking a run directory")
	cmd.Flags().StringP("output", "o", "", "not-done log to write")
	return cmd
}

func newPotholesCmd(a *app) *cobra.Command {
	var (
		dataDirs   []string
		logs       []string
		conditions []string
		submit     string
	)
	cmd := &cobra.Command{
		Use:   "potholes -d DIR... -l LOG...",
		Short: "Build a PBS array script that resubmits the jobs listed in not-done logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Data directories: %s\n", pyList(dataDirs))
			fmt.Fprintf(out, "Not done logs: %s\n", pyList(logs))
			if len(conditions) > 0 {
				fmt.Fprintf(out, "Filtering jobs on conditions: %s\n", pyList(conditions))
			}
			if len(dataDirs) == 0 {
				fmt.Fprintln(out, "Must provide at least one data directory!")
				return errNoDataDirs
			}
			if len(logs) == 0 {
				fmt.Fprintln(out, "Must provide at least one log of unfinished jobs!")
				return errNoNotDoneLogs
			}

			var unfinished []string
			for _, path := range logs {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				names, err := jobs.ReadNotDone(f, conditions)
				_ = f.Close()
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				unfinished = append(unfinished, names...)
			}
			fmt.Fprintf(out, "TOTAL UNFINISHED JOBS (FROM LOGS): %d\n", len(unfinished))

			commandFile := stringFlag(cmd, "command-file", a.cfg.Scan.CommandFile)
			runs, warnings := jobs.Locate(unfinished, dataDirs, commandFile)
			for _, w := range warnings {
				fmt.Fprintf(out, "WARNING: %s\n", w)
			}
			fmt.Fprintf(out, "TOTAL JOBS ABLE TO RESUBMIT: %d\n", len(runs))
			if len(runs) == 0 {
				a.logger.Warn("nothing to resubmit; no script written")
				return nil
			}

			qc := a.cfg.Qsub
			qc.HeaderFile = stringFlag(cmd, "header-file", qc.HeaderFile)
			tmpl, err := qsub.FromConfig(qc, a.cfg.Analysis.RunLog)
			if err != nil {
				return err
			}
			dirs := make([]string, len(runs))
			for i, r := range runs {
				dirs[i] = r.Dir
			}
			path := stringFlag(cmd, "output", qc.Output)
			if err := qsub.WriteFile(path, tmpl, dirs); err != nil {
				return err
			}
			a.logger.Info("wrote qsub script", zap.String("path", path), zap.Int("jobs", len(dirs)))

			if submit != "" {
				id, err := qsub.Submit(cmd.Context(), submit, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Submitted %s as job %s\n", path, id)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&dataDirs, "data-directory", "d", nil, "target experiment directory (repeatable)")
	cmd.Flags().StringArrayVarP(&logs, "not-done-log", "l", nil, "log of unfinished jobs (repeatable)")
	cmd.Flags().StringArrayVarP(&conditions, "condition", "c", nil, "substring a job must contain to be resubmitted (repeatable)")
	cmd.Flags().String("command-file", "", "file that restarts a run")
	cmd.Flags().String("header-file", "", "custom script header using [[JOB_CONFIG:-t]]")
	cmd.Flags().StringP("output", "o", "", "qsub script to write")
	cmd.Flags().StringVar(&submit, "submit", "", "submit the script with this command, e.g. qsub")
	return cmd
}
