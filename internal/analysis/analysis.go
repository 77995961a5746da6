// Package analysis reconstructs the dominant lineage of every run directory
// in a batch and summarizes its fitness volatility and genotype movement.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lineagekit/internal/benchmark"
	"lineagekit/internal/lineagestats"
	"lineagekit/internal/logging"
	"lineagekit/internal/model"
	"lineagekit/internal/phylogeny"
	"lineagekit/internal/runlog"
)

// ProblemParam is the run-log parameter selecting the benchmark function.
const ProblemParam = "PROBLEM"

var ErrMissingInput = errors.New("missing run input")

type Options struct {
	Glob         string
	SnapshotPath string
	RunLogName   string
	Windows      []int
	StopAtMRCA   bool
	Workers      int
	ProblemMap   benchmark.ProblemMap
	DataDir      string
}

// Outcome is the result for one matched run directory. Exactly one of
// Summary and SkipReason is set.
type Outcome struct {
	RunDir     string
	Summary    *model.LineageSummary
	Lineage    phylogeny.Lineage
	SkipReason string
}

func (o Outcome) Skipped() bool {
	return o.Summary == nil
}

type Report struct {
	Outcomes []Outcome
}

func (r *Report) Summaries() []model.LineageSummary {
	var out []model.LineageSummary
	for _, o := range r.Outcomes {
		if o.Summary != nil {
			out = append(out, *o.Summary)
		}
	}
	return out
}

func (r *Report) Skipped() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Skipped() {
			out = append(out, o)
		}
	}
	return out
}

type Analyzer struct {
	opts   Options
	logger *zap.Logger

	mu        sync.Mutex
	functions map[int]*benchmark.Function
}

func NewAnalyzer(opts Options, logger *zap.Logger) *Analyzer {
	if opts.RunLogName == "" {
		opts.RunLogName = runlog.DefaultName
	}
	if opts.Windows == nil {
		opts.Windows = lineagestats.DefaultWindows
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Analyzer{
		opts:      opts,
		logger:    logging.OrNop(logger),
		functions: make(map[int]*benchmark.Function),
	}
}

func (a *Analyzer) Options() Options {
	return a.opts
}

// Run analyzes every directory matching the glob. Per-run failures are
// recorded as skipped outcomes; only cancellation aborts the batch.
func (a *Analyzer) Run(ctx context.Context) (*Report, error) {
	dirs, err := filepath.Glob(a.opts.Glob)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", a.opts.Glob, err)
	}
	sort.Strings(dirs)
	a.logger.Debug("matched run directories", zap.String("glob", a.opts.Glob), zap.Int("count", len(dirs)))

	outcomes := make([]Outcome, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = a.analyze(dir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Report{Outcomes: outcomes}, nil
}

func (a *Analyzer) analyze(dir string) Outcome {
	summary, lineage, err := a.AnalyzeRun(dir)
	if err != nil {
		a.logger.Warn("skipping run", zap.String("run_dir", dir), zap.Error(err))
		return Outcome{RunDir: dir, SkipReason: err.Error()}
	}
	return Outcome{RunDir: dir, Summary: &summary, Lineage: lineage}
}

// AnalyzeRun summarizes the dominant lineage of a single run directory.
func (a *Analyzer) AnalyzeRun(dir string) (model.LineageSummary, phylogeny.Lineage, error) {
	logPath := filepath.Join(dir, a.opts.RunLogName)
	snapshotPath := filepath.Join(dir, a.opts.SnapshotPath)
	for _, path := range []string{logPath, snapshotPath} {
		if _, err := os.Stat(path); err != nil {
			return model.LineageSummary{}, phylogeny.Lineage{}, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
	}

	log, err := runlog.ParseFile(logPath)
	if err != nil {
		return model.LineageSummary{}, phylogeny.Lineage{}, err
	}
	problem, err := log.Int(ProblemParam)
	if err != nil {
		return model.LineageSummary{}, phylogeny.Lineage{}, err
	}
	f, err := a.function(problem)
	if err != nil {
		return model.LineageSummary{}, phylogeny.Lineage{}, err
	}

	table, err := phylogeny.ReadTableFile(snapshotPath)
	if err != nil {
		return model.LineageSummary{}, phylogeny.Lineage{}, err
	}
	if err := table.EvaluateFitness(f); err != nil {
		return model.LineageSummary{}, phylogeny.Lineage{}, err
	}

	lineage, mrca, err := DominantLineage(table, a.opts.StopAtMRCA)
	if err != nil {
		return model.LineageSummary{}, phylogeny.Lineage{}, err
	}
	if mrca == 0 {
		a.logger.Debug("live population has no resolvable common ancestor", zap.String("run_dir", dir))
	}
	stats := lineagestats.Summarize(lineage, a.opts.Windows)
	a.logger.Debug("analyzed run",
		zap.String("run_dir", dir),
		zap.Int("start_id", lineage.StartID),
		zap.Int("steps", lineage.Len()),
		zap.Int("mrca_id", mrca),
	)
	return Summarize(dir, log.Params(), lineage, mrca, stats), lineage, nil
}

// function returns the benchmark for a PROBLEM value, building it once.
func (a *Analyzer) function(problem int) (*benchmark.Function, error) {
	id, err := a.opts.ProblemMap.FunctionID(problem)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if f, ok := a.functions[id]; ok {
		return f, nil
	}
	f, err := benchmark.New(id, benchmark.WithDataDir(a.opts.DataDir))
	if err != nil {
		return nil, err
	}
	if f.Dimension() != 2 {
		return nil, fmt.Errorf("%s: genotypes are two-dimensional", f)
	}
	a.functions[id] = f
	return f, nil
}

// DominantLineage walks from the fittest live organism towards the root,
// optionally stopping at the most recent common ancestor of the live
// population. The MRCA id is returned when it resolves. Without stopAtMRCA
// an unresolvable MRCA (a broken chain in another live lineage) yields id 0
// rather than an error, since the walk itself never visits that chain.
func DominantLineage(table *phylogeny.Table, stopAtMRCA bool) (phylogeny.Lineage, int, error) {
	start, err := table.Dominant()
	if err != nil {
		return phylogeny.Lineage{}, 0, err
	}
	mrca, err := table.MRCA(table.Alive())
	if err != nil {
		if stopAtMRCA {
			return phylogeny.Lineage{}, 0, fmt.Errorf("resolve mrca: %w", err)
		}
		mrca = 0
	}
	var stop phylogeny.StopFunc
	if stopAtMRCA {
		stop = phylogeny.StopAt(mrca)
	}
	lineage, err := table.Walk(start, stop)
	if err != nil {
		return phylogeny.Lineage{}, 0, err
	}
	return lineage, mrca, nil
}

func Summarize(dir string, params []model.Param, l phylogeny.Lineage, mrca int, s lineagestats.Summary) model.LineageSummary {
	rolling := make(map[int]model.Metric, len(s.RollingVolatility))
	for w, v := range s.RollingVolatility {
		rolling[w] = model.Metric(v)
	}
	return model.LineageSummary{
		RunDir:               dir,
		LineageID:            l.LineageID,
		StartID:              l.StartID,
		MRCAID:               mrca,
		Steps:                l.Len(),
		Path:                 l.Path(),
		Params:               params,
		PhenotypicVolatility: model.Metric(s.PhenotypicVolatility),
		RollingVolatility:    rolling,
		XMagnitude:           s.XMagnitude,
		YMagnitude:           s.YMagnitude,
		TotalMagnitude:       s.TotalMagnitude,
		BeneficialSteps:      s.Beneficial,
		NeutralSteps:         s.Neutral,
		DeleteriousSteps:     s.Deleterious,
	}
}
