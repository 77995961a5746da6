// Package jobs finds experiment run directories, decides which of them
// finished, and reads and writes the not-done logs used to resubmit the rest.
package jobs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lineagekit/internal/runlog"
)

const (
	DefaultCommandFile = "command.sh"
	// GenerationsParam is the run-log parameter holding a run's planned length.
	GenerationsParam = "GENERATIONS"
)

// Run is a job directory that can be (re)started with its command file.
type Run struct {
	Name string
	Dir  string
}

// Discover lists the immediate subdirectories of each data directory that
// contain commandFile. A job name found in more than one data directory is
// reported once, from the first directory given. Unreadable data directories
// are skipped and returned as warnings.
func Discover(dataDirs []string, commandFile string) ([]Run, []Warning) {
	if commandFile == "" {
		commandFile = DefaultCommandFile
	}
	seen := make(map[string]struct{})
	var (
		runs     []Run
		warnings []Warning
	)
	for _, dataDir := range dataDirs {
		entries, err := os.ReadDir(dataDir)
		if err != nil {
			warnings = append(warnings, Warning{Kind: WarnDataDir, Dir: dataDir, Err: err})
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if _, dup := seen[e.Name()]; dup {
				continue
			}
			dir := filepath.Join(dataDir, e.Name())
			if !fileExists(filepath.Join(dir, commandFile)) {
				continue
			}
			seen[e.Name()] = struct{}{}
			runs = append(runs, Run{Name: e.Name(), Dir: dir})
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Name < runs[j].Name })
	return runs, warnings
}

// ReadExpected reads one run name per line. Blank lines and lines starting
// with '#' are ignored.
func ReadExpected(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

type Status int

const (
	StatusComplete Status = iota
	StatusFailed
	StatusNotStarted
	StatusMissing
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusFailed:
		return "failed"
	case StatusNotStarted:
		return "not-started"
	case StatusMissing:
		return "missing"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type ScanOptions struct {
	// FinalUpdate is the update a run must report to count as complete.
	// Zero accepts any update marker.
	FinalUpdate int
	// UseGenerations takes the threshold from each run's GENERATIONS
	// parameter when FinalUpdate is zero.
	UseGenerations bool
	RunLogName     string
}

type Entry struct {
	Run
	Status     Status
	LastUpdate int
	HasUpdate  bool
}

type ScanResult struct {
	Entries []Entry
	// Warnings lists runs left out because their log could not be read.
	Warnings []Warning
}

// Count reports how many entries have status s.
func (r ScanResult) Count(s Status) int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == s {
			n++
		}
	}
	return n
}

// Unfinished lists the failed and not-started entries, the ones that can be
// resubmitted from their run directory.
func (r ScanResult) Unfinished() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Status == StatusFailed || e.Status == StatusNotStarted {
			out = append(out, e)
		}
	}
	return out
}

// Scan classifies every run by its run log, then adds a Missing entry for
// each expected name that has no run directory. A run whose log exists but
// cannot be read is left out with a warning.
func Scan(runs []Run, expected []string, opts ScanOptions) ScanResult {
	if opts.RunLogName == "" {
		opts.RunLogName = runlog.DefaultName
	}
	var result ScanResult
	present := make(map[string]struct{}, len(runs))
	for _, run := range runs {
		present[run.Name] = struct{}{}
		entry, err := scanRun(run, opts)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{Kind: WarnRunLog, Job: run.Name, Dir: run.Dir, Err: err})
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
	for _, name := range expected {
		if _, ok := present[name]; ok {
			continue
		}
		present[name] = struct{}{}
		result.Entries = append(result.Entries, Entry{Run: Run{Name: name}, Status: StatusMissing})
	}
	return result
}

func scanRun(run Run, opts ScanOptions) (Entry, error) {
	entry := Entry{Run: run}
	log, err := runlog.ParseFile(filepath.Join(run.Dir, opts.RunLogName))
	if errors.Is(err, fs.ErrNotExist) {
		entry.Status = StatusNotStarted
		return entry, nil
	}
	if err != nil {
		return Entry{}, err
	}
	entry.LastUpdate, entry.HasUpdate = log.LastUpdate()

	final := opts.FinalUpdate
	if final <= 0 && opts.UseGenerations {
		if generations, err := log.Int(GenerationsParam); err == nil {
			final = generations
		}
	}
	if log.Completed(final) {
		entry.Status = StatusComplete
	} else {
		entry.Status = StatusFailed
	}
	return entry, nil
}

// WriteNotDone writes "<job>/<run log>" for every unfinished entry.
func WriteNotDone(w io.Writer, result ScanResult, runLogName string) error {
	if runLogName == "" {
		runLogName = runlog.DefaultName
	}
	bw := bufio.NewWriter(w)
	for _, e := range result.Unfinished() {
		if _, err := fmt.Fprintf(bw, "%s/%s\n", e.Name, runLogName); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadNotDone returns the job name of every non-blank line, the text before
// the first '/'. With conditions, only lines containing at least one of them
// are kept. Duplicates are preserved.
func ReadNotDone(r io.Reader, conditions []string) ([]string, error) {
	var jobs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || !Matches(line, conditions) {
			continue
		}
		job, _, _ := strings.Cut(line, "/")
		jobs = append(jobs, job)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Matches reports whether line contains any condition. An empty condition
// list matches everything.
func Matches(line string, conditions []string) bool {
	if len(conditions) == 0 {
		return true
	}
	for _, c := range conditions {
		if strings.Contains(line, c) {
			return true
		}
	}
	return false
}

type WarningKind int

const (
	// WarnRunDir: no data directory holds the job.
	WarnRunDir WarningKind = iota
	// WarnCommandFile: the job directory exists but lacks its command file.
	WarnCommandFile
	// WarnDataDir: a data directory could not be listed.
	WarnDataDir
	// WarnRunLog: a run log exists but could not be parsed.
	WarnRunLog
)

// Warning describes a directory or file that was skipped.
type Warning struct {
	Kind        WarningKind
	Job         string
	Dir         string
	CommandFile string
	Err         error
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnCommandFile:
		return fmt.Sprintf("could not find %s in found run directory: %s", w.CommandFile, w.Dir)
	case WarnDataDir:
		return fmt.Sprintf("could not read data directory %s: %v", w.Dir, w.Err)
	case WarnRunLog:
		return fmt.Sprintf("could not read run log of %s: %v", w.Job, w.Err)
	default:
		return fmt.Sprintf("could not find run directory for %s", w.Job)
	}
}

// Locate resolves each job to the first data directory holding it. Jobs
// without a directory, or whose directory lacks commandFile, are returned as
// warnings. Repeated jobs are located once and keep their first position.
func Locate(jobs, dataDirs []string, commandFile string) ([]Run, []Warning) {
	if commandFile == "" {
		commandFile = DefaultCommandFile
	}
	var (
		runs     []Run
		warnings []Warning
	)
	located := make(map[string]struct{})
	for _, job := range jobs {
		if _, ok := located[job]; ok {
			continue
		}
		dir := ""
		for _, dataDir := range dataDirs {
			candidate := filepath.Join(dataDir, job)
			if isDir(candidate) {
				dir = candidate
				break
			}
		}
		if dir == "" {
			warnings = append(warnings, Warning{Kind: WarnRunDir, Job: job})
			continue
		}
		if !fileExists(filepath.Join(dir, commandFile)) {
			warnings = append(warnings, Warning{Kind: WarnCommandFile, Job: job, Dir: dir, CommandFile: commandFile})
			continue
		}
		located[job] = struct{}{}
		runs = append(runs, Run{Name: job, Dir: dir})
	}
	return runs, warnings
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
