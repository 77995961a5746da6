// Package qsub renders PBS array-job scripts that restart a set of run
// directories, one array index per directory.
package qsub

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"lineagekit/internal/config"
	"lineagekit/internal/runlog"
)

//go:embed header.tmpl array.tmpl
var templates embed.FS

var headerTemplate = template.Must(template.ParseFS(templates, "header.tmpl"))

var arrayTemplate = template.Must(
	template.New("array.tmpl").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(templates, "array.tmpl"),
)

// JobConfigRange is the header placeholder replaced by the array range.
const JobConfigRange = "JOB_CONFIG:-t"

var ErrNoRuns = errors.New("no run directories to submit")

type Template struct {
	Shell    string
	Walltime string
	Feature  string
	Mem      string
	Name     string
	Modules  []string
	Exec     string
	ArrayVar string
	// BackupLog moves the previous run log aside before restarting.
	BackupLog  bool
	RunLogName string
	// Header replaces the generated header when set. It may use the
	// [[JOB_CONFIG:-t]] placeholder and must define EXEC.
	Header string
}

// FromConfig builds a Template, reading the header file when one is set.
func FromConfig(c config.QsubConfig, runLogName string) (Template, error) {
	t := Template{
		Shell:      c.Shell,
		Walltime:   c.Walltime,
		Feature:    c.Feature,
		Mem:        c.Mem,
		Name:       c.Name,
		Modules:    c.Modules,
		Exec:       c.Exec,
		ArrayVar:   c.ArrayVar,
		BackupLog:  c.BackupLog,
		RunLogName: runLogName,
	}
	if c.HeaderFile != "" {
		data, err := os.ReadFile(c.HeaderFile)
		if err != nil {
			return Template{}, fmt.Errorf("read qsub header: %w", err)
		}
		t.Header = string(data)
	}
	return t, nil
}

// Render writes the array script for runDirs. Array indices start at 1 and
// follow the order of runDirs.
func Render(w io.Writer, t Template, runDirs []string) error {
	if len(runDirs) == 0 {
		return ErrNoRuns
	}
	if t.RunLogName == "" {
		t.RunLogName = runlog.DefaultName
	}

	header := t.Header
	if header == "" {
		var buf bytes.Buffer
		if err := headerTemplate.Execute(&buf, t); err != nil {
			return fmt.Errorf("render qsub header: %w", err)
		}
		header = buf.String()
	}
	header = ReplacePlaceholders(header, map[string]string{
		JobConfigRange: "1-" + strconv.Itoa(len(runDirs)),
	})

	err := arrayTemplate.Execute(w, struct {
		Header    string
		ArrayRef  string
		Dirs      []string
		BackupLog bool
		RunLog    string
	}{
		Header:    header,
		ArrayRef:  "${" + t.ArrayVar + "}",
		Dirs:      runDirs,
		BackupLog: t.BackupLog,
		RunLog:    t.RunLogName,
	})
	if err != nil {
		return fmt.Errorf("render qsub script: %w", err)
	}
	return nil
}

var placeholderPattern = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)

// ReplacePlaceholders substitutes every [[KEY]] found in values. Unknown
// keys are left in place.
func ReplacePlaceholders(text string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		key := m[2 : len(m)-2]
		if v, ok := values[key]; ok {
			return v
		}
		return m
	})
}

// WriteFile renders the script to path.
func WriteFile(path string, t Template, runDirs []string) error {
	var buf bytes.Buffer
	if err := Render(&buf, t, runDirs); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Submit runs submitCmd on the script from the script's directory and
// returns the scheduler's job id, the last field of its output.
func Submit(ctx context.Context, submitCmd, path string) (string, error) {
	cmd := exec.CommandContext(ctx, submitCmd, filepath.Base(path))
	cmd.Dir = filepath.Dir(path)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", cmd.String(), err)
	}
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return "", fmt.Errorf("%s: no job id in output", cmd.String())
	}
	return fields[len(fields)-1], nil
}
