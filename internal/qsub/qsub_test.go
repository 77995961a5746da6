package qsub

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lineagekit/internal/config"
)

const legacyHeader = `#!/bin/bash -login

### Configure job:
#PBS -l walltime=04:00:00:00
#PBS -l feature=intel16
#PBS -l mem=8gb
#PBS -t 1-2
#PBS -N POTHOLES

### load necessary modules, e.g.
module load powertools

# General Parameters.
EXEC=command.sh

`

func legacyScript(dirs ...string) string {
	var b strings.Builder
	b.WriteString(legacyHeader)
	for i, dir := range dirs {
		b.WriteString("\nif [ ${PBS_ARRAYID} -eq " + string(rune('1'+i)) + " ]; then \n    RUN_DIR=" + dir + "\nfi\n")
	}
	b.WriteString("\n\n")
	b.WriteString("cd ${RUN_DIR}\n")
	b.WriteString("mv run.log bak_run.log\n")
	b.WriteString("./${EXEC}\n")
	return b.String()
}

func defaultTemplate(t *testing.T) Template {
	t.Helper()
	tmpl, err := FromConfig(config.Default().Qsub, "")
	require.NoError(t, err)
	return tmpl
}

func TestRenderMatchesLegacyScript(t *testing.T) {
	dirs := []string{"/data/exp1/P0_S1_1783", "/data/exp2/P1_S5_6431"}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, defaultTemplate(t), dirs))
	if diff := cmp.Diff(legacyScript(dirs...), buf.String()); diff != "" {
		t.Fatalf("script mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderOptionalLines(t *testing.T) {
	tmpl := defaultTemplate(t)
	tmpl.Feature = ""
	tmpl.Modules = []string{"GCC", "powertools"}
	tmpl.BackupLog = false
	tmpl.ArrayVar = "SLURM_ARRAY_TASK_ID"

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, tmpl, []string{"a"}))
	out := buf.String()
	assert.NotContains(t, out, "feature=")
	assert.Contains(t, out, "module load GCC\nmodule load powertools\n")
	assert.Contains(t, out, "#PBS -t 1-1\n")
	assert.Contains(t, out, "if [ ${SLURM_ARRAY_TASK_ID} -eq 1 ]; then \n    RUN_DIR=a\nfi\n")
	assert.NotContains(t, out, "bak_run.log")
	assert.True(t, strings.HasSuffix(out, "cd ${RUN_DIR}\n./${EXEC}\n"))
}

func TestRenderCustomHeader(t *testing.T) {
	header := filepath.Join(t.TempDir(), "header.sh")
	require.NoError(t, os.WriteFile(header, []byte("#!/bin/sh\n#PBS -t [[JOB_CONFIG:-t]]\n#PBS -A [[ACCOUNT]]\nEXEC=go.sh\n"), 0o644))

	cfg := config.Default().Qsub
	cfg.HeaderFile = header
	tmpl, err := FromConfig(cfg, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, tmpl, []string{"a", "b", "c"}))
	assert.True(t, strings.HasPrefix(buf.String(), "#!/bin/sh\n#PBS -t 1-3\n#PBS -A [[ACCOUNT]]\nEXEC=go.sh\n\nif"))
}

func TestRenderRequiresRuns(t *testing.T) {
	err := Render(&bytes.Buffer{}, defaultTemplate(t), nil)
	require.ErrorIs(t, err, ErrNoRuns)
}

func TestReplacePlaceholders(t *testing.T) {
	got := ReplacePlaceholders("RUN_DIR=[[RUN_DIR]] id=[[ARRAY_ID]] keep=[[OTHER]] [x]", map[string]string{
		"RUN_DIR":  "/tmp/run",
		"ARRAY_ID": "7",
	})
	assert.Equal(t, "RUN_DIR=/tmp/run id=7 keep=[[OTHER]] [x]", got)
}

func TestWriteFileAndSubmit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fill_jobholes.qsub")
	require.NoError(t, WriteFile(path, defaultTemplate(t), []string{"/data/a"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "RUN_DIR=/data/a")

	id, err := Submit(context.Background(), "echo", path)
	require.NoError(t, err)
	assert.Equal(t, "fill_jobholes.qsub", id)
}
