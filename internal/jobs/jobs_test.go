package jobs

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeJob(t *testing.T, dataDir, name, log string, withCommand bool) string {
	t.Helper()
	dir := filepath.Join(dataDir, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if withCommand {
		require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultCommandFile), []byte("#!/bin/sh\n"), 0o755))
	}
	if log != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "run.log"), []byte(log), 0o644))
	}
	return dir
}

func TestDiscoverFindsCommandDirectories(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	makeJob(t, first, "P0_S2", "", true)
	makeJob(t, first, "P0_S1", "", true)
	makeJob(t, first, "no_command", "", false)
	makeJob(t, second, "P0_S1", "", true)
	makeJob(t, second, "P1_S1", "", true)
	require.NoError(t, os.WriteFile(filepath.Join(first, "notes.txt"), nil, 0o644))

	runs, warnings := Discover([]string{first, second}, "")
	assert.Empty(t, warnings)
	assert.Equal(t, []Run{
		{Name: "P0_S1", Dir: filepath.Join(first, "P0_S1")},
		{Name: "P0_S2", Dir: filepath.Join(first, "P0_S2")},
		{Name: "P1_S1", Dir: filepath.Join(second, "P1_S1")},
	}, runs)

	absent := filepath.Join(first, "absent")
	runs, warnings = Discover([]string{absent, second}, "")
	assert.Equal(t, []Run{
		{Name: "P0_S1", Dir: filepath.Join(second, "P0_S1")},
		{Name: "P1_S1", Dir: filepath.Join(second, "P1_S1")},
	}, runs)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnDataDir, warnings[0].Kind)
	assert.Contains(t, warnings[0].String(), "could not read data directory "+absent)
}

func TestReadExpectedSkipsBlanksAndComments(t *testing.T) {
	names, err := ReadExpected(strings.NewReader("# planned\nP0_S1\n\n  P0_S2  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"P0_S1", "P0_S2"}, names)
}

func TestScanClassifiesRuns(t *testing.T) {
	data := t.TempDir()
	makeJob(t, data, "done", "set GENERATIONS 100\nUpdate: 100 Max score: 3\n", true)
	makeJob(t, data, "short", "set GENERATIONS 100\nUpdate: 50 Max score: 3\n", true)
	makeJob(t, data, "silent", "set GENERATIONS 100\n", true)
	makeJob(t, data, "fresh", "", true)

	runs, warnings := Discover([]string{data}, "")
	require.Empty(t, warnings)

	statuses := func(opts ScanOptions) map[string]Status {
		result := Scan(runs, []string{"done", "lost"}, opts)
		require.Empty(t, result.Warnings)
		out := make(map[string]Status)
		for _, e := range result.Entries {
			out[e.Name] = e.Status
		}
		return out
	}

	assert.Equal(t, map[string]Status{
		"done":   StatusComplete,
		"short":  StatusComplete,
		"silent": StatusFailed,
		"fresh":  StatusNotStarted,
		"lost":   StatusMissing,
	}, statuses(ScanOptions{}))

	assert.Equal(t, StatusFailed, statuses(ScanOptions{FinalUpdate: 100})["short"])
	assert.Equal(t, StatusFailed, statuses(ScanOptions{UseGenerations: true})["short"])
	assert.Equal(t, StatusComplete, statuses(ScanOptions{UseGenerations: true})["done"])
}

func TestScanSkipsUnreadableRunLog(t *testing.T) {
	data := t.TempDir()
	makeJob(t, data, "broken", "Update: 99999999999999999999999 Max score: 1\n", true)
	makeJob(t, data, "fresh", "", true)

	runs, warnings := Discover([]string{data}, "")
	require.Empty(t, warnings)
	result := Scan(runs, nil, ScanOptions{})

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "fresh", result.Entries[0].Name)
	assert.Equal(t, StatusNotStarted, result.Entries[0].Status)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarnRunLog, result.Warnings[0].Kind)
	assert.Equal(t, "broken", result.Warnings[0].Job)
	assert.True(t, strings.HasPrefix(result.Warnings[0].String(), "could not read run log of broken: "))
}

func TestNotDoneLogRoundTrip(t *testing.T) {
	result := ScanResult{Entries: []Entry{
		{Run: Run{Name: "a"}, Status: StatusComplete},
		{Run: Run{Name: "b"}, Status: StatusFailed},
		{Run: Run{Name: "c"}, Status: StatusMissing},
		{Run: Run{Name: "d"}, Status: StatusNotStarted},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteNotDone(&buf, result, ""))
	assert.Equal(t, "b/run.log\nd/run.log\n", buf.String())

	jobs, err := ReadNotDone(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, jobs)
}

func TestReadNotDoneFiltersOnConditions(t *testing.T) {
	log := "P0_G32_S1_E1_1783/run.log\nP0_G32_S5_E0_6431/run.log\n\nP1_G32_S5_E0_6433/run.log\nP0_G32_S5_E0_6431/run.log\n"

	all, err := ReadNotDone(strings.NewReader(log), nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	filtered, err := ReadNotDone(strings.NewReader(log), []string{"S5_E0", "E9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"P0_G32_S5_E0_6431", "P1_G32_S5_E0_6433", "P0_G32_S5_E0_6431"}, filtered)
}

func TestLocateWarnsAndDeduplicates(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	makeJob(t, first, "a", "", false)
	makeJob(t, second, "a", "", true)
	makeJob(t, second, "b", "", true)

	runs, warnings := Locate([]string{"b", "a", "ghost", "b"}, []string{first, second}, "")
	assert.Equal(t, []Run{{Name: "b", Dir: filepath.Join(second, "b")}}, runs)
	require.Len(t, warnings, 2)
	assert.Equal(t, "could not find command.sh in found run directory: "+filepath.Join(first, "a"), warnings[0].String())
	assert.Equal(t, "could not find run directory for ghost", warnings[1].String())
}

// A job lands in the not-done log exactly when its run log has no update
// marker.
func TestNotDoneExcludesExactlyMarkedRuns(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		data := t.TempDir()
		marked := make(map[string]bool)
		n := 1 + rng.Intn(12)
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("job_%d", i)
			var log string
			switch rng.Intn(3) {
			case 0:
				log = fmt.Sprintf("set SEED %d\nUpdate: %d Max score: 1.5\n", i, rng.Intn(5000))
				marked[name] = true
			case 1:
				log = fmt.Sprintf("set SEED %d\nDoing initial run setup.\n", i)
				marked[name] = false
			default:
				marked[name] = false
			}
			makeJob(t, data, name, log, true)
		}

		runs, _ := Discover([]string{data}, "")
		result := Scan(runs, nil, ScanOptions{})
		var buf bytes.Buffer
		require.NoError(t, WriteNotDone(&buf, result, ""))
		listed, err := ReadNotDone(&buf, nil)
		require.NoError(t, err)

		inLog := make(map[string]bool)
		for _, job := range listed {
			inLog[job] = true
		}
		for name, hasMarker := range marked {
			assert.Equal(t, !hasMarker, inLog[name], "trial %d job %s", trial, name)
		}
	}
}
