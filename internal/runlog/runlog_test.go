package runlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lineagekit/internal/model"
)

const sampleLog = `==============================
|    How am I configured?    |
==============================
set RANDOM_SEED 1783       # Random number seed (negative value for based on time)
set POP_SIZE 1000          # Total population size
set PROBLEM 0              # Which problem?
set GENERATIONS 5000
setup complete
==============================

Doing initial run setup.
set IGNORED after_setup
Update: 0 Max score: 12.5
Update: 100 Max score: 150.25
Update: 5000 Max score: 199.99
`

func TestParseReadsParamsInOrder(t *testing.T) {
	l, err := Parse(strings.NewReader(sampleLog))
	require.NoError(t, err)

	assert.Equal(t, []string{"RANDOM_SEED", "POP_SIZE", "PROBLEM", "GENERATIONS"}, l.Keys())
	v, ok := l.Get("POP_SIZE")
	require.True(t, ok)
	assert.Equal(t, "1000", v)

	_, ok = l.Get("IGNORED")
	assert.False(t, ok, "params after setup starts must be ignored")

	problem, err := l.Int("PROBLEM")
	require.NoError(t, err)
	assert.Equal(t, 0, problem)

	assert.Equal(t, []model.Param{
		{Key: "RANDOM_SEED", Value: "1783"},
		{Key: "POP_SIZE", Value: "1000"},
		{Key: "PROBLEM", Value: "0"},
		{Key: "GENERATIONS", Value: "5000"},
	}, l.Params())
}

func TestParseReadsUpdateMarkers(t *testing.T) {
	l, err := Parse(strings.NewReader(sampleLog))
	require.NoError(t, err)

	assert.Equal(t, []int{0, 100, 5000}, l.Updates)
	last, ok := l.LastUpdate()
	require.True(t, ok)
	assert.Equal(t, 5000, last)
}

func TestCompleted(t *testing.T) {
	l, err := Parse(strings.NewReader(sampleLog))
	require.NoError(t, err)

	assert.True(t, l.Completed(0))
	assert.True(t, l.Completed(5000))
	assert.False(t, l.Completed(5001))

	empty, err := Parse(strings.NewReader("set PROBLEM 1\nsegfault\n"))
	require.NoError(t, err)
	assert.False(t, empty.Completed(0))
	_, ok := empty.LastUpdate()
	assert.False(t, ok)
}

func TestIntMissingOrMalformed(t *testing.T) {
	l, err := Parse(strings.NewReader("set PROBLEM two\n"))
	require.NoError(t, err)

	_, err = l.Int("PROBLEM")
	require.Error(t, err)
	_, err = l.Int("GENERATIONS")
	require.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultName)
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))

	l, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, l.Params(), 4)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.log"))
	require.Error(t, err)
}
