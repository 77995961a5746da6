// Package runlog reads the free-text log a simulation run writes: its
// `set KEY VALUE` configuration echo and `Update: N Max score: S` progress
// markers.
package runlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"lineagekit/internal/model"
)

// DefaultName is the log file name inside a run directory.
const DefaultName = "run.log"

const (
	paramPrefix = "set"
	// Parameter echo ends once the experiment starts its setup.
	paramsEnd = "Doing initial"
)

var markerPattern = regexp.MustCompile(`Update:\s*(\d+)\s+Max score:`)

type Log struct {
	params  []model.Param
	index   map[string]int
	Updates []int
}

func Parse(r io.Reader) (*Log, error) {
	l := &Log{index: make(map[string]int)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inParams := true
	for scanner.Scan() {
		line := scanner.Text()
		if inParams {
			if strings.HasPrefix(line, paramsEnd) {
				inParams = false
			} else if strings.HasPrefix(line, paramPrefix) {
				l.addParam(strings.Fields(line))
			}
		}
		if m := markerPattern.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("parse update marker %q: %w", line, err)
			}
			l.Updates = append(l.Updates, n)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

func ParseFile(path string) (*Log, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	l, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

func (l *Log) addParam(fields []string) {
	// "setup ..." and bare "set" lines are not parameters.
	if len(fields) < 3 || fields[0] != paramPrefix {
		return
	}
	key, value := fields[1], fields[2]
	if i, ok := l.index[key]; ok {
		l.params[i].Value = value
		return
	}
	l.index[key] = len(l.params)
	l.params = append(l.params, model.Param{Key: key, Value: value})
}

// Params returns the parameters in order of first appearance.
func (l *Log) Params() []model.Param {
	return append([]model.Param(nil), l.params...)
}

func (l *Log) Keys() []string {
	keys := make([]string, len(l.params))
	for i, p := range l.params {
		keys[i] = p.Key
	}
	return keys
}

func (l *Log) Get(key string) (string, bool) {
	i, ok := l.index[key]
	if !ok {
		return "", false
	}
	return l.params[i].Value, true
}

func (l *Log) Int(key string) (int, error) {
	raw, ok := l.Get(key)
	if !ok {
		return 0, fmt.Errorf("run log has no %s parameter", key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", key, err)
	}
	return v, nil
}

func (l *Log) LastUpdate() (int, bool) {
	if len(l.Updates) == 0 {
		return 0, false
	}
	return l.Updates[len(l.Updates)-1], true
}

// Completed reports whether the log carries a completion marker. With
// finalUpdate > 0 a marker at or past that update is required.
func (l *Log) Completed(finalUpdate int) bool {
	if finalUpdate <= 0 {
		return len(l.Updates) > 0
	}
	for _, n := range l.Updates {
		if n >= finalUpdate {
			return true
		}
	}
	return false
}
