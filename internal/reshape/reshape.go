// Package reshape regroups single-line comma-separated point dumps into one
// "x,y,z" row per point.
package reshape

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNotSingleLine = errors.New("input must be exactly one line")

// Triples splits the single line read from r on commas and writes each
// consecutive group of three fields on its own line. The final group may be
// short.
func Triples(r io.Reader, w io.Writer) error {
	return Groups(r, w, 3)
}

// Groups is Triples with an arbitrary group size.
func Groups(r io.Reader, w io.Writer, size int) error {
	if size <= 0 {
		return fmt.Errorf("group size %d must be positive", size)
	}
	line, err := readSingleLine(r)
	if err != nil {
		return err
	}

	fields := strings.Split(line, ",")
	bw := bufio.NewWriter(w)
	for i := 0; i < len(fields); i += size {
		end := min(i+size, len(fields))
		if _, err := fmt.Fprintln(bw, strings.Join(fields[i:end], ",")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func readSingleLine(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	text := strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r")
	if len(data) == 0 || strings.Contains(text, "\n") {
		return "", ErrNotSingleLine
	}
	return text, nil
}
