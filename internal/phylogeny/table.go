// Package phylogeny loads population snapshot tables (one row per organism,
// keyed by id with a parent id column) and walks ancestry through them.
package phylogeny

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// RootID is the identifier every lineage ultimately descends from.
const RootID = 1

const (
	ColumnID       = "id"
	ColumnParentID = "parent_id"
	ColumnNumOrgs  = "num_orgs"
	ColumnInfo     = "info"
)

var (
	ErrMissingColumn   = errors.New("missing required column")
	ErrDuplicateID     = errors.New("duplicate organism id")
	ErrUnknownOrganism = errors.New("unknown organism id")
	ErrNoLiveOrganisms = errors.New("no live organisms")
)

type Organism struct {
	ID       int
	ParentID int
	NumOrgs  int
	Info     string
	X        float64
	Y        float64
	Fitness  float64

	record []string
}

func (o *Organism) Genotype() []float64 {
	return []float64{o.X, o.Y}
}

// Evaluator scores a genotype; *benchmark.Function satisfies it.
type Evaluator interface {
	Evaluate(x []float64) (float64, error)
}

type Table struct {
	header    []string
	rows      []*Organism
	byID      map[int]*Organism
	evaluated bool
}

func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read phylogeny: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read phylogeny header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	cols := make(map[string]int, 4)
	for _, name := range []string{ColumnID, ColumnParentID, ColumnNumOrgs, ColumnInfo} {
		idx := indexOf(header, name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		cols[name] = idx
	}

	t := &Table{header: header, byID: make(map[int]*Organism)}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read phylogeny row %d: %w", line, err)
		}
		if blankRecord(record) {
			continue
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}

		org, err := buildOrganism(record, cols, line)
		if err != nil {
			return nil, err
		}
		if _, dup := t.byID[org.ID]; dup {
			return nil, fmt.Errorf("%w: %d (row %d)", ErrDuplicateID, org.ID, line)
		}
		t.rows = append(t.rows, org)
		t.byID[org.ID] = org
	}
	return t, nil
}

func buildOrganism(record []string, cols map[string]int, line int) (*Organism, error) {
	field := func(name string) (string, error) {
		idx := cols[name]
		if idx >= len(record) {
			return "", fmt.Errorf("phylogeny row %d: missing %s value", line, name)
		}
		return record[idx], nil
	}

	org := &Organism{record: record}
	for _, target := range []struct {
		name string
		dst  *int
	}{
		{ColumnID, &org.ID},
		{ColumnParentID, &org.ParentID},
		{ColumnNumOrgs, &org.NumOrgs},
	} {
		raw, err := field(target.name)
		if err != nil {
			return nil, err
		}
		v, err := parseInt(raw)
		if err != nil {
			return nil, fmt.Errorf("phylogeny row %d column %s: %w", line, target.name, err)
		}
		*target.dst = v
	}

	info, err := field(ColumnInfo)
	if err != nil {
		return nil, err
	}
	org.Info = info
	x, y, err := ParseGenotype(info)
	if err != nil {
		return nil, fmt.Errorf("organism %d: %w", org.ID, err)
	}
	org.X, org.Y = x, y
	org.Fitness = math.NaN()
	return org, nil
}

// ParseGenotype reads the first two coordinates of a bracketed,
// whitespace-delimited vector such as "[ 1.5 -0.25 ]".
func ParseGenotype(info string) (float64, float64, error) {
	fields := strings.Fields(strings.Trim(info, "[] "))
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("genotype %q: need 2 coordinates, found %d", info, len(fields))
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("genotype %q: %w", info, err)
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("genotype %q: %w", info, err)
	}
	return x, y, nil
}

// parseInt accepts integral values written as floats ("12.0").
func parseInt(raw string) (int, error) {
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not an integer", raw)
	}
	return int(f), nil
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

func (t *Table) Get(id int) (*Organism, bool) {
	org, ok := t.byID[id]
	return org, ok
}

// EvaluateFitness scores every organism's genotype with f.
func (t *Table) EvaluateFitness(f Evaluator) error {
	for _, org := range t.rows {
		v, err := f.Evaluate(org.Genotype())
		if err != nil {
			return fmt.Errorf("evaluate organism %d: %w", org.ID, err)
		}
		org.Fitness = v
	}
	t.evaluated = true
	return nil
}

// Alive returns ids with a positive population count, in file order.
func (t *Table) Alive() []int {
	var out []int
	for _, org := range t.rows {
		if org.NumOrgs > 0 {
			out = append(out, org.ID)
		}
	}
	return out
}

// Dominant returns the live organism with the highest fitness. Ties keep the
// earliest row.
func (t *Table) Dominant() (int, error) {
	if !t.evaluated {
		return 0, errors.New("dominant organism requires evaluated fitness")
	}
	best := -1
	bestFitness := math.Inf(-1)
	for _, org := range t.rows {
		if org.NumOrgs <= 0 || math.IsNaN(org.Fitness) {
			continue
		}
		if best < 0 || org.Fitness > bestFitness {
			best = org.ID
			bestFitness = org.Fitness
		}
	}
	if best < 0 {
		return 0, ErrNoLiveOrganisms
	}
	return best, nil
}

// WriteCSV writes the table with fitness, x and y columns appended.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	header := append(t.Header(), "fitness", "x", "y")
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, org := range t.rows {
		record := make([]string, len(t.header), len(t.header)+3)
		copy(record, org.record)
		record = append(record, formatFloat(org.Fitness), formatFloat(org.X), formatFloat(org.Y))
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func ReadTableFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	t, err := ReadTable(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
