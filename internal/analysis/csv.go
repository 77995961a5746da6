package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"lineagekit/internal/model"
)

// Columns returns the report header: path and lin_id, every run parameter in
// order of first appearance, the volatility and magnitude columns, then the
// supplemental lineage columns.
func Columns(summaries []model.LineageSummary, windows []int) []string {
	cols := []string{"path", "lin_id"}
	cols = append(cols, paramKeys(summaries)...)
	cols = append(cols, "phenotypic_volatility")
	for _, w := range windows {
		cols = append(cols, rollingColumn(w))
	}
	cols = append(cols,
		"x_magnitude", "y_magnitude", "total_magnitude",
		"run_dir", "start_id", "mrca_id", "steps",
		"beneficial_steps", "neutral_steps", "deleterious_steps",
	)
	return cols
}

// WindowsOf recovers the rolling windows recorded in summaries, widest
// first.
func WindowsOf(summaries []model.LineageSummary) []int {
	seen := make(map[int]struct{})
	var windows []int
	for _, s := range summaries {
		for w := range s.RollingVolatility {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			windows = append(windows, w)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(windows)))
	return windows
}

func rollingColumn(window int) string {
	return fmt.Sprintf("rolling_mean_%d_volatility", window)
}

func paramKeys(summaries []model.LineageSummary) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, s := range summaries {
		for _, p := range s.Params {
			if _, ok := seen[p.Key]; ok {
				continue
			}
			seen[p.Key] = struct{}{}
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// WriteCSV writes one row per summary. Undefined statistics and parameters
// a run did not set are written as empty fields.
func WriteCSV(w io.Writer, summaries []model.LineageSummary, windows []int) error {
	writer := csv.NewWriter(w)
	keys := paramKeys(summaries)
	if err := writer.Write(Columns(summaries, windows)); err != nil {
		return err
	}

	for _, s := range summaries {
		params := make(map[string]string, len(s.Params))
		for _, p := range s.Params {
			params[p.Key] = p.Value
		}

		row := []string{s.Path, strconv.Itoa(s.LineageID)}
		for _, k := range keys {
			row = append(row, params[k])
		}
		row = append(row, formatMetric(s.PhenotypicVolatility))
		for _, win := range windows {
			v, ok := s.RollingVolatility[win]
			if !ok {
				v = model.Metric(math.NaN())
			}
			row = append(row, formatMetric(v))
		}
		row = append(row,
			formatFloat(s.XMagnitude),
			formatFloat(s.YMagnitude),
			formatFloat(s.TotalMagnitude),
			s.RunDir,
			strconv.Itoa(s.StartID),
			strconv.Itoa(s.MRCAID),
			strconv.Itoa(s.Steps),
			strconv.Itoa(s.BeneficialSteps),
			strconv.Itoa(s.NeutralSteps),
			strconv.Itoa(s.DeleteriousSteps),
		)
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatMetric(m model.Metric) string {
	return formatFloat(float64(m))
}

// formatFloat renders floats the way the legacy reports did: shortest
// round-trip digits, always with a decimal point, exponent form outside
// [1e-4, 1e16).
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
