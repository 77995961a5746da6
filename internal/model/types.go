package model

import (
	"encoding/json"
	"math"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Param is one `set KEY VALUE` line from a run log.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LineageSummary is the dominant-lineage result for a single run directory.
type LineageSummary struct {
	VersionedRecord
	RunDir               string          `json:"run_dir"`
	LineageID            int             `json:"lin_id"`
	StartID              int             `json:"start_id"`
	MRCAID               int             `json:"mrca_id"`
	Steps                int             `json:"steps"`
	Path                 string          `json:"path"`
	Params               []Param         `json:"params"`
	PhenotypicVolatility Metric          `json:"phenotypic_volatility"`
	RollingVolatility    map[int]Metric  `json:"rolling_volatility"`
	XMagnitude           float64         `json:"x_magnitude"`
	YMagnitude           float64         `json:"y_magnitude"`
	TotalMagnitude       float64         `json:"total_magnitude"`
	BeneficialSteps      int             `json:"beneficial_steps"`
	NeutralSteps         int             `json:"neutral_steps"`
	DeleteriousSteps     int             `json:"deleterious_steps"`
}

// Batch groups the summaries produced by one `dominant` invocation.
type Batch struct {
	ID           string `json:"id"`
	Glob         string `json:"glob"`
	Runs         int    `json:"runs"`
	CreatedAtUTC string `json:"created_at_utc"`
}

// Metric is a statistic that may be undefined (NaN), e.g. the variance of a
// lineage shorter than two steps. NaN is encoded as JSON null.
type Metric float64

func (m Metric) Undefined() bool {
	return math.IsNaN(float64(m))
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if m.Undefined() || math.IsInf(float64(m), 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Metric(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Metric(v)
	return nil
}
