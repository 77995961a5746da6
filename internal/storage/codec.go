package storage

import (
	"encoding/json"
	"errors"

	"lineagekit/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp sets the current schema and codec versions on every summary.
func Stamp(summaries []model.LineageSummary) []model.LineageSummary {
	out := make([]model.LineageSummary, len(summaries))
	for i, summary := range summaries {
		summary.SchemaVersion = CurrentSchemaVersion
		summary.CodecVersion = CurrentCodecVersion
		out[i] = summary
	}
	return out
}

func EncodeSummaries(summaries []model.LineageSummary) ([]byte, error) {
	return json.Marshal(summaries)
}

func DecodeSummaries(data []byte) ([]model.LineageSummary, error) {
	var summaries []model.LineageSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, err
	}
	for _, summary := range summaries {
		if err := checkVersion(summary.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return summaries, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
