// Package present turns a prediction into what the result screen renders.
package present

import (
	"math"

	"github.com/alkime/drumtone/internal/prediction"
	"github.com/alkime/drumtone/pkg/collections"
)

// Band is a coarse confidence bucket.
type Band string

const (
	High   Band = "high"
	Medium Band = "medium"
	Low    Band = "low"
)

// BandOf buckets a confidence: high >= 90, medium >= 70, low otherwise.
func BandOf(confidence float64) Band {
	switch {
	case confidence >= 90:
		return High
	case confidence >= 70:
		return Medium
	default:
		return Low
	}
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Entry is one row of the confidence breakdown.
type Entry struct {
	Category   prediction.Category
	Confidence float64
	Predicted  bool
	Band       Band
}

// DisplayModel is the render-ready view of a Result.
type DisplayModel struct {
	Label      prediction.Category
	Confidence float64
	Band       Band
	Entries    []Entry
	Cultural   prediction.CulturalInfo
	Duration   float64
}

// Present builds the display model. Entries follow the fixed scale order,
// never the order of the backend's map.
func Present(r prediction.Result) DisplayModel {
	conf := Round2(r.Confidence())

	entries := collections.Apply(prediction.Categories(), func(c prediction.Category) Entry {
		v := Round2(r.ConfidenceOf(c))
		return Entry{
			Category:   c,
			Confidence: v,
			Predicted:  c == r.Label(),
			Band:       BandOf(v),
		}
	})

	return DisplayModel{
		Label:      r.Label(),
		Confidence: conf,
		Band:       BandOf(conf),
		Entries:    entries,
		Cultural:   r.Cultural(),
		Duration:   Round2(r.DurationSeconds()),
	}
}
