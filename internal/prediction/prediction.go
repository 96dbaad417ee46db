// Package prediction defines the tonal classification domain: the closed set of
// solfa categories, validated prediction results and the backend wire contract.
package prediction

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// Category is one of the seven tonic solfa notes the backend classifies into.
type Category string

const (
	Do Category = "Do"
	Re Category = "Re"
	Mi Category = "Mi"
	Fa Category = "Fa"
	So Category = "So"
	La Category = "La"
	Ti Category = "Ti"
)

// confidenceSlack absorbs float32 softmax noise (e.g. 100.0000001) from the backend.
const confidenceSlack = 1e-6

// ErrMalformed marks a payload that does not describe a well-formed prediction.
var ErrMalformed = errors.New("malformed prediction payload")

// Categories returns the closed category set in scale order (low to high pitch).
// This order is used for every rendering, independent of backend map ordering.
func Categories() []Category {
	return []Category{Do, Re, Mi, Fa, So, La, Ti}
}

// ParseCategory maps a case-insensitive note name onto the closed set.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories() {
		if strings.EqualFold(string(c), strings.TrimSpace(name)) {
			return c, true
		}
	}

	return "", false
}

// CulturalInfo is the free-text annotation attached to a predicted note.
type CulturalInfo struct {
	Pitch     string `json:"pitch"`
	Frequency string `json:"frequency"`
	Usage     string `json:"usage"`
	Cultural  string `json:"cultural"`
}

// Result is an immutable, validated prediction.
type Result struct {
	label       Category
	confidence  float64
	confidences map[Category]float64
	cultural    CulturalInfo
	duration    float64
}

// Label returns the predicted category.
func (r Result) Label() Category { return r.label }

// Confidence returns the confidence (0-100) of the predicted label.
func (r Result) Confidence() float64 { return r.confidence }

// ConfidenceOf returns the confidence for any category in the closed set.
func (r Result) ConfidenceOf(c Category) float64 { return r.confidences[c] }

// Confidences returns a copy of the full confidence map.
func (r Result) Confidences() map[Category]float64 { return maps.Clone(r.confidences) }

// Cultural returns the cultural annotation record.
func (r Result) Cultural() CulturalInfo { return r.cultural }

// DurationSeconds returns the duration of the submitted audio as measured by the backend.
func (r Result) DurationSeconds() float64 { return r.duration }

// WirePrediction is the JSON body of a successful POST /predict.
type WirePrediction struct {
	Success        *bool              `json:"success,omitempty"`
	PredictedNote  string             `json:"predicted_note"`
	Confidence     float64            `json:"confidence"`
	AllConfidences map[string]float64 `json:"all_confidences"`
	CulturalInfo   CulturalInfo       `json:"cultural_info"`
	AudioDuration  float64            `json:"audio_duration"`
	SampleRate     int                `json:"sample_rate,omitempty"`
}

// Parse validates a wire prediction and builds a Result.
// The confidence map must cover exactly the closed category set; a missing or
// unknown category is malformed rather than defaulted.
func Parse(w WirePrediction) (Result, error) {
	label, ok := ParseCategory(w.PredictedNote)
	if !ok {
		return Result{}, fmt.Errorf("%w: unknown predicted note %q", ErrMalformed, w.PredictedNote)
	}

	conf, err := checkConfidence("confidence", w.Confidence)
	if err != nil {
		return Result{}, err
	}

	if len(w.AllConfidences) != len(Categories()) {
		return Result{}, fmt.Errorf("%w: expected %d confidences, got %d",
			ErrMalformed, len(Categories()), len(w.AllConfidences))
	}

	confidences := make(map[Category]float64, len(w.AllConfidences))
	for name, value := range w.AllConfidences {
		c, ok := ParseCategory(name)
		if !ok {
			return Result{}, fmt.Errorf("%w: unknown category %q in confidences", ErrMalformed, name)
		}
		if _, dup := confidences[c]; dup {
			return Result{}, fmt.Errorf("%w: duplicate category %q in confidences", ErrMalformed, name)
		}

		v, err := checkConfidence("confidence of "+string(c), value)
		if err != nil {
			return Result{}, err
		}
		confidences[c] = v
	}

	for _, c := range Categories() {
		if _, ok := confidences[c]; !ok {
			return Result{}, fmt.Errorf("%w: missing category %s", ErrMalformed, c)
		}
	}

	if w.AudioDuration < 0 {
		return Result{}, fmt.Errorf("%w: negative audio duration %g", ErrMalformed, w.AudioDuration)
	}

	return Result{
		label:       label,
		confidence:  conf,
		confidences: confidences,
		cultural:    w.CulturalInfo,
		duration:    w.AudioDuration,
	}, nil
}

// MustParse is Parse for fixtures; it panics on malformed input.
func MustParse(w WirePrediction) Result {
	r, err := Parse(w)
	if err != nil {
		panic(err)
	}

	return r
}

func checkConfidence(field string, v float64) (float64, error) {
	if v != v || v < -confidenceSlack || v > 100+confidenceSlack {
		return 0, fmt.Errorf("%w: %s %g outside [0,100]", ErrMalformed, field, v)
	}

	return min(max(v, 0), 100), nil
}
