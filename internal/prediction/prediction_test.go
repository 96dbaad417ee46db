package prediction_test

import (
	"testing"

	"github.com/alkime/drumtone/internal/prediction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWire() prediction.WirePrediction {
	return prediction.WirePrediction{
		PredictedNote: "Do",
		Confidence:    95.2,
		AllConfidences: map[string]float64{
			"Do": 95.2, "Re": 2.1, "Mi": 1.3, "Fa": 0.6,
			"So": 0.4, "La": 0.3, "Ti": 0.1,
		},
		CulturalInfo:  prediction.CulturalInfo{Pitch: "Low tone (Yoruba low pitch)"},
		AudioDuration: 3.4,
	}
}

func TestParse(t *testing.T) {
	t.Run("well formed", func(t *testing.T) {
		r, err := prediction.Parse(validWire())
		require.NoError(t, err)

		assert.Equal(t, prediction.Do, r.Label())
		assert.InDelta(t, 95.2, r.Confidence(), 1e-9)
		assert.InDelta(t, 2.1, r.ConfidenceOf(prediction.Re), 1e-9)
		assert.Len(t, r.Confidences(), 7)
		assert.InDelta(t, 3.4, r.DurationSeconds(), 1e-9)
		assert.Equal(t, "Low tone (Yoruba low pitch)", r.Cultural().Pitch)
	})

	t.Run("case insensitive names", func(t *testing.T) {
		w := validWire()
		w.PredictedNote = "do"
		r, err := prediction.Parse(w)
		require.NoError(t, err)
		assert.Equal(t, prediction.Do, r.Label())
	})

	t.Run("float noise is clamped", func(t *testing.T) {
		w := validWire()
		w.Confidence = 100.0000001
		w.AllConfidences["Do"] = 100.0000001
		r, err := prediction.Parse(w)
		require.NoError(t, err)
		assert.Equal(t, 100.0, r.Confidence())
	})

	tests := []struct {
		name   string
		mutate func(w *prediction.WirePrediction)
	}{
		{"unknown label", func(w *prediction.WirePrediction) { w.PredictedNote = "Sol" }},
		{"missing category", func(w *prediction.WirePrediction) { delete(w.AllConfidences, "Ti") }},
		{"extra category", func(w *prediction.WirePrediction) {
			delete(w.AllConfidences, "Ti")
			w.AllConfidences["Xy"] = 0.1
		}},
		{"duplicate category by case", func(w *prediction.WirePrediction) {
			delete(w.AllConfidences, "Ti")
			w.AllConfidences["do"] = 1
		}},
		{"confidence above range", func(w *prediction.WirePrediction) { w.Confidence = 101 }},
		{"map value below range", func(w *prediction.WirePrediction) { w.AllConfidences["Re"] = -3 }},
		{"negative duration", func(w *prediction.WirePrediction) { w.AudioDuration = -1 }},
		{"empty map", func(w *prediction.WirePrediction) { w.AllConfidences = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := validWire()
			tt.mutate(&w)
			_, err := prediction.Parse(w)
			require.ErrorIs(t, err, prediction.ErrMalformed)
		})
	}
}

func TestResultConfidencesIsCopy(t *testing.T) {
	r := prediction.MustParse(validWire())
	m := r.Confidences()
	m[prediction.Do] = 0

	assert.InDelta(t, 95.2, r.ConfidenceOf(prediction.Do), 1e-9)
}

func TestCatalog(t *testing.T) {
	c := prediction.Catalog()
	assert.Equal(t, 7, c.Count)
	assert.Equal(t, []string{"Do", "Re", "Mi", "Fa", "So", "La", "Ti"}, c.Notes)

	info, ok := prediction.CulturalInfoFor(prediction.Ti)
	require.True(t, ok)
	assert.Equal(t, "220-300 Hz", info.Frequency)
	assert.Equal(t, info, c.CulturalInfo["Ti"])
}

func TestAvailability(t *testing.T) {
	assert.False(t, prediction.Availability{}.Available())
	assert.Equal(t, "unknown", prediction.Availability{}.Status.String())
	assert.True(t, prediction.Availability{Status: prediction.StatusReady}.Available())
	assert.False(t, prediction.Availability{Status: prediction.StatusModelNotLoaded}.Available())
}
