package present_test

import (
	"math/rand/v2"
	"testing"

	"github.com/alkime/drumtone/internal/prediction"
	"github.com/alkime/drumtone/internal/present"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentScenario(t *testing.T) {
	r := prediction.MustParse(prediction.WirePrediction{
		PredictedNote: "Do",
		Confidence:    95.2,
		AllConfidences: map[string]float64{
			"Ti": 0.1, "Do": 95.2, "Mi": 1.3, "Re": 2.1, "La": 0.3, "So": 0.4, "Fa": 0.6,
		},
		AudioDuration: 3.4,
	})

	dm := present.Present(r)
	assert.Equal(t, prediction.Do, dm.Label)
	assert.Equal(t, present.High, dm.Band)
	require.Len(t, dm.Entries, 7)

	assert.Equal(t, prediction.Do, dm.Entries[0].Category)
	assert.True(t, dm.Entries[0].Predicted)
	assert.Equal(t, present.High, dm.Entries[0].Band)
	assert.Equal(t, prediction.Re, dm.Entries[1].Category)
	assert.Equal(t, present.Low, dm.Entries[1].Band)
	assert.Equal(t, prediction.Ti, dm.Entries[6].Category)
}

func TestBandOf(t *testing.T) {
	assert.Equal(t, present.High, present.BandOf(90))
	assert.Equal(t, present.Medium, present.BandOf(89.99))
	assert.Equal(t, present.Medium, present.BandOf(70))
	assert.Equal(t, present.Low, present.BandOf(69.99))
	assert.Equal(t, present.Low, present.BandOf(0))
}

func TestBandUsesRoundedValue(t *testing.T) {
	// 89.996 displays as 90.00, so it must band as high.
	assert.InDelta(t, 90.0, present.Round2(89.996), 1e-9)
	assert.Equal(t, present.High, present.BandOf(present.Round2(89.996)))
}

func TestPresentProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	cats := prediction.Categories()

	for range 200 {
		all := make(map[string]float64, len(cats))
		for _, c := range cats {
			all[string(c)] = rng.Float64() * 100
		}
		label := cats[rng.IntN(len(cats))]

		r := prediction.MustParse(prediction.WirePrediction{
			PredictedNote:  string(label),
			Confidence:     all[string(label)],
			AllConfidences: all,
		})
		dm := present.Present(r)

		require.Len(t, dm.Entries, len(cats))
		predicted := 0
		for i, e := range dm.Entries {
			assert.Equal(t, cats[i], e.Category)
			assert.GreaterOrEqual(t, e.Confidence, 0.0)
			assert.LessOrEqual(t, e.Confidence, 100.0)
			assert.InDelta(t, e.Confidence, present.Round2(e.Confidence), 1e-9)
			assert.Equal(t, present.BandOf(e.Confidence), e.Band)
			if e.Predicted {
				predicted++
				assert.Equal(t, label, e.Category)
			}
		}
		assert.Equal(t, 1, predicted)
	}
}
