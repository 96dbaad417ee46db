package server

import (
	"hash/crc32"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alkime/drumtone/internal/prediction"
)

// Classifier scores a clip over every category, in percent.
type Classifier interface {
	Classify(name string, data []byte) (prediction.Category, map[prediction.Category]float64)
}

// StubClassifier is deterministic and never inspects the signal. A file name
// starting with a category ("so-take2.wav") forces that label; otherwise the
// label comes from the payload checksum.
type StubClassifier struct{}

func (StubClassifier) Classify(name string, data []byte) (prediction.Category, map[prediction.Category]float64) {
	sum := crc32.ChecksumIEEE(data)
	categories := prediction.Categories()

	label, ok := labelFromName(name)
	if !ok {
		label = categories[int(sum%uint32(len(categories)))]
	}

	// top confidence in [60, 99.99]
	top := 60 + float64(sum%4000)/100
	rest := 100 - top

	scores := make(map[prediction.Category]float64, len(categories))
	scores[label] = top

	// the remainder decays with distance from the label on the scale
	idx := slices.Index(categories, label)
	weights := make([]float64, len(categories))
	var total float64
	for i := range categories {
		if i == idx {
			continue
		}
		d := i - idx
		if d < 0 {
			d = -d
		}
		weights[i] = 1 / float64(d)
		total += weights[i]
	}
	for i, c := range categories {
		if i == idx {
			continue
		}
		scores[c] = rest * weights[i] / total
	}

	return label, scores
}

func labelFromName(name string) (prediction.Category, bool) {
	base := strings.ToLower(filepath.Base(name))
	for _, c := range prediction.Categories() {
		prefix := strings.ToLower(string(c))
		if !strings.HasPrefix(base, prefix) {
			continue
		}
		// "dome.wav" is not "do"
		if len(base) == len(prefix) || !isLetter(base[len(prefix)]) {
			return c, true
		}
	}

	return "", false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
