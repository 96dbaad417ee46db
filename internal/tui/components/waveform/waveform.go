// Package waveform draws live microphone amplitude while a clip is recorded.
//
// Each column is the peak of a slice of recent samples on a decibel scale,
// so quiet finger taps and full-palm strikes both stay readable. Columns that
// reach full scale are drawn in the error color to flag clipping.
package waveform

import (
	"math"
	"strings"
	"time"

	"github.com/alkime/drumtone/internal/tui/style"
	"github.com/alkime/drumtone/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	// bottom to top; index 0 is empty
	blockChars = " ▁▂▃▄▅▆▇█"
	cellLevels = 8

	// peaks quieter than this render as silence
	floorDB = -48.0
	// int16 peaks at or above this count as clipped
	clipPeak = 32000

	frameInterval = 50 * time.Millisecond
)

// TickMsg triggers a waveform redraw.
type TickMsg struct{}

// Model renders recent samples as vertical bars, oldest on the left.
type Model struct {
	levels uictl.Levels[int16]
	width  int
	height int
}

type column struct {
	level   int
	clipped bool
}

// New creates a waveform of the given size reading from levels.
func New(levels uictl.Levels[int16], width, height int) Model {
	return Model{
		levels: levels,
		width:  max(width, 1),
		height: max(height, 1),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(TickMsg); ok {
		return m, tick()
	}

	return m, nil
}

// View renders the current samples.
func (m Model) View() string {
	samples := m.read()
	if len(samples) == 0 {
		return m.baseline()
	}

	return m.render(m.columns(samples))
}

// Clipping reports whether any recent sample reached full scale.
func (m Model) Clipping() bool {
	for _, s := range m.read() {
		if magnitude(s) >= clipPeak {
			return true
		}
	}

	return false
}

// SetWidth resizes the waveform. Non-positive widths are ignored.
func (m Model) SetWidth(width int) Model {
	if width > 0 {
		m.width = width
	}

	return m
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) read() []int16 {
	if m.levels == nil {
		return nil
	}

	return m.levels.Read()
}

// columns buckets samples into one peak per column. Trailing columns with
// no samples stay empty.
func (m Model) columns(samples []int16) []column {
	cols := make([]column, m.width)
	bucket := max(1, len(samples)/m.width)
	top := m.height * cellLevels

	for i := range cols {
		start := i * bucket
		if start >= len(samples) {
			break
		}

		var peak int32
		for _, s := range samples[start:min(start+bucket, len(samples))] {
			peak = max(peak, magnitude(s))
		}
		cols[i] = column{level: scale(peak, top), clipped: peak >= clipPeak}
	}

	return cols
}

func (m Model) render(cols []column) string {
	blocks := []rune(blockChars)
	rows := make([]string, m.height)

	for row := range m.height {
		// rows are drawn top down; each covers cellLevels of the column
		base := (m.height - 1 - row) * cellLevels

		var sb strings.Builder
		var run []rune
		runClipped := false
		flush := func() {
			if len(run) == 0 {
				return
			}
			if runClipped {
				sb.WriteString(style.Error.Render(string(run)))
			} else {
				sb.WriteString(style.Progress.Render(string(run)))
			}
			run = run[:0]
		}

		for _, c := range cols {
			if c.clipped != runClipped {
				flush()
				runClipped = c.clipped
			}
			run = append(run, blocks[min(max(c.level-base, 0), cellLevels)])
		}
		flush()

		rows[row] = sb.String()
	}

	return strings.Join(rows, "\n")
}

func (m Model) baseline() string {
	rows := make([]string, m.height)
	for row := range rows {
		ch := " "
		if row == m.height-1 {
			ch = "▁"
		}
		rows[row] = style.Muted.Render(strings.Repeat(ch, m.width))
	}

	return strings.Join(rows, "\n")
}

// magnitude widens before negating so -32768 does not overflow.
func magnitude(s int16) int32 {
	v := int32(s)
	if v < 0 {
		return -v
	}

	return v
}

// scale maps a peak onto 0..top using decibels relative to full scale.
func scale(peak int32, top int) int {
	if peak <= 0 {
		return 0
	}

	db := 20 * math.Log10(float64(peak)/math.MaxInt16)
	if db <= floorDB {
		return 0
	}

	return min(int(math.Ceil((1-db/floorDB)*float64(top))), top)
}
