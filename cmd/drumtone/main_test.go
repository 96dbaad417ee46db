package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alkime/drumtone/internal/backend"
	"github.com/alkime/drumtone/internal/config"
	"github.com/alkime/drumtone/internal/server"
	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(url string) *config.Config {
	return &config.Config{
		Env:              "test",
		APIURL:           url,
		RequestTimeout:   5 * time.Second,
		RecordSeconds:    5,
		RecordSampleRate: 22050,
		ModelLoaded:      true,
		CSPMode:          "relaxed",
		LogLevel:         "error",
	}
}

// stubBackend serves the stub classifier and returns a client for it.
func stubBackend(t *testing.T, modelLoaded bool) (*config.Config, *backend.Client) {
	t.Helper()

	cfg := testConfig("")
	cfg.ModelLoaded = modelLoaded
	ts := httptest.NewServer(server.New(cfg, quietLogger()).Router())
	t.Cleanup(ts.Close)

	cfg.APIURL = ts.URL
	client, err := newClient(cfg, quietLogger())
	require.NoError(t, err)

	return cfg, client
}

func writeWav(t *testing.T, name string, seconds float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)

	format := beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(int(seconds*8000)), format))
	require.NoError(t, f.Close())

	return path
}

func TestPredictFile(t *testing.T) {
	cfg, client := stubBackend(t, true)
	path := writeWav(t, "so-take1.wav", 2)

	var out bytes.Buffer
	err := predictFile(context.Background(), &out, cfg, client, path, quietLogger())
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "so-take1.wav")
	assert.Contains(t, got, "Note So:")
	assert.Contains(t, got, "Clip length 2.00s")
	assert.Contains(t, got, "◀")
	assert.Contains(t, got, "Pitch")
}

func TestPredictFileRejectsWrongType(t *testing.T) {
	cfg, client := stubBackend(t, true)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o600))

	err := predictFile(context.Background(), &bytes.Buffer{}, cfg, client, path, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a supported audio file")
}

func TestPredictFileModelNotLoaded(t *testing.T) {
	cfg, client := stubBackend(t, false)
	path := writeWav(t, "do.wav", 1)

	err := predictFile(context.Background(), &bytes.Buffer{}, cfg, client, path, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestReportHealth(t *testing.T) {
	cfg, client := stubBackend(t, true)

	var out bytes.Buffer
	require.NoError(t, reportHealth(context.Background(), &out, cfg, client, quietLogger()))
	assert.Contains(t, out.String(), "ready")

	out.Reset()
	err := reportHealth(context.Background(), &out, testConfig(""), nil, quietLogger())
	require.Error(t, err)
	assert.Contains(t, out.String(), "Backend API not configured.")
}

func TestReportInfo(t *testing.T) {
	cfg, client := stubBackend(t, true)

	var out bytes.Buffer
	require.NoError(t, reportInfo(context.Background(), &out, cfg, client))

	got := out.String()
	assert.Contains(t, got, "Architecture")
	assert.Contains(t, got, "Sample rate")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("│ Do ")), bytes.Index(out.Bytes(), []byte("│ Ti ")),
		"notes are listed in scale order")
}

func TestResolveBackendUnconfigured(t *testing.T) {
	be, checker, err := resolveBackend(testConfig(""), quietLogger())
	require.NoError(t, err)
	assert.Nil(t, checker)

	_, err = be.Notes(context.Background())
	require.ErrorIs(t, err, backend.ErrNotConfigured)
}

func TestCLIApply(t *testing.T) {
	cfg := testConfig("http://localhost:8000")
	cli := &CLI{APIURL: "http://10.0.0.2:9000", Timeout: 3 * time.Second}

	require.NoError(t, cli.apply(cfg))
	assert.Equal(t, "http://10.0.0.2:9000", cfg.APIURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)

	cli.APIURL = "not a url"
	require.Error(t, cli.apply(cfg))
}

func TestRenderTable(t *testing.T) {
	got := renderTable([]string{"Setting", "Value"}, [][]string{{"API URL"}}, nil)
	assert.Contains(t, got, "Setting")
	assert.NotContains(t, got, "SETTING", "headers keep their case")
	assert.Contains(t, got, "API URL")
	assert.Empty(t, renderTable(nil, nil, nil))
}
