package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/config"
	"github.com/alkime/drumtone/internal/health"
	"github.com/alkime/drumtone/internal/present"
	"github.com/alkime/drumtone/internal/resource"
	"github.com/alkime/drumtone/internal/selector"
	"github.com/alkime/drumtone/internal/submission"
	"github.com/dustin/go-humanize"
)

// PredictCmd classifies one file without the terminal UI.
type PredictCmd struct {
	File string `arg:"" type:"existingfile" help:"Audio clip to classify (.wav, .mp3, .m4a, .aac)"`
}

// Run executes the predict command.
func (c *PredictCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	return predictFile(context.Background(), os.Stdout, cfg, client, c.File, logger)
}

type predictBackend interface {
	health.Checker
	submission.Predictor
}

// predictFile runs the same gate, selection and submission path as the UI
// and prints the result.
func predictFile(
	ctx context.Context,
	w io.Writer,
	cfg *config.Config,
	be predictBackend,
	path string,
	logger *slog.Logger,
) error {
	raw, err := clip.ReadFile(path)
	if err != nil {
		return err
	}

	probe := health.NewProbe(be, logger)
	checkCtx, cancel := withTimeout(ctx, cfg)
	avail := probe.Check(checkCtx)
	cancel()
	if !avail.Available() {
		return fmt.Errorf("backend %s: %s", avail.Status, avail.Reason)
	}

	scope := resource.NewScope(logger)
	defer scope.Close()

	file, err := selector.New(scope, probe.Available, logger).Select(raw)
	var rejection *selector.Rejection
	if errors.As(err, &rejection) && rejection.Reason == selector.WrongType {
		return fmt.Errorf("%s is not a supported audio file (.wav, .mp3, .m4a, .aac)", raw.Name)
	}
	if err != nil {
		return err
	}

	settled := make(chan submission.State, 1)
	ctrl := submission.New(be,
		submission.WithAvailability(probe.Available),
		submission.WithSettleHook(func(st submission.State) { settled <- st }),
		submission.WithLogger(logger),
	)
	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("failed to start submission: %w", err)
	}
	if err := ctrl.Submit(file); err != nil {
		return fmt.Errorf("failed to submit %s: %w", file.Name(), err)
	}

	var st submission.State
	select {
	case st = <-settled:
	case <-ctx.Done():
		return ctx.Err()
	}

	if info, failed := st.Error(); failed {
		return fmt.Errorf("classification failed: %s", info.Message)
	}
	result, _ := st.Result()

	fmt.Fprintf(w, "%s (%s)\n\n", file.Name(), humanize.Bytes(uint64(file.Size()))) //nolint:gosec // size is never negative
	fmt.Fprintln(w, renderPrediction(present.Present(result)))

	return nil
}

func renderPrediction(dm present.DisplayModel) string {
	rows := make([][]string, 0, len(dm.Entries))
	for _, e := range dm.Entries {
		marker := ""
		if e.Predicted {
			marker = "◀"
		}
		rows = append(rows, []string{string(e.Category), fmt.Sprintf("%.2f%%", e.Confidence), string(e.Band), marker})
	}

	summary := fmt.Sprintf("Note %s: %.2f%% confidence (%s)\nClip length %.2fs",
		dm.Label, dm.Confidence, dm.Band, dm.Duration)

	cultural := renderTable(
		[]string{"Pitch", "Frequency", "Usage", "Meaning"},
		[][]string{{dm.Cultural.Pitch, dm.Cultural.Frequency, dm.Cultural.Usage, dm.Cultural.Cultural}},
		nil,
	)

	return summary + "\n\n" +
		renderTable([]string{"Note", "Confidence", "Band", ""}, rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft}) +
		"\n\n" + cultural
}
