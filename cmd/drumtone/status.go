package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/alkime/drumtone/internal/config"
	"github.com/alkime/drumtone/internal/health"
	"github.com/alkime/drumtone/internal/prediction"
	"github.com/alkime/drumtone/internal/tui/workflow"
	"github.com/alkime/drumtone/pkg/collections"
	"golang.org/x/sync/errgroup"
)

// HealthCmd runs the availability check once.
type HealthCmd struct{}

// Run executes the health command. It fails unless the backend is ready.
func (h *HealthCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	_, checker, err := resolveBackend(cfg, logger)
	if err != nil {
		return err
	}

	return reportHealth(context.Background(), os.Stdout, cfg, checker, logger)
}

func reportHealth(ctx context.Context, w io.Writer, cfg *config.Config, checker health.Checker, logger *slog.Logger) error {
	avail := checkAvailable(ctx, cfg, checker, logger)

	rows := [][]string{
		{"Backend", cfg.APIURL},
		{"Status", avail.Status.String()},
	}
	if avail.Reason != "" {
		rows = append(rows, []string{"Reason", avail.Reason})
	}
	fmt.Fprintln(w, renderTable([]string{"Check", "Result"}, rows, nil))

	if !avail.Available() {
		return fmt.Errorf("backend %s", avail.Status)
	}

	return nil
}

// InfoCmd prints the model information and the notes catalog.
type InfoCmd struct{}

// Run executes the info command.
func (i *InfoCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	return reportInfo(context.Background(), os.Stdout, cfg, client)
}

func reportInfo(ctx context.Context, w io.Writer, cfg *config.Config, src workflow.InfoSource) error {
	ctx, cancel := withTimeout(ctx, cfg)
	defer cancel()

	var (
		info  prediction.ModelInfo
		notes prediction.NotesCatalog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = src.ModelInfo(gctx)
		if err != nil {
			return fmt.Errorf("model info: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		notes, err = src.Notes(gctx)
		if err != nil {
			return fmt.Errorf("notes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintln(w, renderTable([]string{"Model", ""}, [][]string{
		{"Architecture", info.Architecture},
		{"Input features", strconv.Itoa(info.InputFeatures)},
		{"Classes", strings.Join(info.Classes, ", ")},
		{"Accuracy", info.Accuracy},
		{"Sample rate", fmt.Sprintf("%d Hz", info.SampleRate)},
	}, nil))
	fmt.Fprintln(w)

	rows := collections.FilterMap(prediction.Categories(), func(c prediction.Category) ([]string, bool) {
		ci, ok := notes.CulturalInfo[string(c)]
		return []string{string(c), ci.Pitch, ci.Frequency, ci.Usage}, ok
	})
	fmt.Fprintln(w, renderTable([]string{"Note", "Pitch", "Frequency", "Usage"}, rows, nil))

	return nil
}
