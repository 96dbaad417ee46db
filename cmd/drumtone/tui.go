package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alkime/drumtone/internal/audio"
	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/config"
	"github.com/alkime/drumtone/internal/logger"
	"github.com/alkime/drumtone/internal/session"
	"github.com/alkime/drumtone/internal/tui"
	"github.com/alkime/drumtone/internal/tui/workflow"
	"github.com/alkime/drumtone/internal/workdir"
	tea "github.com/charmbracelet/bubbletea"
)

// TUICmd is the default command: pick a clip from disk and classify it.
type TUICmd struct {
	Dir string `arg:"" optional:"" type:"existingdir" default:"." help:"Directory to browse for clips"`
}

// Run executes the TUI command.
func (c *TUICmd) Run(cfg *config.Config) error {
	dir, err := filepath.Abs(c.Dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", c.Dir, err)
	}

	return runTUI(cfg, tuiOptions{startDir: dir})
}

// RecordCmd records a clip from the microphone instead of picking a file.
type RecordCmd struct {
	Name    string `flag:"" optional:"" help:"File name of the recording (default: timestamped)"`
	Seconds int    `flag:"" optional:"" help:"Max recording length in seconds (overrides DRUMTONE_RECORD_SECONDS)"`
}

// Run executes the record command.
func (c *RecordCmd) Run(cfg *config.Config) error {
	if c.Seconds > 0 {
		cfg.RecordSeconds = c.Seconds
	}

	name := c.Name
	if name == "" {
		name = "recording-" + time.Now().Format("20060102-150405")
	}
	if !strings.HasSuffix(strings.ToLower(name), ".mp3") {
		name += ".mp3"
	}

	return runTUI(cfg, tuiOptions{record: true, recordName: name})
}

type tuiOptions struct {
	startDir   string
	record     bool
	recordName string
}

//nolint:funlen // CLI command with multiple setup steps
func runTUI(cfg *config.Config, opts tuiOptions) error {
	// the terminal belongs to the UI, so logs go to a file
	logPath := cfg.LogFile
	if logPath == "" {
		var err error
		if logPath, err = workdir.LogPath(); err != nil {
			return fmt.Errorf("failed to prepare log file: %w", err)
		}
	}
	log, closer := logger.SetupFile(cfg, logPath)
	defer closer.Close()

	be, checker, err := resolveBackend(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := sync.WaitGroup{}

	element := audio.NewElement(audio.NewDeviceOutput(), audio.WithElementLogger(log))
	defer element.Close()

	sess := session.New(session.Config{
		Predictor: be,
		Checker:   checker,
		Media:     element,
		Logger:    log,
	})
	element.Bind(sess.Playback())
	defer sess.Close()

	snaps := make(chan session.Snapshot, 64)
	if err := sess.Subscribe(snaps); err != nil {
		return fmt.Errorf("failed to subscribe to session: %w", err)
	}
	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	tuiCfg := tui.Config{
		Session:  sess,
		Info:     be,
		Playback: makePlaybackControls(sess),
		StartDir: opts.startDir,
		Recheck:  sess.Recheck,
		Timeout:  cfg.RequestTimeout,
		Cancel:   cancel,
		Logger:   log,
	}

	if opts.record {
		outputPath, err := workdir.RecordingPath(opts.recordName)
		if err != nil {
			return fmt.Errorf("failed to determine recording path: %w", err)
		}

		rec, err := startRecording(ctx, &wg, cfg, opts.recordName, log)
		if err != nil {
			return err
		}
		// always dealloc when we're done
		defer rec.close(ctx)

		tuiCfg.Record = &rec.controls
		tuiCfg.RecordPath = outputPath
	}

	p := tea.NewProgram(tui.New(tuiCfg), tea.WithAltScreen())

	wg.Go(func() {
		workflow.Forward(ctx, p.Send, snaps)
	})

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}

	cancel()
	wg.Wait()
	sess.Wait()

	fmt.Println("\nfinished. bye!")

	return nil
}

// recording owns the capture device and recorder behind the Record phase.
type recording struct {
	dev      audio.Device
	stopOnce sync.Once
	dataC    chan []byte
	logger   *slog.Logger
	controls workflow.RecordControls
}

func startRecording(
	ctx context.Context,
	wg *sync.WaitGroup,
	cfg *config.Config,
	name string,
	log *slog.Logger,
) (*recording, error) {
	dataC := make(chan []byte, 64)

	dev := audio.NewDevice(audio.CaptureConfig(cfg.RecordSampleRate))
	if err := dev.CaptureInto(ctx, dataC); err != nil {
		return nil, fmt.Errorf("failed to start audio capture: %w", err)
	}

	recorder, err := audio.NewRecorder(audio.RecorderConfig{
		SampleRate:  cfg.RecordSampleRate,
		MaxDuration: cfg.RecordDuration(),
		Name:        name,
		Logger:      log,
	}, dataC)
	if err != nil {
		dev.Dealloc(ctx)
		return nil, fmt.Errorf("failed to create audio recorder: %w", err)
	}

	if err := recorder.Start(ctx); err != nil {
		dev.Dealloc(ctx)
		return nil, fmt.Errorf("failed to start audio recorder: %w", err)
	}

	rec := &recording{dev: dev, dataC: dataC, logger: log}
	rec.controls = workflow.RecordControls{
		Progress: recorder.Progress(),
		Capture:  audioDevKnob{ctx: ctx, dev: dev, logger: log},
		Levels:   recorder.Levels(),
		Full:     recorder.Full(),
		Finish: func() (clip.Raw, error) {
			rec.stop(ctx)
			return recorder.Clip()
		},
		MaxDuration: cfg.RecordDuration(),
	}

	// surfaces encoder errors even when the UI quits before finishing
	wg.Go(func() {
		<-ctx.Done()
		rec.stop(ctx)
		if err := recorder.Wait(); err != nil {
			log.Error("Audio recorder error", "error", err)
		}
	})

	return rec, nil
}

// stop halts the device and closes the packet channel, which ends the recording.
func (r *recording) stop(ctx context.Context) {
	r.stopOnce.Do(func() {
		if err := r.dev.Stop(ctx); err != nil {
			r.logger.Error("Failed to stop audio device", "error", err)
		}
		close(r.dataC)
	})
}

func (r *recording) close(ctx context.Context) {
	r.stop(ctx)
	r.dev.Dealloc(ctx)
	r.logger.Debug("Audio device deallocated")
}
