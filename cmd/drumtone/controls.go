package main

import (
	"context"
	"log/slog"

	"github.com/alkime/drumtone/internal/audio"
	"github.com/alkime/drumtone/internal/session"
	"github.com/alkime/drumtone/internal/tui/workflow"
)

func makePlaybackControls(sess *session.Session) workflow.PlaybackControls {
	player := sess.Playback()

	return workflow.PlaybackControls{
		PlayPause: player.PlayPause(),
		Progress:  player.Progress(),
		SeekBy:    player.SeekBy,
	}
}

// audioDevKnob starts and pauses microphone capture.
type audioDevKnob struct {
	ctx    context.Context
	dev    audio.Device
	logger *slog.Logger
}

func (adk audioDevKnob) Read() bool {
	return adk.dev.IsStarted()
}

func (adk audioDevKnob) On() {
	err := adk.dev.Start(adk.ctx)
	if err != nil {
		adk.logger.Error("audioDevKnob On error", "error", err)
	}
}

func (adk audioDevKnob) Off() {
	err := adk.dev.Stop(adk.ctx)
	if err != nil {
		adk.logger.Error("audioDevKnob Off error", "error", err)
	}
}

func (adk audioDevKnob) Toggle() {
	err := adk.dev.Toggle(adk.ctx)
	if err != nil {
		adk.logger.Error("audioDevKnob Toggle error", "error", err)
	}
}
