package audio

import (
	"github.com/gen2brain/malgo"
)

// DeviceConfig describes the PCM layout requested from the audio backend.
type DeviceConfig struct {
	Format           malgo.FormatType
	CaptureChannels  int
	PlaybackChannels int
	SampleRate       int
}

// CaptureConfig is the microphone layout the recorder expects: mono S16LE.
func CaptureConfig(sampleRate int) *DeviceConfig {
	return &DeviceConfig{
		Format:          malgo.FormatS16,
		CaptureChannels: DefaultChannels,
		SampleRate:      sampleRate,
	}
}

// PlaybackConfig is the speaker layout the media element renders: stereo F32LE.
func PlaybackConfig(sampleRate int) *DeviceConfig {
	return &DeviceConfig{
		Format:           malgo.FormatF32,
		PlaybackChannels: 2,
		SampleRate:       sampleRate,
	}
}
