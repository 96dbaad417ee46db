// Package workdir manages the drumtone working directory for recordings and logs.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	recordingsDir = "recordings"
	logsDir       = "logs"
	logFile       = "drumtone.log"
)

// Root returns the base directory for all drumtone working files.
// The path is expanded at runtime to resolve to:
//
//	$HOME/Documents/Alkime/Drumtone
func Root() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Documents", "Alkime", "Drumtone"), nil
}

// Prep ensures that the named subdirectory of Root exists and returns it.
func Prep(name string) (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create working directory %s: %w", dir, err)
	}

	return dir, nil
}

// RecordingPath returns where a microphone clip with the given file name is saved.
func RecordingPath(name string) (string, error) {
	dir, err := Prep(recordingsDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(name)), nil
}

// LogPath returns the log file used while the terminal UI is running.
func LogPath() (string, error) {
	dir, err := Prep(logsDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, logFile), nil
}
