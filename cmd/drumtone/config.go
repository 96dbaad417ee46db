package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alkime/drumtone/internal/audio"
	"github.com/alkime/drumtone/internal/config"
	"github.com/alkime/drumtone/internal/keyring"
	"github.com/alkime/drumtone/internal/workdir"
)

// DevicesCmd lists available audio devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (dcmd *DevicesCmd) Run(logger *slog.Logger) error {
	logger.Debug("Enumerating audio devices...")

	adev := audio.NewDevice(nil)
	devices, err := adev.EnumerateDevices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	rows := make([][]string, 0, len(devices))
	for _, dev := range devices {
		def := ""
		if dev.IsDefault {
			def = "yes"
		}
		rows = append(rows, []string{string(dev.Kind), dev.Name, def, fmt.Sprint(dev.FormatCount)})
	}
	fmt.Println(renderTable([]string{"Kind", "Name", "Default", "Formats"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))

	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetToken   SetTokenCmd   `cmd:"" name:"set-token" help:"Store the backend API token in the system keychain"`
	ClearToken ClearTokenCmd `cmd:"" name:"clear-token" help:"Remove the stored API token"`
	Show       ShowCmd       `cmd:"" help:"Show the effective configuration"`
}

// SetTokenCmd stores the API token in the system keychain.
type SetTokenCmd struct {
	Token string `arg:"" help:"API token value"`
}

// Run executes the set-token command.
func (c *SetTokenCmd) Run() error {
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("API token cannot be empty")
	}

	if err := keyring.Set(keyring.APIToken, c.Token); err != nil {
		return fmt.Errorf("failed to store API token: %w", err)
	}

	fmt.Printf("%s stored in keychain\n", keyring.APIToken.DisplayName())

	return nil
}

// ClearTokenCmd removes the API token from the keychain.
type ClearTokenCmd struct{}

// Run executes the clear-token command.
func (c *ClearTokenCmd) Run() error {
	if err := keyring.Delete(keyring.APIToken); err != nil {
		return err
	}

	fmt.Printf("%s removed\n", keyring.APIToken.DisplayName())

	return nil
}

// ShowCmd prints the configuration after environment, .env and flags.
type ShowCmd struct{}

// Run executes the show command.
//
//nolint:unparam // error return required by Kong interface
func (c *ShowCmd) Run(cfg *config.Config) error {
	fmt.Println(renderTable([]string{"Setting", "Value"}, configRows(cfg, tokenSource(cfg)), nil))

	return nil
}

func tokenSource(cfg *config.Config) string {
	switch {
	case cfg.APIToken != "":
		return "environment"
	case keyring.IsSet(keyring.APIToken):
		return "keychain"
	default:
		return "not set"
	}
}

func configRows(cfg *config.Config, token string) [][]string {
	logFile := cfg.LogFile
	if logFile == "" {
		if path, err := workdir.LogPath(); err == nil {
			logFile = path
		}
	}

	return [][]string{
		{"API URL", cfg.APIURL},
		{"API token", token},
		{"Request timeout", cfg.RequestTimeout.String()},
		{"Record length", cfg.RecordDuration().String()},
		{"Record sample rate", fmt.Sprintf("%d Hz", cfg.RecordSampleRate)},
		{"Log level", cfg.LogLevel},
		{"Log file", logFile},
	}
}
