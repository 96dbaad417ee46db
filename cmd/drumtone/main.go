package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/alkime/drumtone/internal/config"
	"github.com/alkime/drumtone/internal/logger"
)

// CLI defines the drumtone command structure.
type CLI struct {
	APIURL  string        `name:"api-url" help:"Classifier backend URL (overrides DRUMTONE_API_URL)"`
	Timeout time.Duration `help:"Backend request timeout (overrides DRUMTONE_REQUEST_TIMEOUT)"`

	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"withargs" help:"Launch the terminal UI to classify a clip"`

	// Subcommands
	Record  RecordCmd  `cmd:"" help:"Record a clip from the microphone and classify it"`
	Predict PredictCmd `cmd:"" help:"Classify an audio file and print the result"`
	Health  HealthCmd  `cmd:"" help:"Check whether the classifier backend is available"`
	Info    InfoCmd    `cmd:"" help:"Show model information and the notes catalog"`
	Devices DevicesCmd `cmd:"" help:"List available audio devices"`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration"`
}

// apply lets flags override the environment.
func (c *CLI) apply(cfg *config.Config) error {
	if c.APIURL != "" {
		cfg.APIURL = c.APIURL
	}
	if c.Timeout > 0 {
		cfg.RequestTimeout = c.Timeout
	}

	return cfg.Validate()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "drumtone: %v\n", err)
		os.Exit(1)
	}

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("drumtone"),
		kong.Description("Classify talking drum tones with a remote model."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(cli.apply(cfg))

	// the terminal UI swaps this for a file logger
	cliLogger := logger.SetupCLI(cfg, os.Stderr)

	err = ctx.Run(cfg, cliLogger)
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
