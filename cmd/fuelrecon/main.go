// Package main contains the fuelrecon command, which reconciles fuel card
// purchases with telematics refuels and reports fuel consumption.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"go.grg.app/fuelrecon/internal/config"
	"go.grg.app/fuelrecon/internal/logging"
)

var version = "dev"

type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args and executes the chosen command, returning the exit code.
// The version command needs neither configuration nor logger.
func run(args []string, stdout, stderr io.Writer) int {
	var cli struct {
		Config   string `short:"c" help:"YAML configuration file" type:"path" env:"FUELRECON_CONFIG"`
		LogLevel string `help:"Override the configured log level" env:"FUELRECON_LOG_LEVEL"`

		Analyze Analyze  `cmd:"" help:"Match card purchases against telematics and write a report"`
		Review  Review   `cmd:"" help:"Browse match results interactively"`
		Roster  Roster   `cmd:"" help:"Enter card to vehicle assignments and write a roster"`
		Version struct{} `cmd:"" help:"Print the version"`
	}
	parser, err := kong.New(&cli,
		kong.Name("fuelrecon"),
		kong.Description("Fuel card and telematics reconciliation."),
		kong.Writers(stdout, stderr))
	if err != nil {
		panic(err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if kctx.Command() == "version" {
		fmt.Fprintln(stdout, version)
		return 0
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	if err := kctx.Run(&app{cfg: cfg, logger: logger}); err != nil {
		logger.Error("command failed", zap.String("command", kctx.Command()), zap.Error(err))
		return 1
	}
	return 0
}
