package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	acceptor "github.com/riscv-tools/sim-acceptor"
	"github.com/riscv-tools/sim-acceptor/exitcodes"
	"github.com/riscv-tools/sim-acceptor/flags"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "sim-acceptor"
	app.Usage = "RISC-V simulator test suite runner"
	app.Description = "sim-acceptor discovers RISC-V ELF test images, builds the requested simulator backends, runs each image under a timeout, and writes a JUnit-style XML report"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			// Test failures and fatal errors both exit 1.
			cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.Failure))
		}
	}

	// Start telemetry. Exporters are configured through the standard
	// OTEL_* environment; without them this is a no-op pipeline.
	shutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Warn("Failed to set up open telemetry", "error", err)
	} else {
		defer shutdown()
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	logger := newLogger(ctx)
	log.SetDefault(logger)

	cfg, err := acceptor.NewConfig(ctx, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create config: %v", err), exitcodes.Failure)
	}

	app, err := acceptor.New(ctx.Context, cfg, Version)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create acceptor: %v", err), exitcodes.Failure)
	}

	return app.Run(ctx.Context)
}

// newLogger builds the terminal logger from the CLI flags, with color
// only when stderr is a terminal.
func newLogger(ctx *cli.Context) log.Logger {
	level := parseLevel(ctx.String(flags.LogLevel.Name))
	if ctx.Bool(flags.DebugFlag.Name) {
		level = log.LevelDebug
	}
	useColor := term.IsTerminal(int(os.Stderr.Fd()))
	return log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, level, useColor))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "trace":
		return log.LevelTrace
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	case "crit":
		return log.LevelCrit
	default:
		return log.LevelInfo
	}
}
