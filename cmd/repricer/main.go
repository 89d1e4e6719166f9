package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alihassan4198-tech/repricer/internal/app"
	"github.com/alihassan4198-tech/repricer/internal/config"
	"github.com/alihassan4198-tech/repricer/internal/logging"
)

const usage = `usage: repricer [-config path] <command>

commands:
  decide <productId>  evaluate one product once
  run                 collect offers and evaluate every configured product
  schedule            run on the configured cron expression until interrupted
  init-db             create the pricing table if it does not exist
`

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("repricer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "path to the JSON or YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	command, rest, err := parseCommand(fs.Args())
	if err != nil {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "repricer: %v\n", err)
		return 1
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Debug("configuration loaded", "secrets", cfg.MaskedSecrets())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		return 1
	}
	defer application.Close()

	if err := execute(ctx, application, command, rest, logger); err != nil {
		logger.Error("command failed", "command", command, "error", err)
		return 1
	}
	return 0
}

func parseCommand(args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, errUsage
	}
	command, rest := args[0], args[1:]
	switch command {
	case "decide":
		if len(rest) != 1 || rest[0] == "" {
			return "", nil, errUsage
		}
	case "run", "schedule", "init-db":
		if len(rest) != 0 {
			return "", nil, errUsage
		}
	default:
		return "", nil, errUsage
	}
	return command, rest, nil
}

func execute(ctx context.Context, application *app.Application, command string, rest []string, logger *slog.Logger) error {
	switch command {
	case "decide":
		decision, err := application.Decide(ctx, rest[0])
		logger.Info("decision",
			"product", decision.ProductID,
			"action", decision.Action,
			"reason", decision.Reason,
			"current_price", decision.CurrentPrice.StringFixed(2),
			"new_price", decision.NewPrice.StringFixed(2),
			"update_failed", decision.UpdateFailed)
		return err
	case "run":
		report, err := application.Run(ctx)
		if err != nil {
			return err
		}
		if len(report.Failures) > 0 {
			return fmt.Errorf("%d of %d products failed", len(report.Failures), len(report.Decisions)+len(report.Failures))
		}
		return nil
	case "schedule":
		return application.Schedule(ctx)
	case "init-db":
		return application.InitDB(ctx)
	}
	return errUsage
}
