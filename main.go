package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	arg "github.com/alexflint/go-arg"
	"go.uber.org/zap"

	"github.com/samuelfneumann/gotrain/config"
	"github.com/samuelfneumann/gotrain/logging"
	"github.com/samuelfneumann/gotrain/runner"
)

func main() {
	var args struct {
		Config        string `arg:"-c" help:"YAML config; the XOR demo is run if empty"`
		Workers       int    `help:"number of workers"`
		MaxSamples    int    `help:"sample budget of the run, including restored samples"`
		MinibatchSize int    `help:"global minibatch size"`
		Checkpoint    string `help:"checkpoint path"`
		Fresh         bool   `help:"remove the checkpoint before training"`
		Serve         string `help:"run the coordinator for remote workers on this address"`
		Coordinator   string `help:"run a single worker meeting its peers at this coordinator"`
		Rank          int    `help:"rank of the worker started with --coordinator"`
		LogLevel      string `help:"debug, info, warn, or error"`
	}
	arg.MustParse(&args)

	cfg := config.Default()
	if args.Config != "" {
		var err error
		if cfg, err = config.Load(args.Config); err != nil {
			log.Fatalln(err)
		}
	}
	cfg.ApplyOverrides(config.Overrides{
		Workers:        args.Workers,
		MaxSamples:     args.MaxSamples,
		MinibatchSize:  args.MinibatchSize,
		CheckpointPath: args.Checkpoint,
		LogLevel:       args.LogLevel,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	if args.Serve != "" {
		logger := newLogger(cfg.LogLevel, 0)
		defer logger.Sync()
		if err := runner.Serve(ctx, args.Serve, cfg.Workers, cfg.Timeout,
			logger.Named("coordinator")); err != nil {
			logger.Error("coordinator failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	loggers := func(rank int) *zap.Logger {
		return newLogger(cfg.LogLevel, rank)
	}
	r, err := runner.New(cfg, runner.WithLoggers(loggers),
		runner.WithProgressOutput(os.Stderr))
	if err != nil {
		log.Fatalln(err)
	}

	if args.Fresh {
		if err := r.Fresh(); err != nil {
			log.Fatalln(err)
		}
	}

	var result runner.Result
	if args.Coordinator != "" {
		result, err = r.Remote(ctx, args.Coordinator, args.Rank)
	} else {
		result, err = r.Local(ctx)
	}
	if err != nil {
		log.Fatalln(err)
	}

	if args.Coordinator == "" || args.Rank == 0 {
		fmt.Printf("%v\ntest error: %.4f\n", result.Progress,
			result.TestError)
	}
}

func newLogger(level string, rank int) *zap.Logger {
	logger, err := logging.New(level, rank)
	if err != nil {
		log.Fatalln(err)
	}
	return logger
}
