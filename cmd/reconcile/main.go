package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"shipmentledger/client"
	"shipmentledger/config"
	"shipmentledger/ledger"
	"shipmentledger/logger"
	"shipmentledger/models"
	"shipmentledger/reconcile"
	"shipmentledger/transporter"
)

func main() {
	cfg := config.LoadConfig()
	// Logs go to stderr so stdout stays pure JSON.
	log := logger.New(&logger.Config{Level: cfg.LogLevel, Format: "console", Output: "stderr"})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout, log); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type options struct {
	backend string
	ids     []int64
	timeout time.Duration
}

func parseFlags(cfg *config.Config, args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("reconcile", pflag.ContinueOnError)
	fs.StringVar(&opts.backend, "backend", cfg.BackendURL, "Base URL of the transport backend")
	fs.Int64SliceVar(&opts.ids, "ids", nil, "Comma-separated transport request ids (required)")
	fs.DurationVar(&opts.timeout, "timeout", cfg.FetchTimeout, "Per-call backend timeout")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if len(opts.ids) == 0 {
		return options{}, errors.New("--ids is required")
	}
	return opts, nil
}

func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer, log *zap.Logger) error {
	opts, err := parseFlags(cfg, args)
	if err != nil {
		return err
	}

	c := client.New(opts.backend, client.WithLogger(log))
	store := transporter.NewStore(c, transporter.WithTimeout(opts.timeout), transporter.WithLogger(log))
	reader := ledger.NewReader(c, ledger.WithTimeout(opts.timeout), ledger.WithLogger(log))
	engine := reconcile.NewEngine(store, reader,
		reconcile.WithLogger(log),
		reconcile.WithConcurrency(cfg.ReportConcurrency),
	)

	reqs := make([]models.TransportRequest, 0, len(opts.ids))
	for _, id := range opts.ids {
		callCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		req, err := c.GetRequest(callCtx, id)
		cancel()
		if err != nil {
			log.Warn("skipping request", zap.Int64("request_id", id), zap.Error(err))
			continue
		}
		reqs = append(reqs, req)
	}
	if len(reqs) == 0 {
		return errors.New("none of the requested transport requests could be loaded")
	}

	output, err := json.MarshalIndent(engine.Report(ctx, reqs), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate JSON report: %w", err)
	}
	_, err = fmt.Fprintln(out, string(output))
	return err
}
