package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dunamismax/pixelpipe/internal/config"
	"github.com/dunamismax/pixelpipe/internal/domain"
	"github.com/dunamismax/pixelpipe/internal/id"
	"github.com/dunamismax/pixelpipe/internal/logging"
	"github.com/dunamismax/pixelpipe/internal/pipeline"
)

type options struct {
	input     string
	ops       string
	opsFile   string
	outputDir string
	requestID string
}

func main() {
	var opts options
	flag.StringVar(&opts.input, "in", "", "path of the image to process")
	flag.StringVar(&opts.ops, "ops", "", `operations as JSON, e.g. '[{"name":"grayscale"}]'`)
	flag.StringVar(&opts.opsFile, "ops-file", "", "read operations JSON from this file")
	flag.StringVar(&opts.outputDir, "out", "./pixelpipe-output", "directory receiving <id>/original.png and <id>/processed.png")
	flag.StringVar(&opts.requestID, "id", "", "request id used for the output directory (default: random uuid)")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.Log.Level, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := pipeline.Startup(); err != nil {
		logger.Fatalw("start image runtime", "error", err)
	}
	defer pipeline.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, cfg.Pipeline); err != nil {
		logger.Errorw("process failed", "input", opts.input, "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, cfg config.PipelineConfig) error {
	ops, err := loadOperations(opts)
	if err != nil {
		return err
	}
	if cfg.MaxOperations > 0 && len(ops) > cfg.MaxOperations {
		return fmt.Errorf("too many operations: %d exceeds limit of %d", len(ops), cfg.MaxOperations)
	}

	source, err := pipeline.LocalFileFetcher{}.Fetch(ctx, opts.input)
	if err != nil {
		return err
	}

	requestID := strings.TrimSpace(opts.requestID)
	if requestID == "" {
		requestID = id.New()
	}

	processor := pipeline.NewProcessor(pipeline.NewCodec(cfg.MaxPixels), nil)
	out, err := processor.Process(ctx, pipeline.Request{
		ID:         requestID,
		Source:     source,
		Operations: ops,
	})
	if err != nil {
		return err
	}

	written, err := pipeline.LocalFileEmitter{OutputDir: opts.outputDir}.Emit(ctx, requestID, out)
	if err != nil {
		return err
	}

	fmt.Printf("original:  %s\nprocessed: %s (%dx%d %s)\n",
		written.OriginalPath, written.ProcessedPath, out.Width, out.Height, out.Mode)
	return nil
}

func loadOperations(opts options) ([]domain.Operation, error) {
	raw := opts.ops
	if opts.opsFile != "" {
		if raw != "" {
			return nil, errors.New("use either -ops or -ops-file, not both")
		}
		data, err := os.ReadFile(opts.opsFile)
		if err != nil {
			return nil, fmt.Errorf("read operations file: %w", err)
		}
		raw = string(data)
	}
	return domain.ParseOperations(raw)
}
