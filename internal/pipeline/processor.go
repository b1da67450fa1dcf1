package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dunamismax/pixelpipe/internal/domain"
	"github.com/dunamismax/pixelpipe/internal/raster"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type Request struct {
	ID         string
	Source     []byte
	Operations []domain.Operation
}

type Output struct {
	OriginalPNG  []byte
	ProcessedPNG []byte
	Width        int
	Height       int
	Mode         raster.Mode
	Steps        int
}

type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

type Emitter interface {
	Emit(ctx context.Context, requestID string, out Output) (Written, error)
}

type Written struct {
	OriginalPath  string
	ProcessedPath string
}

type Processor struct {
	codec    Codec
	executor *Executor
	observer StepObserver
	tracer   trace.Tracer
}

type ProcessorOption func(*Processor)

func WithStepObserver(observer StepObserver) ProcessorOption {
	return func(p *Processor) {
		p.observer = observer
	}
}

func WithTracer(tracer trace.Tracer) ProcessorOption {
	return func(p *Processor) {
		p.tracer = tracer
	}
}

func NewProcessor(codec Codec, executor *Executor, opts ...ProcessorOption) *Processor {
	if executor == nil {
		executor = NewExecutor(NewRegistryWithLimits(Limits{MaxPixels: codec.MaxPixels}))
	}
	p := &Processor{
		codec:    codec,
		executor: executor,
		tracer:   otel.Tracer("pixelpipe/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process decodes the source, runs the operations on a copy and encodes both
// the untouched original and the result as PNG.
func (p *Processor) Process(ctx context.Context, req Request) (Output, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.process")
	span.SetAttributes(
		attribute.String("request.id", req.ID),
		attribute.Int("pipeline.operations", len(req.Operations)),
		attribute.Int("source.bytes", len(req.Source)),
	)
	defer span.End()

	out, err := p.process(ctx, req, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		return Output{}, err
	}
	span.SetStatus(codes.Ok, "processed")
	return out, nil
}

func (p *Processor) process(ctx context.Context, req Request, span trace.Span) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	original, err := p.codec.Decode(req.Source)
	if err != nil {
		return Output{}, err
	}
	span.SetAttributes(
		attribute.Int("image.width", original.Width),
		attribute.Int("image.height", original.Height),
	)

	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	result, err := p.executor.RunObserved(original, req.Operations, func(step Step, elapsed time.Duration, err error) {
		span.AddEvent("pipeline.step", trace.WithAttributes(
			attribute.Int("step.index", step.Index),
			attribute.String("step.operation", step.Operation.Name),
			attribute.Int64("step.elapsed_us", elapsed.Microseconds()),
			attribute.Bool("step.failed", err != nil),
		))
		if p.observer != nil {
			p.observer(step, elapsed, err)
		}
	})
	if err != nil {
		return Output{}, err
	}

	var originalPNG, processedPNG []byte
	var g errgroup.Group
	g.Go(func() error {
		data, err := p.codec.Encode(result.Original)
		if err != nil {
			return fmt.Errorf("encode original: %w", err)
		}
		originalPNG = data
		return nil
	})
	g.Go(func() error {
		data, err := p.codec.Encode(result.Processed)
		if err != nil {
			return fmt.Errorf("encode processed: %w", err)
		}
		processedPNG = data
		return nil
	})
	if err := g.Wait(); err != nil {
		return Output{}, err
	}

	return Output{
		OriginalPNG:  originalPNG,
		ProcessedPNG: processedPNG,
		Width:        result.Processed.Width,
		Height:       result.Processed.Height,
		Mode:         result.Processed.Mode,
		Steps:        len(req.Operations),
	}, nil
}

type LocalFileFetcher struct{}

func (LocalFileFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if strings.TrimSpace(path) == "" {
		return nil, errors.New("input path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file %s: %w", path, err)
	}
	return data, nil
}

type LocalFileEmitter struct {
	OutputDir string
}

func (e LocalFileEmitter) Emit(_ context.Context, requestID string, out Output) (Written, error) {
	if strings.TrimSpace(e.OutputDir) == "" {
		return Written{}, errors.New("output directory is required")
	}

	dir := filepath.Join(e.OutputDir, sanitizePathToken(requestID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Written{}, fmt.Errorf("create output dir: %w", err)
	}

	written := Written{
		OriginalPath:  filepath.Join(dir, "original.png"),
		ProcessedPath: filepath.Join(dir, "processed.png"),
	}
	if err := os.WriteFile(written.OriginalPath, out.OriginalPNG, 0o644); err != nil {
		return Written{}, fmt.Errorf("write original image: %w", err)
	}
	if err := os.WriteFile(written.ProcessedPath, out.ProcessedPNG, 0o644); err != nil {
		return Written{}, fmt.Errorf("write processed image: %w", err)
	}
	return written, nil
}

func sanitizePathToken(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return "unknown"
	}

	var b strings.Builder
	b.Grow(len(in))
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
