package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/dunamismax/pixelpipe/internal/domain"
	"github.com/dunamismax/pixelpipe/internal/raster"
)

type Step struct {
	Index     int
	Operation domain.Operation
	Entry     Entry
}

// StepObserver is called after every step with its outcome.
type StepObserver func(step Step, elapsed time.Duration, err error)

type Result struct {
	Original  *raster.Buffer
	Processed *raster.Buffer
}

type Executor struct {
	registry *Registry
	now      func() time.Time
}

func NewExecutor(registry *Registry) *Executor {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Executor{registry: registry, now: time.Now}
}

// Plan resolves every operation against the registry. The first unknown name
// fails the whole list.
func (e *Executor) Plan(ops []domain.Operation) ([]Step, error) {
	steps := make([]Step, 0, len(ops))
	for i, op := range ops {
		entry, ok := e.registry.Lookup(op.Name)
		if !ok {
			return nil, &UnknownOperationError{Index: i, Name: op.Name}
		}
		steps = append(steps, Step{Index: i, Operation: op, Entry: entry})
	}
	return steps, nil
}

func (e *Executor) Run(original *raster.Buffer, ops []domain.Operation) (Result, error) {
	return e.RunObserved(original, ops, nil)
}

// RunObserved applies ops in order to a copy of original and stops at the
// first failure without a partial result.
func (e *Executor) RunObserved(original *raster.Buffer, ops []domain.Operation, observe StepObserver) (Result, error) {
	if original == nil {
		return Result{}, fmt.Errorf("%w: no buffer", ErrInvalidImage)
	}
	if err := original.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	steps, err := e.Plan(ops)
	if err != nil {
		return Result{}, err
	}

	buf := original.Clone()
	for _, step := range steps {
		started := e.now()
		next, err := e.apply(buf, step)
		if observe != nil {
			observe(step, e.now().Sub(started), err)
		}
		if err != nil {
			return Result{}, err
		}
		buf = next
	}

	return Result{Original: original, Processed: buf}, nil
}

func (e *Executor) apply(buf *raster.Buffer, step Step) (*raster.Buffer, error) {
	if step.Entry.Requires != 0 {
		buf = raster.RequireMode(buf, step.Entry.Requires)
	}

	out, err := step.Entry.Apply(buf, step.Operation.Value)
	if err != nil {
		return nil, &StepError{Index: step.Index, Name: step.Operation.Name, Err: err}
	}
	if out == nil {
		return nil, &StepError{Index: step.Index, Name: step.Operation.Name, Err: errors.New("transform returned no buffer")}
	}
	if err := out.Validate(); err != nil {
		return nil, &StepError{Index: step.Index, Name: step.Operation.Name, Err: err}
	}
	return out, nil
}
