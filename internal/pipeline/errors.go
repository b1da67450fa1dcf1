package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidImage     = errors.New("invalid image")
	ErrImageTooLarge    = errors.New("image exceeds pixel limit")
	ErrUnknownOperation = errors.New("unknown operation")
)

type UnknownOperationError struct {
	Index int
	Name  string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation: %s", e.Name)
}

func (e *UnknownOperationError) Is(target error) bool {
	return target == ErrUnknownOperation
}

// StepError wraps a failure raised by a transform while applying a step.
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

var errNoFallbackDecoder = errors.New("no fallback decoder available")
