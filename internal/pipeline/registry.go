package pipeline

import (
	"github.com/dunamismax/pixelpipe/internal/domain"
	"github.com/dunamismax/pixelpipe/internal/raster"
)

type Transform func(buf *raster.Buffer, value domain.Value) (*raster.Buffer, error)

type Entry struct {
	Kind domain.OpKind
	// Requires is the mode the buffer is coerced into before Apply runs.
	// Zero means the transform accepts either mode.
	Requires raster.Mode
	Apply    Transform
}

type Registry struct {
	entries map[domain.OpKind]Entry
}

// Limits bounds the buffers a step may allocate.
type Limits struct {
	MaxPixels int
}

func NewRegistry() *Registry {
	return NewRegistryWithLimits(Limits{})
}

// NewRegistryWithLimits is read-only after construction and safe to share.
func NewRegistryWithLimits(limits Limits) *Registry {
	if limits.MaxPixels <= 0 {
		limits.MaxPixels = defaultMaxPixels
	}

	r := &Registry{entries: make(map[domain.OpKind]Entry)}
	for _, name := range domain.KnownOperations() {
		kind := domain.ParseOpKind(name)
		if entry, ok := entryFor(kind, limits); ok {
			r.entries[kind] = entry
		}
	}
	return r
}

func entryFor(kind domain.OpKind, limits Limits) (Entry, bool) {
	switch kind {
	case domain.OpOriginal:
		return Entry{Kind: kind, Apply: identity}, true
	case domain.OpGrayscale:
		return Entry{Kind: kind, Apply: grayscale}, true
	case domain.OpBlur:
		return Entry{Kind: kind, Requires: raster.Color, Apply: gaussianBlur}, true
	case domain.OpEdgeDetection:
		return Entry{Kind: kind, Requires: raster.Gray, Apply: edgeDetection}, true
	case domain.OpThreshold:
		return Entry{Kind: kind, Requires: raster.Gray, Apply: threshold}, true
	case domain.OpResize:
		return Entry{Kind: kind, Apply: resizeWithin(limits.MaxPixels)}, true
	case domain.OpRotate:
		return Entry{Kind: kind, Apply: rotate}, true
	case domain.OpFlip:
		return Entry{Kind: kind, Apply: flip}, true
	case domain.OpLighten:
		return Entry{Kind: kind, Requires: raster.Color, Apply: lighten}, true
	case domain.OpDarken:
		return Entry{Kind: kind, Requires: raster.Color, Apply: darken}, true
	case domain.OpHueShift:
		return Entry{Kind: kind, Requires: raster.Color, Apply: hueShift}, true
	default:
		return Entry{}, false
	}
}

func (r *Registry) Lookup(name string) (Entry, bool) {
	entry, ok := r.entries[domain.ParseOpKind(name)]
	return entry, ok
}

func (r *Registry) Len() int {
	return len(r.entries)
}
