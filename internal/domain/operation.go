package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type OpKind int

const (
	OpUnknown OpKind = iota
	OpOriginal
	OpGrayscale
	OpBlur
	OpEdgeDetection
	OpThreshold
	OpResize
	OpRotate
	OpFlip
	OpLighten
	OpDarken
	OpHueShift
)

const FlipVertical = "vertical"

var opNames = map[OpKind]string{
	OpOriginal:      "original",
	OpGrayscale:     "grayscale",
	OpBlur:          "blur",
	OpEdgeDetection: "edge_detection",
	OpThreshold:     "threshold",
	OpResize:        "resize",
	OpRotate:        "rotate",
	OpFlip:          "flip",
	OpLighten:       "lighten",
	OpDarken:        "darken",
	OpHueShift:      "hueshift",
}

func ParseOpKind(name string) OpKind {
	switch name {
	case "original":
		return OpOriginal
	case "grayscale":
		return OpGrayscale
	case "blur":
		return OpBlur
	case "edge_detection":
		return OpEdgeDetection
	case "threshold":
		return OpThreshold
	case "resize":
		return OpResize
	case "rotate":
		return OpRotate
	case "flip":
		return OpFlip
	case "lighten":
		return OpLighten
	case "darken":
		return OpDarken
	case "hueshift":
		return OpHueShift
	default:
		return OpUnknown
	}
}

func (k OpKind) String() string {
	if name, ok := opNames[k]; ok {
		return name
	}
	return "unknown"
}

func KnownOperations() []string {
	out := make([]string, 0, len(opNames))
	for k := OpOriginal; k <= OpHueShift; k++ {
		out = append(out, opNames[k])
	}
	return out
}

type Operation struct {
	Name  string `json:"name" validate:"required"`
	Value Value  `json:"value"`
}

func (o Operation) Kind() OpKind {
	return ParseOpKind(o.Name)
}

func (o Operation) String() string {
	if o.Value.IsNone() {
		return o.Name
	}
	data, err := json.Marshal(o.Value)
	if err != nil {
		return o.Name
	}
	return fmt.Sprintf("%s(%s)", o.Name, data)
}

// ParseOperations decodes the JSON operation list sent by clients.
func ParseOperations(raw string) ([]Operation, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []Operation{}, nil
	}

	var ops []Operation
	if err := json.Unmarshal([]byte(raw), &ops); err != nil {
		return nil, fmt.Errorf("invalid operations JSON: %w", err)
	}
	if ops == nil {
		ops = []Operation{}
	}
	return ops, nil
}
