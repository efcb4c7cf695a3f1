package convert

import (
	"context"

	"convertly/internal/model"
)

// Strategy is one format-specific conversion procedure. Convert writes
// exactly one output file next to the input and never deletes the input.
type Strategy interface {
	Convert(ctx context.Context, inputPath string, settings model.ConversionSettings) (string, error)
	Name() string
}

// Result describes a finished conversion. Fallback is true when the output
// is a byte-for-byte copy of the input rather than a real transcode, so
// callers can tell the two apart.
type Result struct {
	OutputPath string
	Strategy   string
	Fallback   bool
}
