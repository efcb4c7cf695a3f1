package convert

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"convertly/internal/model"
)

// Dispatcher routes a conversion to a strategy by inspecting the target
// and source formats. Rules are ordered; the first match wins.
type Dispatcher struct {
	Media    Strategy
	Image    Strategy
	Document Strategy
	OCR      Strategy
	Fallback Strategy
}

// NewDispatcher wires the production strategies. ffmpegBin and
// tesseractBin default to the binaries on PATH when empty.
func NewDispatcher(ffmpegBin, tesseractBin string) *Dispatcher {
	return &Dispatcher{
		Media:    NewMediaStrategy(ffmpegBin),
		Image:    &ImageStrategy{},
		Document: &DocumentStrategy{},
		OCR:      NewOCRStrategy(tesseractBin),
		Fallback: &CopyStrategy{},
	}
}

// Convert picks a strategy and runs it. A failing strategy degrades to the
// byte-copy fallback rather than surfacing the error; only a failing
// fallback is fatal. Result.Fallback tells callers when the output is a
// passthrough copy rather than a real conversion.
func (d *Dispatcher) Convert(ctx context.Context, inputPath string, settings model.ConversionSettings) (Result, error) {
	strategy := d.pick(inputPath, settings)

	if strategy != nil {
		outputPath, err := strategy.Convert(ctx, inputPath, settings)
		if err == nil {
			return Result{OutputPath: outputPath, Strategy: strategy.Name()}, nil
		}
		log.Printf("[Dispatch] %s strategy failed, falling back to copy: %v", strategy.Name(), err)
	}

	outputPath, err := d.Fallback.Convert(ctx, inputPath, settings)
	if err != nil {
		return Result{}, fmt.Errorf("fallback copy failed: %w", err)
	}
	return Result{OutputPath: outputPath, Strategy: d.Fallback.Name(), Fallback: true}, nil
}

func (d *Dispatcher) pick(inputPath string, settings model.ConversionSettings) Strategy {
	target := settings.OutputFormat
	source := strings.TrimPrefix(strings.ToLower(filepath.Ext(inputPath)), ".")

	switch {
	case mediaFormats[target]:
		return d.Media
	case imageFormats[target]:
		return d.Image
	case target == "pdf" && source == "docx":
		return d.Document
	case settings.OCR && ocrSourceFormats[source]:
		return d.OCR
	}
	return nil
}
