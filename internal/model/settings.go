package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Quality tiers accepted in conversion settings.
const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// ConversionSettings is the validated settings payload attached to a
// conversion request. Immutable once parsed.
type ConversionSettings struct {
	OutputFormat    string `json:"outputFormat"`
	Quality         string `json:"quality"`
	NoiseReduction  bool   `json:"noiseReduction"`
	AutoCompression bool   `json:"autoCompression"`
	OCR             bool   `json:"ocr"`
	Transcription   bool   `json:"transcription"`
}

// rawSettings mirrors the incoming JSON with pointers so that absent and
// present-but-invalid fields can be told apart.
type rawSettings struct {
	OutputFormat    *string `json:"outputFormat"`
	Quality         *string `json:"quality"`
	NoiseReduction  *bool   `json:"noiseReduction"`
	AutoCompression *bool   `json:"autoCompression"`
	OCR             *bool   `json:"ocr"`
	Transcription   *bool   `json:"transcription"`
}

// ParseSettings validates a settings payload and applies defaults: quality
// falls back to "high", omitted flags to false. It is a pure function with
// no side effects.
func ParseSettings(raw []byte) (ConversionSettings, error) {
	var in rawSettings
	if err := json.Unmarshal(raw, &in); err != nil {
		return ConversionSettings{}, fmt.Errorf("invalid settings JSON: %w", err)
	}

	if in.OutputFormat == nil || strings.TrimSpace(*in.OutputFormat) == "" {
		return ConversionSettings{}, fmt.Errorf("outputFormat is required")
	}

	out := ConversionSettings{
		OutputFormat: strings.ToLower(strings.TrimSpace(*in.OutputFormat)),
		Quality:      QualityHigh,
	}

	if in.Quality != nil {
		switch *in.Quality {
		case QualityHigh, QualityMedium, QualityLow:
			out.Quality = *in.Quality
		default:
			return ConversionSettings{}, fmt.Errorf("quality must be one of %q, %q or %q", QualityHigh, QualityMedium, QualityLow)
		}
	}

	if in.NoiseReduction != nil {
		out.NoiseReduction = *in.NoiseReduction
	}
	if in.AutoCompression != nil {
		out.AutoCompression = *in.AutoCompression
	}
	if in.OCR != nil {
		out.OCR = *in.OCR
	}
	if in.Transcription != nil {
		out.Transcription = *in.Transcription
	}

	return out, nil
}
