package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"convertly/internal/model"

	"github.com/google/uuid"
)

// CopyStrategy is the degraded-but-nonfatal fallback: the input bytes are
// copied verbatim to a new path carrying the target extension.
type CopyStrategy struct{}

func (s *CopyStrategy) Name() string { return "copy" }

func (s *CopyStrategy) Convert(ctx context.Context, inputPath string, settings model.ConversionSettings) (string, error) {
	outputPath := outputPathFor(inputPath, settings.OutputFormat)

	src, err := os.Open(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to open input file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}

	return outputPath, nil
}

// outputPathFor allocates a unique output path in the input's directory.
func outputPathFor(inputPath, format string) string {
	return filepath.Join(filepath.Dir(inputPath), fmt.Sprintf("converted_%s.%s", uuid.NewString(), format))
}
