package convert

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"convertly/internal/model"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	// Register the WebP decoder so WebP uploads can be re-encoded.
	_ "golang.org/x/image/webp"
)

// ImageStrategy re-encodes raster images. Quality tiers map to numeric
// encoder settings per target format.
type ImageStrategy struct{}

func (s *ImageStrategy) Name() string { return "image" }

func (s *ImageStrategy) Convert(ctx context.Context, inputPath string, settings model.ConversionSettings) (string, error) {
	img, err := imaging.Open(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	outputPath := outputPathFor(inputPath, settings.OutputFormat)

	switch settings.OutputFormat {
	case "jpg", "jpeg":
		err = imaging.Save(img, outputPath, imaging.JPEGQuality(jpegQuality(settings.Quality)))
	case "png":
		err = imaging.Save(img, outputPath, imaging.PNGCompressionLevel(pngCompression(settings.Quality)))
	case "webp":
		err = saveWebP(img, outputPath, settings.Quality)
	default:
		return "", fmt.Errorf("unsupported image target format %q", settings.OutputFormat)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", settings.OutputFormat, err)
	}

	return outputPath, nil
}

func saveWebP(img image.Image, outputPath, quality string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return webp.Encode(f, img, &webp.Options{Quality: webpQuality(quality)})
}

func jpegQuality(quality string) int {
	switch quality {
	case model.QualityLow:
		return 60
	case model.QualityMedium:
		return 80
	default:
		return 95
	}
}

func pngCompression(quality string) png.CompressionLevel {
	switch quality {
	case model.QualityLow:
		return png.BestCompression
	case model.QualityMedium:
		return png.DefaultCompression
	default:
		return png.BestSpeed
	}
}

func webpQuality(quality string) float32 {
	switch quality {
	case model.QualityLow:
		return 50
	case model.QualityMedium:
		return 75
	default:
		return 90
	}
}
