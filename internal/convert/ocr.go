package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"convertly/internal/model"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// OCRStrategy recognizes text in images and PDFs with the tesseract
// binary. Image inputs go straight through tesseract; PDF inputs have
// their page images extracted first, then the per-page results are
// stitched back together.
type OCRStrategy struct {
	TesseractBin string
}

func NewOCRStrategy(tesseractBin string) *OCRStrategy {
	if tesseractBin == "" {
		tesseractBin = "tesseract"
	}
	return &OCRStrategy{TesseractBin: tesseractBin}
}

func (s *OCRStrategy) Name() string { return "ocr" }

func (s *OCRStrategy) Convert(ctx context.Context, inputPath string, settings model.ConversionSettings) (string, error) {
	toText := settings.OutputFormat == "txt"

	outFormat := "pdf"
	if toText {
		outFormat = "txt"
	}
	outputPath := outputPathFor(inputPath, outFormat)

	source := strings.TrimPrefix(strings.ToLower(filepath.Ext(inputPath)), ".")
	var err error
	if source == "pdf" {
		err = s.recognizePDF(ctx, inputPath, outputPath, toText)
	} else {
		err = s.recognizeImage(ctx, inputPath, outputPath, toText)
	}
	if err != nil {
		return "", err
	}
	return outputPath, nil
}

// recognizeImage runs tesseract on a single image. Tesseract writes
// <base>.txt or <base>.pdf itself, which is then moved into place.
func (s *OCRStrategy) recognizeImage(ctx context.Context, inputPath, outputPath string, toText bool) error {
	base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))

	args := []string{inputPath, base}
	if !toText {
		args = append(args, "pdf")
	}

	cmd := exec.CommandContext(ctx, s.TesseractBin, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(string(output)))
	}

	produced := base + ".txt"
	if !toText {
		produced = base + ".pdf"
	}
	if produced != outputPath {
		if err := os.Rename(produced, outputPath); err != nil {
			return fmt.Errorf("failed to move tesseract output: %w", err)
		}
	}
	return nil
}

// recognizePDF extracts the page images from a PDF, recognizes each one,
// and produces either concatenated text or a merged PDF.
func (s *OCRStrategy) recognizePDF(ctx context.Context, inputPath, outputPath string, toText bool) error {
	imageDir, err := os.MkdirTemp(filepath.Dir(inputPath), "ocr-")
	if err != nil {
		return fmt.Errorf("failed to create image dir: %w", err)
	}
	defer os.RemoveAll(imageDir)

	if err := api.ExtractImagesFile(inputPath, imageDir, nil, relaxedPDFConf()); err != nil {
		return fmt.Errorf("failed to extract PDF images: %w", err)
	}

	images, err := listImages(imageDir)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no recognizable images in PDF")
	}

	if toText {
		return s.mergeText(ctx, images, outputPath)
	}
	return s.mergePDF(ctx, images, imageDir, outputPath)
}

func (s *OCRStrategy) mergeText(ctx context.Context, images []string, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	for _, img := range images {
		base := strings.TrimSuffix(img, filepath.Ext(img))
		if err := s.run(ctx, img, base); err != nil {
			return err
		}
		text, err := os.ReadFile(base + ".txt")
		if err != nil {
			return fmt.Errorf("failed to read recognized text: %w", err)
		}
		if _, err := out.Write(text); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func (s *OCRStrategy) mergePDF(ctx context.Context, images []string, imageDir, outputPath string) error {
	var pagePDFs []string
	for _, img := range images {
		base := strings.TrimSuffix(img, filepath.Ext(img))
		if err := s.run(ctx, img, base, "pdf"); err != nil {
			return err
		}
		pagePDFs = append(pagePDFs, base+".pdf")
	}

	if err := api.MergeCreateFile(pagePDFs, outputPath, false, relaxedPDFConf()); err != nil {
		return fmt.Errorf("failed to merge page PDFs: %w", err)
	}
	return nil
}

func (s *OCRStrategy) run(ctx context.Context, inputPath, outBase string, extra ...string) error {
	args := append([]string{inputPath, outBase}, extra...)
	cmd := exec.CommandContext(ctx, s.TesseractBin, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image dir: %w", err)
	}

	var images []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		switch ext {
		case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}

func relaxedPDFConf() *pdfcpumodel.Configuration {
	conf := pdfcpumodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfcpumodel.ValidationRelaxed
	return conf
}
