package convert

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"convertly/internal/model"

	"github.com/go-pdf/fpdf"
)

// DocumentStrategy turns a DOCX document into a PDF by extracting its
// paragraph text and laying it out on A4 pages.
type DocumentStrategy struct{}

func (s *DocumentStrategy) Name() string { return "document" }

func (s *DocumentStrategy) Convert(ctx context.Context, inputPath string, settings model.ConversionSettings) (string, error) {
	paragraphs, err := extractDocxText(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to extract document text: %w", err)
	}

	outputPath := outputPathFor(inputPath, settings.OutputFormat)
	if err := renderTextPDF(paragraphs, outputPath); err != nil {
		return "", fmt.Errorf("failed to render PDF: %w", err)
	}

	return outputPath, nil
}

// extractDocxText pulls the paragraph text out of word/document.xml.
// A DOCX file is a zip archive; text runs live in w:t elements.
func extractDocxText(path string) ([]string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open docx archive: %w", err)
	}
	defer archive.Close()

	var doc *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("word/document.xml not found in archive")
	}

	r, err := doc.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer r.Close()

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)

	decoder := xml.NewDecoder(r)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br":
				current.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	return paragraphs, nil
}

func renderTextPDF(paragraphs []string, outputPath string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, p := range paragraphs {
		if strings.TrimSpace(p) == "" {
			pdf.Ln(6)
			continue
		}
		pdf.MultiCell(0, 6, tr(p), "", "L", false)
		pdf.Ln(2)
	}

	return pdf.OutputFileAndClose(outputPath)
}
