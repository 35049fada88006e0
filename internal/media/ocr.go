package media

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// OCREngine extracts visible text from a frame image.
type OCREngine interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// NoOCR is an engine that recognizes nothing. Used when OCR is disabled or
// no OCR binary is installed.
type NoOCR struct{}

// ExtractText implements OCREngine.
func (NoOCR) ExtractText(context.Context, string) (string, error) { return "", nil }

// Tesseract runs the tesseract CLI against a frame image.
type Tesseract struct {
	// Binary overrides the executable name; empty means "tesseract" on PATH.
	Binary string
}

// ExtractText implements OCREngine.
func (t *Tesseract) ExtractText(ctx context.Context, imagePath string) (string, error) {
	binary := t.Binary
	if binary == "" {
		binary = "tesseract"
	}
	// "stdout" makes tesseract print recognized text instead of writing a file.
	cmd := exec.CommandContext(ctx, binary, imagePath, "stdout")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w", imagePath, err)
	}
	return strings.TrimSpace(string(out)), nil
}
