package ocr

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
	runner  Runner
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty,
// "pdftotext" is used; a nil runner executes on the host.
func NewPdfToText(binPath string, runner Runner) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &PdfToText{binPath: binPath, runner: runner}
}

// ExtractText runs pdftotext -layout on content and returns stdout.
func (p *PdfToText) ExtractText(ctx context.Context, content []byte) (string, error) {
	path, err := writeTemp(content)
	if err != nil {
		return "", err
	}
	defer os.Remove(path) //nolint:errcheck

	stdout, stderr, err := p.runner.Run(ctx, p.binPath, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed: %s", truncate(string(stderr), 512))
	}
	return string(stdout), nil
}

// ExtractPages splits pdftotext output on the form feed it emits after
// every page.
func (p *PdfToText) ExtractPages(ctx context.Context, content []byte) ([]string, error) {
	text, err := p.ExtractText(ctx, content)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimRight(text, "\f"), "\f"), nil
}
