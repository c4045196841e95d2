package ocr

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sitrep-cli/internal/config"
)

// ErrPagesUnsupported is returned by NativeExtractor.ExtractPages when the
// strategy cannot split a document into pages.
var ErrPagesUnsupported = errors.New("ocr: per-page extraction unsupported")

// NativeExtractor reads the embedded text layer of a PDF.
type NativeExtractor interface {
	ExtractText(ctx context.Context, content []byte) (string, error)
	ExtractPages(ctx context.Context, content []byte) ([]string, error)
}

// OpticalExtractor recognizes text from rendered PDF pages. A nil pages
// slice means the whole document. Output pages are separated by '\f'.
type OpticalExtractor interface {
	OCR(ctx context.Context, content []byte, pages []int) (string, error)
}

// NewEngine builds a recovery engine from config. Optical recognition is
// left unset when disabled or when the provider is "none".
func NewEngine(cfg config.OCRConfig) (*Engine, error) {
	var native NativeExtractor
	switch cfg.NativeProvider {
	case "pdfreader", "":
		native = NewPDFReader()
	case "pdftotext":
		native = NewPdfToText(cfg.PdfToTextPath, nil)
	default:
		return nil, eris.Errorf("ocr: unknown native provider %q", cfg.NativeProvider)
	}

	var optical OpticalExtractor
	if cfg.Enabled {
		switch cfg.OpticalProvider {
		case "none", "":
		case "tesseract":
			optical = NewTesseract(TesseractConfig{
				PdfToPPM:  cfg.PdfToPPMPath,
				Tesseract: cfg.TesseractPath,
				Lang:      cfg.TesseractLang,
				DPI:       cfg.DPI,
			}, nil)
		case "mistral":
			if cfg.MistralKey == "" {
				return nil, eris.New("ocr: mistral provider requires mistral_api_key")
			}
			optical = NewMistralOCR(cfg.MistralKey, cfg.MistralModel)
		default:
			return nil, eris.Errorf("ocr: unknown optical provider %q", cfg.OpticalProvider)
		}
	}

	if optical != nil && cfg.BreakerFailures > 0 {
		optical = NewBreaker(optical, BreakerConfig{
			Failures: cfg.BreakerFailures,
			Cooldown: time.Duration(cfg.BreakerCooldownSecs) * time.Second,
		})
	}

	e := New(native, optical)
	e.timeout = cfg.Timeout()
	return e, nil
}

// writeTemp spills content to a temporary PDF for command-line tools.
// The caller removes the returned path.
func writeTemp(content []byte) (string, error) {
	f, err := os.CreateTemp("", "sitrep-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create temp pdf")
	}
	if _, err := f.Write(content); err != nil {
		f.Close() //nolint:errcheck
		os.Remove(f.Name()) //nolint:errcheck
		return "", eris.Wrap(err, "ocr: write temp pdf")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name()) //nolint:errcheck
		return "", eris.Wrap(err, "ocr: close temp pdf")
	}
	return f.Name(), nil
}
