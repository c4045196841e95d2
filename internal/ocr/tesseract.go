package ocr

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TesseractConfig names the binaries and rendering options for Tesseract.
type TesseractConfig struct {
	PdfToPPM  string
	Tesseract string
	Lang      string
	DPI       int
}

// Tesseract renders pages with pdftoppm and recognizes them with tesseract.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
}

// NewTesseract creates a Tesseract extractor with defaults filled in.
func NewTesseract(cfg TesseractConfig, runner Runner) *Tesseract {
	if cfg.PdfToPPM == "" {
		cfg.PdfToPPM = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Tesseract{cfg: cfg, runner: runner}
}

// OCR recognizes the requested 0-based pages, or every page when pages is
// nil, and joins them with form feeds.
func (t *Tesseract) OCR(ctx context.Context, content []byte, pages []int) (string, error) {
	path, err := writeTemp(content)
	if err != nil {
		return "", err
	}
	defer os.Remove(path) //nolint:errcheck

	tmpDir, err := os.MkdirTemp("", "sitrep-ppm-*")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create render dir")
	}
	defer os.RemoveAll(tmpDir) //nolint:errcheck

	var images []string
	if pages == nil {
		imgs, err := t.render(ctx, path, filepath.Join(tmpDir, "page"), 0)
		if err != nil {
			return "", err
		}
		images = imgs
	} else {
		for _, idx := range pages {
			imgs, err := t.render(ctx, path, filepath.Join(tmpDir, "p"+strconv.Itoa(idx)), idx+1)
			if err != nil {
				return "", err
			}
			images = append(images, imgs...)
		}
	}
	if len(images) == 0 {
		return "", eris.New("ocr: pdftoppm produced no images")
	}

	out := make([]string, 0, len(images))
	for _, img := range images {
		stdout, stderr, err := t.runner.Run(ctx, t.cfg.Tesseract, img, "stdout", "-l", t.cfg.Lang)
		if err != nil {
			zap.L().Warn("ocr: tesseract failed",
				zap.String("image", filepath.Base(img)),
				zap.String("stderr", truncate(string(stderr), 512)),
				zap.Error(err),
			)
			out = append(out, "")
			continue
		}
		out = append(out, strings.TrimRight(string(stdout), "\f\n"))
	}
	return strings.Join(out, "\f"), nil
}

// render rasterizes one 1-based page, or all pages when page is 0.
func (t *Tesseract) render(ctx context.Context, pdfPath, prefix string, page int) ([]string, error) {
	args := []string{"-r", strconv.Itoa(t.cfg.DPI), "-png"}
	if page > 0 {
		p := strconv.Itoa(page)
		args = append(args, "-f", p, "-l", p)
	}
	args = append(args, pdfPath, prefix)

	if _, stderr, err := t.runner.Run(ctx, t.cfg.PdfToPPM, args...); err != nil {
		return nil, eris.Wrapf(err, "ocr: pdftoppm failed: %s", truncate(string(stderr), 512))
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, eris.Wrap(err, "ocr: glob rendered pages")
	}
	sort.Slice(matches, func(i, j int) bool {
		return pageNumber(matches[i]) < pageNumber(matches[j])
	})
	return matches, nil
}

// pageNumber parses N from "<prefix>-N.png". pdftoppm zero-pads N to the
// width of the page count, so lexical order is not reliable across runs.
func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	i := strings.LastIndexByte(base, '-')
	if i < 0 {
		return 0
	}
	n, _ := strconv.Atoi(base[i+1:])
	return n
}
