package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/sitrep-cli/internal/model"
)

// minPageChars is the floor for the per-page sparse-text threshold.
const minPageChars = 50

// Engine recovers plain text from PDF bytes, using the native text layer
// first and optical recognition only for pages that yield too little.
type Engine struct {
	native  NativeExtractor
	optical OpticalExtractor
	timeout time.Duration
}

// New creates an Engine. A nil optical extractor disables recognition.
func New(native NativeExtractor, optical OpticalExtractor) *Engine {
	return &Engine{native: native, optical: optical}
}

// Digest returns the hex sha256 of content.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Recover returns the best available text for content. Native or optical
// failures degrade to whatever text is already in hand and are never
// returned to the caller.
func (e *Engine) Recover(ctx context.Context, content []byte, minChars int) (string, model.ExtractionResult) {
	log := zap.L().With(zap.Int("bytes", len(content)))

	res := model.ExtractionResult{
		Method:   model.TextMethodNative,
		OCRPages: []int{},
		Digest:   Digest(content),
	}

	native, err := e.native.ExtractText(ctx, content)
	if err != nil {
		log.Warn("ocr: native extraction failed", zap.Error(err))
		native = ""
	}
	res.Chars = utf8.RuneCountInString(native)

	if res.Chars >= minChars || strings.TrimSpace(native) == "" {
		return native, res
	}
	if e.optical == nil {
		return native, res
	}

	pages, err := e.native.ExtractPages(ctx, content)
	if err != nil {
		if err != ErrPagesUnsupported {
			log.Warn("ocr: per-page extraction failed, recognizing whole document", zap.Error(err))
		}
		text := e.recognize(ctx, content, nil)
		if text == "" {
			return native, res
		}
		res.Method = model.TextMethodOCR
		res.Chars = utf8.RuneCountInString(text)
		return text, res
	}

	flagged := sparsePages(pages, minChars)
	if len(flagged) == 0 {
		return native, res
	}

	ocrText := e.recognize(ctx, content, flagged)
	if ocrText == "" {
		return native, res
	}

	perPage := make(map[int]string, len(flagged))
	if chunks := splitPages(ocrText, len(flagged)); chunks != nil {
		for i, idx := range flagged {
			perPage[idx] = chunks[i]
		}
	} else {
		log.Debug("ocr: page count mismatch, recognizing flagged pages individually",
			zap.Int("flagged", len(flagged)))
		for _, idx := range flagged {
			perPage[idx] = e.recognize(ctx, content, []int{idx})
		}
	}

	merged := make([]string, 0, len(pages))
	for i, pageText := range pages {
		if t, ok := perPage[i]; ok {
			pageText = t
		}
		if pageText != "" {
			merged = append(merged, pageText)
		}
	}
	text := strings.Join(merged, "\n")
	if text == "" {
		text = ocrText
	}

	res.Method = model.TextMethodHybrid
	res.Chars = utf8.RuneCountInString(text)
	res.OCRPages = flagged
	log.Info("ocr: hybrid recovery", zap.Ints("pages", flagged), zap.Int("chars", res.Chars))
	return text, res
}

// recognize runs the optical extractor, bounded by the engine timeout.
// Errors are logged and yield empty text.
func (e *Engine) recognize(ctx context.Context, content []byte, pages []int) string {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	text, err := e.optical.OCR(ctx, content, pages)
	if err != nil {
		zap.L().Warn("ocr: optical recognition failed", zap.Ints("pages", pages), zap.Error(err))
		return ""
	}
	return text
}

// sparsePages returns the 0-based indexes of pages whose trimmed text is
// shorter than max(50, minChars/10).
func sparsePages(pages []string, minChars int) []int {
	threshold := max(minPageChars, minChars/10)
	var flagged []int
	for i, p := range pages {
		if utf8.RuneCountInString(strings.TrimSpace(p)) < threshold {
			flagged = append(flagged, i)
		}
	}
	return flagged
}

// splitPages splits form-feed separated output into expected chunks, or
// returns nil when the page count does not line up.
func splitPages(text string, expected int) []string {
	if expected <= 1 {
		return []string{text}
	}
	chunks := strings.Split(strings.TrimRight(text, "\f"), "\f")
	if len(chunks) != expected {
		return nil
	}
	return chunks
}
