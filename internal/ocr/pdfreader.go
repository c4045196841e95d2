package ocr

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// PDFReader extracts the native text layer in-process.
type PDFReader struct{}

// NewPDFReader creates a PDFReader.
func NewPDFReader() *PDFReader {
	return &PDFReader{}
}

// DocumentInfo holds the timestamps from a PDF Info dictionary.
// Zero values mean the field was absent or unparsable.
type DocumentInfo struct {
	Created  time.Time
	Modified time.Time
}

func open(content []byte) (*pdf.Reader, error) {
	if len(content) == 0 {
		return nil, eris.New("ocr: empty pdf content")
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, eris.Wrap(err, "ocr: open pdf")
	}
	return r, nil
}

// ExtractText returns the text of every page joined by newlines.
func (p *PDFReader) ExtractText(ctx context.Context, content []byte) (string, error) {
	pages, err := p.ExtractPages(ctx, content)
	if err != nil {
		return "", err
	}
	var nonEmpty []string
	for _, t := range pages {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	return strings.Join(nonEmpty, "\n"), nil
}

// ExtractPages returns one entry per page. Pages that fail to decode are
// returned as empty strings so callers can flag them.
func (p *PDFReader) ExtractPages(ctx context.Context, content []byte) ([]string, error) {
	r, err := open(content)
	if err != nil {
		return nil, err
	}
	n := r.NumPage()
	pages := make([]string, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ocr: extract pages")
		}
		pages[i-1] = pageText(r, i)
	}
	return pages, nil
}

// pageText decodes one 1-based page. The decoder panics on some malformed
// content streams, so a panic is treated as an empty page.
func pageText(r *pdf.Reader, num int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	page := r.Page(num)
	if page.V.IsNull() {
		return ""
	}
	t, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return t
}

// PageCount returns the number of pages in content.
func (p *PDFReader) PageCount(content []byte) (int, error) {
	r, err := open(content)
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

// Info reads CreationDate and ModDate from the trailer Info dictionary.
func (p *PDFReader) Info(content []byte) (DocumentInfo, error) {
	r, err := open(content)
	if err != nil {
		return DocumentInfo{}, err
	}
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return DocumentInfo{}, nil
	}
	return DocumentInfo{
		Created:  parsePDFDate(info.Key("CreationDate").Text()),
		Modified: parsePDFDate(info.Key("ModDate").Text()),
	}, nil
}

// parsePDFDate parses the date portion of a PDF date string such as
// "D:20250901120000+02'00'".
func parsePDFDate(s string) time.Time {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	if len(s) < 8 {
		return time.Time{}
	}
	t, err := time.Parse("20060102", s[:8])
	if err != nil {
		return time.Time{}
	}
	return t
}
