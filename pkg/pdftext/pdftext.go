package pdftext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrEmpty = errors.New("document has no extractable text")

// Extract returns the text of a PDF or plain-text file, cut to at most
// maxChars runes when maxChars > 0. PDFs are read page by page and ctx is
// checked between pages.
func Extract(ctx context.Context, path string, maxChars int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = extractPDF(ctx, path)
	} else {
		var raw []byte
		raw, err = os.ReadFile(path)
		text = string(raw)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return truncate(text, maxChars), nil
}

func extractPDF(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var buf strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := p.Font(name)
				fonts[name] = &font
			}
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("read pdf text %s page %d: %w", path, i, err)
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i]
		}
		n++
	}
	return s
}
