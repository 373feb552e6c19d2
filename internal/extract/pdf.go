// Package extract turns a PDF byte stream into per-page plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	rpdf "rsc.io/pdf"

	"github.com/thywilljoshua/legal-agent/internal/legal"
)

const shortTextWarning = 100

var disableConfigDir sync.Once

// Extractor reads page text with rsc.io/pdf after pdfcpu has validated the
// file structure. It holds no per-document state.
type Extractor struct {
	Clean bool
	log   *slog.Logger
}

func New(clean bool, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	// pdfcpu otherwise creates a config dir under the user's home.
	disableConfigDir.Do(api.DisableConfigDir)
	return &Extractor{Clean: clean, log: logger}
}

func (e *Extractor) ExtractFile(ctx context.Context, path string) (legal.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return legal.Document{}, legal.Wrap(legal.KindExtraction, "extract.read_file", err)
	}
	return e.Extract(ctx, b)
}

// Extract returns one string per page in page order. Pages without text are
// returned as "" rather than skipped.
func (e *Extractor) Extract(ctx context.Context, data []byte) (legal.Document, error) {
	if len(data) == 0 {
		return legal.Document{}, legal.Errorf(legal.KindExtraction, "extract", "empty input")
	}

	pageCount, err := validate(data)
	if err != nil {
		return legal.Document{}, err
	}

	pages, err := readPages(ctx, data)
	if err != nil {
		return legal.Document{}, err
	}
	if len(pages) != pageCount {
		return legal.Document{}, legal.Errorf(legal.KindExtraction, "extract",
			"page count mismatch: structure has %d pages, reader found %d", pageCount, len(pages))
	}

	total := 0
	for i, p := range pages {
		if e.Clean {
			p = CleanPage(p)
		}
		pages[i] = p
		total += len(p)
	}

	if total < shortTextWarning {
		e.log.Warn("extract.short_text", "pages", len(pages), "chars", total)
	}
	e.log.Info("extract.ok", "pages", len(pages), "chars", total)
	return legal.Document{Pages: pages}, nil
}

// validate checks the PDF structure with pdfcpu and returns its page count.
func validate(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		if looksEncrypted(err) {
			return 0, legal.Errorf(legal.KindExtraction, "extract.validate", "encrypted document: %v", err)
		}
		return 0, legal.Wrap(legal.KindExtraction, "extract.validate", err)
	}
	if ctx.Encrypt != nil {
		return 0, legal.Errorf(legal.KindExtraction, "extract.validate", "encrypted document")
	}
	return ctx.PageCount, nil
}

func looksEncrypted(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypt") || strings.Contains(msg, "password")
}

func readPages(ctx context.Context, data []byte) (pages []string, err error) {
	// rsc.io/pdf reports malformed content by panicking.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = legal.Errorf(legal.KindExtraction, "extract.read", "malformed page content: %v", r)
		}
	}()

	doc, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, rpdf.ErrInvalidPassword) {
			return nil, legal.Errorf(legal.KindExtraction, "extract.read", "encrypted document")
		}
		return nil, legal.Wrap(legal.KindExtraction, "extract.read", err)
	}

	n := doc.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, legal.Wrap(legal.KindCancelled, "extract.read", err)
		}
		p := doc.Page(i)
		if p.V.IsNull() {
			return nil, legal.Errorf(legal.KindExtraction, "extract.read", "page %d missing", i)
		}
		pages[i-1] = pageText(p)
	}
	return pages, nil
}

// pageText joins glyph runs into lines by baseline.
func pageText(p rpdf.Page) string {
	content := p.Content()
	var b strings.Builder
	var prev *rpdf.Text
	for i := range content.Text {
		t := &content.Text[i]
		if prev != nil {
			switch {
			case math.Abs(t.Y-prev.Y) > lineTolerance(prev.FontSize):
				b.WriteByte('\n')
			case t.X-(prev.X+prev.W) > prev.FontSize*0.2:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		prev = t
	}
	return strings.TrimSpace(b.String())
}

func lineTolerance(fontSize float64) float64 {
	if fontSize <= 0 {
		return 1
	}
	return fontSize / 2
}
