// Package extract runs the type-specific text extraction strategies. Every
// strategy isolates its internal failures: a degraded run returns an outcome
// with a failure reason in the notes, not an error. Only a panic inside a
// strategy escalates to the caller as an extraction fault.
package extract

import (
	"context"
	"fmt"

	"github.com/kirillkom/docflow/internal/core/domain"
	"github.com/kirillkom/docflow/internal/filetype"
)

// OCREngine recognizes text in a raster image. The production implementation
// wraps tesseract; tests substitute a fake.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// minDirectTextLen is the per-page threshold below which the PDF strategy
// assumes a scanned page and falls back to OCR.
const minDirectTextLen = 30

type strategyFunc func(ctx context.Context, body []byte) domain.ExtractionOutcome

type Pipeline struct {
	ocr        OCREngine
	strategies map[filetype.Tag]strategyFunc

	// pdf parsing seams, replaced in tests
	openPDF    func(body []byte) (pdfDocument, error)
	pageImages func(body []byte, pageNr int) ([][]byte, error)
}

func NewPipeline(ocr OCREngine) *Pipeline {
	p := &Pipeline{
		ocr:        ocr,
		openPDF:    openPDFDocument,
		pageImages: extractPageImages,
	}
	p.strategies = map[filetype.Tag]strategyFunc{
		filetype.PDF:   p.extractPDF,
		filetype.Image: p.extractImage,
		filetype.DOCX:  p.extractOffice,
		filetype.DOC:   p.extractOffice,
		filetype.DXF:   p.extractDXF,
		filetype.DWG:   p.extractDWG,
		filetype.CSV:   p.extractCSV,
		filetype.Text:  p.extractPlainText,
		filetype.XLSX:  p.extractXLSX,
	}
	return p
}

// Extract runs the strategy registered for the tag. The caller is expected
// to have rejected unsupported tags already; an unregistered tag or a
// strategy panic surfaces as an extraction fault.
func (p *Pipeline) Extract(ctx context.Context, tag filetype.Tag, body []byte) (outcome domain.ExtractionOutcome, err error) {
	strategy, ok := p.strategies[tag]
	if !ok {
		return domain.ExtractionOutcome{}, domain.WrapError(
			domain.ErrUnsupportedType,
			"select extraction strategy",
			fmt.Errorf("no extractor registered for type %s", tag),
		)
	}

	// Third-party parsers are known to panic on malformed input.
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.ExtractionOutcome{}
			err = domain.WrapError(domain.ErrExtraction, "run extraction strategy", fmt.Errorf("extractor panic for type %s: %v", tag, r))
		}
	}()

	return strategy(ctx, body), nil
}
