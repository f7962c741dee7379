package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kirillkom/docflow/internal/core/domain"
)

// cellGapPoints is the horizontal gap that splits one text run from the next
// cell when reconstructing tabular regions from positioned page text.
const cellGapPoints = 12.0

// pdfDocument is the page-level view the PDF strategy consumes. The
// production implementation wraps the pdf reader; tests substitute a fake to
// drive the OCR fallback decision without real document bytes.
type pdfDocument interface {
	pageCount() int
	// pageText returns the direct text layer of a page; ok is false when the
	// page object is unusable and must be skipped outright.
	pageText(pageNr int) (text string, ok bool)
	pageTables(pageNr int) []string
}

// extractPDF walks the document page by page: direct text layer first, OCR
// over the page's image streams when the text layer is empty or too short,
// and pipe-delimited table blocks for row-structured regions.
func (p *Pipeline) extractPDF(ctx context.Context, body []byte) domain.ExtractionOutcome {
	var out domain.ExtractionOutcome

	doc, err := p.openPDF(body)
	if err != nil {
		out.Notes.FailureReason = fmt.Sprintf("open pdf: %v", err)
		return out
	}

	out.Notes.Pages = doc.pageCount()
	var parts []string

	for pageNr := 1; pageNr <= doc.pageCount(); pageNr++ {
		text, ok := doc.pageText(pageNr)
		if !ok {
			continue
		}

		if len(strings.TrimSpace(text)) > minDirectTextLen {
			parts = append(parts, text)
			out.Notes.Methods = append(out.Notes.Methods, fmt.Sprintf("page_%d_direct", pageNr))
		} else {
			ocrText, err := p.ocrPDFPage(ctx, body, pageNr)
			if err != nil {
				out.Notes.Methods = append(out.Notes.Methods, fmt.Sprintf("page_%d_ocr_failed: %v", pageNr, err))
			} else {
				parts = append(parts, ocrText)
				out.Notes.Methods = append(out.Notes.Methods, fmt.Sprintf("page_%d_ocr", pageNr))
			}
		}

		for _, block := range doc.pageTables(pageNr) {
			out.Notes.TablesFound++
			parts = append(parts, "TABLE:\n"+block)
		}
	}

	out.Text = strings.Join(parts, "\n\n")
	return out
}

// ocrPDFPage runs OCR over the page's embedded images (scanned pages are a
// single full-page image).
func (p *Pipeline) ocrPDFPage(ctx context.Context, body []byte, pageNr int) (string, error) {
	images, err := p.pageImages(body, pageNr)
	if err != nil {
		return "", fmt.Errorf("extract page images: %w", err)
	}

	var texts []string
	for _, img := range images {
		text, err := p.ocr.Recognize(ctx, img)
		if err != nil {
			return "", fmt.Errorf("ocr page %d: %w", pageNr, err)
		}
		if strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("no recognizable image content on page %d", pageNr)
	}
	return strings.Join(texts, "\n"), nil
}

func openPDFDocument(body []byte) (pdfDocument, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, err
	}
	return &pdfFile{reader: reader}, nil
}

func extractPageImages(body []byte, pageNr int) ([][]byte, error) {
	conf := model.NewDefaultConfiguration()
	pageImages, err := api.ExtractImagesRaw(bytes.NewReader(body), []string{strconv.Itoa(pageNr)}, conf)
	if err != nil {
		return nil, err
	}

	var images [][]byte
	for _, perObj := range pageImages {
		for _, img := range perObj {
			data, err := io.ReadAll(img)
			if err != nil {
				continue
			}
			images = append(images, data)
		}
	}
	return images, nil
}

type pdfFile struct {
	reader *pdf.Reader
}

func (f *pdfFile) pageCount() int { return f.reader.NumPage() }

func (f *pdfFile) pageText(pageNr int) (string, bool) {
	page := f.reader.Page(pageNr)
	if page.V.IsNull() {
		return "", false
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", true
	}
	return text, true
}

func (f *pdfFile) pageTables(pageNr int) []string {
	page := f.reader.Page(pageNr)
	if page.V.IsNull() {
		return nil
	}
	return tableBlocks(page)
}

// tableBlocks reconstructs tabular regions from positioned text: a row with
// two or more cells separated by wide horizontal gaps counts as a table row,
// and two or more consecutive table rows form a block.
func tableBlocks(page pdf.Page) []string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil
	}

	var blocks []string
	var current []string
	flush := func() {
		if len(current) >= 2 {
			blocks = append(blocks, strings.Join(current, "\n"))
		}
		current = nil
	}

	for _, row := range rows {
		cells := rowCells(row)
		if len(cells) >= 2 {
			current = append(current, strings.Join(cells, " | "))
		} else {
			flush()
		}
	}
	flush()
	return blocks
}

func rowCells(row *pdf.Row) []string {
	var cells []string
	var cell strings.Builder
	var prevEnd float64

	for i, word := range row.Content {
		if i > 0 && word.X-prevEnd > cellGapPoints {
			if s := strings.TrimSpace(cell.String()); s != "" {
				cells = append(cells, s)
			}
			cell.Reset()
		}
		cell.WriteString(word.S)
		prevEnd = word.X + word.W
	}
	if s := strings.TrimSpace(cell.String()); s != "" {
		cells = append(cells, s)
	}
	return cells
}
