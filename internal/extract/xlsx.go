package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/docflow/internal/core/domain"
)

// extractXLSX reads the first worksheet and renders it through the same
// tabular summary as the CSV strategy. Additional sheets are ignored; the
// sheet name is recorded so the approximation is visible in the notes.
func (p *Pipeline) extractXLSX(_ context.Context, body []byte) domain.ExtractionOutcome {
	var out domain.ExtractionOutcome

	workbook, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		out.Notes.FailureReason = fmt.Sprintf("open workbook: %v", err)
		return out
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		out.Notes.FailureReason = "workbook contains no sheets"
		return out
	}
	sheet := sheets[0]
	out.Notes.Sheet = sheet

	rows, err := workbook.GetRows(sheet)
	if err != nil {
		out.Notes.FailureReason = fmt.Sprintf("read sheet %q: %v", sheet, err)
		return out
	}
	if len(rows) == 0 {
		out.Notes.FailureReason = fmt.Sprintf("sheet %q contains no rows", sheet)
		return out
	}

	header := rows[0]
	data := rows[1:]
	out.Notes.Rows = len(data)
	out.Notes.Columns = len(header)
	out.Text = tabularSummary("Spreadsheet Table", header, data)
	return out
}
