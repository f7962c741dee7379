package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/kirillkom/docflow/internal/core/domain"
)

// previewRows bounds the data preview in tabular summaries.
const previewRows = 10

// decodeWithFallback tries a fixed ordered list of encodings until one
// yields valid text.
func decodeWithFallback(body []byte) (string, string, error) {
	if utf8.Valid(body) {
		return string(body), "utf-8", nil
	}
	for _, attempt := range []struct {
		name string
		cm   *charmap.Charmap
	}{
		{"latin-1", charmap.ISO8859_1},
		{"cp1252", charmap.Windows1252},
	} {
		decoded, err := attempt.cm.NewDecoder().Bytes(body)
		if err != nil {
			continue
		}
		return string(decoded), attempt.name, nil
	}
	return "", "", fmt.Errorf("could not decode content with any supported encoding")
}

// extractCSV parses the delimited table and synthesizes a text summary with
// row/column counts, the header list and a bounded data preview.
func (p *Pipeline) extractCSV(_ context.Context, body []byte) domain.ExtractionOutcome {
	var out domain.ExtractionOutcome

	content, encoding, err := decodeWithFallback(body)
	if err != nil {
		out.Notes.FailureReason = err.Error()
		return out
	}
	out.Notes.Encoding = encoding

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		out.Notes.FailureReason = fmt.Sprintf("parse csv: %v", err)
		return out
	}
	if len(records) == 0 {
		out.Notes.FailureReason = "csv contains no rows"
		return out
	}

	header := records[0]
	data := records[1:]
	out.Notes.Rows = len(data)
	out.Notes.Columns = len(header)
	out.Text = tabularSummary("CSV Table", header, data)
	return out
}

// extractPlainText returns the raw content verbatim after the same encoding
// fallback chain as the tabular strategy.
func (p *Pipeline) extractPlainText(_ context.Context, body []byte) domain.ExtractionOutcome {
	var out domain.ExtractionOutcome

	content, encoding, err := decodeWithFallback(body)
	if err != nil {
		out.Notes.FailureReason = err.Error()
		return out
	}
	out.Notes.Encoding = encoding
	out.Notes.Lines = strings.Count(content, "\n") + 1
	out.Text = content
	return out
}

func tabularSummary(kind string, header []string, data [][]string) string {
	parts := []string{
		fmt.Sprintf("%s with %d rows and %d columns:", kind, len(data), len(header)),
		fmt.Sprintf("Columns: %s", strings.Join(header, ", ")),
		"Data preview:",
	}

	limit := len(data)
	if limit > previewRows {
		limit = previewRows
	}
	var preview []string
	for _, row := range data[:limit] {
		preview = append(preview, strings.Join(row, " | "))
	}
	parts = append(parts, strings.Join(preview, "\n"))

	return strings.Join(parts, "\n\n")
}
