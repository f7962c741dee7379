package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/docflow/internal/core/domain"
)

// extractOffice reads word/document.xml out of the OOXML archive and
// concatenates non-empty paragraphs in document order, followed by each
// table as a pipe-delimited block. Legacy binary .doc files are not ZIP
// archives and degrade with a failure reason.
func (p *Pipeline) extractOffice(_ context.Context, body []byte) domain.ExtractionOutcome {
	var out domain.ExtractionOutcome

	archive, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		out.Notes.FailureReason = fmt.Sprintf("open office archive: %v", err)
		return out
	}

	var docFile *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		out.Notes.FailureReason = "word/document.xml not found in archive"
		return out
	}

	rc, err := docFile.Open()
	if err != nil {
		out.Notes.FailureReason = fmt.Sprintf("open document.xml: %v", err)
		return out
	}
	defer rc.Close()

	paragraphs, tables := walkWordDocument(rc)

	var parts []string
	for _, para := range paragraphs {
		parts = append(parts, para)
	}
	for _, table := range tables {
		var lines []string
		for _, row := range table {
			lines = append(lines, strings.Join(row, " | "))
		}
		parts = append(parts, "TABLE:\n"+strings.Join(lines, "\n"))
	}

	out.Notes.Paragraphs = len(paragraphs)
	out.Notes.Tables = len(tables)
	out.Text = strings.Join(parts, "\n\n")
	return out
}

// walkWordDocument streams the WordprocessingML token stream. Text runs
// inside table cells accumulate per cell; everything else accumulates per
// paragraph.
func walkWordDocument(r io.Reader) (paragraphs []string, tables [][][]string) {
	decoder := xml.NewDecoder(r)

	var (
		inText     bool
		tableDepth int

		paragraph strings.Builder
		cell      strings.Builder
		row       []string
		table     [][]string
	)

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					table = nil
				}
			case "tr":
				if tableDepth == 1 {
					row = nil
				}
			case "tc":
				if tableDepth == 1 {
					cell.Reset()
				}
			case "p":
				if tableDepth == 0 {
					paragraph.Reset()
				}
			case "t":
				inText = true
			}

		case xml.CharData:
			if !inText {
				continue
			}
			if tableDepth > 0 {
				cell.Write(t)
			} else {
				paragraph.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if tableDepth == 0 {
					if text := strings.TrimSpace(paragraph.String()); text != "" {
						paragraphs = append(paragraphs, text)
					}
				}
			case "tc":
				if tableDepth == 1 {
					row = append(row, strings.TrimSpace(cell.String()))
				}
			case "tr":
				if tableDepth == 1 && len(row) > 0 {
					table = append(table, row)
				}
			case "tbl":
				tableDepth--
				if tableDepth == 0 && len(table) > 0 {
					tables = append(tables, table)
				}
			}
		}
	}
	return paragraphs, tables
}
