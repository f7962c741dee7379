package extract

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/kirillkom/docflow/internal/core/domain"
)

// extractDXF scans the DXF tag/value stream. Layer names come from the
// TABLES section; TEXT, MTEXT and DIMENSION entities in the ENTITIES section
// contribute their string content in encounter order.
//
// DXF is a sequence of (group code, value) line pairs. Group code 0 opens a
// new entity or section marker, code 2 names it, codes 1 and 3 carry text.
// No maintained Go reader exists for the format, so the scan is done here.
func (p *Pipeline) extractDXF(_ context.Context, body []byte) domain.ExtractionOutcome {
	var out domain.ExtractionOutcome

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		section    string
		entityType string
		texts      []string
	)

	for scanner.Scan() {
		code := strings.TrimSpace(scanner.Text())
		if !scanner.Scan() {
			break
		}
		value := strings.TrimSpace(scanner.Text())

		switch code {
		case "0":
			switch value {
			case "SECTION":
				section = ""
				entityType = ""
			case "ENDSEC":
				section = ""
				entityType = ""
			case "EOF":
			default:
				entityType = value
				if section == "ENTITIES" {
					out.Notes.Entities++
				}
			}
		case "2":
			if section == "" && entityType == "" {
				// Section name right after "0 SECTION".
				section = value
				continue
			}
			if section == "TABLES" && entityType == "LAYER" {
				out.Notes.Layers = append(out.Notes.Layers, value)
			}
		case "1", "3":
			if section != "ENTITIES" {
				continue
			}
			switch entityType {
			case "TEXT", "MTEXT":
				if value != "" {
					texts = append(texts, value)
					out.Notes.TextEntities++
				}
			case "DIMENSION":
				// "<>" is the measurement placeholder, not user text.
				if code == "1" && value != "" && value != "<>" {
					texts = append(texts, value)
					out.Notes.TextEntities++
				}
			}
		}
	}

	out.Text = strings.Join(texts, "\n")
	return out
}

// extractDWG cannot reach vector data in the proprietary binary format; it
// yields a placeholder and a failure reason instead of raising.
func (p *Pipeline) extractDWG(_ context.Context, _ []byte) domain.ExtractionOutcome {
	return domain.ExtractionOutcome{
		Text: "CAD file detected: binary DWG drawing",
		Notes: domain.ExtractionNotes{
			FailureReason: "DWG vector data is not accessible without conversion to DXF",
		},
	}
}
