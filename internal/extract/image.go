package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/kirillkom/docflow/internal/core/domain"
)

// extractImage OCRs the whole image and records its dimensions.
func (p *Pipeline) extractImage(ctx context.Context, body []byte) domain.ExtractionOutcome {
	var out domain.ExtractionOutcome
	out.Notes.OCRMethod = "tesseract"

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(body)); err == nil {
		out.Notes.ImageWidth = cfg.Width
		out.Notes.ImageHeight = cfg.Height
	}

	text, err := p.ocr.Recognize(ctx, body)
	if err != nil {
		out.Notes.FailureReason = fmt.Sprintf("ocr image: %v", err)
		return out
	}
	out.Text = text
	return out
}
