// Package filetype maps a file's binary signature and extension to one
// canonical type tag used to select an extraction strategy.
package filetype

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type Tag string

const (
	PDF     Tag = "PDF"
	DOCX    Tag = "DOCX"
	DOC     Tag = "DOC"
	XLSX    Tag = "XLSX"
	XLS     Tag = "XLS"
	PPTX    Tag = "PPTX"
	Image   Tag = "IMAGE"
	DWG     Tag = "DWG"
	DXF     Tag = "DXF"
	Text    Tag = "TXT"
	CSV     Tag = "CSV"
	Zip     Tag = "ZIP"
	Rar     Tag = "RAR"
	Unknown Tag = "UNKNOWN"
)

// FallbackMediaType is reported when binary inspection cannot run.
const FallbackMediaType = "application/octet-stream"

var mimeToTag = map[string]Tag{
	"application/pdf": PDF,

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   DOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         XLSX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": PPTX,
	"application/msword":       DOC,
	"application/vnd.ms-excel": XLS,

	"image/jpeg": Image,
	"image/png":  Image,
	"image/tiff": Image,
	"image/bmp":  Image,
	"image/gif":  Image,

	"image/vnd.dwg":     DWG,
	"application/acad":  DWG,
	"application/x-dwg": DWG,
	"application/dwg":   DWG,
	"image/vnd.dxf":     DXF,
	"application/dxf":   DXF,

	"text/plain": Text,
	"text/csv":   CSV,

	"application/zip":              Zip,
	"application/x-rar-compressed": Rar,
}

var extToTag = map[string]Tag{
	".pdf":  PDF,
	".docx": DOCX,
	".doc":  DOC,
	".xlsx": XLSX,
	".xls":  XLS,
	".pptx": PPTX,
	".jpg":  Image,
	".jpeg": Image,
	".png":  Image,
	".tiff": Image,
	".tif":  Image,
	".bmp":  Image,
	".gif":  Image,
	".dwg":  DWG,
	".dxf":  DXF,
	".txt":  Text,
	".csv":  CSV,
	".zip":  Zip,
	".rar":  Rar,
}

var supported = map[Tag]bool{
	PDF:   true,
	DOCX:  true,
	DOC:   true,
	Image: true,
	DWG:   true,
	DXF:   true,
	Text:  true,
	CSV:   true,
	XLSX:  true,
}

// IsSupported reports whether an extraction strategy exists for the tag.
// Unsupported tags still resolve; the dispatcher rejects them explicitly.
func IsSupported(tag Tag) bool {
	return supported[tag]
}

type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve inspects the binary content for a media type and the filename for
// an extension, and returns a canonical tag plus the detected media type.
// It never fails: unknown inputs resolve to the UNKNOWN tag.
func (r *Resolver) Resolve(body []byte, filename string) (Tag, string) {
	ext := strings.ToLower(filepath.Ext(filename))

	if len(body) == 0 {
		return resolveByExtension(ext), FallbackMediaType
	}

	detected := mimetype.Detect(body)
	mediaType := normalizeMediaType(detected.String())

	if tag, ok := mimeToTag[mediaType]; ok {
		return tag, mediaType
	}
	if tag, ok := extToTag[ext]; ok {
		return tag, mediaType
	}

	// Heuristic overrides for signals neither table covered.
	switch {
	case strings.Contains(mediaType, "dwg") || ext == ".dwg":
		return DWG, mediaType
	case strings.Contains(mediaType, "dxf") || ext == ".dxf":
		return DXF, mediaType
	case strings.HasPrefix(mediaType, "image/"):
		return Image, mediaType
	case strings.HasPrefix(mediaType, "text/"):
		return Text, mediaType
	}
	return Unknown, mediaType
}

func resolveByExtension(ext string) Tag {
	if tag, ok := extToTag[ext]; ok {
		return tag
	}
	return Unknown
}

// normalizeMediaType strips parameters like "; charset=utf-8" that the
// sniffer appends to text types.
func normalizeMediaType(mediaType string) string {
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	return strings.TrimSpace(mediaType)
}
