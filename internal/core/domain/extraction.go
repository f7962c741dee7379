package domain

// ExtractionOutcome is what an extraction strategy returns. Text may be empty
// on total failure; it is never meaningfully nil. A FailureReason in the
// notes means the strategy degraded but still returned normally.
type ExtractionOutcome struct {
	Text  string          `json:"text"`
	Notes ExtractionNotes `json:"notes"`
}

// ExtractionNotes is the structured side channel of an extraction run. Which
// fields are populated depends on the strategy; zero values are omitted from
// the persisted metadata.
type ExtractionNotes struct {
	// Methods lists the sub-strategy that satisfied each unit of work, in
	// order (for a PDF: "page_3_direct", "page_4_ocr", ...).
	Methods []string `json:"extraction_method,omitempty"`

	Pages       int `json:"pages,omitempty"`
	TablesFound int `json:"tables_found,omitempty"`

	Paragraphs int `json:"paragraphs,omitempty"`
	Tables     int `json:"tables,omitempty"`

	Entities     int      `json:"entities,omitempty"`
	TextEntities int      `json:"text_entities,omitempty"`
	Layers       []string `json:"layers,omitempty"`

	Rows     int    `json:"rows,omitempty"`
	Columns  int    `json:"columns,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	Lines    int    `json:"lines,omitempty"`
	Sheet    string `json:"sheet,omitempty"`

	OCRMethod   string `json:"ocr_method,omitempty"`
	ImageWidth  int    `json:"image_width,omitempty"`
	ImageHeight int    `json:"image_height,omitempty"`

	FailureReason string `json:"error,omitempty"`
}

// Degraded reports whether the strategy recorded a failure reason.
func (n ExtractionNotes) Degraded() bool {
	return n.FailureReason != ""
}
