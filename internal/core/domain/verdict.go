package domain

// Department sentinels. Real departments are defined by the classification
// policy; these two cover the no-signal cases.
const (
	DepartmentGeneral = "GENERAL"
	DepartmentUnknown = "UNKNOWN"
)

// ClassificationVerdict is the classification engine's output for one
// document. It is never persisted on its own; the dispatcher folds it into
// the document metadata.
type ClassificationVerdict struct {
	Department string             `json:"department"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
	Evidence   []string           `json:"reasoning"`
}

// NoContentVerdict is returned when there is no text to analyze at all.
func NoContentVerdict() ClassificationVerdict {
	return ClassificationVerdict{
		Department: DepartmentUnknown,
		Confidence: 0,
		Scores:     map[string]float64{},
		Evidence:   []string{"No text content to analyze"},
	}
}

// NoSignalVerdict is returned when text exists but no department accumulated
// a positive score.
func NoSignalVerdict() ClassificationVerdict {
	return ClassificationVerdict{
		Department: DepartmentGeneral,
		Confidence: 0,
		Scores:     map[string]float64{},
		Evidence:   []string{"No department-specific indicators found"},
	}
}
