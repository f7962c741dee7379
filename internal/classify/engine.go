// Package classify scores extracted text, filenames and side metadata
// against weighted per-department signal sets and returns a best-department
// verdict with the contributing evidence.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/docflow/internal/core/domain"
)

// MetadataFileTypeKey is the side-metadata key the dispatcher fills with the
// resolved type tag before classification.
const MetadataFileTypeKey = "file_type"

// confidenceTextNorm and confidenceScoreNorm normalize the winning score
// into [0,1]: a strong signal in a long document saturates at 1.0.
const (
	confidenceTextNorm  = 1000.0
	confidenceScoreNorm = 10.0
)

type compiledRule struct {
	name     string
	keywords []string
	patterns []*regexp.Regexp
	sources  []string
	hints    []string
}

type Engine struct {
	weights Weights
	rules   []compiledRule
}

// NewEngine builds an engine from the embedded default policy.
func NewEngine() (*Engine, error) {
	policy, err := DefaultPolicy()
	if err != nil {
		return nil, err
	}
	return NewEngineFromPolicy(policy)
}

func NewEngineFromPolicy(policy Policy) (*Engine, error) {
	engine := &Engine{weights: policy.Weights}
	for _, dept := range policy.Departments {
		rule := compiledRule{name: dept.Name, hints: dept.FilenameHints}
		for _, kw := range dept.Keywords {
			rule.keywords = append(rule.keywords, strings.ToLower(kw))
		}
		for _, pattern := range dept.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
			}
			rule.patterns = append(rule.patterns, re)
			rule.sources = append(rule.sources, pattern)
		}
		engine.rules = append(engine.rules, rule)
	}
	return engine, nil
}

// Departments lists the known departments in policy order, plus the two
// sentinels.
func (e *Engine) Departments() []string {
	out := make([]string, 0, len(e.rules)+2)
	for _, rule := range e.rules {
		out = append(out, rule.name)
	}
	return append(out, domain.DepartmentGeneral, domain.DepartmentUnknown)
}

// Classify never fails: empty text yields the no-content verdict and text
// without any department signal yields the generic no-signal verdict.
func (e *Engine) Classify(text, filename string, meta map[string]string) domain.ClassificationVerdict {
	if text == "" {
		return domain.NoContentVerdict()
	}

	textLower := strings.ToLower(text)
	filenameLower := strings.ToLower(filename)

	scores := make(map[string]float64)
	var evidence []string

	for _, rule := range e.rules {
		var keywordScore float64
		var matched []string
		for _, kw := range rule.keywords {
			if count := strings.Count(textLower, kw); count > 0 {
				keywordScore += float64(count)
				matched = append(matched, fmt.Sprintf("%s(%d)", kw, count))
			}
		}
		if keywordScore > 0 {
			scores[rule.name] += keywordScore * e.weights.Keyword
			evidence = append(evidence, fmt.Sprintf("%s: Keywords [%s]", rule.name, strings.Join(matched, ", ")))
		}

		var patternScore float64
		var matchedPatterns []string
		for i, re := range rule.patterns {
			if count := len(re.FindAllString(textLower, -1)); count > 0 {
				patternScore += float64(count)
				matchedPatterns = append(matchedPatterns, fmt.Sprintf("%s(%d)", rule.sources[i], count))
			}
		}
		if patternScore > 0 {
			scores[rule.name] += patternScore * e.weights.Pattern
			evidence = append(evidence, fmt.Sprintf("%s: Patterns [%s]", rule.name, strings.Join(matchedPatterns, ", ")))
		}

		for _, hint := range rule.hints {
			if strings.Contains(filenameLower, hint) {
				scores[rule.name] += e.weights.FilenameHint
				evidence = append(evidence, fmt.Sprintf("%s: Filename hint '%s'", rule.name, hint))
			}
		}
	}

	e.applyMetadataBonuses(scores, &evidence, filenameLower, meta)

	if len(scores) == 0 {
		return domain.NoSignalVerdict()
	}

	winner, winning := e.argMax(scores)
	if winner == "" {
		return domain.NoSignalVerdict()
	}
	confidence := e.confidence(winning, len(text))

	return domain.ClassificationVerdict{
		Department: winner,
		Confidence: confidence,
		Scores:     scores,
		Evidence:   evidence,
	}
}

func (e *Engine) applyMetadataBonuses(scores map[string]float64, evidence *[]string, filenameLower string, meta map[string]string) {
	if meta == nil {
		return
	}
	fileType := meta[MetadataFileTypeKey]

	switch fileType {
	case "DWG", "DXF":
		scores["ENGINEERING"] += e.weights.CADFileType
		*evidence = append(*evidence, fmt.Sprintf("ENGINEERING: CAD file type %s", fileType))
	case "IMAGE":
		for _, word := range []string{"scan", "photo", "img"} {
			if strings.Contains(filenameLower, word) {
				scores["OPERATIONS"] += e.weights.ScannedImage
				*evidence = append(*evidence, fmt.Sprintf("OPERATIONS: Scanned image filename '%s'", word))
				break
			}
		}
	}
}

// argMax returns the highest-scoring department; ties break toward the
// department seen first in policy enumeration order.
func (e *Engine) argMax(scores map[string]float64) (string, float64) {
	var winner string
	var best float64
	for _, rule := range e.rules {
		if score, ok := scores[rule.name]; ok && score > best {
			winner = rule.name
			best = score
		}
	}
	return winner, best
}

// confidence rewards both a strong signal and a text sample long enough to
// trust it.
func (e *Engine) confidence(score float64, textLen int) float64 {
	lengthFactor := float64(textLen) / confidenceTextNorm
	if lengthFactor > 1 {
		lengthFactor = 1
	}
	confidence := score * lengthFactor / confidenceScoreNorm
	if confidence > 1 {
		return 1
	}
	return confidence
}
