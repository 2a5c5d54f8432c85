package detector

import (
	"regexp"
	"strings"

	"github.com/engramdev/engram/pkg/memory"
)

// Detection is the result of analyzing a piece of text for storage
// worthiness.
type Detection struct {
	// IsDeclarative reports whether the text reads as a factual statement
	IsDeclarative bool `json:"isDeclarative"`

	// ImportanceScore is the additive indicator score in [0,1]
	ImportanceScore float64 `json:"importanceScore"`

	// Confidence is the detector's own confidence in [0,1]
	Confidence float64 `json:"confidence"`

	// Entities are the coarse entities found by the detector's patterns
	Entities memory.Entities `json:"entities"`

	// Categories are the coarse topic tags; never empty
	Categories []string `json:"categories"`

	// ShouldStore is the sole gate on what enters the store
	ShouldStore bool `json:"shouldStore"`
}

// Weights are the additive importance indicator weights.
type Weights struct {
	Number           float64
	Date             float64
	Name             float64
	Place            float64
	LongText         float64
	MultipleEntities float64
}

// Config contains configuration options for the detector. All thresholds
// and weights are configuration rather than hidden constants; callers that
// need a different storage policy adjust these, not the detector itself.
type Config struct {
	// DeclarativeThreshold is the fraction of the declarative pattern set
	// that must match
	DeclarativeThreshold float64

	// StoreThreshold is the importance floor for storing any text
	StoreThreshold float64

	// DeclarativeStoreThreshold is the lower floor applied to declarative text
	DeclarativeStoreThreshold float64

	// Weights are the importance indicator weights
	Weights Weights
}

// DefaultConfig returns the default configuration for the detector.
func DefaultConfig() Config {
	return Config{
		DeclarativeThreshold:      0.3,
		StoreThreshold:            0.3,
		DeclarativeStoreThreshold: 0.2,
		Weights: Weights{
			Number:           0.2,
			Date:             0.3,
			Name:             0.4,
			Place:            0.3,
			LongText:         0.1,
			MultipleEntities: 0.2,
		},
	}
}

var (
	declarativePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(is|are|was|were|am)\s`),
		regexp.MustCompile(`(?i)\b(have|has|had)\s`),
		regexp.MustCompile(`(?i)\b(remember|recall|know)\s`),
		regexp.MustCompile(`(?i)\b(think|believe|feel)\s`),
	}

	numberPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	datePattern   = regexp.MustCompile(`(?i)\b(?:today|tomorrow|yesterday|last\s+\w+|next\s+\w+|\d{1,2}/\d{1,2}/\d{4})\b`)
	personPattern = regexp.MustCompile(`\b([A-Z][a-z]+)\s+(?:said|mentioned|told|asked)`)
	placePattern  = regexp.MustCompile(`\b(?:in|at|to|from)\s+([A-Z][a-z]+)`)
	orgPattern    = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+(?:Inc|Corp|LLC|Ltd|Company))?)\b`)
	moneyPattern  = regexp.MustCompile(`\$\d+(?:\.\d{2})?`)
	capsPattern   = regexp.MustCompile(`[A-Z][a-z]+|[A-Z][A-Z]+`)

	categoryPatterns = map[string]*regexp.Regexp{
		"personal": regexp.MustCompile(`(?i)\b(I|me|my|mine)\b`),
		"work":     regexp.MustCompile(`(?i)\b(work|job|office|meeting|project)\b`),
		"family":   regexp.MustCompile(`(?i)\b(family|mother|father|sister|brother|child|parent)\b`),
		"health":   regexp.MustCompile(`(?i)\b(health|doctor|hospital|medicine|sick|ill)\b`),
		"finance":  regexp.MustCompile(`(?i)\b(money|bank|loan|invest|salary|budget)\b`),
		"travel":   regexp.MustCompile(`(?i)\b(travel|trip|flight|hotel|vacation)\b`),
	}
)

// Detector scores raw text for storage worthiness. It is a pure function
// over the input text and its configured thresholds; it has no side effects.
type Detector struct {
	config Config
}

// New creates a Detector with the given configuration.
func New(config Config) *Detector {
	return &Detector{config: config}
}

// Detect analyzes text and decides whether it is worth storing.
func (d *Detector) Detect(text string) Detection {
	det := Detection{
		IsDeclarative:   d.isDeclarative(text),
		ImportanceScore: d.importance(text),
		Entities:        extractEntities(text),
		Categories:      extractCategories(text),
	}
	det.Confidence = d.confidence(text, det.IsDeclarative)

	det.ShouldStore = det.ImportanceScore >= d.config.StoreThreshold ||
		(det.IsDeclarative && det.ImportanceScore >= d.config.DeclarativeStoreThreshold)

	return det
}

// isDeclarative applies the pattern-fraction heuristic, falling back to
// checking whether the first sentence ends with a period.
func (d *Detector) isDeclarative(text string) bool {
	matches := 0
	for _, p := range declarativePatterns {
		if p.MatchString(text) {
			matches++
		}
	}
	if float64(matches)/float64(len(declarativePatterns)) >= d.config.DeclarativeThreshold {
		return true
	}
	return firstSentenceEndsWithPeriod(text)
}

func firstSentenceEndsWithPeriod(text string) bool {
	if i := strings.IndexAny(text, ".?!"); i >= 0 {
		return text[i] == '.'
	}
	return false
}

// importance builds the additive indicator score, capped at 1.0.
func (d *Detector) importance(text string) float64 {
	w := d.config.Weights
	score := 0.0

	if numberPattern.MatchString(text) {
		score += w.Number
	}
	if datePattern.MatchString(text) {
		score += w.Date
	}
	if personPattern.MatchString(text) {
		score += w.Name
	}
	if placePattern.MatchString(text) {
		score += w.Place
	}
	if len(text) > 50 {
		score += w.LongText
	}
	if len(capsPattern.FindAllString(text, -1)) > 2 {
		score += w.MultipleEntities
	}

	return min(score, 1.0)
}

// confidence is a simple blend of text length and declarativeness.
func (d *Detector) confidence(text string, declarative bool) float64 {
	confidence := 0.5
	if len(text) > 20 {
		confidence += 0.2
	}
	if len(text) > 50 {
		confidence += 0.1
	}
	if declarative {
		confidence += 0.2
	}
	return min(confidence, 1.0)
}

// extractEntities runs the detector's coarse entity patterns. The richer
// extractor package supersedes these when attached to a stored record.
func extractEntities(text string) memory.Entities {
	return memory.Entities{
		People:        mentions(personPattern, text, 1),
		Places:        mentions(placePattern, text, 1),
		Organizations: mentions(orgPattern, text, 1),
		Dates:         mentions(datePattern, text, 0),
		Money:         mentions(moneyPattern, text, 0),
		Numbers:       mentions(numberPattern, text, 0),
	}
}

// mentions collects every match of p in text as a Mention, taking capture
// group g (0 for the whole match).
func mentions(p *regexp.Regexp, text string, g int) []memory.Mention {
	idx := p.FindAllStringSubmatchIndex(text, -1)
	if len(idx) == 0 {
		return nil
	}
	out := make([]memory.Mention, 0, len(idx))
	for _, m := range idx {
		start, end := m[2*g], m[2*g+1]
		if start < 0 {
			continue
		}
		out = append(out, memory.Mention{Name: text[start:end], Position: start})
	}
	return out
}

// extractCategories tags text with coarse topic categories.
func extractCategories(text string) []string {
	// Fixed order so repeated detections are deterministic
	order := []string{"personal", "work", "family", "health", "finance", "travel"}

	var categories []string
	for _, name := range order {
		if categoryPatterns[name].MatchString(text) {
			categories = append(categories, name)
		}
	}
	if len(categories) == 0 {
		categories = []string{memory.DefaultCategory}
	}
	return categories
}
