// Package extractor pulls structured entities and relationships out of
// free text using rule-based pattern matching. It is intentionally
// conservative: a missed entity is cheaper than a bogus one, so the
// people heuristics lean on allowlists rather than open-ended
// capitalization matching.
package extractor

import (
	"github.com/engramdev/engram/pkg/memory"
)

// Engine is implemented by entity and relationship extractors.
// Extraction never fails; text with nothing recognizable yields empty
// results.
type Engine interface {
	// Entities recognizes the named entities mentioned in text.
	Entities(text string) memory.Entities

	// Relationships maps pairwise relationships, using the already
	// recognized entities for back-reference resolution.
	Relationships(text string, ents memory.Entities) []memory.Relationship

	// Extract runs both passes and bundles the outcome.
	Extract(text string) Result
}

// Extractor is the rule-based Engine implementation.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Result bundles the entities and relationships found in one pass.
type Result struct {
	Entities      memory.Entities       `json:"entities"`
	Relationships []memory.Relationship `json:"relationships"`
}

// Extract runs entity recognition followed by relationship mapping over
// the recognized entities.
func (e *Extractor) Extract(text string) Result {
	ents := e.Entities(text)
	return Result{
		Entities:      ents,
		Relationships: e.Relationships(text, ents),
	}
}
