package memory

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/engramdev/engram/pkg/errors"
)

// DefaultCategory is assigned when a record carries no usable category.
const DefaultCategory = "general"

// Record is the unit of storage: a single remembered statement plus the
// lightweight structure extracted from it.
type Record struct {
	// ID is a unique identifier for the record, immutable once assigned
	ID string `json:"id"`

	// Content is the canonical text payload
	Content string `json:"content"`

	// Timestamp is the creation time of the memory
	Timestamp time.Time `json:"timestamp"`

	// Categories is always a non-empty, trimmed, lowercased, deduplicated list
	Categories []string `json:"categories"`

	// IsDeclarative reports whether the statement reads as a fact
	IsDeclarative bool `json:"isDeclarative"`

	// ImportanceScore is in [0,1]
	ImportanceScore float64 `json:"importanceScore"`

	// Confidence is in [0,1]
	Confidence float64 `json:"confidence"`

	// Entities holds the named entities extracted from Content
	Entities Entities `json:"entities,omitempty"`

	// Embedding is the vector representation of Content. It is never
	// serialized with the record body; the embedding store owns it,
	// keyed by ID.
	Embedding []float32 `json:"-"`

	// LastAccessed is bumped on every successful read
	LastAccessed time.Time `json:"lastAccessed,omitempty"`
}

// recordJSON mirrors Record for decoding, with loose category fields so
// legacy payloads ({"category": "Personal"}) and malformed lists
// (mixed case, nulls, empty strings) are accepted and repaired.
type recordJSON struct {
	ID              string          `json:"id"`
	Content         string          `json:"content"`
	Timestamp       time.Time       `json:"timestamp"`
	Categories      json.RawMessage `json:"categories"`
	Category        json.RawMessage `json:"category"`
	IsDeclarative   bool            `json:"isDeclarative"`
	ImportanceScore float64         `json:"importanceScore"`
	Confidence      float64         `json:"confidence"`
	Entities        Entities        `json:"entities"`
	LastAccessed    time.Time       `json:"lastAccessed"`
}

// UnmarshalJSON decodes a record, folding the legacy single-string
// "category" field into Categories and normalizing the result. The
// legacy field is dropped; it never round-trips back out.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.ID = raw.ID
	r.Content = raw.Content
	r.Timestamp = raw.Timestamp
	r.IsDeclarative = raw.IsDeclarative
	r.ImportanceScore = raw.ImportanceScore
	r.Confidence = raw.Confidence
	r.Entities = raw.Entities
	r.LastAccessed = raw.LastAccessed

	cats := coerceCategories(raw.Categories)
	if len(cats) == 0 {
		cats = coerceCategories(raw.Category)
	}
	r.Categories = NormalizeCategories(cats)

	return nil
}

// coerceCategories accepts a JSON string, a JSON array of mixed values, or
// nothing at all, and returns the usable string members.
func coerceCategories(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}

	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the mandatory fields. A record missing id, content, or
// timestamp must never reach the backing store.
func (r *Record) Validate() error {
	if r.ID == "" {
		return errors.Wrap(errors.ErrValidation, "missing id")
	}
	if r.Content == "" {
		return errors.Wrap(errors.ErrValidation, "missing content")
	}
	if r.Timestamp.IsZero() {
		return errors.Wrap(errors.ErrValidation, "missing timestamp")
	}
	return nil
}

// GenerateID derives a stable record ID from content and creation time.
func GenerateID(content string, ts time.Time) string {
	h := fnv.New32a()
	h.Write([]byte(content))
	return fmt.Sprintf("%d_%x", ts.UnixMilli(), h.Sum32())
}
