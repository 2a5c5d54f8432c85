package memory

// RelationType classifies a pairwise relationship between two entities.
type RelationType string

// Relationship types
const (
	RelWorksAt     RelationType = "works_at"
	RelLivesIn     RelationType = "lives_in"
	RelSibling     RelationType = "sibling"
	RelParentChild RelationType = "parent_child"
	RelSpouse      RelationType = "spouse"
	RelPossessedBy RelationType = "possessed_by"
	RelCreated     RelationType = "created"
	RelTemporal    RelationType = "temporal"
	RelRelatedTo   RelationType = "related_to"
)

// Relationship is a derived pairwise link between two entities mentioned
// in a text. Relationships are computed on demand and are not persisted
// by the core unless a caller chooses to.
type Relationship struct {
	From       string       `json:"from"`
	To         string       `json:"to"`
	Type       RelationType `json:"type"`
	Confidence float64      `json:"confidence"`
}
