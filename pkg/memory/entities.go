package memory

// Mention is a single entity occurrence in the source text.
type Mention struct {
	// Name is the surface form as it appeared
	Name string `json:"name"`

	// Position is the byte offset in the source text
	Position int `json:"position"`
}

// Entities groups extracted mentions by kind.
type Entities struct {
	People        []Mention `json:"people,omitempty"`
	Places        []Mention `json:"places,omitempty"`
	Organizations []Mention `json:"organizations,omitempty"`
	Dates         []Mention `json:"dates,omitempty"`
	Money         []Mention `json:"money,omitempty"`
	Numbers       []Mention `json:"numbers,omitempty"`
	Percentages   []Mention `json:"percentages,omitempty"`
}

// Names returns every mention name across all kinds, in kind order.
func (e Entities) Names() []string {
	kinds := [][]Mention{
		e.People, e.Places, e.Organizations,
		e.Dates, e.Money, e.Numbers, e.Percentages,
	}
	var names []string
	for _, mentions := range kinds {
		for _, m := range mentions {
			names = append(names, m.Name)
		}
	}
	return names
}

// Empty reports whether no mentions were extracted at all.
func (e Entities) Empty() bool {
	return len(e.Names()) == 0
}
