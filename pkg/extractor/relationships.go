package extractor

import (
	"regexp"
	"strings"

	"github.com/engramdev/engram/pkg/memory"
)

// Gendered name lists drive pronoun resolution. Resolution picks the most
// recent matching person mentioned before the pronoun.
var (
	maleNames = map[string]bool{
		"John": true, "David": true, "Michael": true, "Chris": true,
		"Tom": true, "Tim": true, "Bob": true, "Robert": true, "James": true,
		"William": true, "Thomas": true, "Charles": true, "Richard": true, "Joseph": true,
	}
	femaleNames = map[string]bool{
		"Mary": true, "Sarah": true, "Emily": true, "Jennifer": true,
		"Alice": true, "Linda": true, "Elizabeth": true, "Patricia": true,
		"Barbara": true, "Jessica": true, "Susan": true, "Karen": true, "Jane": true,
	}
)

const orgSuffixes = `(?:\s+(?:Inc|Corp|LLC|Ltd|Company|Corporation|University|School|Hospital))?`

var (
	worksPattern = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?|[Hh]e|[Ss]he|[Tt]hey)\s+(?:works\s+(?:at|for|in)|is\s+employed\s+by|employed\s+by|staff\s+at)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*` + orgSuffixes + `)`)
	titlePattern = regexp.MustCompile(`\b(?:CEO|President|Director|Manager)\s+of\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*` + orgSuffixes + `)\s*,\s*([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)

	livesPattern = regexp.MustCompile(`\b([A-Z][a-z]+|[Hh]e|[Ss]he|[Tt]hey)\s+(?:lives|resides|stays)\s+in\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)

	familyOfPattern  = regexp.MustCompile(`\b([A-Z][a-z]+)\s+(?:is\s+)?(?:the\s+)?(sister|brother|daughter|son|father|mother|parent|child|wife|husband|spouse)\s+(?:of\s+)?([A-Z][a-z]+)`)
	familyAndPattern = regexp.MustCompile(`\b([A-Z][a-z]+)\s+and\s+([A-Z][a-z]+)\s+(?:are\s+)?(sisters|brothers|couple|married)`)
	familyPossPattern = regexp.MustCompile(`\b([Hh]is|[Hh]er|[Tt]heir)\s+(wife|husband|spouse|sister|brother|daughter|son|father|mother)\s+([A-Z][a-z]+)`)

	temporalPattern = regexp.MustCompile(`\b(\w+)\s+(?:before|after|since|until)\s+(\w+)\b`)

	ownsPattern      = regexp.MustCompile(`\b(\w+)\s+(?:owns|possesses)\s+(?:(?:a|an|the)\s+)?(\w+)`)
	hasPattern       = regexp.MustCompile(`\b(\w+)\s+has\s+(?:a|an|the)\s+(\w+)`)
	possessivePattern = regexp.MustCompile(`\b([A-Z][a-z]+)'s\s+(salary|wage|income|pay|house|car|property|asset|investment|stock|bond|fund)\b`)

	createdPattern = regexp.MustCompile(`\b([A-Z][a-z]+)\s+(?:created|invented|developed|built|designed)\s+(?:the\s+)?((?:[a-z]+\s+)*(?:product|item|device|tool|software|app|service|idea|concept|method|approach|strategy|technique))\b`)

	generalPattern = regexp.MustCompile(`\b(?:related|associated|connected|linked)\s+to\s+([A-Z][a-z]+)`)

	fullNamePattern  = regexp.MustCompile(`[A-Z][a-z]+\s+[A-Z][a-z]+`)
	orgNamePattern   = regexp.MustCompile(`(Inc|Corp|LLC|Ltd|Company|Corporation|University|School|Hospital)$`)
	placeNamePattern = regexp.MustCompile(`(City|Town|Village|State|Province|Country)$`)
)

// Relationships maps relationships between the given entities as they
// appear in text. Pronoun subjects are resolved to the nearest preceding
// person of matching gender.
func (e *Extractor) Relationships(text string, ents memory.Entities) []memory.Relationship {
	var rels []memory.Relationship

	rels = append(rels, workRelationships(text, ents)...)
	rels = append(rels, locationRelationships(text, ents)...)
	rels = append(rels, familyRelationships(text)...)
	rels = append(rels, temporalRelationships(text)...)
	rels = append(rels, possessionRelationships(text)...)
	rels = append(rels, creationRelationships(text)...)
	rels = append(rels, generalRelationships(text, ents)...)

	return dedupeRelationships(rels)
}

func workRelationships(text string, ents memory.Entities) []memory.Relationship {
	var rels []memory.Relationship

	for _, m := range worksPattern.FindAllStringSubmatchIndex(text, -1) {
		person := resolvePronoun(text[m[2]:m[3]], m[2], ents.People)
		org := text[m[4]:m[5]]
		rels = append(rels, memory.Relationship{
			From:       person,
			To:         org,
			Type:       memory.RelWorksAt,
			Confidence: boost(0.9, 1.2, fullNamePattern.MatchString(person) || orgNamePattern.MatchString(org)),
		})
	}

	// "CEO of Acme Corp, Jane Smith" puts the organization first
	for _, m := range titlePattern.FindAllStringSubmatch(text, -1) {
		rels = append(rels, memory.Relationship{
			From:       m[2],
			To:         m[1],
			Type:       memory.RelWorksAt,
			Confidence: boost(0.9, 1.2, fullNamePattern.MatchString(m[2]) || orgNamePattern.MatchString(m[1])),
		})
	}

	return rels
}

func locationRelationships(text string, ents memory.Entities) []memory.Relationship {
	var rels []memory.Relationship
	for _, m := range livesPattern.FindAllStringSubmatchIndex(text, -1) {
		person := resolvePronoun(text[m[2]:m[3]], m[2], ents.People)
		place := text[m[4]:m[5]]
		rels = append(rels, memory.Relationship{
			From:       person,
			To:         place,
			Type:       memory.RelLivesIn,
			Confidence: boost(0.9, 1.2, fullNamePattern.MatchString(person) || placeNamePattern.MatchString(place)),
		})
	}
	return rels
}

func familyRelationships(text string) []memory.Relationship {
	var rels []memory.Relationship

	for _, m := range familyOfPattern.FindAllStringSubmatch(text, -1) {
		rels = append(rels, memory.Relationship{
			From:       m[1],
			To:         m[3],
			Type:       familyType(m[2]),
			Confidence: 0.9,
		})
	}
	for _, m := range familyAndPattern.FindAllStringSubmatch(text, -1) {
		rels = append(rels, memory.Relationship{
			From:       m[1],
			To:         m[2],
			Type:       familyType(m[3]),
			Confidence: 0.9,
		})
	}
	// "his wife Mary" relates the possessor, resolved from the preceding
	// text, to the named person
	for _, m := range familyPossPattern.FindAllStringSubmatchIndex(text, -1) {
		owner := resolvePossessive(text[:m[2]])
		if owner == "" {
			continue
		}
		rels = append(rels, memory.Relationship{
			From:       owner,
			To:         text[m[6]:m[7]],
			Type:       familyType(text[m[4]:m[5]]),
			Confidence: 0.9,
		})
	}

	return rels
}

func familyType(keyword string) memory.RelationType {
	switch strings.ToLower(keyword) {
	case "sister", "brother", "sisters", "brothers":
		return memory.RelSibling
	case "daughter", "son", "father", "mother", "parent", "child":
		return memory.RelParentChild
	case "wife", "husband", "spouse", "couple", "married":
		return memory.RelSpouse
	default:
		return memory.RelRelatedTo
	}
}

func temporalRelationships(text string) []memory.Relationship {
	var rels []memory.Relationship
	for _, m := range temporalPattern.FindAllStringSubmatch(text, -1) {
		rels = append(rels, memory.Relationship{
			From:       m[1],
			To:         m[2],
			Type:       memory.RelTemporal,
			Confidence: 0.8,
		})
	}
	return rels
}

func possessionRelationships(text string) []memory.Relationship {
	var rels []memory.Relationship
	add := func(from, to string) {
		rels = append(rels, memory.Relationship{
			From:       from,
			To:         to,
			Type:       memory.RelPossessedBy,
			Confidence: 0.9,
		})
	}

	for _, m := range ownsPattern.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2])
	}
	for _, m := range hasPattern.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2])
	}
	for _, m := range possessivePattern.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2])
	}
	return rels
}

func creationRelationships(text string) []memory.Relationship {
	var rels []memory.Relationship
	for _, m := range createdPattern.FindAllStringSubmatch(text, -1) {
		rels = append(rels, memory.Relationship{
			From:       m[1],
			To:         strings.TrimSpace(m[2]),
			Type:       memory.RelCreated,
			Confidence: boost(0.9, 1.3, true),
		})
	}
	return rels
}

func generalRelationships(text string, ents memory.Entities) []memory.Relationship {
	var rels []memory.Relationship
	names := map[string]bool{}
	for _, n := range ents.Names() {
		names[strings.ToLower(n)] = true
	}
	for _, m := range generalPattern.FindAllStringSubmatch(text, -1) {
		if !names[strings.ToLower(m[1])] {
			continue
		}
		rels = append(rels, memory.Relationship{
			From:       m[1],
			To:         "related_context",
			Type:       memory.RelRelatedTo,
			Confidence: 0.7,
		})
	}
	return rels
}

// resolvePronoun maps He/She/They to the most recent matching person
// mentioned before pos. Unresolvable pronouns are returned as-is.
func resolvePronoun(name string, pos int, people []memory.Mention) string {
	var allowed map[string]bool
	switch strings.ToLower(name) {
	case "he":
		allowed = maleNames
	case "she":
		allowed = femaleNames
	case "they":
		allowed = nil
	default:
		return name
	}

	best := ""
	bestPos := -1
	for _, p := range people {
		if p.Position >= pos || p.Position <= bestPos {
			continue
		}
		first := strings.Fields(p.Name)[0]
		switch strings.ToLower(first) {
		case "he", "she", "they":
			continue
		}
		if allowed != nil && !allowed[first] {
			continue
		}
		best, bestPos = p.Name, p.Position
	}
	if best == "" {
		return name
	}
	return best
}

// resolvePossessive finds the last capitalized word before a possessive
// pronoun, scanning the same sentence right to left.
func resolvePossessive(before string) string {
	if i := strings.LastIndexAny(before, ".!?"); i >= 0 {
		before = before[i+1:]
	}
	words := strings.Fields(before)
	for i := len(words) - 1; i >= 0; i-- {
		w := strings.Trim(words[i], ",;:'\"()")
		if len(w) > 1 && w[0] >= 'A' && w[0] <= 'Z' && strings.ToLower(w[1:]) == w[1:] {
			return w
		}
	}
	return ""
}

func boost(confidence, factor float64, applies bool) float64 {
	if applies {
		confidence *= factor
	}
	return min(confidence, 1.0)
}

func dedupeRelationships(rels []memory.Relationship) []memory.Relationship {
	if len(rels) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := rels[:0]
	for _, r := range rels {
		key := r.From + "\x00" + r.To + "\x00" + string(r.Type)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
