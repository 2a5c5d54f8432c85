package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdev/engram/pkg/memory"
)

func relOfType(rels []memory.Relationship, t memory.RelationType) (memory.Relationship, bool) {
	for _, r := range rels {
		if r.Type == t {
			return r, true
		}
	}
	return memory.Relationship{}, false
}

func TestEntities_People(t *testing.T) {
	e := New()

	ents := e.Entities("Sarah Connor met David at the station")

	names := []string{}
	for _, p := range ents.People {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "Sarah Connor")
	assert.Contains(t, names, "David")
	assert.NotContains(t, names, "Sarah", "first name of a detected full name should not repeat")
}

func TestEntities_ExcludedFullNames(t *testing.T) {
	e := New()

	ents := e.Entities("Jane flew from San Francisco to New York")

	for _, p := range ents.People {
		assert.NotEqual(t, "San Francisco", p.Name)
		assert.NotEqual(t, "New York", p.Name)
	}
	places := []string{}
	for _, p := range ents.Places {
		places = append(places, p.Name)
	}
	assert.Contains(t, places, "San Francisco")
	assert.Contains(t, places, "New York")
}

func TestEntities_Organizations(t *testing.T) {
	e := New()

	ents := e.Entities("Acme Corp hired consultants from Google")

	names := []string{}
	for _, o := range ents.Organizations {
		names = append(names, o.Name)
	}
	assert.Contains(t, names, "Acme Corp")
	assert.Contains(t, names, "Google")
}

func TestEntities_DatesMoneyPercent(t *testing.T) {
	e := New()

	ents := e.Entities("paid $1,250.00 on 12/25/2026, about 15% of the budget")

	require.NotEmpty(t, ents.Dates)
	assert.Equal(t, "12/25/2026", ents.Dates[0].Name)
	require.NotEmpty(t, ents.Money)
	assert.Equal(t, "$1,250.00", ents.Money[0].Name)
	require.NotEmpty(t, ents.Percentages)
	assert.Equal(t, "15%", ents.Percentages[0].Name)
}

func TestEntities_EmptyText(t *testing.T) {
	e := New()

	ents := e.Entities("")

	assert.True(t, ents.Empty())
}

func TestExtract_BundlesEntitiesAndRelationships(t *testing.T) {
	e := New()

	result := e.Extract("John works at Google")

	require.NotEmpty(t, result.Entities.People)
	assert.Equal(t, "John", result.Entities.People[0].Name)

	rel, ok := relOfType(result.Relationships, memory.RelWorksAt)
	require.True(t, ok)
	assert.Equal(t, "John", rel.From)
	assert.Equal(t, "Google", rel.To)
}

func TestRelationships_WorksAt(t *testing.T) {
	e := New()
	text := "John works at Google"

	rels := e.Relationships(text, e.Entities(text))

	rel, ok := relOfType(rels, memory.RelWorksAt)
	require.True(t, ok)
	assert.Equal(t, "John", rel.From)
	assert.Equal(t, "Google", rel.To)
	assert.Equal(t, 0.9, rel.Confidence)
}

func TestRelationships_WorksAtBoosted(t *testing.T) {
	e := New()
	text := "Mary is employed by Stanford University"

	rels := e.Relationships(text, e.Entities(text))

	rel, ok := relOfType(rels, memory.RelWorksAt)
	require.True(t, ok)
	assert.Equal(t, "Stanford University", rel.To)
	assert.Equal(t, 1.0, rel.Confidence, "org suffix boosts and clamps confidence")
}

func TestRelationships_LivesInWithPronoun(t *testing.T) {
	e := New()
	text := "John called yesterday. He lives in Portland"

	rels := e.Relationships(text, e.Entities(text))

	rel, ok := relOfType(rels, memory.RelLivesIn)
	require.True(t, ok)
	assert.Equal(t, "John", rel.From, "He resolves to the most recent male name")
	assert.Equal(t, "Portland", rel.To)
}

func TestRelationships_Family(t *testing.T) {
	e := New()
	text := "Mary is the sister of Jane"

	rels := e.Relationships(text, e.Entities(text))

	rel, ok := relOfType(rels, memory.RelSibling)
	require.True(t, ok)
	assert.Equal(t, "Mary", rel.From)
	assert.Equal(t, "Jane", rel.To)
	assert.Equal(t, 0.9, rel.Confidence)
}

func TestRelationships_PossessiveFamily(t *testing.T) {
	e := New()
	text := "Tom retired last year and his wife Susan still teaches"

	rels := e.Relationships(text, e.Entities(text))

	rel, ok := relOfType(rels, memory.RelSpouse)
	require.True(t, ok)
	assert.Equal(t, "Tom", rel.From)
	assert.Equal(t, "Susan", rel.To)
}

func TestRelationships_Possession(t *testing.T) {
	e := New()
	text := "John's salary doubled"

	rels := e.Relationships(text, e.Entities(text))

	rel, ok := relOfType(rels, memory.RelPossessedBy)
	require.True(t, ok)
	assert.Equal(t, "John", rel.From)
	assert.Equal(t, "salary", rel.To)
}

func TestRelationships_Created(t *testing.T) {
	e := New()
	text := "Linda designed the onboarding service"

	rels := e.Relationships(text, e.Entities(text))

	rel, ok := relOfType(rels, memory.RelCreated)
	require.True(t, ok)
	assert.Equal(t, "Linda", rel.From)
	assert.Equal(t, "onboarding service", rel.To)
	assert.Equal(t, 1.0, rel.Confidence)
}

func TestRelationships_NoneFound(t *testing.T) {
	e := New()
	text := "nothing interesting happened"

	rels := e.Relationships(text, e.Entities(text))

	assert.Empty(t, rels)
}
