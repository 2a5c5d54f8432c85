package memory

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalJSON_LegacyCategoryField(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","content":"x","category":"Personal"}`), &r))
	assert.Equal(t, []string{"personal"}, r.Categories)
}

func TestUnmarshalJSON_CategoriesWinOverLegacy(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","content":"x","categories":["Work"],"category":"Personal"}`), &r))
	assert.Equal(t, []string{"work"}, r.Categories)
}

func TestUnmarshalJSON_MalformedCategoryList(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","content":"x","categories":[" Work ",null,42,"","work"]}`), &r))
	assert.Equal(t, []string{"work"}, r.Categories)
}

func TestUnmarshalJSON_NoCategoryAtAll(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","content":"x"}`), &r))
	assert.Equal(t, []string{DefaultCategory}, r.Categories)
}

func TestNormalizeCategories(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"mixed case and whitespace", []string{" Work ", "work", "", "Family"}, []string{"work", "family"}},
		{"empty input", nil, []string{"general"}},
		{"all blank", []string{"", "  "}, []string{"general"}},
		{"first seen order kept", []string{"b", "a", "B"}, []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCategories(tt.in))
		})
	}
}

func TestHasCategory(t *testing.T) {
	r := Record{Categories: []string{"work", "travel"}}
	assert.True(t, r.HasCategory("Work"))
	assert.True(t, r.HasCategory(" travel "))
	assert.False(t, r.HasCategory("family"))
}

func TestValidate(t *testing.T) {
	valid := Record{ID: "1", Content: "x", Timestamp: time.Now()}
	assert.NoError(t, valid.Validate())

	missing := []Record{
		{Content: "x", Timestamp: time.Now()},
		{ID: "1", Timestamp: time.Now()},
		{ID: "1", Content: "x"},
	}
	for _, r := range missing {
		assert.Error(t, r.Validate())
	}
}

func TestGenerateID_StableAndDistinct(t *testing.T) {
	ts := time.Now()
	a := GenerateID("same content", ts)
	b := GenerateID("same content", ts)
	c := GenerateID("other content", ts)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^\d+_[0-9a-f]+$`, a)
}

func TestEntities_NamesAndEmpty(t *testing.T) {
	var none Entities
	assert.True(t, none.Empty())
	assert.Empty(t, none.Names())

	e := Entities{
		People: []Mention{{Name: "Alice", Position: 0}},
		Places: []Mention{{Name: "Denver", Position: 20}},
	}
	assert.False(t, e.Empty())
	assert.Equal(t, []string{"Alice", "Denver"}, e.Names())
}
