package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ResourceImporter/internal/schema"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"  Café au lait! ", "cafe-au-lait"},
		{"already-slugged", "already-slugged"},
		{"C++ & Go", "c-go"},
		{"2024 Review", "2024-review"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}

func TestRecordTerms(t *testing.T) {
	terms, err := recordTerms(map[string]string{
		"post_category": "News, Local",
		"tags_input":    "a,b",
		"tax_input":     `{"genre": ["Sci-Fi", " "], "post_tag": "c, d"}`,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"News", "Local"}, terms[schema.CategoryTaxonomy])
	assert.Equal(t, []string{"a", "b", "c", "d"}, terms[schema.TagTaxonomy])
	assert.Equal(t, []string{"Sci-Fi"}, terms["genre"])
}

func TestRecordTerms_Invalid(t *testing.T) {
	_, err := recordTerms(map[string]string{"tax_input": "not json"})
	assert.Error(t, err)

	_, err = recordTerms(map[string]string{"tax_input": `{"genre": 5}`})
	assert.Error(t, err)
}

func TestWithDefaults(t *testing.T) {
	cols := withDefaults(nil, map[string]string{"post_title": "Hello World"})
	require.Len(t, cols, 1)
	assert.Equal(t, column{name: "post_name", value: "hello-world"}, cols[0])

	assert.Empty(t, withDefaults(nil, map[string]string{"post_title": "Hi", "post_name": "custom"}))
}
