package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLemmatizer map[string]string

func (m mapLemmatizer) Lemma(word string) string {
	if lemma, ok := m[word]; ok {
		return lemma
	}
	return word
}

func newStubNormalizer(t *testing.T, lemmas map[string]string, opts ...Option) *Normalizer {
	t.Helper()
	opts = append([]Option{WithLemmatizer(mapLemmatizer(lemmas))}, opts...)
	n, err := New(opts...)
	require.NoError(t, err)
	return n
}

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "empty", input: "", expect: ""},
		{name: "lowercases and collapses", input: "  Senior   GO\tDeveloper \n", expect: "senior go developer"},
		{name: "strips urls", input: "see https://example.com/jobs and www.acme.io now", expect: "see and now"},
		{name: "strips emails", input: "contact jane.doe@example.com today", expect: "contact today"},
		{name: "strips phone numbers", input: "call 555-123-4567 or 555.123.4567 or 5551234567", expect: "call or or"},
		{name: "replaces punctuation", input: "C++/Go, CI/CD; node.js!", expect: "c go ci cd node js"},
		{name: "keeps underscores and digits", input: "snake_case v2 python3", expect: "snake_case v2 python3"},
		{name: "keeps non latin letters", input: "Разработчик Go — Москва", expect: "разработчик go москва"},
		{name: "only punctuation", input: "!!! ... ???", expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, Clean(tt.input))
		})
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Python developer with AWS and Docker experience",
		"Email me: a@b.co, phone (555) 123-4567, site http://x.y",
		"Café résumé naïve",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
	}
}

func TestNormalizeDropsStopwordsAndLemmatizes(t *testing.T) {
	t.Parallel()

	n := newStubNormalizer(t, map[string]string{
		"developers": "developer",
		"systems":    "system",
		"built":      "build",
	})

	got := n.Normalize("The developers built THE systems, and they were happy!")
	assert.Equal(t, "developer build system happy", got)
}

func TestNormalizeDropsLemmasThatBecomeStopwords(t *testing.T) {
	t.Parallel()

	n := newStubNormalizer(t, map[string]string{"thems": "them"})
	assert.Equal(t, "code", n.Normalize("thems code"))
}

func TestNormalizeFollowsLemmaChains(t *testing.T) {
	t.Parallel()

	n := newStubNormalizer(t, map[string]string{
		"best":   "better",
		"better": "good",
		"alpha":  "beta",
		"beta":   "alpha",
	})

	assert.Equal(t, "good", n.Normalize("best"))
	assert.Equal(t, n.Normalize("best"), n.Normalize(n.Normalize("best")))
	assert.Equal(t, "alpha", n.Normalize("beta"))
	assert.Equal(t, "alpha", n.Normalize("alpha"))
}

func TestNormalizeIgnoresInvalidLemmas(t *testing.T) {
	t.Parallel()

	n := newStubNormalizer(t, map[string]string{"data": "data set"})
	assert.Equal(t, "data", n.Normalize("data"))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n, err := New()
	require.NoError(t, err)

	inputs := []string{
		"Python developer with AWS and Docker experience",
		"Looking for a Python developer familiar with AWS cloud and Docker containers",
		"Managed teams, negotiated contracts and wrote quarterly financial reports.",
		"She was leading the studies; analyses were better than expected.",
		"",
		"   ",
	}

	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

func TestExtractSkills(t *testing.T) {
	t.Parallel()

	n := newStubNormalizer(t, nil)

	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{
			name:   "scenario a resume",
			input:  "Python developer with AWS and Docker experience",
			expect: []string{"python", "aws", "docker"},
		},
		{
			name:   "scenario a job",
			input:  "Looking for a Python developer familiar with AWS cloud and Docker containers",
			expect: []string{"python", "aws", "cloud", "docker"},
		},
		{
			name:   "multi word phrases in vocabulary order",
			input:  "Strong communication and Machine-Learning; some project management.",
			expect: []string{"machine learning", "project management", "communication"},
		},
		{
			name:   "whole words only",
			input:  "javascripting pythonic dockerized",
			expect: []string{},
		},
		{
			name:   "empty",
			input:  "",
			expect: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, n.ExtractSkills(tt.input))
		})
	}
}

func TestExtractSkillsIsDeterministicAndUnique(t *testing.T) {
	t.Parallel()

	n := newStubNormalizer(t, nil)
	text := "python python PYTHON sql, SQL and sql; docker docker"

	first := n.ExtractSkills(text)
	second := n.ExtractSkills(text)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"python", "sql", "docker"}, first)
}

func TestWithSkillsCanonicalizes(t *testing.T) {
	t.Parallel()

	n := newStubNormalizer(t, nil, WithSkills([]string{"CI/CD", "ci cd", "  Rust ", ""}))
	assert.Equal(t, []string{"ci cd", "rust"}, n.Skills())
	assert.Equal(t, []string{"ci cd", "rust"}, n.ExtractSkills("Rust services with a CI/CD pipeline"))
}

func TestWithSkillsRejectsUnusableList(t *testing.T) {
	t.Parallel()

	_, err := New(WithLemmatizer(mapLemmatizer{}), WithSkills([]string{"!!!", "..."}))
	assert.ErrorIs(t, err, ErrNoSkills)

	_, err = New(WithLemmatizer(mapLemmatizer{}), WithSkills(nil))
	assert.ErrorIs(t, err, ErrNoSkills)
}

func TestDefaultSkillsSize(t *testing.T) {
	t.Parallel()

	assert.Len(t, CanonicalSkills(DefaultSkills), len(DefaultSkills))
	assert.Len(t, DefaultSkills, 50)
}

func TestIntersect(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Intersect(nil, []string{"a"}))
	assert.Nil(t, Intersect([]string{"a"}, nil))
	assert.Equal(t, []string{"b", "c"}, Intersect([]string{"a", "b", "c"}, []string{"c", "b"}))
	assert.Empty(t, Intersect([]string{"a"}, []string{"b"}))
}

func TestContainsPhrase(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsPhrase("Built ML pipelines; Machine-Learning at scale", "machine learning"))
	assert.True(t, ContainsPhrase("C++ and Go.", "GO"))
	assert.False(t, ContainsPhrase("javascript", "java"))
	assert.False(t, ContainsPhrase("anything", "  "))
	assert.False(t, ContainsPhrase("", "go"))
}
