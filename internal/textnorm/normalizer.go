package textnorm

import (
	"bufio"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

//go:embed stopwords.txt
var stopwordsRaw string

// maxLemmaSteps bounds lemma chains such as "better" -> "good".
const maxLemmaSteps = 8

// Lemmatizer maps a lowercase word to its base form.
type Lemmatizer interface {
	Lemma(word string) string
}

var englishLemmatizer = sync.OnceValues(func() (Lemmatizer, error) {
	l, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("load english lemma dictionary: %w", err)
	}
	return l, nil
})

// Normalizer cleans, tokenizes, filters and lemmatizes text and detects
// skills. It holds only read-only state and is safe for concurrent use.
type Normalizer struct {
	stopwords  map[string]struct{}
	lemmatizer Lemmatizer
	skills     []string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithSkills replaces the skill vocabulary. Labels are cleaned and deduped;
// New fails with ErrNoSkills when none survive.
func WithSkills(skills []string) Option {
	return func(n *Normalizer) {
		n.skills = CanonicalSkills(skills)
	}
}

// WithLemmatizer replaces the dictionary lemmatizer.
func WithLemmatizer(l Lemmatizer) Option {
	return func(n *Normalizer) {
		n.lemmatizer = l
	}
}

// New builds a Normalizer with the embedded English stopwords, the golem
// English dictionary and DefaultSkills unless overridden.
func New(opts ...Option) (*Normalizer, error) {
	n := &Normalizer{
		stopwords: loadStopwords(stopwordsRaw),
		skills:    CanonicalSkills(DefaultSkills),
	}

	for _, opt := range opts {
		opt(n)
	}
	if len(n.skills) == 0 {
		return nil, ErrNoSkills
	}

	if n.lemmatizer == nil {
		l, err := englishLemmatizer()
		if err != nil {
			return nil, err
		}
		n.lemmatizer = l
	}

	return n, nil
}

// Skills returns a copy of the skill vocabulary.
func (n *Normalizer) Skills() []string {
	return append([]string(nil), n.skills...)
}

// Clean is the package level Clean.
func (n *Normalizer) Clean(text string) string {
	return Clean(text)
}

// Normalize returns the space-joined stopword-free lemmas of text.
// Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(text string) string {
	cleaned := Clean(text)
	if cleaned == "" {
		return ""
	}

	tokens := strings.Fields(cleaned)
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if n.isStopword(token) {
			continue
		}
		lemma := n.lemma(token)
		if lemma == "" || n.isStopword(lemma) {
			continue
		}
		out = append(out, lemma)
	}

	return strings.Join(out, " ")
}

// ExtractSkills returns vocabulary skills found in text as whole words, in
// vocabulary order.
func (n *Normalizer) ExtractSkills(text string) []string {
	cleaned := Clean(text)
	found := make([]string, 0)
	if cleaned == "" {
		return found
	}

	for _, skill := range n.skills {
		if containsPhrase(cleaned, skill) {
			found = append(found, skill)
		}
	}
	return found
}

func (n *Normalizer) isStopword(token string) bool {
	_, ok := n.stopwords[token]
	return ok
}

// lemma follows the lemmatizer until it reaches a fixed point. A cycle
// resolves to its smallest member so the result is stable on re-entry.
func (n *Normalizer) lemma(token string) string {
	visited := []string{token}
	current := token

	for range maxLemmaSteps {
		next := strings.ToLower(n.lemmatizer.Lemma(current))
		if next == current || !isWordToken(next) {
			return current
		}

		for i, v := range visited {
			if v == next {
				return minString(visited[i:])
			}
		}

		visited = append(visited, next)
		current = next
	}

	return current
}

func isWordToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

func minString(values []string) string {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func loadStopwords(raw string) map[string]struct{} {
	out := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		out[word] = struct{}{}
	}
	return out
}
