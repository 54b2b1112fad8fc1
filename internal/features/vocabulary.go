// Package features projects normalized documents onto a shared TF-IDF
// vocabulary and assembles the fixed-schema feature vectors used by the
// match classifier.
package features

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"
)

// DefaultMaxTerms is the default vocabulary bound V.
const DefaultMaxTerms = 1000

// ErrEmptyVocabulary is returned when a corpus contains no usable terms.
var ErrEmptyVocabulary = errors.New("empty vocabulary: corpus contains no terms")

// Vocabulary is a frozen term -> idf mapping. The zero value is not usable;
// build one with Fit or FromState. A Vocabulary is never mutated after
// construction and may be shared between goroutines.
type Vocabulary struct {
	terms []string
	idf   []float64
	index map[string]int
}

// VocabularyState is the serializable form of a Vocabulary.
type VocabularyState struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`
}

// Fit builds a vocabulary over the corpus keeping at most maxTerms terms with
// the highest corpus term frequency. Ties are broken alphabetically and the
// kept terms are indexed in alphabetical order.
// IDF uses the smoothed form ln((1+n)/(1+df)) + 1.
func Fit(corpus []string, maxTerms int) (*Vocabulary, error) {
	if maxTerms <= 0 {
		return nil, fmt.Errorf("max terms must be positive, got %d", maxTerms)
	}

	termFreq := make(map[string]int)
	docFreq := make(map[string]int)

	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, term := range tokenize(doc) {
			termFreq[term]++
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			docFreq[term]++
		}
	}

	if len(termFreq) == 0 {
		return nil, ErrEmptyVocabulary
	}

	candidates := make([]string, 0, len(termFreq))
	for term := range termFreq {
		candidates = append(candidates, term)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if termFreq[a] != termFreq[b] {
			return termFreq[a] > termFreq[b]
		}
		return a < b
	})

	if len(candidates) > maxTerms {
		candidates = candidates[:maxTerms]
	}
	sort.Strings(candidates)

	n := float64(len(corpus))
	idf := make([]float64, len(candidates))
	for i, term := range candidates {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	return newVocabulary(candidates, idf), nil
}

// FromState restores a vocabulary saved with State.
func FromState(state VocabularyState) (*Vocabulary, error) {
	if len(state.Terms) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if len(state.Terms) != len(state.IDF) {
		return nil, fmt.Errorf("vocabulary has %d terms but %d idf weights", len(state.Terms), len(state.IDF))
	}

	seen := make(map[string]struct{}, len(state.Terms))
	for i, term := range state.Terms {
		if term == "" {
			return nil, fmt.Errorf("vocabulary term %d is empty", i)
		}
		if _, dup := seen[term]; dup {
			return nil, fmt.Errorf("vocabulary term %q is duplicated", term)
		}
		seen[term] = struct{}{}

		w := state.IDF[i]
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return nil, fmt.Errorf("vocabulary term %q has invalid idf %v", term, w)
		}
	}

	return newVocabulary(append([]string(nil), state.Terms...), append([]float64(nil), state.IDF...)), nil
}

func newVocabulary(terms []string, idf []float64) *Vocabulary {
	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
	}
	return &Vocabulary{terms: terms, idf: idf, index: index}
}

// Size returns V.
func (v *Vocabulary) Size() int {
	if v == nil {
		return 0
	}
	return len(v.terms)
}

// Terms returns a copy of the indexed terms.
func (v *Vocabulary) Terms() []string {
	return append([]string(nil), v.terms...)
}

// IDF returns the weight of term and whether it is in the vocabulary.
func (v *Vocabulary) IDF(term string) (float64, bool) {
	i, ok := v.index[term]
	if !ok {
		return 0, false
	}
	return v.idf[i], true
}

// State returns a serializable copy.
func (v *Vocabulary) State() VocabularyState {
	return VocabularyState{
		Terms: append([]string(nil), v.terms...),
		IDF:   append([]float64(nil), v.idf...),
	}
}

// Vectorize projects a normalized document onto the vocabulary as an
// L2-normalized tf-idf vector of length Size(). Unknown terms are ignored.
func (v *Vocabulary) Vectorize(doc string) []float64 {
	vec := make([]float64, len(v.terms))
	for _, term := range tokenize(doc) {
		if i, ok := v.index[term]; ok {
			vec[i]++
		}
	}

	floats.Mul(vec, v.idf)

	if norm := floats.Norm(vec, 2); norm > 0 {
		floats.Scale(1/norm, vec)
	}
	return vec
}

// tokenize yields terms of two or more characters.
func tokenize(doc string) []string {
	fields := strings.Fields(doc)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}
