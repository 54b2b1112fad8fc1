package features

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/spigell/cv-matcher/internal/textnorm"
)

// SkillFeatureCount is the number of trailing skill-overlap features.
const SkillFeatureCount = 3

// ErrNoVocabulary is returned when features are requested without a fitted
// vocabulary and auto-fit was not enabled.
var ErrNoVocabulary = errors.New("no fitted vocabulary")

// Width returns the flattened FeatureVector length 4V+4 for vocabulary size v.
func Width(v int) int {
	return 4*v + 1 + SkillFeatureCount
}

// Pair holds the text part of a feature vector, 4V+1 values when flattened.
type Pair struct {
	ResumeTerms []float64
	JobTerms    []float64
	Diff        []float64
	Product     []float64
	Similarity  float64
}

// SkillOverlap holds the skill part of a feature vector.
type SkillOverlap struct {
	Count      float64
	MatchRatio float64
	Coverage   float64
}

// Values returns [count, matchRatio, coverage].
func (s SkillOverlap) Values() []float64 {
	return []float64{s.Count, s.MatchRatio, s.Coverage}
}

// FeatureVector is the full classifier input.
type FeatureVector struct {
	Pair
	SkillOverlap
}

// Values flattens the pair features in resume, job, diff, product,
// similarity order.
func (p Pair) Values() []float64 {
	out := make([]float64, 0, 4*len(p.ResumeTerms)+1)
	out = append(out, p.ResumeTerms...)
	out = append(out, p.JobTerms...)
	out = append(out, p.Diff...)
	out = append(out, p.Product...)
	return append(out, p.Similarity)
}

// Len returns the flattened length.
func (f FeatureVector) Len() int {
	return len(f.ResumeTerms) + len(f.JobTerms) + len(f.Diff) + len(f.Product) + 1 + SkillFeatureCount
}

// Validate checks every block has the width implied by the vocabulary size.
func (f FeatureVector) Validate(vocabSize int) error {
	blocks := []struct {
		name string
		got  int
	}{
		{"resume_terms", len(f.ResumeTerms)},
		{"job_terms", len(f.JobTerms)},
		{"diff", len(f.Diff)},
		{"product", len(f.Product)},
	}
	for _, b := range blocks {
		if b.got != vocabSize {
			return fmt.Errorf("feature block %s has %d values, want %d", b.name, b.got, vocabSize)
		}
	}
	return nil
}

// Values flattens the full vector; its length is Width(V).
func (f FeatureVector) Values() []float64 {
	out := f.Pair.Values()
	return append(out, f.SkillOverlap.Values()...)
}

// PairFeatures vectorizes both documents and derives their elementwise
// difference, product and dot-product similarity.
func PairFeatures(resumeDoc, jobDoc string, vocab *Vocabulary) Pair {
	r := vocab.Vectorize(resumeDoc)
	j := vocab.Vectorize(jobDoc)

	diff := make([]float64, len(r))
	floats.SubTo(diff, r, j)
	for i := range diff {
		diff[i] = math.Abs(diff[i])
	}

	product := make([]float64, len(r))
	floats.MulTo(product, r, j)

	return Pair{
		ResumeTerms: r,
		JobTerms:    j,
		Diff:        diff,
		Product:     product,
		Similarity:  floats.Dot(r, j),
	}
}

// SkillFeatures scores the overlap between two skill sets. Either set being
// empty yields all zeros.
func SkillFeatures(resumeSkills, jobSkills []string) SkillOverlap {
	if len(resumeSkills) == 0 || len(jobSkills) == 0 {
		return SkillOverlap{}
	}

	common := float64(len(textnorm.Intersect(uniq(resumeSkills), uniq(jobSkills))))
	return SkillOverlap{
		Count:      common,
		MatchRatio: common / float64(len(uniq(jobSkills))),
		Coverage:   common / float64(len(uniq(resumeSkills))),
	}
}

// Combined builds the full feature vector against a fitted vocabulary.
func Combined(resumeDoc, jobDoc string, resumeSkills, jobSkills []string, vocab *Vocabulary) (FeatureVector, error) {
	if vocab == nil {
		return FeatureVector{}, ErrNoVocabulary
	}

	return FeatureVector{
		Pair:         PairFeatures(resumeDoc, jobDoc, vocab),
		SkillOverlap: SkillFeatures(resumeSkills, jobSkills),
	}, nil
}

// Builder wraps Combined with an optional fallback for callers that have no
// fitted vocabulary.
type Builder struct {
	autoFit  bool
	maxTerms int
	logger   *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithAutoFit makes Combined fit a throwaway vocabulary from the two
// documents when none is given. The resulting vocabulary is tiny and only
// comparable within that single call.
func WithAutoFit() BuilderOption {
	return func(b *Builder) { b.autoFit = true }
}

// WithLogger sets the logger used to report auto-fit fallbacks.
func WithLogger(logger *zap.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder returns a Builder. Without WithAutoFit it behaves like Combined.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{maxTerms: DefaultMaxTerms, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Combined builds the feature vector. With auto-fit enabled and a nil vocab,
// a vocabulary local to this call is fit from the two documents; the
// builder itself is not modified.
func (b *Builder) Combined(resumeDoc, jobDoc string, resumeSkills, jobSkills []string, vocab *Vocabulary) (FeatureVector, *Vocabulary, error) {
	if vocab == nil {
		if !b.autoFit {
			return FeatureVector{}, nil, ErrNoVocabulary
		}

		fitted, err := Fit([]string{resumeDoc, jobDoc}, b.maxTerms)
		if err != nil {
			return FeatureVector{}, nil, fmt.Errorf("auto-fit vocabulary: %w", err)
		}
		b.logger.Warn("fitted a throwaway vocabulary from a single document pair",
			zap.Int("vocabulary_size", fitted.Size()),
		)
		vocab = fitted
	}

	fv, err := Combined(resumeDoc, jobDoc, resumeSkills, jobSkills, vocab)
	return fv, vocab, err
}

func uniq(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
