package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var corpus = []string{
	"python developer aws docker experience",
	"looking python developer familiar aws cloud docker container",
	"finance accounting excel reporting",
	"kubernetes devops linux administration",
	"python python data analysis sql",
}

func TestFitKeepsMostFrequentTerms(t *testing.T) {
	t.Parallel()

	vocab, err := Fit(corpus, 3)
	require.NoError(t, err)

	// python x4, developer x2, aws x2, docker x2: alphabetical tie-break keeps aws and developer.
	assert.Equal(t, []string{"aws", "developer", "python"}, vocab.Terms())
	assert.Equal(t, 3, vocab.Size())
}

func TestFitIDF(t *testing.T) {
	t.Parallel()

	vocab, err := Fit(corpus, DefaultMaxTerms)
	require.NoError(t, err)

	n := float64(len(corpus))
	python, ok := vocab.IDF("python")
	require.True(t, ok)
	assert.InDelta(t, math.Log((1+n)/(1+3))+1, python, 1e-12)

	kube, ok := vocab.IDF("kubernetes")
	require.True(t, ok)
	assert.InDelta(t, math.Log((1+n)/(1+1))+1, kube, 1e-12)
	assert.Greater(t, kube, python)

	_, ok = vocab.IDF("golang")
	assert.False(t, ok)
}

func TestFitIgnoresSingleCharacterTokens(t *testing.T) {
	t.Parallel()

	vocab, err := Fit([]string{"c r go"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, vocab.Terms())
}

func TestFitErrors(t *testing.T) {
	t.Parallel()

	_, err := Fit([]string{"", "a b"}, 10)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)

	_, err = Fit(corpus, 0)
	assert.Error(t, err)
}

func TestVectorize(t *testing.T) {
	t.Parallel()

	vocab, err := Fit(corpus, DefaultMaxTerms)
	require.NoError(t, err)

	vec := vocab.Vectorize("python python unknownterm")
	require.Len(t, vec, vocab.Size())

	var sumSquares float64
	nonZero := 0
	for _, v := range vec {
		sumSquares += v * v
		if v != 0 {
			nonZero++
		}
	}
	assert.InDelta(t, 1.0, sumSquares, 1e-9)
	assert.Equal(t, 1, nonZero)

	empty := vocab.Vectorize("")
	assert.Len(t, empty, vocab.Size())
	for _, v := range empty {
		assert.Zero(t, v)
	}
}

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()

	vocab, err := Fit(corpus, DefaultMaxTerms)
	require.NoError(t, err)

	restored, err := FromState(vocab.State())
	require.NoError(t, err)
	assert.Equal(t, vocab.Vectorize(corpus[1]), restored.Vectorize(corpus[1]))
}

func TestFromStateRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := map[string]VocabularyState{
		"empty":     {},
		"mismatch":  {Terms: []string{"go", "sql"}, IDF: []float64{1}},
		"duplicate": {Terms: []string{"go", "go"}, IDF: []float64{1, 1}},
		"blank":     {Terms: []string{""}, IDF: []float64{1}},
		"nan":       {Terms: []string{"go"}, IDF: []float64{math.NaN()}},
	}

	for name, state := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := FromState(state)
			assert.Error(t, err)
		})
	}
}

func TestSkillFeatures(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float64{0, 0, 0}, SkillFeatures(nil, []string{"python"}).Values())
	assert.Equal(t, []float64{0, 0, 0}, SkillFeatures([]string{"python"}, nil).Values())
	assert.Equal(t, []float64{0, 0, 0}, SkillFeatures(nil, nil).Values())

	same := []string{"python", "aws", "docker"}
	assert.Equal(t, []float64{3, 1, 1}, SkillFeatures(same, same).Values())
}

func TestSkillFeaturesScenarioA(t *testing.T) {
	t.Parallel()

	resume := []string{"python", "aws", "docker"}
	job := []string{"python", "aws", "cloud", "docker"}

	got := SkillFeatures(resume, job)
	assert.GreaterOrEqual(t, got.Count, 3.0)
	assert.InDelta(t, 0.75, got.MatchRatio, 1e-12)
	assert.InDelta(t, 1.0, got.Coverage, 1e-12)
}

func TestSkillFeaturesScenarioB(t *testing.T) {
	t.Parallel()

	resume := []string{"excel", "finance", "accounting"}
	job := []string{"devops", "kubernetes", "linux"}
	assert.Equal(t, []float64{0, 0, 0}, SkillFeatures(resume, job).Values())
}

func TestCombinedWidth(t *testing.T) {
	t.Parallel()

	vocab, err := Fit(corpus, DefaultMaxTerms)
	require.NoError(t, err)
	want := 4*vocab.Size() + 4

	pairs := [][2]string{
		{corpus[0], corpus[1]},
		{"", ""},
		{"entirely unseen words", "more novel tokens"},
		{corpus[2], ""},
	}
	for _, p := range pairs {
		fv, err := Combined(p[0], p[1], []string{"python"}, []string{"python", "sql"}, vocab)
		require.NoError(t, err)
		assert.Equal(t, want, fv.Len())
		assert.Len(t, fv.Values(), want)
		assert.Equal(t, want, Width(vocab.Size()))
		assert.NoError(t, fv.Validate(vocab.Size()))
	}
}

func TestValidateNamesFirstBadBlock(t *testing.T) {
	t.Parallel()

	vocab, err := Fit(corpus, DefaultMaxTerms)
	require.NoError(t, err)
	fv, err := Combined(corpus[0], corpus[1], nil, nil, vocab)
	require.NoError(t, err)

	assert.ErrorContains(t, fv.Validate(vocab.Size()+1), "feature block resume_terms")

	fv.Diff = fv.Diff[:1]
	fv.Product = nil
	assert.ErrorContains(t, fv.Validate(vocab.Size()), "feature block diff has 1 values")
}

func TestCombinedLayout(t *testing.T) {
	t.Parallel()

	vocab, err := Fit(corpus, DefaultMaxTerms)
	require.NoError(t, err)
	v := vocab.Size()

	fv, err := Combined(corpus[0], corpus[1], []string{"python", "aws"}, []string{"python"}, vocab)
	require.NoError(t, err)

	values := fv.Values()
	assert.Equal(t, fv.ResumeTerms, values[:v])
	assert.Equal(t, fv.JobTerms, values[v:2*v])
	assert.Equal(t, fv.Diff, values[2*v:3*v])
	assert.Equal(t, fv.Product, values[3*v:4*v])
	assert.Equal(t, fv.Similarity, values[4*v])
	assert.Equal(t, []float64{1, 1, 0.5}, values[4*v+1:])
}

func TestPairFeaturesIdenticalDocumentsMaximizeSimilarity(t *testing.T) {
	t.Parallel()

	vocab, err := Fit(corpus, DefaultMaxTerms)
	require.NoError(t, err)

	same := PairFeatures(corpus[0], corpus[0], vocab)
	for _, d := range same.Diff {
		assert.Zero(t, d)
	}
	assert.InDelta(t, 1.0, same.Similarity, 1e-9)

	for _, other := range corpus[1:] {
		p := PairFeatures(corpus[0], other, vocab)
		assert.Less(t, p.Similarity, same.Similarity)
	}
}

func TestCombinedRequiresVocabulary(t *testing.T) {
	t.Parallel()

	_, err := Combined("a", "b", nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoVocabulary)

	_, _, err = NewBuilder().Combined("python developer", "python job", nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoVocabulary)
}

func TestBuilderAutoFit(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	b := NewBuilder(WithAutoFit(), WithLogger(zap.New(core)))

	fv, vocab, err := b.Combined("python developer", "python engineer", nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, vocab)
	assert.Equal(t, []string{"developer", "engineer", "python"}, vocab.Terms())
	assert.Equal(t, Width(3), fv.Len())
	assert.Equal(t, 1, logs.Len())

	// A supplied vocabulary is used as is.
	fixed, err := Fit(corpus, DefaultMaxTerms)
	require.NoError(t, err)
	_, used, err := b.Combined("python developer", "python engineer", nil, nil, fixed)
	require.NoError(t, err)
	assert.Same(t, fixed, used)
	assert.Equal(t, 1, logs.Len())
}
