package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.lastSystem = system
	s.lastMessage = message
	return s.response, s.err
}

func TestMatcherEvaluate(t *testing.T) {
	stub := &stubGenerator{response: `{"fit": true, "score": 0.9, "reason": "Go and Kubernetes match", "message": "Strong backend profile"}`}
	matcher := NewMatcher(stub, 0.5, 0, zap.NewNop())

	assessment, err := matcher.Evaluate(context.Background(), "Go developer, Kubernetes", "Go Developer wanted")
	require.NoError(t, err)

	assert.True(t, assessment.Fit)
	assert.InDelta(t, 0.9, assessment.Score, 1e-12)
	assert.Equal(t, "Go and Kubernetes match", assessment.Reason)
	assert.Equal(t, "Strong backend profile", assessment.Message)
	assert.Equal(t, stub.response, assessment.Raw)

	assert.Contains(t, stub.lastSystem, "technical recruiter")
	assert.Contains(t, stub.lastMessage, `"resume": "Go developer, Kubernetes"`)
	assert.Contains(t, stub.lastMessage, `"job_description": "Go Developer wanted"`)
}

func TestMatcherEvaluateAppliesThreshold(t *testing.T) {
	stub := &stubGenerator{response: `{"fit": true, "score": 0.3, "reason": "Too junior"}`}

	assessment, err := NewMatcher(stub, 0.5, 0, zap.NewNop()).Evaluate(context.Background(), "resume", "job")
	require.NoError(t, err)
	assert.False(t, assessment.Fit)
	assert.InDelta(t, 0.3, assessment.Score, 1e-12)
}

func TestMatcherEvaluateErrors(t *testing.T) {
	ctx := context.Background()

	matcher := NewMatcher(&stubGenerator{}, 0, 0, nil)
	_, err := matcher.Evaluate(ctx, "  ", "job")
	assert.Error(t, err, "empty resume")
	_, err = matcher.Evaluate(ctx, "resume", "")
	assert.Error(t, err, "empty job")

	genErr := errors.New("boom")
	_, err = NewMatcher(&stubGenerator{err: genErr}, 0, 0, nil).Evaluate(ctx, "resume", "job")
	assert.ErrorIs(t, err, genErr)

	_, err = NewMatcher(&stubGenerator{response: "I think it is a fit"}, 0, 0, nil).Evaluate(ctx, "resume", "job")
	assert.Error(t, err, "non-json response")
}

func TestParseResponseHandlesCodeBlock(t *testing.T) {
	raw := "```json\n{\"fit\": true, \"score\": \"0.8\", \"reason\": \"Looks good\", \"message\": \"Hi\"}\n```"

	assessment, err := parseResponse(raw)
	require.NoError(t, err)
	assert.True(t, assessment.Fit)
	assert.InDelta(t, 0.8, assessment.Score, 1e-12)
	assert.Equal(t, "Hi", assessment.Message)
}

func TestParseResponseIsLenient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		score  float64
		fit    bool
		reason string
	}{
		{raw: `{"score": 85}`, score: 0.85},
		{raw: `{"score": "70%"}`, score: 0.7},
		{raw: `{"score": -2}`, score: 0},
		{raw: `{"score": 250}`, score: 1},
		{raw: `{"score": "n/a"}`, score: 0},
		{raw: `{"score": [1]}`, score: 0},
		{raw: `{"fit": "yes"}`, fit: true},
		{raw: `{"fit": "No"}`},
		{raw: `{"fit": 1}`, fit: true},
		{raw: `{"reason": "  spaced "}`, reason: "spaced"},
		{raw: `{"reason": ["a", "b"]}`, reason: `["a","b"]`},
		{raw: `{"reason": 42}`, reason: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			assessment, err := parseResponse(tt.raw)
			require.NoError(t, err)
			assert.InDelta(t, tt.score, assessment.Score, 1e-9)
			assert.Equal(t, tt.fit, assessment.Fit)
			assert.Equal(t, tt.reason, assessment.Reason)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON(`  {"a":1} `))
}
