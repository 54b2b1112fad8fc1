// Package ai defines the contract shared by everything that can judge how
// well a resume fits a job description.
package ai

import "context"

const (
	// ProviderModel is the locally trained match model.
	ProviderModel = "model"
	// ProviderGemini is the Google Gemini assessor.
	ProviderGemini = "gemini"
)

// FitAssessment is a matcher's verdict. Score is in [0,1].
type FitAssessment struct {
	Fit     bool    `json:"fit"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason,omitempty"`
	Message string  `json:"message,omitempty"`
	Raw     string  `json:"-"`
}

// Matcher evaluates a resume against a job description.
type Matcher interface {
	Evaluate(ctx context.Context, resume, job string) (*FitAssessment, error)
}
