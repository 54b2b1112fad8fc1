package gemini

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/ai"
	"github.com/spigell/cv-matcher/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

//go:embed prompt.md
var systemPrompt string

const defaultMaxLogLength = 200

// Matcher asks Gemini to assess a resume against a job description.
type Matcher struct {
	generator contentGenerator
	minScore  float64
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Matcher = (*Matcher)(nil)

// NewMatcher returns a Matcher. Assessments scoring below minScore are never
// marked as a fit.
func NewMatcher(generator contentGenerator, minScore float64, maxLogLength int, logger *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		generator: generator,
		minScore:  minScore,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (m *Matcher) Evaluate(ctx context.Context, resume, job string) (*ai.FitAssessment, error) {
	if strings.TrimSpace(resume) == "" {
		return nil, errors.New("resume text is required")
	}
	if strings.TrimSpace(job) == "" {
		return nil, errors.New("job description is required")
	}

	message, err := buildMessage(resume, job)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini generate content request",
		zap.Int("message_length", utf8.RuneCountInString(message)),
		zap.String("message_preview", utils.TruncateForLog(message, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if m.minScore > 0 && assessment.Score < m.minScore {
		m.logger.Debug("set fit to false by score threshold",
			zap.Float64("score", assessment.Score),
			zap.Float64("threshold", m.minScore),
		)
		assessment.Fit = false
	}

	assessment.Raw = raw
	return assessment, nil
}

func buildMessage(resume, job string) (string, error) {
	payload, err := json.MarshalIndent(map[string]string{
		"resume":          strings.TrimSpace(resume),
		"job_description": strings.TrimSpace(job),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal documents: %w", err)
	}
	return "Documents:\n" + string(payload) + "\n\nJSON Response:", nil
}

// response is the lenient shape of a Gemini reply. Models return scores as
// numbers, numeric strings or percentages and booleans as "yes"/"no".
type response struct {
	Fit     bool    `mapstructure:"fit"`
	Score   float64 `mapstructure:"score"`
	Reason  string  `mapstructure:"reason"`
	Message string  `mapstructure:"message"`
}

func parseResponse(raw string) (*ai.FitAssessment, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	var resp response
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       lenientHook,
		WeaklyTypedInput: true,
		Result:           &resp,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}

	return &ai.FitAssessment{
		Fit:     resp.Fit,
		Score:   normalizeScore(resp.Score),
		Reason:  strings.TrimSpace(resp.Reason),
		Message: strings.TrimSpace(resp.Message),
	}, nil
}

// lenientHook converts values the weak decoder rejects. Unparseable scores
// become NaN, which normalizeScore maps to 0.
func lenientHook(from, to reflect.Kind, data any) (any, error) {
	composite := from == reflect.Map || from == reflect.Slice || from == reflect.Array

	switch to {
	case reflect.Float64:
		if composite {
			return math.NaN(), nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return math.NaN(), nil
		}
		return f, nil
	case reflect.Bool:
		if composite {
			return false, nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "y", "1":
			return true, nil
		default:
			return false, nil
		}
	case reflect.String:
		if !composite {
			return data, nil
		}
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Sprintf("%v", data), nil
		}
		return string(encoded), nil
	default:
		return data, nil
	}
}

// normalizeScore maps percentages to fractions and clamps to [0,1].
func normalizeScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	if score > 1 && score <= 100 {
		score /= 100
	}
	return math.Max(0, math.Min(1, score))
}

// extractJSON strips a markdown code fence around the reply.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if body, ok := strings.CutPrefix(raw, "```"); ok {
		body = strings.TrimPrefix(body, "json")
		if idx := strings.LastIndex(body, "```"); idx != -1 {
			body = body[:idx]
		}
		raw = body
	}
	return strings.TrimSpace(strings.Trim(raw, "`"))
}
