package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/cv-matcher/internal/utils"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 3
	baseRetryDelay    = 2 * time.Second
	maxRetryDelay     = 30 * time.Second
)

var (
	wait = utils.WaitFor

	retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)
)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Generator sends a system instruction and a single user message to Gemini
// and retries temporary failures.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewGenerator creates a Generator for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		chats:      genaiChats{chats: client.Chats},
		model:      model,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

// Model returns the Gemini model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// GenerateContent returns the text of the first non-empty response.
// maxRetries bounds the total number of attempts.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	attempts := max(1, g.maxRetries)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		output, err := g.send(ctx, config, message)
		if err == nil {
			return output, nil
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == attempts {
			break
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := wait(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

func (g *Generator) send(ctx context.Context, config *genai.GenerateContentConfig, message string) (string, error) {
	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned no response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

// retryDelay decides whether err is temporary and how long to wait. Quota
// errors asking for a longer pause than maxRetryDelay are not retried.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	if apiErr.Code != http.StatusTooManyRequests && apiErr.Code < http.StatusInternalServerError {
		return 0, false
	}

	delay := baseRetryDelay << (attempt - 1)
	if m := retryAfterPattern.FindStringSubmatch(apiErr.Message); m != nil {
		seconds, perr := strconv.ParseFloat(m[1], 64)
		if perr == nil {
			delay = time.Duration(seconds * float64(time.Second))
		}
	}

	if delay > maxRetryDelay {
		return 0, false
	}
	return delay, true
}
