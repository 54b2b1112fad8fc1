package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the matcher provider
	// ("model" or "gemini").
	FieldProvider = "provider"
	// FieldModel is the structured log field key for an LLM model name.
	FieldModel = "ai_model"
	// FieldModelID is the structured log field key for a trained match model.
	FieldModelID = "model_id"
	// FieldStage is the structured log field key for a training stage.
	FieldStage = "stage"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, trimming whitespace
// and omitting entries with an empty key or value.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to logger, falling back to a no-op logger when
// logger is nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describes the matcher provider and model. Empty values are
// dropped.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches CommonFields to logger.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}
