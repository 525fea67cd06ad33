package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldRequestID is the structured log field key for a skill request.
	FieldRequestID = "request_id"
	// FieldCandidates is the structured log field key for a candidate count.
	FieldCandidates = "candidates"
	// FieldBucket is the structured log field key for a readiness bucket.
	FieldBucket = "bucket"
	// FieldCandidateID is the structured log field key for a single candidate.
	FieldCandidateID = "candidate_id"
	// FieldProvider is the structured log field key for the drafting provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the drafting model identifier.
	FieldModel = "ai_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger is replaced by a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// WithRequest attaches the request id and pool size of one analysis run.
func WithRequest(logger *zap.Logger, requestID string, candidates int) *zap.Logger {
	fields := StringFields(StringField{Key: FieldRequestID, Value: requestID})
	fields = append(fields, zap.Int(FieldCandidates, candidates))
	return WithFields(logger, fields...)
}

// CommonFields returns the provider and model fields of a drafting backend.
// Empty values are ignored.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches the drafting provider fields to the logger.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}
