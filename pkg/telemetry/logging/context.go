package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	requestIDKey      contextKey = "request_id"
	conversationIDKey contextKey = "conversation_id"
	levelKey          contextKey = "processing_level"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithConversationID adds a conversation ID to the context.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, conversationIDKey, conversationID)
}

// ConversationID retrieves the conversation ID from the context.
func ConversationID(ctx context.Context) string {
	id, _ := ctx.Value(conversationIDKey).(string)
	return id
}

// WithProcessingLevel adds the processing level name to the context.
func WithProcessingLevel(ctx context.Context, level string) context.Context {
	return context.WithValue(ctx, levelKey, level)
}

// ProcessingLevel retrieves the processing level name from the context.
func ProcessingLevel(ctx context.Context) string {
	level, _ := ctx.Value(levelKey).(string)
	return level
}

// contextAttrs returns the request-scoped fields present in ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if v := RequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(requestIDKey), v))
	}
	if v := ConversationID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(conversationIDKey), v))
	}
	if v := ProcessingLevel(ctx); v != "" {
		attrs = append(attrs, slog.String(string(levelKey), v))
	}
	return attrs
}
