package logging

import (
	"context"
	"testing"
)

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	if attrs := contextAttrs(ctx); len(attrs) != 0 {
		t.Errorf("expected no attrs, got %v", attrs)
	}

	ctx = WithRequestID(ctx, "req-9")
	ctx = WithProcessingLevel(ctx, "basic")

	if RequestID(ctx) != "req-9" {
		t.Errorf("expected req-9, got %q", RequestID(ctx))
	}
	if ConversationID(ctx) != "" {
		t.Errorf("expected no conversation id, got %q", ConversationID(ctx))
	}

	attrs := contextAttrs(ctx)
	if len(attrs) != 2 || attrs[0].Key != "request_id" || attrs[1].Key != "processing_level" {
		t.Errorf("unexpected attrs %v", attrs)
	}
}
