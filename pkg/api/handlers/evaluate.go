package handlers

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/conversations"
	"mercator-hq/kyosan/pkg/evidence/recorder"
	"mercator-hq/kyosan/pkg/orchestrator"
	"mercator-hq/kyosan/pkg/providers"
	"mercator-hq/kyosan/pkg/providers/openrouter"
	"mercator-hq/kyosan/pkg/telemetry/logging"
)

// Evaluator runs one input through the orchestrator and records the
// decision. It is shared by the process and conversation handlers.
type Evaluator struct {
	Orchestrator *orchestrator.Orchestrator

	// Recorder writes the audit trail. Optional.
	Recorder *recorder.Recorder

	Logger *slog.Logger

	// DefaultLevel is used when a request names no level or an unknown
	// one. The zero value means orchestrator.DefaultLevel.
	DefaultLevel string

	// Now is replaced in tests.
	Now func() time.Time
}

// evaluation is one call to evaluate.
type evaluation struct {
	requestID      string
	conversationID string
	input          string
	evalCtx        map[string]any
	level          orchestrator.Level
	useAI          bool

	// history is the earlier conversation, oldest first.
	history []conversations.Message
	// followUp is the client's follow_up value, true when omitted.
	followUp any
}

func (e *Evaluator) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default().With("component", "api")
}

// level resolves the requested processing level.
func (e *Evaluator) level(requested string) orchestrator.Level {
	if l, err := orchestrator.ParseLevel(requested); err == nil {
		return l
	}
	return orchestrator.NormalizeLevel(e.DefaultLevel)
}

func (e *Evaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// evaluate runs ev and records the result. The caller's context map is
// never modified.
func (e *Evaluator) evaluate(ctx context.Context, ev evaluation) *orchestrator.ExecutionResult {
	evalCtx := make(map[string]any, len(ev.evalCtx)+2)
	maps.Copy(evalCtx, ev.evalCtx)
	if len(ev.history) > 0 {
		followUp := ev.followUp
		if followUp == nil {
			followUp = true
		}
		evalCtx[openrouter.FollowUpKey] = followUp
		evalCtx[openrouter.HistoryKey] = historyMessages(ev.history)
	}

	ctx = logging.WithProcessingLevel(ctx, ev.level.String())
	if ev.conversationID != "" {
		ctx = logging.WithConversationID(ctx, ev.conversationID)
	}
	if !ev.useAI {
		ctx = compliance.WithoutGeneration(ctx)
	}

	result := e.Orchestrator.Process(ctx, ev.input, evalCtx, ev.level)

	if e.Recorder != nil {
		err := e.Recorder.Record(ctx, recorder.Entry{
			RequestID:      ev.requestID,
			ConversationID: ev.conversationID,
			Input:          ev.input,
			Result:         result,
			Time:           e.now(),
		})
		if err != nil {
			e.logger().WarnContext(ctx, "failed to record decision", "error", err)
		}
	}
	return result
}

// historyMessages converts stored turns to generator messages.
func historyMessages(msgs []conversations.Message) []providers.Message {
	out := make([]providers.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != conversations.RoleUser && m.Role != conversations.RoleAssistant {
			continue
		}
		out = append(out, providers.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
