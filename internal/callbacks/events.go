// Package callbacks provides Eino callback handlers that bridge to the event bus.
package callbacks

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	ub "github.com/cloudwego/eino/utils/callbacks"

	"github.com/dohr-michael/moodstream/internal/events"
)

type startKey struct{}

// NewEventBusHandler creates a callback handler that publishes a
// VisionCallPayload for every chat model request, response and failure.
func NewEventBusHandler(bus *events.Bus) callbacks.Handler {
	publish := func(ctx context.Context, payload events.VisionCallPayload) {
		if sid := events.SessionIDFromContext(ctx); sid != "" {
			bus.Publish(events.NewTypedEventWithSession(events.SourceModel, payload, sid))
		} else {
			bus.Publish(events.NewTypedEvent(events.SourceModel, payload))
		}
	}

	modelHandler := &ub.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *callbacks.RunInfo, input *model.CallbackInput) context.Context {
			payload := events.VisionCallPayload{
				Phase:    "request",
				Model:    info.Name,
				Provider: info.Type,
			}
			if input != nil {
				payload.MessageCount = len(input.Messages)
			}
			publish(ctx, payload)
			return context.WithValue(ctx, startKey{}, time.Now())
		},

		OnEnd: func(ctx context.Context, info *callbacks.RunInfo, output *model.CallbackOutput) context.Context {
			payload := events.VisionCallPayload{
				Phase:      "response",
				Model:      info.Name,
				Provider:   info.Type,
				DurationMs: elapsed(ctx),
			}
			if output != nil && output.Message != nil && output.Message.ResponseMeta != nil && output.Message.ResponseMeta.Usage != nil {
				payload.TokensInput = output.Message.ResponseMeta.Usage.PromptTokens
				payload.TokensOutput = output.Message.ResponseMeta.Usage.CompletionTokens
			}
			publish(ctx, payload)
			return ctx
		},

		OnError: func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			publish(ctx, events.VisionCallPayload{
				Phase:      "error",
				Model:      info.Name,
				Provider:   info.Type,
				DurationMs: elapsed(ctx),
				Error:      truncatePayload(err.Error(), 500),
			})
			return ctx
		},
	}

	return ub.NewHandlerHelper().
		ChatModel(modelHandler).
		Handler()
}

func elapsed(ctx context.Context) int64 {
	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start).Milliseconds()
}

func truncatePayload(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... (truncated)"
}
