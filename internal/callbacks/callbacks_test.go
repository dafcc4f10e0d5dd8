package callbacks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/moodstream/internal/events"
)

func TestTruncatePayload_Short(t *testing.T) {
	result := truncatePayload("hello", 100)
	if result != "hello" {
		t.Fatalf("expected %q, got %q", "hello", result)
	}
}

func TestTruncatePayload_Long(t *testing.T) {
	s := strings.Repeat("x", 200)
	result := truncatePayload(s, 100)
	if len(result) != 100+len("... (truncated)") {
		t.Fatalf("expected truncated length %d, got %d", 100+len("... (truncated)"), len(result))
	}
	if !strings.HasSuffix(result, "... (truncated)") {
		t.Fatalf("expected suffix '... (truncated)', got %q", result[len(result)-20:])
	}
}

func TestTruncatePayload_ZeroMax(t *testing.T) {
	s := "hello world"
	if result := truncatePayload(s, 0); result != s {
		t.Fatalf("expected original string when maxLen=0, got %q", result)
	}
}

func receive(t *testing.T, ch <-chan events.Event) events.VisionCallPayload {
	t.Helper()
	select {
	case e := <-ch:
		p, ok := events.ExtractPayload[events.VisionCallPayload](e)
		if !ok {
			t.Fatalf("unexpected event %s", e.Type)
		}
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for vision.call event")
	}
	return events.VisionCallPayload{}
}

func TestEventBusHandler_RequestResponse(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	ch, unsub := bus.SubscribeChan(8, events.EventVisionCall)
	defer unsub()

	h := NewEventBusHandler(bus)
	info := &callbacks.RunInfo{Name: "llava", Type: "Ollama", Component: components.ComponentOfChatModel}
	ctx := events.ContextWithSessionID(context.Background(), "sess-1")

	ctx = h.OnStart(ctx, info, &model.CallbackInput{
		Messages: []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("look")},
	})
	req := receive(t, ch)
	if req.Phase != "request" || req.Model != "llava" || req.Provider != "Ollama" || req.MessageCount != 2 {
		t.Fatalf("request payload = %+v", req)
	}

	h.OnEnd(ctx, info, &model.CallbackOutput{
		Message: &schema.Message{
			Role: schema.Assistant,
			ResponseMeta: &schema.ResponseMeta{
				Usage: &schema.TokenUsage{PromptTokens: 120, CompletionTokens: 30},
			},
		},
	})
	resp := receive(t, ch)
	if resp.Phase != "response" || resp.TokensInput != 120 || resp.TokensOutput != 30 {
		t.Fatalf("response payload = %+v", resp)
	}
	if resp.DurationMs < 0 {
		t.Fatalf("negative duration %d", resp.DurationMs)
	}
}

func TestEventBusHandler_Error(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	ch, unsub := bus.SubscribeChan(8, events.EventVisionCall)
	defer unsub()

	h := NewEventBusHandler(bus)
	info := &callbacks.RunInfo{Name: "gpt-4o", Type: "OpenAI", Component: components.ComponentOfChatModel}
	h.OnError(context.Background(), info, errors.New("rate limited"))

	p := receive(t, ch)
	if p.Phase != "error" || p.Error != "rate limited" {
		t.Fatalf("error payload = %+v", p)
	}
}
