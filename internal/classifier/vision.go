// Package classifier reads facial expressions from stills with a multimodal
// chat model.
package classifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/moodstream/internal/capture"
	"github.com/dohr-michael/moodstream/internal/models"
	"github.com/dohr-michael/moodstream/internal/mood"
)

// ErrMalformedResponse is returned when the model reply holds no usable JSON.
var ErrMalformedResponse = errors.New("malformed classifier response")

// ErrNotInitialized is returned by Classify before Initialize succeeded.
var ErrNotInitialized = errors.New("classifier not initialized")

const systemPrompt = `You are a facial expression classifier.
Look at the largest human face in the image and score each expression between 0 and 1.
Reply with a single JSON object and nothing else, using exactly this shape:
{"face_detected": true, "expressions": {"neutral": 0.0, "happy": 0.0, "sad": 0.0, "angry": 0.0, "fearful": 0.0, "disgusted": 0.0, "surprised": 0.0}}
If no face is visible, reply {"face_detected": false, "expressions": {}}.`

const userPrompt = "Classify the facial expression in this camera frame."

// ResolveFunc returns the chat model to use. It is called by Initialize.
type ResolveFunc func(ctx context.Context) (model.BaseChatModel, error)

// Vision implements capture.Classifier on top of a chat model.
type Vision struct {
	resolve  ResolveFunc
	logger   *slog.Logger
	name     string
	handlers []callbacks.Handler

	mu    sync.RWMutex
	model model.BaseChatModel
}

// New creates a Vision classifier.
func New(resolve ResolveFunc, logger *slog.Logger) *Vision {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vision{resolve: resolve, logger: logger}
}

// FromRegistry creates a Vision classifier backed by a named registry
// provider. An empty name selects the registry default.
func FromRegistry(reg *models.Registry, name string, logger *slog.Logger) *Vision {
	v := New(func(ctx context.Context) (model.BaseChatModel, error) {
		return reg.Get(ctx, name)
	}, logger)
	v.name = name
	if info, ok := reg.Info(name); ok {
		v.name = info.Label()
	}
	return v
}

// Observe attaches callback handlers to every model call. It must be called
// before the classifier is shared.
func (v *Vision) Observe(handlers ...callbacks.Handler) *Vision {
	v.handlers = append(v.handlers, handlers...)
	return v
}

// Initialize resolves the chat model.
func (v *Vision) Initialize(ctx context.Context) error {
	v.mu.RLock()
	ready := v.model != nil
	v.mu.RUnlock()
	if ready {
		return nil
	}

	m, err := v.resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve vision model: %w", err)
	}
	if m == nil {
		return fmt.Errorf("resolve vision model: no model returned")
	}

	v.mu.Lock()
	v.model = m
	v.mu.Unlock()
	return nil
}

// Classify sends the still to the model and parses the returned scores.
func (v *Vision) Classify(ctx context.Context, still capture.Still) (mood.Distribution, error) {
	v.mu.RLock()
	m := v.model
	v.mu.RUnlock()
	if m == nil {
		return nil, ErrNotInitialized
	}
	if len(still.Data) == 0 {
		return nil, fmt.Errorf("empty still")
	}

	msgs := buildMessages(still)
	resp, err := v.generate(ctx, m, msgs)
	if err != nil {
		return nil, models.HandleError(err)
	}
	if resp == nil {
		return nil, ErrMalformedResponse
	}

	dist, err := ParseResponse(resp.Content)
	if err != nil {
		v.logger.Debug("classifier reply rejected", "error", err, "reply", truncate(resp.Content, 200))
		return nil, err
	}
	return dist, nil
}

// generate runs the model call, reporting it to the attached handlers. Models
// that do not emit callbacks themselves are wrapped here.
func (v *Vision) generate(ctx context.Context, m model.BaseChatModel, msgs []*schema.Message) (*schema.Message, error) {
	if len(v.handlers) == 0 {
		return m.Generate(ctx, msgs)
	}

	info := &callbacks.RunInfo{Name: v.name, Component: components.ComponentOfChatModel}
	if typ, ok := components.GetType(m); ok {
		info.Type = typ
	}
	if info.Name == "" {
		info.Name = info.Type
	}
	ctx = callbacks.InitCallbacks(ctx, info, v.handlers...)
	if components.IsCallbacksEnabled(m) {
		return m.Generate(ctx, msgs)
	}

	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: msgs})
	resp, err := m.Generate(ctx, msgs)
	if err != nil {
		callbacks.OnError(ctx, err)
		return nil, err
	}
	callbacks.OnEnd(ctx, &model.CallbackOutput{Message: resp})
	return resp, nil
}

func buildMessages(still capture.Still) []*schema.Message {
	mimeType := still.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	data := base64.StdEncoding.EncodeToString(still.Data)

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		{
			Role: schema.User,
			UserInputMultiContent: []schema.MessageInputPart{
				{Type: schema.ChatMessagePartTypeText, Text: userPrompt},
				{
					Type: schema.ChatMessagePartTypeImageURL,
					Image: &schema.MessageInputImage{
						MessagePartCommon: schema.MessagePartCommon{
							Base64Data: &data,
							MIMEType:   mimeType,
						},
					},
				},
			},
		},
	}
}

type reply struct {
	FaceDetected *bool              `json:"face_detected"`
	Expressions  map[string]float64 `json:"expressions"`
}

var aliases = map[string]mood.Expression{
	"happiness": mood.ExprHappy,
	"joy":       mood.ExprHappy,
	"sadness":   mood.ExprSad,
	"anger":     mood.ExprAngry,
	"fear":      mood.ExprFearful,
	"afraid":    mood.ExprFearful,
	"disgust":   mood.ExprDisgusted,
	"surprise":  mood.ExprSurprised,
	"calm":      mood.ExprNeutral,
}

// ParseResponse extracts the expression distribution from a model reply.
// Code fences and surrounding prose are tolerated, unknown expression names
// are dropped and scores are clamped to [0,1]. A reply without a face, or
// where every score is zero, yields capture.ErrNoSignal.
func ParseResponse(content string) (mood.Distribution, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, ErrMalformedResponse
	}

	var r reply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if r.FaceDetected != nil && !*r.FaceDetected {
		return nil, capture.ErrNoSignal
	}

	dist := make(mood.Distribution, len(r.Expressions))
	for name, score := range r.Expressions {
		expr, ok := normalizeExpression(name)
		if !ok {
			continue
		}
		dist[expr] = max(dist[expr], clamp(score))
	}

	if dist.Empty() {
		return nil, capture.ErrNoSignal
	}
	if err := dist.Validate(); err != nil {
		return nil, err
	}
	return dist, nil
}

func normalizeExpression(name string) (mood.Expression, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if e, ok := aliases[key]; ok {
		return e, true
	}
	for _, e := range mood.Expressions() {
		if string(e) == key {
			return e, true
		}
	}
	return "", false
}

// extractJSON returns the outermost {...} block of s.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
