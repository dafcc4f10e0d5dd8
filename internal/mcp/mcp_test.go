package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dohr-michael/moodstream/internal/feed"
	"github.com/dohr-michael/moodstream/internal/history"
	"github.com/dohr-michael/moodstream/internal/mood"
)

type fakeFeed struct{}

func (fakeFeed) ForMood(_ context.Context, l mood.Label) (feed.Feed, error) {
	return feed.Feed{Kind: feed.KindMood, Mood: l, Query: "q"}, nil
}

func (fakeFeed) ForQuery(_ context.Context, q string) (feed.Feed, error) {
	if strings.TrimSpace(q) == "" {
		return feed.Feed{}, feed.ErrEmptyQuery
	}
	return feed.Feed{Kind: feed.KindSearch, Query: q}, nil
}

type fakeHistory struct{ limit int }

func (f *fakeHistory) List(_ context.Context, limit int) ([]history.Entry, error) {
	f.limit = limit
	return []history.Entry{{ID: "1", Label: mood.Calm}}, nil
}

func findTool(t *testing.T, tools []tool, name string) tool {
	t.Helper()
	for _, tl := range tools {
		if tl.spec.Name == name {
			return tl
		}
	}
	t.Fatalf("tool %q not registered", name)
	return tool{}
}

func textOf(t *testing.T, res *mcpsdk.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return text.Text
}

func TestToolSpecToMCPTool(t *testing.T) {
	spec := &ToolSpec{
		Name:        "test_tool",
		Description: "A test tool",
		Parameters: map[string]ParamSpec{
			"name":  {Type: "string", Description: "The name", Required: true},
			"count": {Type: "integer", Description: "A count"},
			"mode":  {Type: "string", Description: "The mode", Required: true, Enum: []string{"fast", "slow"}},
		},
	}

	mcpTool, _, err := toolSpecToMCPTool(spec)
	if err != nil {
		t.Fatal(err)
	}
	if mcpTool.Name != "test_tool" || mcpTool.Description != "A test tool" {
		t.Errorf("unexpected tool %+v", mcpTool)
	}

	schemaBytes, err := json.Marshal(mcpTool.InputSchema)
	if err != nil {
		t.Fatalf("marshal InputSchema: %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		t.Fatalf("unmarshal InputSchema: %v", err)
	}

	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want %q", schema["type"], "object")
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok || len(props) != 3 {
		t.Fatalf("schema properties = %v", schema["properties"])
	}

	// Sorted: mode, name
	req, ok := schema["required"].([]any)
	if !ok || len(req) != 2 || req[0] != "mode" || req[1] != "name" {
		t.Errorf("schema required = %v, want [mode, name]", schema["required"])
	}
}

func TestToolSpecToMCPTool_NoParams(t *testing.T) {
	mcpTool, _, err := toolSpecToMCPTool(&ToolSpec{Name: "simple", Parameters: map[string]ParamSpec{}})
	if err != nil {
		t.Fatal(err)
	}

	schemaBytes, _ := json.Marshal(mcpTool.InputSchema)
	var schema map[string]any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		t.Fatal(err)
	}
	if _, ok := schema["required"]; ok {
		t.Error("schema should not have required field when no params are required")
	}
}

func TestValidateArgs(t *testing.T) {
	_, schema, err := toolSpecToMCPTool(&ToolSpec{
		Name: "feed_for_mood",
		Parameters: map[string]ParamSpec{
			"mood":  {Type: "string", Required: true, Enum: []string{"happy", "calm"}},
			"limit": {Type: "integer", Default: 10},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		args    string
		wantErr bool
	}{
		{`{"mood":"happy"}`, false},
		{`{"mood":"calm","limit":5}`, false},
		{`{"mood":"angry"}`, true},
		{`{"limit":5}`, true},
		{`{"mood":"happy","limit":"five"}`, true},
		{``, true},
		{`not json`, true},
	}
	for _, tt := range tests {
		err := validateArgs(schema, json.RawMessage(tt.args))
		if (err != nil) != tt.wantErr {
			t.Errorf("validateArgs(%q) = %v, wantErr %v", tt.args, err, tt.wantErr)
		}
	}
}

func TestTools_ListMoods(t *testing.T) {
	tl := findTool(t, buildTools(Services{Feed: fakeFeed{}}), "list_moods")
	res := callTool(context.Background(), "list_moods", tl.run, nil)
	if res.IsError {
		t.Fatal(textOf(t, res))
	}
	var moods []map[string]any
	if err := json.Unmarshal([]byte(textOf(t, res)), &moods); err != nil {
		t.Fatal(err)
	}
	if len(moods) != len(mood.Labels()) {
		t.Fatalf("got %d moods", len(moods))
	}
}

func TestTools_FeedForMood(t *testing.T) {
	tl := findTool(t, buildTools(Services{Feed: fakeFeed{}}), "feed_for_mood")

	res := callTool(context.Background(), "feed_for_mood", tl.run, json.RawMessage(`{"mood":"surprised"}`))
	if res.IsError || !strings.Contains(textOf(t, res), `"mood": "surprised"`) {
		t.Fatalf("unexpected result %s", textOf(t, res))
	}

	res = callTool(context.Background(), "feed_for_mood", tl.run, json.RawMessage(`{"mood":"bored"}`))
	if !res.IsError {
		t.Fatal("expected error for unknown mood")
	}
}

func TestTools_SearchVideos(t *testing.T) {
	tl := findTool(t, buildTools(Services{Feed: fakeFeed{}}), "search_videos")

	res := callTool(context.Background(), "search_videos", tl.run, json.RawMessage(`{"query":""}`))
	if !res.IsError || textOf(t, res) != feed.ErrEmptyQuery.Error() {
		t.Fatalf("expected empty query error, got %s", textOf(t, res))
	}

	res = callTool(context.Background(), "search_videos", tl.run, json.RawMessage(`{`))
	if !res.IsError {
		t.Fatal("expected error for malformed arguments")
	}
}

func TestTools_RecentMoods(t *testing.T) {
	if len(buildTools(Services{Feed: fakeFeed{}})) != 3 {
		t.Fatal("recent_moods must not be offered without history")
	}

	hist := &fakeHistory{}
	tl := findTool(t, buildTools(Services{Feed: fakeFeed{}, History: hist}), "recent_moods")

	res := callTool(context.Background(), "recent_moods", tl.run, nil)
	if res.IsError || hist.limit != 10 {
		t.Fatalf("default limit = %d, result %s", hist.limit, textOf(t, res))
	}
	_ = callTool(context.Background(), "recent_moods", tl.run, json.RawMessage(`{"limit": 3}`))
	if hist.limit != 3 {
		t.Fatalf("limit = %d", hist.limit)
	}
}

func TestNewMCPServer(t *testing.T) {
	svc := Services{Feed: fakeFeed{}, History: &fakeHistory{}}

	if s, err := NewMCPServer(svc, ""); err != nil || s == nil {
		t.Fatalf("NewMCPServer: %v", err)
	}
	if s, err := NewMCPServer(svc, "search_videos, list_moods"); err != nil || s == nil {
		t.Fatalf("NewMCPServer with filter: %v", err)
	}
	if _, err := NewMCPServer(svc, "nope"); !errors.Is(err, errNoTools) {
		t.Fatalf("expected errNoTools, got %v", err)
	}
}

func TestMatchesFilter(t *testing.T) {
	if !matchesFilter("list_moods", "feed_for_mood, list_moods") {
		t.Error("expected match")
	}
	if matchesFilter("list_moods", "list") {
		t.Error("prefix must not match")
	}
}
