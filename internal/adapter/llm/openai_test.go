package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"trialmatch/internal/domain"
	"trialmatch/internal/infra/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const openaiChatFixture = `{
	"id": "chatcmpl-1",
	"model": "gpt-4o-mini",
	"created": 1700000000,
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "Maria Garcia is eligible for CP001."},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 120, "completion_tokens": 15, "total_tokens": 135}
}`

func TestOpenAIChat(t *testing.T) {
	var gotReq openaiRequest
	var gotAuth, gotAccount string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotAccount = r.Header.Get("x-selected-account-id")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Error(err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, openaiChatFixture)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.ProviderConfig{
		Name:    "openai",
		BaseURL: srv.URL,
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		Headers: map[string]string{"x-selected-account-id": "acct-1"},
	}, testLogger())

	resp, err := p.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "You are an enrollment assistant."},
			{Role: domain.RoleUser, Content: "Who is eligible for CP001?"},
		},
		Tools: []domain.ToolSchema{
			{Name: "find_candidates_for_program", Description: "d", Parameters: json.RawMessage(`{"type":"object"}`)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotAccount != "acct-1" {
		t.Errorf("x-selected-account-id = %q", gotAccount)
	}
	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, default not applied", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if len(gotReq.Tools) != 1 || gotReq.Tools[0].Function.Name != "find_candidates_for_program" {
		t.Errorf("tools = %+v", gotReq.Tools)
	}

	if resp.Message.Content != "Maria Garcia is eligible for CP001." {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if resp.Usage.TotalTokens != 135 {
		t.Errorf("tokens = %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAIChatToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"id": "chatcmpl-2",
			"model": "gpt-4o-mini",
			"choices": [{
				"message": {
					"role": "assistant",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "find_person_by_name", "arguments": "{\"name\": \"jon smith\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 50, "completion_tokens": 10, "total_tokens": 60}
		}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.ProviderConfig{Name: "openai", BaseURL: srv.URL}, testLogger())

	resp, err := p.Chat(context.Background(), domain.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "find jon smith"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "find_person_by_name" {
		t.Errorf("tool call = %+v", tc)
	}
	var args map[string]string
	if err := json.Unmarshal(tc.Arguments, &args); err != nil {
		t.Fatalf("arguments not JSON: %v", err)
	}
	if args["name"] != "jon smith" {
		t.Errorf("arguments = %v", args)
	}
}

func TestOpenAIToolResultMessage(t *testing.T) {
	req := domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleTool, Content: "result", ToolCalls: []domain.ToolCall{{ID: "call_9"}}},
		},
	}
	oai := toOpenAIRequest(req)
	if oai.Messages[0].ToolCallID != "call_9" {
		t.Errorf("tool_call_id = %q", oai.Messages[0].ToolCallID)
	}
	if len(oai.Messages[0].ToolCalls) != 0 {
		t.Error("tool result must not echo tool_calls")
	}
}

func TestOpenAIErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimit},
		{http.StatusUnauthorized, domain.ErrAuthInvalid},
		{http.StatusForbidden, domain.ErrAuthInvalid},
		{http.StatusRequestEntityTooLarge, domain.ErrContextOverflow},
		{http.StatusBadGateway, domain.ErrProviderError},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tt.status)
		}))

		p := NewOpenAIProvider(config.ProviderConfig{Name: "openai", BaseURL: srv.URL}, testLogger())
		_, err := p.Chat(context.Background(), domain.ChatRequest{Model: "m"})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: got %v, want %v", tt.status, err, tt.want)
		}
		srv.Close()
	}
}
