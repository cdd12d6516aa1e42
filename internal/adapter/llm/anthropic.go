package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"trialmatch/internal/domain"
	"trialmatch/internal/infra/config"
	"trialmatch/internal/infra/tracer"
)

const defaultAnthropicVersion = "2023-06-01"

// AnthropicProvider implements domain.LLMProvider for the Anthropic Messages API.
type AnthropicProvider struct {
	name    string
	model   string
	apiKey  string
	baseURL string
	headers map[string]string
	client  *http.Client
	logger  *slog.Logger
	version string
}

// NewAnthropicProvider creates a provider for the Anthropic Messages API.
func NewAnthropicProvider(cfg config.ProviderConfig, logger *slog.Logger) *AnthropicProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	return &AnthropicProvider{
		name:    cfg.Name,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		headers: cfg.Headers,
		client:  NewHTTPClient(cfg),
		logger:  logger,
		version: defaultAnthropicVersion,
	}
}

// Chat implements domain.LLMProvider.
func (p *AnthropicProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.chat",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", p.name),
			tracer.StringAttr("llm.model", req.Model),
		),
	)
	defer span.End()

	if req.Model == "" {
		req.Model = p.model
	}

	body, err := json.Marshal(toAnthropicRequest(req))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": p.version,
	}
	for k, v := range p.headers {
		headers[k] = v
	}

	respBody, err := doJSONRequest(ctx, p.client, p.baseURL+"/v1/messages", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var antResp anthropicResponse
	if err := json.Unmarshal(respBody, &antResp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	result := fromAnthropicResponse(antResp)
	setUsageAttrs(span, result.Usage)
	tracer.SetOK(span)
	logChatCompleted(p.logger, p.name, result)

	return result, nil
}

// Name implements domain.LLMProvider.
func (p *AnthropicProvider) Name() string { return p.name }

// --- Anthropic API wire types ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
	Usage   anthropicUsage     `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func toAnthropicRequest(req domain.ChatRequest) anthropicRequest {
	antReq := anthropicRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	}

	if antReq.MaxTokens <= 0 {
		antReq.MaxTokens = 4096
	}

	// System prompts move to the top-level field.
	for _, m := range req.Messages {
		if m.Role == domain.RoleSystem {
			antReq.System = m.Content
			continue
		}

		if m.Role == domain.RoleTool {
			antReq.Messages = append(antReq.Messages, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{
					{
						Type:      "tool_result",
						ToolUseID: extractToolCallID(m),
						Content:   m.Content,
					},
				},
			})
			continue
		}

		antMsg := anthropicMessage{Role: m.Role}
		if len(m.ToolCalls) > 0 {
			if m.Content != "" {
				antMsg.Content = append(antMsg.Content, anthropicContent{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				antMsg.Content = append(antMsg.Content, anthropicContent{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: tc.Arguments,
				})
			}
		} else {
			antMsg.Content = append(antMsg.Content, anthropicContent{Type: "text", Text: m.Content})
		}

		antReq.Messages = append(antReq.Messages, antMsg)
	}

	for _, t := range req.Tools {
		antReq.Tools = append(antReq.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	return antReq
}

func extractToolCallID(m domain.Message) string {
	if len(m.ToolCalls) > 0 {
		return m.ToolCalls[0].ID
	}
	return ""
}

func fromAnthropicResponse(resp anthropicResponse) *domain.ChatResponse {
	result := &domain.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		CreatedAt: time.Now(),
	}

	msg := domain.Message{
		Role:      domain.RoleAssistant,
		Timestamp: result.CreatedAt,
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			msg.Content = block.Text
		case "tool_use":
			msg.ToolCalls = append(msg.ToolCalls, domain.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}

	result.Message = msg
	return result
}

var _ domain.LLMProvider = (*AnthropicProvider)(nil)
