package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"trialmatch/internal/domain"
	"trialmatch/internal/infra/tracer"
)

// Execute is the standard tool execution pipeline: parse params -> start trace -> run handler -> format result.
//
// The handler receives the parsed params and an active trace span. It should return:
//   - (any Go value, nil) — the value is JSON-marshaled into a success ToolResult
//   - (string, nil) — wrapped in a plain-text ToolResult
//   - (*domain.ToolResult, nil) — returned as-is (for custom formatting)
//   - (nil, error) — turned into an error ToolResult with logging
func Execute[P any](
	ctx context.Context,
	spanName string,
	logger *slog.Logger,
	rawParams json.RawMessage,
	handler func(ctx context.Context, span trace.Span, params P) (any, error),
) (*domain.ToolResult, error) {
	ctx, span := tracer.StartSpan(ctx, spanName,
		trace.WithAttributes(tracer.StringAttr("tool.name", spanName)),
	)
	defer span.End()

	var p P
	if err := json.Unmarshal(rawParams, &p); err != nil {
		tracer.RecordError(span, err)
		return &domain.ToolResult{IsError: true, Content: fmt.Sprintf("invalid params: %v", err)}, nil
	}

	result, err := handler(ctx, span, p)
	if err != nil {
		tracer.RecordError(span, err)
		logger.Warn(spanName+" failed", "error", err)

		retryable := domain.IsRetryableError(err)
		content := err.Error()
		if retryable {
			content += " (transient error, may succeed on retry)"
		}
		return &domain.ToolResult{IsError: true, IsRetryable: retryable, Content: content}, nil
	}

	return formatResult(span, result)
}

// formatResult converts the handler's return value into a ToolResult.
func formatResult(span trace.Span, result any) (*domain.ToolResult, error) {
	switch v := result.(type) {
	case *domain.ToolResult:
		if v.IsError {
			tracer.RecordError(span, fmt.Errorf("%s", v.Content))
		} else {
			tracer.SetOK(span)
		}
		return v, nil
	case string:
		tracer.SetOK(span)
		return &domain.ToolResult{Content: v}, nil
	default:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			tracer.RecordError(span, err)
			return &domain.ToolResult{
				IsError: true,
				Content: fmt.Sprintf("failed to format response: %v", err),
			}, nil
		}
		tracer.SetOK(span)
		return &domain.ToolResult{Content: string(data)}, nil
	}
}

// ErrResult creates an error ToolResult. Use this for validation errors inside handlers
// that should be returned to the LLM without being logged as warnings.
func ErrResult(format string, args ...any) (*domain.ToolResult, error) {
	return &domain.ToolResult{
		IsError: true,
		Content: fmt.Sprintf(format, args...),
	}, nil
}
