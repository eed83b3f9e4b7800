package llm

import (
	"fmt"
	"strings"
	"time"
)

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// choice tolerates providers that answer with the streaming delta shape or
// the legacy completions text field.
type choice struct {
	Message      replyMessage `json:"message"`
	Delta        replyMessage `json:"delta"`
	Text         string       `json:"text"`
	FinishReason string       `json:"finish_reason"`
}

type replyMessage struct {
	Content   string `json:"content"`
	Refusal   string `json:"refusal"`
	ToolCalls []struct {
		Function functionCall `json:"function"`
	} `json:"tool_calls"`
	FunctionCall *functionCall `json:"function_call"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// arguments returns the first non-empty function or tool call payload.
func (m replyMessage) arguments() string {
	if m.FunctionCall != nil {
		if args := strings.TrimSpace(m.FunctionCall.Arguments); args != "" {
			return args
		}
	}
	for _, call := range m.ToolCalls {
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			return args
		}
	}
	return ""
}

// content picks the reply text, falling back to call arguments. It also
// reports the first finish reason and refusal seen.
func (r chatCompletionResponse) content() (text, finishReason, refusal string) {
	for _, c := range r.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(c.FinishReason)
		}
		if refusal == "" {
			refusal = strings.TrimSpace(c.Message.Refusal + c.Delta.Refusal)
		}
		for _, candidate := range []string{c.Message.Content, c.Delta.Content, c.Text, c.Message.arguments(), c.Delta.arguments()} {
			if candidate = strings.TrimSpace(candidate); candidate != "" {
				return candidate, finishReason, refusal
			}
		}
	}
	return "", finishReason, refusal
}

type statusError struct {
	code       int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.code, e.body)
}

// emptyReplyError is a successful response with nothing usable in it.
type emptyReplyError struct {
	reason       string
	finishReason string
	refusal      string
	snippet      string
}

func (e *emptyReplyError) Error() string {
	if e.reason != "" {
		return fmt.Sprintf("llm response: empty content (%s, response_snippet=%s)", e.reason, e.snippet)
	}
	return fmt.Sprintf("llm response: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.finishReason, e.refusal, e.snippet)
}

// snippet flattens whitespace and caps a payload for error messages.
func snippet(payload string) string {
	flat := strings.Join(strings.Fields(payload), " ")
	if flat == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(flat); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return flat
}
