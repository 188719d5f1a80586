package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const defaultHTTPTimeout = 300 * time.Second

// chatCompletionsProvider speaks the OpenAI-compatible
// /chat/completions protocol. Groq, Gemini (OpenAI-compat endpoint)
// and OpenAI all share this implementation and differ only in base
// URL, model and credentials.
type chatCompletionsProvider struct {
	providerName string
	apiBase      string
	defaultModel string
	auth         AuthStrategy
	httpClient   *http.Client
}

func newChatCompletionsProvider(providerName, apiBase, defaultModel, proxy string, auth AuthStrategy) (*chatCompletionsProvider, error) {
	providerName = strings.TrimSpace(strings.ToLower(providerName))
	if providerName == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		return nil, fmt.Errorf("%s API base not configured", providerName)
	}
	if auth == nil {
		return nil, fmt.Errorf("%s auth is not configured", providerName)
	}

	client := &http.Client{Timeout: defaultHTTPTimeout}
	proxy = strings.TrimSpace(proxy)
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse %s proxy: %w", providerName, err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	return &chatCompletionsProvider{
		providerName: providerName,
		apiBase:      apiBase,
		defaultModel: strings.TrimSpace(defaultModel),
		auth:         auth,
		httpClient:   client,
	}, nil
}

func (p *chatCompletionsProvider) Name() string {
	return p.providerName
}

func (p *chatCompletionsProvider) DefaultModel() string {
	return p.defaultModel
}

func (p *chatCompletionsProvider) buildRequest(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions, stream bool) (*http.Request, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = p.defaultModel
	}

	requestBody := map[string]interface{}{
		"model":    model,
		"messages": messages,
	}
	if stream {
		requestBody["stream"] = true
	}
	if len(tools) > 0 {
		requestBody["tools"] = tools
		requestBody["tool_choice"] = "auto"
	}
	if opts.MaxTokens > 0 {
		requestBody["max_tokens"] = opts.MaxTokens
	}
	if opts.Temperature != nil {
		requestBody["temperature"] = *opts.Temperature
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", p.providerName, err)
	}

	endpoint := p.apiBase + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", p.providerName, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	}
	if err := p.auth.Apply(ctx, req); err != nil {
		return nil, fmt.Errorf("apply %s auth: %w", p.providerName, err)
	}
	return req, nil
}

func (p *chatCompletionsProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions) (*LLMResponse, error) {
	if p == nil {
		return nil, fmt.Errorf("provider not initialized")
	}

	req, err := p.buildRequest(ctx, messages, tools, opts, false)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send %s request: %w", p.providerName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", p.providerName, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := augmentProviderError(p.providerName, extractAPIError(body))
		return nil, fmt.Errorf("%s API request failed: status=%d error=%s", p.providerName, resp.StatusCode, msg)
	}

	result, err := parseChatCompletionsResponse(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s response: %w", p.providerName, err)
	}
	return result, nil
}

// streamChunk is one SSE delta frame of a chat-completions stream.
type streamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *UsageInfo `json:"usage"`
}

// Stream runs a streaming completion, invoking cb for each event. The
// returned LLMResponse always carries whatever content accumulated,
// including on error, so callers can persist partial replies.
func (p *chatCompletionsProvider) Stream(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions, cb StreamCallback) (*LLMResponse, error) {
	if p == nil {
		return nil, fmt.Errorf("provider not initialized")
	}
	if cb == nil {
		cb = func(StreamEvent) {}
	}

	accumulated := &LLMResponse{Model: strings.TrimSpace(opts.Model)}
	if accumulated.Model == "" {
		accumulated.Model = p.defaultModel
	}

	fail := func(err error) (*LLMResponse, error) {
		cb(StreamEvent{Type: StreamError, Err: err})
		return accumulated, err
	}

	req, err := p.buildRequest(ctx, messages, tools, opts, true)
	if err != nil {
		return fail(err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("send %s request: %w", p.providerName, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		msg := augmentProviderError(p.providerName, extractAPIError(body))
		return fail(fmt.Errorf("%s API request failed: status=%d error=%s", p.providerName, resp.StatusCode, msg))
	}

	var content strings.Builder
	// Tool-call fragments arrive split across deltas, keyed by index.
	pendingCalls := map[int]*ToolCall{}
	pendingArgs := map[int]*strings.Builder{}

	reader := bufio.NewReader(resp.Body)
	for {
		select {
		case <-ctx.Done():
			accumulated.Content = content.String()
			return accumulated, ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			accumulated.Content = content.String()
			return fail(fmt.Errorf("read %s stream: %w", p.providerName, err))
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if !strings.HasPrefix(line, "data:") || data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Malformed frames are skipped, not fatal.
			continue
		}
		if chunk.Model != "" {
			accumulated.Model = chunk.Model
		}
		if chunk.Usage != nil {
			accumulated.Usage = chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			content.WriteString(choice.Delta.Content)
			cb(StreamEvent{Type: StreamToken, Token: choice.Delta.Content})
		}
		for _, tc := range choice.Delta.ToolCalls {
			call, ok := pendingCalls[tc.Index]
			if !ok {
				call = &ToolCall{ID: tc.ID, Type: tc.Type}
				pendingCalls[tc.Index] = call
				pendingArgs[tc.Index] = &strings.Builder{}
			}
			if tc.Function.Name != "" {
				call.Name = tc.Function.Name
			}
			pendingArgs[tc.Index].WriteString(tc.Function.Arguments)
		}
		if choice.FinishReason != "" {
			accumulated.FinishReason = choice.FinishReason
		}
	}

	indexes := make([]int, 0, len(pendingCalls))
	for idx := range pendingCalls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		call := pendingCalls[idx]
		call.Arguments = map[string]interface{}{}
		raw := pendingArgs[idx].String()
		if strings.TrimSpace(raw) != "" {
			if err := json.Unmarshal([]byte(raw), &call.Arguments); err != nil {
				call.Arguments = map[string]interface{}{"raw": raw}
			}
		}
		accumulated.ToolCalls = append(accumulated.ToolCalls, *call)
		cb(StreamEvent{Type: StreamToolCall, ToolCall: call})
	}

	accumulated.Content = content.String()
	cb(StreamEvent{Type: StreamDone, Response: accumulated})
	return accumulated, nil
}

func parseChatCompletionsResponse(body []byte) (*LLMResponse, error) {
	var apiResponse struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content   interface{} `json:"content"`
				ToolCalls []struct {
					ID       string `json:"id"`
					Type     string `json:"type"`
					Function *struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage *UsageInfo `json:"usage"`
	}

	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, err
	}

	if len(apiResponse.Choices) == 0 {
		return &LLMResponse{Content: "", FinishReason: "stop", Model: apiResponse.Model}, nil
	}

	choice := apiResponse.Choices[0]
	toolCalls := make([]ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		if tc.Function == nil {
			continue
		}

		arguments := map[string]interface{}{}
		if strings.TrimSpace(tc.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &arguments); err != nil {
				arguments["raw"] = tc.Function.Arguments
			}
		}

		toolCalls = append(toolCalls, ToolCall{
			ID:        tc.ID,
			Type:      tc.Type,
			Name:      tc.Function.Name,
			Arguments: arguments,
		})
	}

	return &LLMResponse{
		Content:      flattenMessageContent(choice.Message.Content),
		ToolCalls:    toolCalls,
		FinishReason: choice.FinishReason,
		Usage:        apiResponse.Usage,
		Model:        apiResponse.Model,
	}, nil
}

func flattenMessageContent(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if text, ok := m["text"].(string); ok {
				parts = append(parts, text)
				continue
			}
			if content, ok := m["content"].(string); ok {
				parts = append(parts, content)
			}
		}
		return strings.Join(parts, "")
	default:
		return ""
	}
}

func extractAPIError(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "empty response body"
	}

	var payload struct {
		Error struct {
			Message string      `json:"message"`
			Type    string      `json:"type"`
			Code    interface{} `json:"code"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Error.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
	}

	if len(trimmed) > 2000 {
		return trimmed[:2000] + "..."
	}
	return trimmed
}
