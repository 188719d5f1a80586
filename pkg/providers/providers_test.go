package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dotsetgreg/dotchat/pkg/config"
)

func testProvider(t *testing.T, handler http.HandlerFunc) *chatCompletionsProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	auth := NewAPIKeyAuth(NewStaticTokenSource("test-key", "test"))
	p, err := newChatCompletionsProvider("groq", server.URL, "test-model", "", auth)
	if err != nil {
		t.Fatalf("newChatCompletionsProvider failed: %v", err)
	}
	return p
}

func TestChat_ParsesResponse(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{
			"model": "test-model",
			"choices": [{"message": {"content": "Kathmandu."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`)
	})

	resp, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "capital of Nepal?"}}, nil, ChatOptions{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "Kathmandu." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
}

func TestChat_APIErrorIncludesMessage(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "Invalid API Key"}}`)
	})

	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil, ChatOptions{})
	if err == nil {
		t.Fatal("expected error on 401")
	}
	if !strings.Contains(err.Error(), "Invalid API Key") {
		t.Errorf("error should carry the API message, got %v", err)
	}
}

func TestStream_TokensAndTerminalDone(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`{"model":"test-model","choices":[{"delta":{"content":"Kath"}}]}`,
			`{"choices":[{"delta":{"content":"mandu."}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		}
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var events []StreamEvent
	resp, err := p.Stream(context.Background(), []Message{{Role: RoleUser, Content: "capital?"}}, nil, ChatOptions{}, func(ev StreamEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if resp.Content != "Kathmandu." {
		t.Errorf("accumulated Content = %q", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}

	if len(events) < 3 {
		t.Fatalf("expected token events plus done, got %d", len(events))
	}
	tokens := 0
	dones := 0
	for _, ev := range events {
		switch ev.Type {
		case StreamToken:
			tokens++
		case StreamDone:
			dones++
		}
	}
	if tokens != 2 {
		t.Errorf("token events = %d, want 2", tokens)
	}
	if dones != 1 || events[len(events)-1].Type != StreamDone {
		t.Error("stream must terminate with exactly one done event")
	}
}

func TestStream_AssemblesSplitToolCall(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		frames := []string{
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"web_search","arguments":"{\"que"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"ry\":\"nepal\"}"}}]}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		}
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	resp, err := p.Stream(context.Background(), []Message{{Role: RoleUser, Content: "search nepal"}}, nil, ChatOptions{}, nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %d, want 1", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.Name != "web_search" {
		t.Errorf("Name = %q", call.Name)
	}
	if got := call.Arguments["query"]; got != "nepal" {
		t.Errorf("Arguments[query] = %v, want nepal", got)
	}
}

func TestStream_HTTPErrorEmitsErrorEvent(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limit reached"}}`)
	})

	var errEvents int
	_, err := p.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil, ChatOptions{}, func(ev StreamEvent) {
		if ev.Type == StreamError {
			errEvents++
		}
	})
	if err == nil {
		t.Fatal("expected error on 429")
	}
	if errEvents != 1 {
		t.Errorf("expected exactly one error event, got %d", errEvents)
	}
}

func TestSupportedProviders(t *testing.T) {
	names := SupportedProviders()
	for _, want := range []string{ProviderGroq, ProviderGemini, ProviderOpenAI} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("provider %q not registered (have %v)", want, names)
		}
	}
}

func TestCreateProvider_RequiresAPIKey(t *testing.T) {
	_, err := CreateProvider(ProviderGroq, config.ProviderConfig{APIBase: "https://example.com"})
	if err == nil {
		t.Fatal("expected validation error without an API key")
	}
}

func TestNewRegistry_BuildsOnlyConfigured(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Providers.Groq.APIKey = "gsk-test"

	reg, err := NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 provider, got %v", reg.Names())
	}
	if _, ok := reg.Get("groq"); !ok {
		t.Error("groq should be present")
	}
	if _, ok := reg.Get("gemini"); ok {
		t.Error("gemini should be absent without credentials")
	}
}
