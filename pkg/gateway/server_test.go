package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dotsetgreg/dotchat/pkg/agent"
	"github.com/dotsetgreg/dotchat/pkg/config"
	"github.com/dotsetgreg/dotchat/pkg/convo"
	"github.com/dotsetgreg/dotchat/pkg/providers"
	"github.com/dotsetgreg/dotchat/pkg/tools"
)

type scriptedProvider struct {
	name  string
	reply string
}

func (p *scriptedProvider) Name() string         { return p.name }
func (p *scriptedProvider) DefaultModel() string { return "scripted" }

func (p *scriptedProvider) Chat(ctx context.Context, messages []providers.Message, defs []providers.ToolDefinition, opts providers.ChatOptions) (*providers.LLMResponse, error) {
	return &providers.LLMResponse{Content: p.reply}, nil
}

func (p *scriptedProvider) Stream(ctx context.Context, messages []providers.Message, defs []providers.ToolDefinition, opts providers.ChatOptions, cb providers.StreamCallback) (*providers.LLMResponse, error) {
	if cb != nil {
		for _, word := range strings.SplitAfter(p.reply, " ") {
			cb(providers.StreamEvent{Type: providers.StreamToken, Token: word})
		}
	}
	resp := &providers.LLMResponse{Content: p.reply, FinishReason: "stop"}
	if cb != nil {
		cb(providers.StreamEvent{Type: providers.StreamDone, Response: resp})
	}
	return resp, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Providers.Groq.APIKey = "gsk-test"
	cfg.Providers.Gemini.APIKey = "gk-test"
	cfg.Tools.Web.DuckDuckGo.Enabled = false
	cfg.Tools.Weather.Enabled = false
	cfg.Tools.SystemInfo = false
	cfg.Tools.FileSearch.Enabled = false

	store, err := convo.NewStore("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := &providers.Registry{}
	reg.Register("groq", &scriptedProvider{name: "groq", reply: "Kathmandu is the capital."})
	reg.Register("gemini", &scriptedProvider{name: "gemini", reply: "More detail follows."})

	orch := agent.NewOrchestrator(cfg, store, reg, tools.NewToolRegistry())
	return NewServer(cfg, orch, store, reg)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status    string   `json:"status"`
		Providers []string `json:"providers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body.Status)
	require.Contains(t, body.Providers, "groq")
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestChatStream_EmitsTokensAndDone(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/chat/stream", agent.ChatRequest{Message: "Tell me about Nepal"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []agent.Event
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev agent.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())

	require.NotEmpty(t, events)
	require.Equal(t, agent.EventDone, events[len(events)-1].Type)

	var tokens, dones int
	content := ""
	for _, ev := range events {
		switch ev.Type {
		case agent.EventToken:
			tokens++
			content += ev.Token
		case agent.EventDone:
			dones++
		}
	}
	require.Greater(t, tokens, 0)
	require.Equal(t, 1, dones)
	require.Equal(t, "Kathmandu is the capital.", content)
}

func TestChat_Synchronous(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/chat", agent.ChatRequest{Message: "Tell me about Nepal"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result agent.ChatResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotEmpty(t, result.ConversationID)
	require.Equal(t, "Kathmandu is the capital.", result.Content)
	require.Equal(t, "groq", result.Provider)
}

func TestChat_BadBody(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConversationLifecycle(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	chatResp := postJSON(t, ts.URL+"/api/chat", agent.ChatRequest{Message: "Tell me about Nepal"})
	var result agent.ChatResult
	require.NoError(t, json.NewDecoder(chatResp.Body).Decode(&result))
	chatResp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/conversations")
	require.NoError(t, err)
	var listing struct {
		Conversations []convo.ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	resp.Body.Close()
	require.Len(t, listing.Conversations, 1)
	require.Equal(t, result.ConversationID, listing.Conversations[0].ID)

	resp, err = http.Get(ts.URL + "/api/conversations/" + result.ConversationID)
	require.NoError(t, err)
	var conv convo.Conversation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conv))
	resp.Body.Close()
	require.Len(t, conv.Turns, 2)

	renameResp := postJSON(t, ts.URL+"/api/conversations/"+result.ConversationID+"/rename", map[string]string{"name": "Nepal facts"})
	require.Equal(t, http.StatusOK, renameResp.StatusCode)
	renameResp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/conversations/"+result.ConversationID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, delResp.StatusCode)
	delResp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/conversations/" + result.ConversationID)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestProjectLifecycle(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	createResp := postJSON(t, ts.URL+"/api/projects", map[string]interface{}{
		"name":    "travel",
		"context": map[string]string{"focus": "South Asia itineraries"},
	})
	require.Equal(t, http.StatusCreated, createResp.StatusCode)
	var project convo.Project
	require.NoError(t, json.NewDecoder(createResp.Body).Decode(&project))
	createResp.Body.Close()
	require.NotEmpty(t, project.ID)

	resp, err := http.Get(ts.URL + "/api/projects/" + project.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/projects/"+project.ID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, delResp.StatusCode)
	delResp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/projects/" + project.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestWebSocketChat(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":    "message",
		"message": "Tell me about Nepal",
	}))

	var sawToken bool
	for {
		var ev agent.Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == agent.EventToken {
			sawToken = true
		}
		if ev.Type == agent.EventDone {
			break
		}
		if ev.Type == agent.EventError {
			t.Fatalf("unexpected error frame: %s", ev.Error)
		}
	}
	require.True(t, sawToken)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
