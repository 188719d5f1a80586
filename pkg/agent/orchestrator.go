package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dotsetgreg/dotchat/pkg/budget"
	"github.com/dotsetgreg/dotchat/pkg/config"
	"github.com/dotsetgreg/dotchat/pkg/convo"
	"github.com/dotsetgreg/dotchat/pkg/logger"
	"github.com/dotsetgreg/dotchat/pkg/metrics"
	"github.com/dotsetgreg/dotchat/pkg/providers"
	"github.com/dotsetgreg/dotchat/pkg/routing"
	"github.com/dotsetgreg/dotchat/pkg/tools"
	"github.com/dotsetgreg/dotchat/pkg/topic"
)

// ChatRequest is one incoming user message.
type ChatRequest struct {
	Message        string  `json:"message"`
	ConversationID string  `json:"conversation_id,omitempty"`
	ProjectID      string  `json:"project_id,omitempty"`
	Language       string  `json:"language,omitempty"`
	// Temperature is a pointer so an explicit 0 is distinguishable
	// from unset.
	Temperature *float64 `json:"temperature,omitempty"`
	// Provider/Model override routing when set.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// ChatResult is the terminal summary of a processed exchange.
type ChatResult struct {
	ConversationID string   `json:"conversation_id"`
	Content        string   `json:"content"`
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	Intent         string   `json:"intent"`
	Complexity     string   `json:"complexity"`
	FollowUps      []string `json:"followups,omitempty"`
}

type toolOutcome struct {
	request tools.ToolRequest
	result  *tools.ToolResult
}

// Orchestrator drives a chat request through context resolution, tool
// grounding, routing, the model stream, and persistence.
type Orchestrator struct {
	cfg       *config.Config
	store     *convo.Store
	registry  *providers.Registry
	tools     *tools.ToolRegistry
	triggers  *tools.TriggerEngine
	extractor *topic.Extractor
	resolver  *topic.Resolver
	router    *routing.Router
}

func NewOrchestrator(cfg *config.Config, store *convo.Store, registry *providers.Registry, toolRegistry *tools.ToolRegistry) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		registry:  registry,
		tools:     toolRegistry,
		triggers:  tools.NewTriggerEngine(cfg.Tools),
		extractor: topic.NewExtractor(cfg.Chat.AssistantName, cfg.Chat.ContextTurns),
		resolver:  &topic.Resolver{},
		router:    routing.NewRouter(cfg),
	}
}

// Process runs one exchange. Events stream to sink as they happen; the
// sink always receives exactly one terminal done or error frame. The
// returned result mirrors the done frame.
func (o *Orchestrator) Process(ctx context.Context, req ChatRequest, sink EventSink) (*ChatResult, error) {
	start := time.Now()
	current := stateReceived
	advance := func(s state) {
		current = s
		logger.DebugCF("agent", "State transition",
			map[string]interface{}{"state": string(s)})
	}

	fail := func(err error) (*ChatResult, error) {
		logger.ErrorCF("agent", "Chat request failed",
			map[string]interface{}{
				"state": string(current),
				"error": err.Error(),
			})
		sink.emit(Event{Type: EventError, Error: err.Error()})
		return nil, err
	}

	if strings.TrimSpace(req.Message) == "" {
		return fail(errors.New("empty message"))
	}

	// RECEIVED: resolve the conversation and append the user turn.
	conv, err := o.store.GetOrCreate(ctx, req.ConversationID, req.ProjectID)
	if err != nil {
		return fail(fmt.Errorf("resolve conversation: %w", err))
	}
	sink.emit(Event{Type: EventConversation, ConversationID: conv.ID})

	history := conv.Turns
	if _, err := o.store.Append(ctx, conv.ID, convo.Turn{
		Role:    convo.RoleUser,
		Content: req.Message,
	}); err != nil {
		return fail(fmt.Errorf("append user turn: %w", err))
	}

	// CONTEXT_RESOLVED: topics, resolution, intent.
	tctx := o.extractor.Extract(history, req.Message)
	resolution := o.resolver.Resolve(req.Message, tctx)
	advance(stateContextResolved)

	logger.DebugCF("agent", "Context resolved",
		map[string]interface{}{
			"conversation_id": conv.ID,
			"topic":           tctx.CurrentTopic,
			"intent":          tctx.Intent,
			"complexity":      tctx.Complexity,
			"followup":        tctx.IsFollowUp,
			"rewritten":       resolution.Rewritten,
		})

	// TOOLS_EXECUTED: best-effort grounding, failures skipped.
	outcomes := o.runTools(ctx, resolution.Question, sink)
	advance(stateToolsExecuted)

	// MODEL_STREAMING
	var pref *routing.Decision
	if req.Provider != "" {
		pref = &routing.Decision{Provider: req.Provider, Model: req.Model}
	}
	language := req.Language
	if language == "" {
		language = o.cfg.Chat.DefaultLanguage
	}
	decision, err := o.router.Select(resolution.Question, language, tctx.Complexity, tctx.IsFollowUp, pref)
	if err != nil {
		return fail(err)
	}
	provider, ok := o.registry.Get(decision.Provider)
	if !ok {
		return fail(fmt.Errorf("provider %q selected but not registered", decision.Provider))
	}

	systemPrompt := o.buildSystemPrompt(ctx, conv.ProjectID, tctx, outcomes)
	bounded := budget.BoundHistory(history, o.cfg.Budgets.Budget(decision.Provider), systemPrompt, resolution.Question)

	messages := make([]providers.Message, 0, len(bounded)+2)
	messages = append(messages, providers.Message{Role: providers.RoleSystem, Content: systemPrompt})
	for _, t := range bounded {
		role := t.Role
		if role != convo.RoleUser && role != convo.RoleAssistant {
			continue
		}
		messages = append(messages, providers.Message{Role: role, Content: t.Content})
	}
	messages = append(messages, providers.Message{Role: providers.RoleUser, Content: resolution.Question})

	temperature := o.cfg.Chat.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	opts := providers.ChatOptions{
		Model:       decision.Model,
		Temperature: &temperature,
		MaxTokens:   o.cfg.Chat.MaxTokens,
	}

	advance(stateModelStreaming)
	streamStart := time.Now()
	resp, streamErr := provider.Stream(ctx, messages, nil, opts, func(ev providers.StreamEvent) {
		if ev.Type == providers.StreamToken {
			sink.emit(Event{Type: EventToken, Token: ev.Token})
		}
	})
	metrics.ProviderLatency.WithLabelValues(decision.Provider).Observe(time.Since(streamStart).Seconds())

	// Persist whatever content accumulated, even on a broken stream.
	content := ""
	if resp != nil {
		content = strings.TrimSpace(resp.Content)
	}
	if content != "" {
		assistantTurn := convo.Turn{
			Role:      convo.RoleAssistant,
			Content:   content,
			ToolCalls: toolCallRecords(outcomes),
		}
		if _, err := o.store.Append(ctx, conv.ID, assistantTurn); err != nil {
			logger.WarnCF("agent", "Assistant turn not persisted",
				map[string]interface{}{
					"conversation_id": conv.ID,
					"error":           err.Error(),
				})
		}
	}

	if streamErr != nil {
		return fail(fmt.Errorf("model stream: %w", streamErr))
	}
	advance(statePersisted)

	followUps := suggestFollowUps(tctx, o.cfg.Chat.FollowUpsCount)
	if len(followUps) > 0 {
		sink.emit(Event{Type: EventFollowUps, FollowUps: followUps})
	}

	result := &ChatResult{
		ConversationID: conv.ID,
		Content:        content,
		Provider:       decision.Provider,
		Model:          decision.Model,
		Intent:         tctx.Intent,
		Complexity:     tctx.Complexity,
		FollowUps:      followUps,
	}
	sink.emit(Event{
		Type:           EventDone,
		ConversationID: conv.ID,
		Provider:       decision.Provider,
		Model:          decision.Model,
	})
	advance(stateDone)

	logger.InfoCF("agent", "Chat request completed",
		map[string]interface{}{
			"conversation_id": conv.ID,
			"provider":        decision.Provider,
			"model":           decision.Model,
			"duration_ms":     time.Since(start).Milliseconds(),
			"content_chars":   len(content),
			"tools_run":       len(outcomes),
		})
	return result, nil
}

// runTools executes suggested tools concurrently under a shared
// timeout. A failed or timed-out tool is logged and skipped; the rest
// still count.
func (o *Orchestrator) runTools(ctx context.Context, question string, sink EventSink) []toolOutcome {
	requests := o.triggers.Suggest(question)
	if len(requests) == 0 {
		return nil
	}

	timeout := time.Duration(o.cfg.Chat.ToolTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make([]*tools.ToolResult, len(requests))
	var wg sync.WaitGroup
	for i, req := range requests {
		sink.emit(Event{Type: EventToolCall, Tool: req.Tool, Arguments: req.Arguments})
		wg.Add(1)
		go func(i int, req tools.ToolRequest) {
			defer wg.Done()
			results[i] = o.tools.Execute(toolCtx, req.Tool, req.Arguments)
		}(i, req)
	}
	wg.Wait()

	var outcomes []toolOutcome
	for i, req := range requests {
		result := results[i]
		if result == nil {
			continue
		}
		if result.IsError {
			metrics.ToolExecutions.WithLabelValues(req.Tool, "error").Inc()
			logger.WarnCF("agent", "Tool failed, continuing without it",
				map[string]interface{}{
					"tool":  req.Tool,
					"error": result.ForLLM,
				})
			continue
		}
		metrics.ToolExecutions.WithLabelValues(req.Tool, "ok").Inc()
		sink.emit(Event{Type: EventToolResult, Tool: req.Tool, Result: result.ForUser})
		outcomes = append(outcomes, toolOutcome{request: req, result: result})
	}
	return outcomes
}

// buildSystemPrompt assembles the base prompt plus project context,
// known personal facts, and tool grounding.
func (o *Orchestrator) buildSystemPrompt(ctx context.Context, projectID string, tctx *topic.Context, outcomes []toolOutcome) string {
	var b strings.Builder
	b.WriteString(o.cfg.Chat.SystemPrompt)
	fmt.Fprintf(&b, "\nYour name is %s.", o.cfg.Chat.AssistantName)

	if projectID != "" {
		if project, err := o.store.GetProject(ctx, projectID); err == nil && len(project.Context) > 0 {
			b.WriteString("\n\n## Project context\n")
			keys := make([]string, 0, len(project.Context))
			for k := range project.Context {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "- %s: %s\n", k, project.Context[k])
			}
		}
	}

	if len(tctx.PersonalFacts) > 0 {
		b.WriteString("\n\n## Known about the user\n")
		keys := make([]string, 0, len(tctx.PersonalFacts))
		for k := range tctx.PersonalFacts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, tctx.PersonalFacts[k])
		}
	}

	if len(outcomes) > 0 {
		b.WriteString("\n\n## Fresh tool results\nUse these for grounding; they were fetched for the current question.\n")
		for _, out := range outcomes {
			fmt.Fprintf(&b, "\n[%s]\n%s\n", out.request.Tool, out.result.ForLLM)
		}
	}

	return b.String()
}

func toolCallRecords(outcomes []toolOutcome) []convo.ToolCall {
	if len(outcomes) == 0 {
		return nil
	}
	records := make([]convo.ToolCall, 0, len(outcomes))
	for _, out := range outcomes {
		records = append(records, convo.ToolCall{
			Name:   out.request.Tool,
			Args:   out.request.Arguments,
			Result: out.result.ForLLM,
		})
	}
	return records
}
