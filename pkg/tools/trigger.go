package tools

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dotsetgreg/dotchat/pkg/config"
	"github.com/dotsetgreg/dotchat/pkg/logger"
)

// ToolRequest is a proposed tool invocation. The trigger engine only
// decides what to call; execution belongs to the orchestrator.
type ToolRequest struct {
	Tool      string                 `json:"tool"`
	Operation string                 `json:"operation"`
	Arguments map[string]interface{} `json:"arguments"`
	Reason    string                 `json:"reason"`
}

var (
	webSearchPattern = regexp.MustCompile(`\b(latest|current|recent|today|news|now|update|best|top|recommend|comparison)\b` +
		`|what is happening|this year|2024|2025|price of|cost of|how much|where to buy`)
	leadershipPattern  = regexp.MustCompile(`\b(mayor|president|ceo|founder|leader)\b`)
	factQuestionStart  = regexp.MustCompile(`^(what|who|where|when)\s+is\b`)
	weatherPattern     = regexp.MustCompile(`\b(weather|temperature|rain|forecast|hot|cold|sunny|cloudy|climate)\b`)
	newsPattern        = regexp.MustCompile(`\b(news|headlines|breaking|happening|updates)\b|latest news|current events`)
	systemInfoPattern  = regexp.MustCompile(`\b(cpu|ram|memory|disk|battery|performance|usage)\b|system status`)
	fileSearchPattern  = regexp.MustCompile(`\b(file|folder|directory|locate)\b|find file|search file|where is my`)
	fileExtPattern     = regexp.MustCompile(`\.(txt|pdf|doc|docx|xls|xlsx|py|js|html|css)\b`)
	quotedNamePattern  = regexp.MustCompile(`["']([^"']+)["']`)
	newsTopicStopwords = map[string]bool{"news": true, "about": true, "on": true, "latest": true, "the": true, "a": true, "an": true}
)

// Concepts that read like "what is X" lookups but are general knowledge
// the model answers better without a search.
var commonConceptPattern = regexp.MustCompile(`\b(ai|python|programming|computer)\b`)

// knownCities is the small best-effort list the weather trigger
// recognizes; anything else falls back to the configured default city.
var knownCities = []string{"bangalore", "delhi", "mumbai", "kathmandu", "london", "new york"}

// TriggerEngine proposes tool invocations from the resolved question.
// It is pure: no I/O, no state beyond configuration.
type TriggerEngine struct {
	cfg config.ToolsConfig
}

func NewTriggerEngine(cfg config.ToolsConfig) *TriggerEngine {
	return &TriggerEngine{cfg: cfg}
}

// Suggest runs the independent trigger checks in a fixed order and
// concatenates their results. Multiple checks may fire for one
// question; each check emits at most one request.
func (e *TriggerEngine) Suggest(question string) []ToolRequest {
	lower := strings.ToLower(strings.TrimSpace(question))
	if lower == "" {
		return nil
	}

	var requests []ToolRequest
	checks := []func(string) *ToolRequest{
		e.checkWebSearch,
		e.checkWeather,
		e.checkNews,
		e.checkSystemInfo,
		e.checkFileSearch,
	}
	for _, check := range checks {
		if req := check(lower); req != nil {
			requests = append(requests, *req)
		}
	}

	if len(requests) > 0 {
		names := make([]string, 0, len(requests))
		for _, req := range requests {
			names = append(names, req.Tool)
		}
		logger.DebugCF("tools", "Tool triggers fired",
			map[string]interface{}{
				"tools":    names,
				"question": truncateLogString(question),
			})
	}
	return requests
}

func (e *TriggerEngine) checkWebSearch(lower string) *ToolRequest {
	webEnabled := e.cfg.Web.Brave.Enabled || e.cfg.Web.DuckDuckGo.Enabled
	if !webEnabled {
		return nil
	}
	// Weather questions are served by the dedicated weather tool.
	if weatherPattern.MatchString(lower) {
		return nil
	}

	reason := ""
	switch {
	case webSearchPattern.MatchString(lower):
		reason = "freshness or factual-lookup keywords"
	case leadershipPattern.MatchString(lower):
		reason = "asks about a current officeholder"
	case factQuestionStart.MatchString(lower) && !commonConceptPattern.MatchString(lower):
		reason = "direct factual question"
	default:
		return nil
	}

	return &ToolRequest{
		Tool:      "web_search",
		Operation: "search",
		Arguments: map[string]interface{}{"query": strings.TrimSpace(lower)},
		Reason:    reason,
	}
}

func (e *TriggerEngine) checkWeather(lower string) *ToolRequest {
	if !e.cfg.Weather.Enabled || !weatherPattern.MatchString(lower) {
		return nil
	}

	city := e.cfg.Weather.DefaultCity
	for _, known := range knownCities {
		if strings.Contains(lower, known) {
			city = titleCaseWords(known)
			break
		}
	}

	return &ToolRequest{
		Tool:      "weather",
		Operation: "current",
		Arguments: map[string]interface{}{"city": city},
		Reason:    "weather keywords in question",
	}
}

func (e *TriggerEngine) checkNews(lower string) *ToolRequest {
	webEnabled := e.cfg.Web.Brave.Enabled || e.cfg.Web.DuckDuckGo.Enabled
	if !webEnabled || !newsPattern.MatchString(lower) {
		return nil
	}

	topic := ""
	if strings.Contains(lower, "about") || strings.Contains(lower, " on ") {
		topic = newsTopic(lower)
	}

	return &ToolRequest{
		Tool:      "news",
		Operation: "headlines",
		Arguments: map[string]interface{}{"topic": topic},
		Reason:    "news keywords in question",
	}
}

func (e *TriggerEngine) checkSystemInfo(lower string) *ToolRequest {
	if !e.cfg.SystemInfo || !systemInfoPattern.MatchString(lower) {
		return nil
	}
	return &ToolRequest{
		Tool:      "system_info",
		Operation: "snapshot",
		Arguments: map[string]interface{}{},
		Reason:    "hardware keywords in question",
	}
}

func (e *TriggerEngine) checkFileSearch(lower string) *ToolRequest {
	if !e.cfg.FileSearch.Enabled || !fileSearchPattern.MatchString(lower) {
		return nil
	}

	pattern := "*"
	if m := fileExtPattern.FindStringSubmatch(lower); m != nil {
		pattern = "*." + m[1]
	} else if m := quotedNamePattern.FindStringSubmatch(lower); m != nil {
		pattern = m[1]
	}

	return &ToolRequest{
		Tool:      "file_search",
		Operation: "find",
		Arguments: map[string]interface{}{"pattern": pattern},
		Reason:    fmt.Sprintf("file keywords in question, pattern %q", pattern),
	}
}

// newsTopic strips filler words and keeps the first few substantive
// words as the search topic.
func newsTopic(lower string) string {
	words := strings.Fields(lower)
	var kept []string
	for _, w := range words {
		w = strings.Trim(w, "?.,!")
		if len(w) <= 2 || newsTopicStopwords[w] {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 3 {
			break
		}
	}
	return strings.Join(kept, " ")
}

func titleCaseWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
