package topic

import (
	"regexp"
	"strings"

	"github.com/dotsetgreg/dotchat/pkg/convo"
	"github.com/dotsetgreg/dotchat/pkg/logger"
)

const component = "topic"

// Context is the resolved conversational context for one incoming
// question: what the exchange is about, which entities were mentioned,
// any personal facts the user stated, and how the question relates to
// the turns before it.
type Context struct {
	CurrentTopic   string
	PreviousTopics []string
	Entities       []string
	PersonalFacts  map[string]string
	Intent         string
	Complexity     string
	IsFollowUp     bool
}

const (
	defaultWindow     = 6
	maxPreviousTopics = 5
	maxEntities       = 5
	entityWindow      = 4
)

// properNounPattern picks up capitalized runs like "New York" or
// "Kathmandu". Deliberately ASCII-only; Devanagari goes through the
// dictionary instead.
var properNounPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

var personalFactPatterns = []struct {
	key string
	re  *regexp.Regexp
}{
	{"name", regexp.MustCompile(`(?i)\bmy name is (\w+)`)},
	{"name", regexp.MustCompile(`\bI am ([A-Z][a-z]+)\b`)},
	{"work", regexp.MustCompile(`(?i)\bi work (?:at|for|as) ([\w ]+)`)},
	{"study", regexp.MustCompile(`(?i)\bi study ([\w ]+)`)},
}

// Extractor derives a Context from recent turns plus the incoming
// question. It is stateless and safe for concurrent use.
type Extractor struct {
	assistantName string
	window        int
}

// NewExtractor builds an extractor. assistantName is excluded from
// topic and entity candidates; window is how many recent turns to
// scan (<=0 uses the default).
func NewExtractor(assistantName string, window int) *Extractor {
	if window <= 0 {
		window = defaultWindow
	}
	return &Extractor{assistantName: assistantName, window: window}
}

// Extract resolves topics, entities, personal facts, intent and
// follow-up status for one question against its conversation history.
func (e *Extractor) Extract(turns []convo.Turn, question string) *Context {
	ctx := &Context{PersonalFacts: map[string]string{}}

	recent := turns
	if len(recent) > e.window {
		recent = recent[len(recent)-e.window:]
	}

	// Topic grounding needs at least one completed exchange. With an
	// empty or single-turn history the question has nothing to resolve
	// against, so it must not seed a topic from itself.
	if len(turns) >= 2 {
		texts := make([]string, 0, len(recent)+1)
		for _, turn := range recent {
			texts = append(texts, turn.Content)
		}
		texts = append(texts, question)

		// Topics: scan oldest first so the most recent mention wins.
		for _, text := range texts {
			found := e.topicOf(text)
			if found == "" || found == ctx.CurrentTopic {
				continue
			}
			if ctx.CurrentTopic != "" {
				ctx.PreviousTopics = pushTopic(ctx.PreviousTopics, ctx.CurrentTopic)
			}
			ctx.CurrentTopic = found
		}

		ctx.Entities = e.extractEntities(texts)
	}

	// Personal facts come only from what the user said; later
	// statements overwrite earlier ones.
	for _, turn := range recent {
		if turn.Role != convo.RoleUser {
			continue
		}
		collectPersonalFacts(turn.Content, ctx.PersonalFacts)
	}
	collectPersonalFacts(question, ctx.PersonalFacts)

	ctx.IsFollowUp = IsFollowUp(question, len(turns) > 0)
	classified := Classify(question, ctx.IsFollowUp)
	ctx.Intent = classified.Intent
	ctx.Complexity = classified.Complexity

	logger.DebugCF(component, "Context extracted", map[string]interface{}{
		"topic":      ctx.CurrentTopic,
		"entities":   len(ctx.Entities),
		"intent":     ctx.Intent,
		"complexity": ctx.Complexity,
		"follow_up":  ctx.IsFollowUp,
	})
	return ctx
}

// pushTopic appends a displaced topic, deduplicated case-insensitively,
// keeping at most maxPreviousTopics with the most recent last.
func pushTopic(topics []string, t string) []string {
	kept := topics[:0]
	for _, existing := range topics {
		if !strings.EqualFold(existing, t) {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, t)
	if len(kept) > maxPreviousTopics {
		kept = kept[len(kept)-maxPreviousTopics:]
	}
	return kept
}

// topicOf finds the topic of a single message, or "". When a message
// mentions several candidates the last one wins, and Devanagari place
// names win over capitalized English words.
func (e *Extractor) topicOf(text string) string {
	if text == "" {
		return ""
	}

	topic := ""
	for _, candidate := range properNounPattern.FindAllString(text, -1) {
		if len(candidate) <= 2 || stopwordTitles[candidate] {
			continue
		}
		if strings.EqualFold(candidate, e.assistantName) {
			continue
		}
		topic = strings.ToLower(candidate)
	}

	// Among Devanagari hits, the mention appearing last wins.
	best := -1
	for _, entry := range devanagariTopics {
		if idx := strings.LastIndex(text, entry.word); idx > best {
			best = idx
			topic = entry.canonical
		}
	}
	if topic != "" {
		return topic
	}

	lower := strings.ToLower(text)
	for _, fallback := range fallbackTopicPatterns {
		if fallback.re.MatchString(lower) {
			return fallback.topic
		}
	}
	return ""
}

// extractEntities collects capitalized mentions from the last few
// messages, deduplicated case-insensitively, most recent first.
func (e *Extractor) extractEntities(texts []string) []string {
	window := texts
	if len(window) > entityWindow {
		window = window[len(window)-entityWindow:]
	}

	seen := map[string]bool{}
	entities := []string{}
	for i := len(window) - 1; i >= 0; i-- {
		for _, candidate := range properNounPattern.FindAllString(window[i], -1) {
			if len(candidate) <= 2 || stopwordTitles[candidate] {
				continue
			}
			if strings.EqualFold(candidate, e.assistantName) {
				continue
			}
			key := strings.ToLower(candidate)
			if seen[key] {
				continue
			}
			seen[key] = true
			entities = append(entities, candidate)
			if len(entities) >= maxEntities {
				return entities
			}
		}
	}
	return entities
}

func collectPersonalFacts(text string, facts map[string]string) {
	for _, p := range personalFactPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			facts[p.key] = strings.TrimSpace(m[1])
		}
	}
}
