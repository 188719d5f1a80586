package topic

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dotsetgreg/dotchat/pkg/logger"
)

// Resolver rewrites vague follow-up questions into self-contained ones
// using the current topic, so "mayor?" after a Kathmandu exchange
// becomes a question a stateless model can answer.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolution is the outcome of resolving one question.
type Resolution struct {
	Question    string
	Rewritten   bool
	ContextUsed string // topic name, "personal_facts", or ""
}

var vaguePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(what|where|when|who|why|how)\s*\?*$`),
	regexp.MustCompile(`^(it|that|this|there|here)\b`),
	regexp.MustCompile(`^(more|tell me more|continue|yes|yeah|ok)\b`),
	regexp.MustCompile(`^(about|regarding)\b`),
	regexp.MustCompile(`^\w+\?$`),
}

var shortQuestionPattern = regexp.MustCompile(`^(what|where|when|who|how|why)\s+\w+\s*\?*$`)

// selfRefPattern spots questions about the user themselves, which are
// answered from remembered facts rather than the topic.
var selfRefPattern = regexp.MustCompile(`(?i)\b(who am i|what(?:'s| is) my name|about myself|remember my name)\b`)

// IsVague reports whether a question cannot stand on its own.
func (r *Resolver) IsVague(question string) bool {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return false
	}
	// Rune count, not bytes: Devanagari questions are 3x the bytes.
	if utf8.RuneCountInString(q) < 20 && strings.Contains(q, "?") {
		return true
	}
	if len(strings.Fields(q)) <= 2 {
		return true
	}
	for _, p := range vaguePatterns {
		if p.MatchString(q) {
			return true
		}
	}
	return false
}

// Resolve rewrites the question against ctx. Self-referential
// questions resolve from personal facts; vague questions resolve
// against the current topic; everything else passes through untouched.
// Never fails: missing context degrades to the original question.
func (r *Resolver) Resolve(question string, ctx *Context) Resolution {
	if ctx != nil && len(ctx.PersonalFacts) > 0 && selfRefPattern.MatchString(question) {
		resolved := Resolution{
			Question:    fmt.Sprintf("%s (already known about the user: %s)", strings.TrimSpace(question), formatFacts(ctx.PersonalFacts)),
			Rewritten:   true,
			ContextUsed: "personal_facts",
		}
		logger.DebugCF(component, "Self-referential question resolved from facts", map[string]interface{}{
			"facts": len(ctx.PersonalFacts),
		})
		return resolved
	}

	if ctx == nil || ctx.CurrentTopic == "" || !r.IsVague(question) {
		return Resolution{Question: question}
	}

	topic := titleCase(ctx.CurrentTopic)
	q := strings.TrimSpace(question)
	lower := strings.ToLower(q)
	stripped := strings.TrimRight(q, "? ")
	words := strings.Fields(strings.TrimRight(lower, "? "))

	resolved := ""
	switch {
	case len(words) == 1:
		resolved = rewriteSingleWord(words[0], topic)
	case len(words) <= 3 && strings.Contains(q, "?"):
		resolved = fmt.Sprintf("%s of %s?", stripped, topic)
	case shortQuestionPattern.MatchString(lower):
		resolved = fmt.Sprintf("%s in %s?", stripped, topic)
	case strings.HasPrefix(lower, "what about") || strings.HasPrefix(lower, "how about"):
		resolved = fmt.Sprintf("%s in %s?", stripped, topic)
	case utf8.RuneCountInString(q) < 20:
		resolved = fmt.Sprintf("%s (specifically related to %s)?", stripped, topic)
	default:
		return Resolution{Question: question}
	}

	logger.DebugCF(component, "Vague question resolved", map[string]interface{}{
		"topic":    ctx.CurrentTopic,
		"original": question,
	})
	return Resolution{Question: resolved, Rewritten: true, ContextUsed: ctx.CurrentTopic}
}

// rewriteSingleWord expands bare one-word follow-ups. A few frequent
// attributes (including Devanagari and romanized spellings) get richer
// templates.
func rewriteSingleWord(word, topic string) string {
	switch word {
	case "mayor", "मेयर", "meyor":
		return fmt.Sprintf("Who is the current mayor of %s? What is their name and tell me about the mayor of %s city.", topic, topic)
	case "population", "जनसंख्या":
		return fmt.Sprintf("What is the population of %s?", topic)
	case "history", "इतिहास":
		return fmt.Sprintf("Tell me about the history of %s", topic)
	case "culture", "संस्कृति":
		return fmt.Sprintf("Tell me about the culture of %s", topic)
	default:
		return fmt.Sprintf("Tell me about the %s of %s", word, topic)
	}
}

// formatFacts renders facts deterministically, sorted by key.
func formatFacts(facts map[string]string) string {
	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s is %s", k, facts[k]))
	}
	return strings.Join(parts, ", ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
