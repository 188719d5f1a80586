package topic

import (
	"regexp"
	"strings"
)

// Intent labels produced by ClassifyIntent. Routing keys off
// IntentElaboration; the rest feed follow-up suggestions and logs.
const (
	IntentInformation    = "information_seeking"
	IntentInstruction    = "instruction_seeking"
	IntentExplanation    = "explanation_seeking"
	IntentComparison     = "comparison"
	IntentRecommendation = "recommendation"
	IntentAffirmation    = "affirmation"
	IntentElaboration    = "elaboration_request"
	IntentQuestion       = "question"
	IntentStatement      = "statement"
)

// intentGroups are checked in order; the first group with a matching
// marker wins.
var intentGroups = []struct {
	intent  string
	markers []string
}{
	{IntentInformation, []string{"what", "tell", "explain", "describe", "define"}},
	{IntentInstruction, []string{"how", "tutorial", "guide", "steps"}},
	{IntentExplanation, []string{"why", "reason", "because"}},
	{IntentComparison, []string{"compare", "difference", "vs", "versus", "better"}},
	{IntentRecommendation, []string{"recommend", "suggest", "best", "should i"}},
	{IntentAffirmation, []string{"yes", "yeah", "yep", "sure", "okay", "ok"}},
	{IntentElaboration, []string{"more", "details", "elaborate", "continue"}},
}

// ClassifyIntent labels a user question with a coarse intent. Marker
// matching is substring-based on the lowercased question.
func ClassifyIntent(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, group := range intentGroups {
		for _, marker := range group.markers {
			if strings.Contains(q, marker) {
				return group.intent
			}
		}
	}
	if strings.HasSuffix(q, "?") {
		return IntentQuestion
	}
	return IntentStatement
}

// Complexity tiers. Routing sends simple questions to the fast
// provider and everything else to the context-preferred one.
const (
	ComplexitySimple  = "simple"
	ComplexityMedium  = "medium"
	ComplexityComplex = "complex"
)

var complexMarkers = []string{
	"analyze", "compare", "evaluate", "design", "create", "develop",
	"explain why", "how does", "pros and cons",
	"advantages and disadvantages", "step by step", "best way to",
	"optimize",
}

var simpleMarkers = []string{
	"what is", "who is", "where is", "when", "define", "meaning of",
}

// Complexity grades a question into simple/medium/complex. Reasoning
// markers win even for short questions; bare short questions are
// simple unless they are follow-ups, which always need context.
func Complexity(question string, isFollowUp bool) string {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, marker := range complexMarkers {
		if strings.Contains(q, marker) {
			return ComplexityComplex
		}
	}

	words := len(strings.Fields(q))
	if words < 8 {
		if isFollowUp {
			return ComplexityMedium
		}
		return ComplexitySimple
	}

	for _, marker := range simpleMarkers {
		if strings.Contains(q, marker) {
			return ComplexitySimple
		}
	}
	if words > 20 || strings.Count(question, "?") > 1 {
		return ComplexityComplex
	}
	return ComplexityMedium
}

// Classification is the classifier output consumed by routing.
type Classification struct {
	Intent     string
	Complexity string
}

func Classify(question string, isFollowUp bool) Classification {
	return Classification{
		Intent:     ClassifyIntent(question),
		Complexity: Complexity(question, isFollowUp),
	}
}

var followUpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(it|that|this|these|those|them|its|their)\b`),
	regexp.MustCompile(`^(yes|yeah|yep|no|nope|sure|okay|ok)[\s\?]*$`),
	regexp.MustCompile(`^(more|tell me more|what about|how about|and|also)\b`),
	regexp.MustCompile(`^(what|where|when|who|why|how)[\s\?]*$`),
	regexp.MustCompile(`\b(also|additionally|furthermore|moreover|besides)\b`),
}

// IsFollowUp reports whether the question leans on earlier turns.
// Always false for the first message of a conversation.
func IsFollowUp(question string, hasHistory bool) bool {
	if !hasHistory {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return false
	}
	for _, p := range followUpPatterns {
		if p.MatchString(q) {
			return true
		}
	}
	// Very short questions rarely stand on their own.
	return len(q) < 15 && strings.Contains(q, "?")
}
