package budget

import (
	"github.com/dotsetgreg/dotchat/pkg/config"
	"github.com/dotsetgreg/dotchat/pkg/convo"
	"github.com/dotsetgreg/dotchat/pkg/logger"
)

const component = "budget"

const (
	asciiCharsPerToken    = 4
	nonASCIICharsPerToken = 2
	turnOverheadTokens    = 4
	responseBufferTokens  = 200
	minRetainedTurns      = 4
)

// EstimateTokens approximates the token count of text. Non-ASCII
// scripts (Devanagari in particular) tokenize more densely, so they
// get a lower chars-per-token ratio.
func EstimateTokens(text string) int {
	ascii, other := 0, 0
	for _, r := range text {
		if r < 128 {
			ascii++
		} else {
			other++
		}
	}
	return ascii/asciiCharsPerToken + other/nonASCIICharsPerToken
}

// EstimateTurnTokens is EstimateTokens plus per-message framing
// overhead.
func EstimateTurnTokens(t convo.Turn) int {
	return EstimateTokens(t.Content) + turnOverheadTokens
}

// BoundHistory trims history to fit a provider budget. It caps the
// message count first, then drops oldest turns while the estimate for
// history + system prompt + current message exceeds the budget minus a
// response buffer. At least minRetainedTurns survive (when the input
// had that many) even if that stays over budget: keeping some context
// beats keeping none.
//
// Pure function: the input slice is never mutated.
func BoundHistory(history []convo.Turn, b config.TokenBudget, systemPrompt, currentMessage string) []convo.Turn {
	bounded := history
	if b.MaxHistoryMessages > 0 && len(bounded) > b.MaxHistoryMessages {
		bounded = bounded[len(bounded)-b.MaxHistoryMessages:]
	}

	fixed := EstimateTokens(systemPrompt) + turnOverheadTokens +
		EstimateTokens(currentMessage) + turnOverheadTokens

	total := fixed
	for _, t := range bounded {
		total += EstimateTurnTokens(t)
	}

	limit := b.MaxTotalTokens - responseBufferTokens
	dropped := 0
	for total > limit && len(bounded) > minRetainedTurns {
		total -= EstimateTurnTokens(bounded[0])
		bounded = bounded[1:]
		dropped++
	}

	if dropped > 0 {
		logger.DebugCF(component, "History bounded to fit token budget", map[string]interface{}{
			"dropped":          dropped,
			"kept":             len(bounded),
			"estimated_tokens": total,
			"max_tokens":       b.MaxTotalTokens,
		})
	}
	return bounded
}
