package budget

import (
	"strings"
	"testing"

	"github.com/dotsetgreg/dotchat/pkg/config"
	"github.com/dotsetgreg/dotchat/pkg/convo"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abcdefgh", 2}, // 8 ASCII chars / 4
		{"नेपाल", 2},    // 5 Devanagari runes / 2
		{strings.Repeat("a", 40), 10},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.text); got != tc.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
	// Non-ASCII text must estimate denser than ASCII of equal rune count.
	ascii := EstimateTokens(strings.Repeat("a", 20))
	deva := EstimateTokens(strings.Repeat("न", 20))
	if deva <= ascii {
		t.Errorf("non-ASCII should estimate more tokens per rune: ascii=%d deva=%d", ascii, deva)
	}
}

func makeTurns(n, contentLen int) []convo.Turn {
	turns := make([]convo.Turn, n)
	for i := range turns {
		role := convo.RoleUser
		if i%2 == 1 {
			role = convo.RoleAssistant
		}
		turns[i] = convo.Turn{Role: role, Content: strings.Repeat("x", contentLen)}
	}
	return turns
}

func TestBoundHistory_CapsMessageCount(t *testing.T) {
	history := makeTurns(30, 10)
	b := config.TokenBudget{MaxTotalTokens: 100000, MaxHistoryMessages: 15}

	got := BoundHistory(history, b, "system", "question")
	if len(got) != 15 {
		t.Fatalf("expected 15 turns, got %d", len(got))
	}
	// Most recent window, order preserved.
	if got[len(got)-1].Content != history[len(history)-1].Content {
		t.Error("last turn should survive bounding")
	}
}

func TestBoundHistory_DropsOldestUntilUnderBudget(t *testing.T) {
	history := makeTurns(10, 400) // ~104 tokens per turn
	b := config.TokenBudget{MaxTotalTokens: 1000, MaxHistoryMessages: 20}

	got := BoundHistory(history, b, "", "")
	if len(got) >= 10 {
		t.Fatalf("expected oldest turns dropped, got %d", len(got))
	}
	if len(got) < 4 {
		t.Fatalf("must retain at least 4 turns, got %d", len(got))
	}
	// Survivors are the most recent turns.
	if got[len(got)-1].Role != history[9].Role {
		t.Error("most recent turn must survive")
	}
}

func TestBoundHistory_MinimumRetained(t *testing.T) {
	history := makeTurns(8, 4000) // way over any budget
	b := config.TokenBudget{MaxTotalTokens: 500, MaxHistoryMessages: 20}

	got := BoundHistory(history, b, "", "")
	if len(got) != 4 {
		t.Fatalf("expected exactly the minimum 4 turns, got %d", len(got))
	}
}

func TestBoundHistory_ShortHistoryUntouched(t *testing.T) {
	history := makeTurns(3, 4000)
	b := config.TokenBudget{MaxTotalTokens: 500, MaxHistoryMessages: 20}

	got := BoundHistory(history, b, "", "")
	if len(got) != 3 {
		t.Fatalf("history shorter than the minimum must pass through, got %d", len(got))
	}
}

func TestBoundHistory_SystemPromptCountsAgainstBudget(t *testing.T) {
	history := makeTurns(10, 100)
	b := config.TokenBudget{MaxTotalTokens: 600, MaxHistoryMessages: 20}

	withoutPrompt := BoundHistory(history, b, "", "")
	withPrompt := BoundHistory(history, b, strings.Repeat("p", 800), "")
	if len(withPrompt) >= len(withoutPrompt) {
		t.Errorf("a large system prompt should squeeze out history: %d vs %d",
			len(withPrompt), len(withoutPrompt))
	}
}

func TestBoundHistory_DoesNotMutateInput(t *testing.T) {
	history := makeTurns(10, 400)
	b := config.TokenBudget{MaxTotalTokens: 1000, MaxHistoryMessages: 5}

	_ = BoundHistory(history, b, "", "")
	if len(history) != 10 {
		t.Fatal("input slice length changed")
	}
	if history[0].Content == "" {
		t.Fatal("input turn content changed")
	}
}
