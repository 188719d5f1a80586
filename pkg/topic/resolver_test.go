package topic

import (
	"strings"
	"testing"
)

func TestIsVague(t *testing.T) {
	r := NewResolver()

	vague := []string{
		"mayor?",
		"what",
		"population?",
		"it looks interesting, go on",
		"more on that please",
		"about the food",
		"जनसंख्या?",
	}
	for _, q := range vague {
		if !r.IsVague(q) {
			t.Errorf("IsVague(%q) = false, want true", q)
		}
	}

	selfContained := []string{
		"Tell me about the history of the Kathmandu valley",
		"Describe the geography of Nepal in detail",
		"",
	}
	for _, q := range selfContained {
		if r.IsVague(q) {
			t.Errorf("IsVague(%q) = true, want false", q)
		}
	}
}

func TestIsVague_CountsRunesNotBytes(t *testing.T) {
	r := NewResolver()

	// 11 runes but 27 bytes: short Devanagari questions must still
	// count as short.
	if !r.IsVague("मेयर को हो?") {
		t.Error("IsVague should measure question length in runes")
	}

	res := r.Resolve("मेयर को हो?", &Context{CurrentTopic: "kathmandu"})
	if !res.Rewritten || !strings.Contains(res.Question, "Kathmandu") {
		t.Errorf("short Devanagari question should be rewritten, got %+v", res)
	}
}

func TestResolve_SingleWordTemplates(t *testing.T) {
	r := NewResolver()
	ctx := &Context{CurrentTopic: "kathmandu"}

	cases := []struct {
		question string
		want     string
	}{
		{"mayor?", "Who is the current mayor of Kathmandu? What is their name and tell me about the mayor of Kathmandu city."},
		{"मेयर?", "Who is the current mayor of Kathmandu? What is their name and tell me about the mayor of Kathmandu city."},
		{"population?", "What is the population of Kathmandu?"},
		{"जनसंख्या?", "What is the population of Kathmandu?"},
		{"history", "Tell me about the history of Kathmandu"},
		{"culture?", "Tell me about the culture of Kathmandu"},
		{"food?", "Tell me about the food of Kathmandu"},
	}

	for _, tc := range cases {
		res := r.Resolve(tc.question, ctx)
		if !res.Rewritten {
			t.Errorf("Resolve(%q) did not rewrite", tc.question)
			continue
		}
		if res.Question != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.question, res.Question, tc.want)
		}
		if res.ContextUsed != "kathmandu" {
			t.Errorf("Resolve(%q) ContextUsed = %q, want %q", tc.question, res.ContextUsed, "kathmandu")
		}
	}
}

func TestResolve_ShortQuestions(t *testing.T) {
	r := NewResolver()
	ctx := &Context{CurrentTopic: "kathmandu"}

	if res := r.Resolve("what population?", ctx); !res.Rewritten || res.Question != "what population of Kathmandu?" {
		t.Errorf("Resolve short question = %+v", res)
	}
	if res := r.Resolve("where exactly", ctx); !res.Rewritten || res.Question != "where exactly in Kathmandu?" {
		t.Errorf("Resolve bare question = %+v", res)
	}
	if res := r.Resolve("how about the food?", ctx); !res.Rewritten || res.Question != "how about the food in Kathmandu?" {
		t.Errorf("Resolve how-about = %+v", res)
	}
	if res := r.Resolve("more on that please", ctx); !res.Rewritten || !strings.Contains(res.Question, "specifically related to Kathmandu") {
		t.Errorf("Resolve fallback = %+v", res)
	}
}

func TestResolve_SelfReferentialUsesPersonalFacts(t *testing.T) {
	r := NewResolver()
	ctx := &Context{
		CurrentTopic:  "kathmandu",
		PersonalFacts: map[string]string{"name": "Dipesh"},
	}

	res := r.Resolve("who am I?", ctx)
	if !res.Rewritten {
		t.Fatal("self-referential question should be rewritten from facts")
	}
	if !strings.Contains(res.Question, "Dipesh") {
		t.Errorf("resolved question should state the remembered name, got %q", res.Question)
	}
	if res.ContextUsed != "personal_facts" {
		t.Errorf("ContextUsed = %q, want %q", res.ContextUsed, "personal_facts")
	}
	if strings.Contains(res.Question, "Kathmandu") {
		t.Errorf("self-referential path must bypass the topic, got %q", res.Question)
	}
}

func TestResolve_SelfReferentialWithoutFactsPassesThrough(t *testing.T) {
	r := NewResolver()

	res := r.Resolve("tell me about myself", &Context{CurrentTopic: "kathmandu"})
	// No facts known: falls back to the normal path, never panics.
	if strings.Contains(res.Question, "already known about the user") {
		t.Errorf("no facts should mean no fact rewrite, got %q", res.Question)
	}
}

func TestResolve_MultiWordTopicIsTitleCased(t *testing.T) {
	r := NewResolver()
	ctx := &Context{CurrentTopic: "new york"}

	res := r.Resolve("population?", ctx)
	if !res.Rewritten || res.Question != "What is the population of New York?" {
		t.Errorf("Resolve = %+v", res)
	}
}

func TestResolve_PassthroughWithoutTopicOrVagueness(t *testing.T) {
	r := NewResolver()

	res := r.Resolve("mayor?", &Context{})
	if res.Rewritten || res.Question != "mayor?" {
		t.Errorf("no topic should mean no rewrite, got %+v", res)
	}

	ctx := &Context{CurrentTopic: "kathmandu"}
	long := "Tell me about the history of Rome in detail"
	res = r.Resolve(long, ctx)
	if res.Rewritten || res.Question != long {
		t.Errorf("self-contained question should pass through, got %+v", res)
	}
}
