package topic

import (
	"testing"

	"github.com/dotsetgreg/dotchat/pkg/convo"
)

func testExtractor() *Extractor {
	return NewExtractor("Aria", 6)
}

func userTurn(content string) convo.Turn {
	return convo.Turn{Role: convo.RoleUser, Content: content}
}

func assistantTurn(content string) convo.Turn {
	return convo.Turn{Role: convo.RoleAssistant, Content: content}
}

func TestExtract_TopicFromHistory(t *testing.T) {
	turns := []convo.Turn{
		userTurn("Tell me about Nepal"),
		assistantTurn("It is a beautiful country with eight of the world's highest peaks."),
	}

	ctx := testExtractor().Extract(turns, "mayor?")
	if ctx.CurrentTopic != "nepal" {
		t.Errorf("CurrentTopic = %q, want %q", ctx.CurrentTopic, "nepal")
	}
	if !ctx.IsFollowUp {
		t.Error("short question with history should be a follow-up")
	}
}

func TestExtract_LastMentionWins(t *testing.T) {
	turns := []convo.Turn{
		userTurn("Tell me about Nepal"),
		userTurn("What about Kathmandu?"),
	}

	ctx := testExtractor().Extract(turns, "population?")
	if ctx.CurrentTopic != "kathmandu" {
		t.Errorf("CurrentTopic = %q, want %q", ctx.CurrentTopic, "kathmandu")
	}
	if len(ctx.PreviousTopics) == 0 || ctx.PreviousTopics[0] != "nepal" {
		t.Errorf("PreviousTopics = %v, want nepal first", ctx.PreviousTopics)
	}
}

func TestExtract_DevanagariTopics(t *testing.T) {
	turns := []convo.Turn{
		userTurn("काठमाडौं को बारेमा बताउनुहोस्"),
		assistantTurn("काठमाडौं नेपालको राजधानी हो।"),
	}

	ctx := testExtractor().Extract(turns, "मेयर?")
	if ctx.CurrentTopic != "kathmandu" {
		t.Errorf("CurrentTopic = %q, want %q", ctx.CurrentTopic, "kathmandu")
	}
}

func TestTopicOf_DevanagariWinsWithinMessage(t *testing.T) {
	e := testExtractor()

	if got := e.topicOf("Paris र नेपाल मध्ये कुन राम्रो?"); got != "nepal" {
		t.Errorf("topicOf = %q, want %q", got, "nepal")
	}
	// Two place names in one message: the later mention wins, every time.
	for i := 0; i < 20; i++ {
		if got := e.topicOf("नेपाल राम्रो छ तर काठमाडौं व्यस्त छ"); got != "kathmandu" {
			t.Fatalf("topicOf = %q, want %q", got, "kathmandu")
		}
	}
}

func TestExtract_AssistantNameIsNotATopic(t *testing.T) {
	turns := []convo.Turn{
		userTurn("Aria, are you there?"),
		assistantTurn("I am here."),
	}

	ctx := testExtractor().Extract(turns, "Aria, what do you think?")
	if ctx.CurrentTopic == "aria" {
		t.Error("assistant name must not become the topic")
	}
}

func TestExtract_FallbackKeywords(t *testing.T) {
	turns := []convo.Turn{
		userTurn("i have been learning python for a month"),
		assistantTurn("that is great progress for a month."),
	}

	ctx := testExtractor().Extract(turns, "is it hard?")
	if ctx.CurrentTopic != "python" {
		t.Errorf("CurrentTopic = %q, want %q", ctx.CurrentTopic, "python")
	}
}

func TestExtract_FirstMessageSeedsNoTopic(t *testing.T) {
	ctx := testExtractor().Extract(nil, "Nepal?")
	if ctx.CurrentTopic != "" {
		t.Errorf("CurrentTopic = %q, want empty on a first message", ctx.CurrentTopic)
	}
	if len(ctx.PreviousTopics) != 0 || len(ctx.Entities) != 0 {
		t.Errorf("first message must not seed context: %+v", ctx)
	}

	// With no topic the question passes through unrewritten.
	res := NewResolver().Resolve("Nepal?", ctx)
	if res.Rewritten || res.Question != "Nepal?" {
		t.Errorf("first message must not be rewritten, got %+v", res)
	}
}

func TestExtract_SingleTurnHistoryHasNoTopic(t *testing.T) {
	turns := []convo.Turn{
		userTurn("Tell me about Nepal"),
	}

	ctx := testExtractor().Extract(turns, "capital?")
	if ctx.CurrentTopic != "" {
		t.Errorf("CurrentTopic = %q, want empty before a completed exchange", ctx.CurrentTopic)
	}
}

func TestExtract_PreviousTopicsDedupedMostRecentLast(t *testing.T) {
	turns := []convo.Turn{
		userTurn("Tell me about Nepal"),
		userTurn("What about Kathmandu?"),
		userTurn("Tell me about Nepal again"),
	}

	ctx := testExtractor().Extract(turns, "How does India compare?")
	if ctx.CurrentTopic != "india" {
		t.Fatalf("CurrentTopic = %q, want %q", ctx.CurrentTopic, "india")
	}
	want := []string{"kathmandu", "nepal"}
	if len(ctx.PreviousTopics) != len(want) {
		t.Fatalf("PreviousTopics = %v, want %v", ctx.PreviousTopics, want)
	}
	for i, w := range want {
		if ctx.PreviousTopics[i] != w {
			t.Errorf("PreviousTopics[%d] = %q, want %q", i, ctx.PreviousTopics[i], w)
		}
	}
}

func TestPushTopic_DedupAndCap(t *testing.T) {
	topics := []string{"a", "b", "c", "d", "e"}
	topics = pushTopic(topics, "B")
	want := []string{"a", "c", "d", "e", "b"}
	if len(topics) != len(want) {
		t.Fatalf("topics = %v, want %v", topics, want)
	}
	for i, w := range want {
		if topics[i] != w {
			t.Errorf("topics[%d] = %q, want %q", i, topics[i], w)
		}
	}

	topics = pushTopic(topics, "f")
	if len(topics) != maxPreviousTopics {
		t.Fatalf("topics = %v, want capped at %d", topics, maxPreviousTopics)
	}
	if topics[0] != "c" || topics[len(topics)-1] != "f" {
		t.Errorf("cap must drop the oldest, got %v", topics)
	}
}

func TestExtract_PersonalFactsLastWriteWins(t *testing.T) {
	turns := []convo.Turn{
		userTurn("My name is Dipesh"),
		assistantTurn("Nice to meet you, Dipesh."),
		userTurn("Actually my name is Anish"),
	}

	ctx := testExtractor().Extract(turns, "what is my name?")
	if got := ctx.PersonalFacts["name"]; got != "Anish" {
		t.Errorf("PersonalFacts[name] = %q, want %q", got, "Anish")
	}
}

func TestExtract_FactsComeOnlyFromUserTurns(t *testing.T) {
	turns := []convo.Turn{
		assistantTurn("My name is Aria, by the way."),
	}

	ctx := testExtractor().Extract(turns, "hello")
	if _, ok := ctx.PersonalFacts["name"]; ok {
		t.Error("assistant statements must not become user facts")
	}
}

func TestExtract_EntitiesDedupedAndCapped(t *testing.T) {
	turns := []convo.Turn{
		userTurn("Compare Kathmandu with Pokhara"),
		assistantTurn("Kathmandu is the capital while Pokhara sits by Phewa lake near Annapurna."),
	}

	ctx := testExtractor().Extract(turns, "which is closer to Everest?")
	if len(ctx.Entities) == 0 || len(ctx.Entities) > 5 {
		t.Fatalf("expected 1..5 entities, got %v", ctx.Entities)
	}

	seen := map[string]int{}
	for _, e := range ctx.Entities {
		seen[e]++
	}
	if seen["Kathmandu"] > 1 {
		t.Errorf("entities should be deduplicated, got %v", ctx.Entities)
	}
	if seen["Everest"] != 1 {
		t.Errorf("expected Everest among entities, got %v", ctx.Entities)
	}
}

func TestExtract_WindowBoundsHistory(t *testing.T) {
	turns := []convo.Turn{
		userTurn("Tell me about Japan"),
	}
	for i := 0; i < 6; i++ {
		turns = append(turns, userTurn("just small talk, nothing new"))
	}

	ctx := testExtractor().Extract(turns, "anything else?")
	if ctx.CurrentTopic == "japan" {
		t.Error("topic outside the context window should not survive")
	}
}
