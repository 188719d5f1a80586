package agent

import (
	"fmt"
	"strings"

	"github.com/dotsetgreg/dotchat/pkg/topic"
)

// suggestFollowUps proposes short next questions from the resolved
// context. Heuristic and deterministic; count caps the result.
func suggestFollowUps(tctx *topic.Context, count int) []string {
	if count <= 0 {
		return nil
	}

	var out []string
	add := func(s string) {
		for _, existing := range out {
			if existing == s {
				return
			}
		}
		out = append(out, s)
	}

	subject := strings.TrimSpace(tctx.CurrentTopic)
	if subject != "" {
		display := titleWords(subject)
		switch tctx.Intent {
		case topic.IntentInformation:
			add(fmt.Sprintf("What is the history of %s?", display))
			add(fmt.Sprintf("Why is %s significant?", display))
		case topic.IntentInstruction:
			add(fmt.Sprintf("What are common mistakes with %s?", display))
			add(fmt.Sprintf("Are there alternatives to %s?", display))
		case topic.IntentComparison:
			add("Which option is better for beginners?")
			add(fmt.Sprintf("What are the trade-offs of %s?", display))
		default:
			add(fmt.Sprintf("Tell me more about %s", display))
			add(fmt.Sprintf("What else should I know about %s?", display))
		}
	}

	// Previous topics are ordered most-recent-last.
	for i := len(tctx.PreviousTopics) - 1; i >= 0; i-- {
		prev := tctx.PreviousTopics[i]
		if prev == subject {
			continue
		}
		add(fmt.Sprintf("Going back to %s, what else is notable?", titleWords(prev)))
		break
	}

	if tctx.Complexity == topic.ComplexityComplex {
		add("Can you summarize that in a few bullet points?")
	} else {
		add("Can you go into more depth?")
	}

	if len(out) > count {
		out = out[:count]
	}
	return out
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
