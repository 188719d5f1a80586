package topic

import "regexp"

// Word lists driving topic extraction, intent classification and
// vagueness checks. Kept as data so the heuristics stay auditable.

// stopwordTitles are capitalized words that look like proper nouns to
// the extraction regex but never are topics.
var stopwordTitles = map[string]bool{
	"I": true, "You": true, "The": true, "A": true, "An": true,
	"In": true, "On": true, "At": true, "To": true, "For": true,
	"Of": true, "And": true, "Or": true, "But": true,
	"Is": true, "Are": true, "Was": true, "Were": true,
	"Be": true, "Been": true, "Being": true,
}

// devanagariTopics maps Devanagari place names (including common
// spelling variants) to their canonical lowercase English topic.
// A fixed-order slice so scans are deterministic.
var devanagariTopics = []struct {
	word      string
	canonical string
}{
	{"काठमाडौं", "kathmandu"},
	{"काठमांडू", "kathmandu"},
	{"काठमाण्डौं", "kathmandu"},
	{"नेपाल", "nepal"},
	{"भारत", "india"},
	{"इंडिया", "india"},
	{"चीन", "china"},
}

// fallbackTopicPatterns catch lowercase mentions the proper-noun regex
// misses ("tell me about nepal"). Checked in order against the
// lowercased message.
var fallbackTopicPatterns = []struct {
	topic string
	re    *regexp.Regexp
}{
	{"kathmandu", regexp.MustCompile(`kathmandu|काठमाडौं|काठमांडू`)},
	{"nepal", regexp.MustCompile(`nepal|नेपाल`)},
	{"india", regexp.MustCompile(`india|भारत|इंडिया`)},
	{"python", regexp.MustCompile(`\bpython\b`)},
	{"javascript", regexp.MustCompile(`\bjavascript\b`)},
	{"ai", regexp.MustCompile(`\b(ai|artificial intelligence)\b`)},
}

// HasDevanagari reports whether s contains any Devanagari-script rune.
func HasDevanagari(s string) bool {
	for _, r := range s {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}
