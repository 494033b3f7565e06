package analyze

import "strings"

// importantKeywords trigger an immediate recompute when present in an
// incoming segment, instead of waiting for the next tick.
var importantKeywords = []string{
	"decision", "decide", "decided",
	"deadline", "due date", "by friday", "by monday",
	"budget", "cost", "price", "spend",
	"blocker", "blocked", "blocking", "stuck",
	"urgent", "critical", "asap",
}

// positiveWords and negativeWords drive lexical sentiment scoring.
var positiveWords = []string{
	"great", "good", "excellent", "love", "like", "agree", "perfect",
	"awesome", "fantastic", "happy", "excited", "yes", "definitely",
	"progress", "success", "win", "works", "solved", "nice",
}

var negativeWords = []string{
	"bad", "terrible", "hate", "disagree", "wrong", "problem", "issue",
	"fail", "failed", "broken", "worried", "concern", "concerned", "no",
	"never", "delay", "delayed", "risk", "blocker", "stuck", "frustrated",
}

// emotionIndicators maps an emotion category to weighted indicator
// keywords. The weight reflects how strongly the word signals the
// emotion.
var emotionIndicators = map[string]map[string]float64{
	"excited": {
		"excited": 2, "amazing": 2, "awesome": 1.5, "love": 1.5,
		"fantastic": 1.5, "great": 1, "thrilled": 2,
	},
	"frustrated": {
		"frustrated": 2, "annoying": 1.5, "again": 0.5, "stuck": 1.5,
		"ridiculous": 2, "tired": 1, "enough": 0.5,
	},
	"concerned": {
		"worried": 2, "concern": 2, "concerned": 2, "risk": 1.5,
		"careful": 1, "afraid": 1.5, "uncertain": 1,
	},
	"confident": {
		"confident": 2, "sure": 1.5, "certain": 1.5, "definitely": 1.5,
		"absolutely": 1.5, "guarantee": 2,
	},
	"confused": {
		"confused": 2, "unclear": 1.5, "understand": 0.5, "lost": 1,
		"what": 0.3, "why": 0.3, "unsure": 1.5,
	},
}

// topicCategories maps a topic name to its keyword set. A topic is
// active when at least minTopicHits of its keywords co-occur within
// the window.
var topicCategories = map[string][]string{
	"budget":    {"budget", "cost", "price", "spend", "money", "funding", "invoice"},
	"timeline":  {"deadline", "schedule", "timeline", "date", "friday", "monday", "quarter", "sprint"},
	"hiring":    {"hire", "hiring", "candidate", "interview", "recruiter", "headcount"},
	"product":   {"feature", "product", "launch", "release", "roadmap", "customer", "user"},
	"technical": {"bug", "deploy", "code", "api", "database", "server", "architecture", "test"},
	"planning":  {"plan", "goal", "priority", "strategy", "milestone", "scope"},
}

// minTopicHits is the co-occurrence threshold for topic activation.
const minTopicHits = 2

// tokenize lowercases and splits text into words, stripping common
// punctuation.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := fields[:0]
	for _, f := range fields {
		w := strings.Trim(f, ".,!?;:()\"'")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// containsWord reports whether any tokenized word equals w.
func containsWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

// IsImportant reports whether the text matches the important keyword
// set that forces an immediate recompute.
func IsImportant(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range importantKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
