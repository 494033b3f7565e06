package decision

import "strings"

// Phrase tables driving the state machine. All matching is
// case-insensitive substring search; these are heuristics, not
// grammar.

var proposalPhrases = []string{
	"i suggest", "i propose", "we should", "let's ", "lets ",
	"how about", "my proposal", "what if we", "we could",
}

var agreementPhrases = []string{
	"i agree", "agreed", "sounds good", "makes sense", "good idea",
	"let's do it", "yes,", "works for me", "i'm in", "im in", "+1",
}

var disagreementPhrases = []string{
	"i disagree", "i don't think", "i dont think", "not sure about",
	"bad idea", "won't work", "wont work", "i'm against", "no way",
	"that's wrong", "thats wrong",
}

var conditionPhrases = []string{
	"only if", "as long as", "provided that", "unless", "on condition",
	"but first", "we'd need", "we would need",
}

var finalizePhrases = []string{
	"it's decided", "its decided", "decision made", "final decision",
	"let's go with", "lets go with", "we're agreed", "were agreed",
	"settled then", "that settles it",
}

var deferPhrases = []string{
	"let's postpone", "lets postpone", "table this", "revisit later",
	"park this", "defer this", "come back to this", "next meeting",
}

var rejectPhrases = []string{
	"let's not", "lets not", "scrap that", "drop this idea",
	"we won't do", "we wont do", "off the table",
}

// Quality-score component indicators.
var (
	rationaleWords = []string{"because", "since", "the reason", "rationale", "that's why", "due to"}
	alternativeWords = []string{"alternatively", "instead", "another option", "or we could", "plan b", "other option"}
	riskWords        = []string{"risk", "downside", "worried", "concern", "might fail", "worst case"}
	criteriaWords    = []string{"success", "metric", "measure", "kpi", "target", "definition of done"}
	ownershipWords   = []string{"i'll own", "ill own", "i will own", "i'll take", "ill take", "responsible", "owner", "assign"}
	timelineWords    = []string{"deadline", "by friday", "by monday", "by the end", "next week", "due", "timeline", "by q"}
)

// Conflict-detection tables.

// opposingActions are verb pairs that contradict each other when they
// target similar descriptions.
var opposingActions = [][2]string{
	{"increase", "decrease"},
	{"start", "stop"},
	{"hire", "freeze"},
	{"add", "remove"},
	{"expand", "cut"},
	{"buy", "sell"},
	{"accelerate", "delay"},
}

// resourceWords are contended resources: two same-type decisions both
// naming one collide.
var resourceWords = []string{
	"budget", "headcount", "team", "server", "infrastructure",
	"designer", "engineer", "contractor", "quarter",
}

var urgentWords = []string{"urgent", "asap", "immediately", "right away", "critical"}

// matchAny returns the first phrase found in text (lowercased), or "".
func matchAny(text string, phrases []string) string {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}

// contentWords extracts lowercase words longer than 3 runes.
func contentWords(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:()\"'")
		if len(w) > 3 {
			out[w] = true
		}
	}
	return out
}

// overlapRatio returns |a∩b| / min(|a|,|b|), 0 when either is empty.
func overlapRatio(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	m := len(a)
	if len(b) < m {
		m = len(b)
	}
	return float64(n) / float64(m)
}
