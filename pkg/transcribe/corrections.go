package transcribe

import "strings"

// corrections maps common engine mistranscriptions to their fixes,
// keyed by base language tag. Matching is whole-word, case-insensitive,
// applied after the engine returns.
var corrections = map[string]map[string]string{
	"en": {
		"gonna":  "going to",
		"wanna":  "want to",
		"gotta":  "got to",
		"kinda":  "kind of",
		"lemme":  "let me",
		"dunno":  "don't know",
	},
	"es": {
		"pa":  "para",
		"q":   "que",
		"xq":  "porque",
	},
	"de": {
		"bisschen": "bißchen",
		"mal":      "einmal",
	},
}

// Correct applies locale-specific post-corrections to engine output.
// The language may be a full tag ("en-US"); only the base is used.
// Unknown languages pass through unchanged.
func Correct(text, language string) string {
	base := language
	if i := strings.IndexAny(language, "-_"); i >= 0 {
		base = language[:i]
	}
	table := corrections[strings.ToLower(base)]
	if table == nil {
		return text
	}
	words := strings.Fields(text)
	changed := false
	for i, w := range words {
		// Preserve trailing punctuation while matching the word body.
		body := strings.TrimRight(w, ".,!?;:")
		tail := w[len(body):]
		if fix, ok := table[strings.ToLower(body)]; ok {
			words[i] = matchCase(body, fix) + tail
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(words, " ")
}

// matchCase applies the source word's leading capitalization to the fix.
func matchCase(src, fix string) string {
	if src == "" || fix == "" {
		return fix
	}
	if src[0] >= 'A' && src[0] <= 'Z' {
		return strings.ToUpper(fix[:1]) + fix[1:]
	}
	return fix
}
