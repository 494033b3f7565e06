package analyze

// Sentiment is the window-level sentiment result.
type Sentiment struct {
	// Sentiment is "positive", "negative" or "neutral".
	Sentiment string `json:"sentiment"`

	// Score is in [-1, 1].
	Score float64 `json:"score"`

	// Confidence is in [0, 1], growing with keyword evidence.
	Confidence float64 `json:"confidence"`
}

// neutralSentiment is the degraded default for sparse windows.
var neutralSentiment = Sentiment{Sentiment: "neutral", Score: 0, Confidence: 0.3}

// sentiment scores the window lexically, then blends in voice signal
// when segments carry acoustic stats: pitch or energy extremes nudge
// the score toward the extreme.
func (a *Analyzer) sentiment() Sentiment {
	if len(a.window) == 0 {
		return neutralSentiment
	}

	var pos, neg int
	var voiceNudge float64
	var voiced int
	for _, seg := range a.window {
		words := tokenize(seg.Text)
		for _, w := range positiveWords {
			if containsWord(words, w) {
				pos++
			}
		}
		for _, w := range negativeWords {
			if containsWord(words, w) {
				neg++
			}
		}
		if v := seg.Voice; v != nil {
			voiced++
			// High energy with raised pitch reads as positive
			// arousal; high energy with flat/low pitch as tension.
			if v.Energy > 0.7 {
				if v.Pitch > 0.7 {
					voiceNudge += 0.1
				} else if v.Pitch < 0.3 {
					voiceNudge -= 0.1
				}
			}
		}
	}

	total := pos + neg
	if total == 0 && voiced == 0 {
		return neutralSentiment
	}

	var score float64
	if total > 0 {
		score = float64(pos-neg) / float64(total)
	}
	if voiced > 0 {
		score += voiceNudge / float64(voiced)
	}
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}

	label := "neutral"
	switch {
	case score > 0.2:
		label = "positive"
	case score < -0.2:
		label = "negative"
	}

	// More keyword evidence means more confidence, capped at 0.95.
	conf := 0.4 + 0.05*float64(total)
	if conf > 0.95 {
		conf = 0.95
	}
	return Sentiment{Sentiment: label, Score: score, Confidence: conf}
}

// Emotion is the window-level emotion result.
type Emotion struct {
	// Primary is the highest-scoring category, empty when nothing
	// scored.
	Primary string `json:"primary"`

	// Secondary is the runner-up when it reaches at least 70% of the
	// primary's score.
	Secondary string `json:"secondary,omitempty"`

	// Scores holds the raw weighted counts per category.
	Scores map[string]float64 `json:"scores,omitempty"`
}

// emotion sums weighted indicator keywords per category.
func (a *Analyzer) emotion() Emotion {
	scores := make(map[string]float64)
	for _, seg := range a.window {
		words := tokenize(seg.Text)
		for category, indicators := range emotionIndicators {
			for kw, weight := range indicators {
				if containsWord(words, kw) {
					scores[category] += weight
				}
			}
		}
	}
	if len(scores) == 0 {
		return Emotion{Primary: "neutral"}
	}

	var primary, secondary string
	var pScore, sScore float64
	for cat, s := range scores {
		switch {
		case s > pScore:
			secondary, sScore = primary, pScore
			primary, pScore = cat, s
		case s > sScore:
			secondary, sScore = cat, s
		}
	}
	out := Emotion{Primary: primary, Scores: scores}
	if secondary != "" && sScore >= 0.7*pScore {
		out.Secondary = secondary
	}
	return out
}
