package alert

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/confabhq/confab/pkg/analyze"
	"github.com/confabhq/confab/pkg/meeting"
)

// Input is the evaluation context for one segment.
type Input struct {
	Segment *meeting.Segment

	// Snapshot is the latest analysis snapshot, nil early in a
	// meeting. Threshold matchers return no match on nil.
	Snapshot *analyze.Snapshot
}

// Match is a successful rule evaluation.
type Match struct {
	// Message overrides the rule's message template when non-empty.
	Message string

	// Context carries matcher-specific details into the alert.
	Context map[string]string
}

// Matcher is the strategy interface all rule kinds implement.
type Matcher interface {
	// Match returns a non-nil Match when the rule fires on the input.
	Match(in *Input) (*Match, error)
}

// MatcherFunc adapts a function to a Matcher.
type MatcherFunc func(in *Input) (*Match, error)

// Match calls the underlying function.
func (f MatcherFunc) Match(in *Input) (*Match, error) { return f(in) }

// compile builds the Matcher for a rule. Custom rules are resolved
// against the registry by rule ID.
func compile(rule *meeting.Rule, custom map[string]Matcher) (Matcher, error) {
	switch rule.Kind {
	case meeting.RuleKeyword:
		return keywordMatcher(rule.Keywords), nil
	case meeting.RulePattern:
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("alert: rule %s: bad pattern: %w", rule.ID, err)
		}
		return patternMatcher(re), nil
	case meeting.RuleSentimentThreshold:
		return sentimentMatcher(rule.Threshold), nil
	case meeting.RuleEngagementThreshold:
		return engagementMatcher(rule.Threshold), nil
	case meeting.RuleCustom:
		m := custom[rule.ID]
		if m == nil {
			return nil, fmt.Errorf("alert: rule %s: no custom matcher registered", rule.ID)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("alert: rule %s: unknown kind %q", rule.ID, rule.Kind)
	}
}

// keywordMatcher fires when any keyword appears in the segment text.
func keywordMatcher(keywords []string) Matcher {
	return MatcherFunc(func(in *Input) (*Match, error) {
		lower := strings.ToLower(in.Segment.Text)
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return &Match{Context: map[string]string{"keyword": kw}}, nil
			}
		}
		return nil, nil
	})
}

// patternMatcher fires when the regex matches the segment text.
func patternMatcher(re *regexp.Regexp) Matcher {
	return MatcherFunc(func(in *Input) (*Match, error) {
		if m := re.FindString(in.Segment.Text); m != "" {
			return &Match{Context: map[string]string{"match": m}}, nil
		}
		return nil, nil
	})
}

// sentimentMatcher fires when the window sentiment score drops to or
// below the threshold.
func sentimentMatcher(threshold float64) Matcher {
	return MatcherFunc(func(in *Input) (*Match, error) {
		if in.Snapshot == nil {
			return nil, nil
		}
		s := in.Snapshot.Sentiment
		if s.Score <= threshold {
			return &Match{Context: map[string]string{
				"score":     fmt.Sprintf("%.2f", s.Score),
				"sentiment": s.Sentiment,
			}}, nil
		}
		return nil, nil
	})
}

// engagementMatcher fires when the segment speaker's engagement level
// drops to or below the threshold.
func engagementMatcher(threshold float64) Matcher {
	return MatcherFunc(func(in *Input) (*Match, error) {
		if in.Snapshot == nil {
			return nil, nil
		}
		eng, ok := in.Snapshot.Engagement[in.Segment.Speaker]
		if !ok {
			return nil, nil
		}
		if eng.Level <= threshold {
			return &Match{Context: map[string]string{
				"level": fmt.Sprintf("%.0f", eng.Level),
			}}, nil
		}
		return nil, nil
	})
}
