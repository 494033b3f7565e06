package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/confabhq/confab/pkg/meeting"
)

// System rule IDs. Built-in rules use OrgID "system" and are merged
// with org-specific rules on engine construction.
const (
	SystemRuleCompliance = "sys-compliance"
	SystemRuleBudget     = "sys-budget"
	SystemRuleCommitment = "sys-commitment"
)

// complianceKeywords flag legally sensitive mentions.
var complianceKeywords = []string{
	"gdpr", "hipaa", "pii", "compliance", "confidential",
	"regulation", "lawsuit", "legal risk", "nda",
}

// commitmentPhrases detect spoken commitments.
var commitmentPhrases = []string{
	"i promise", "i commit", "i will take", "i'll take",
	"we will ship", "we'll ship", "i will deliver", "i'll deliver",
	"i guarantee", "you have my word", "i will make sure",
	"i'll make sure", "we will deliver",
}

// moneyPattern extracts budget/price mentions: an optional currency
// sign, a number, and an optional magnitude suffix.
var moneyPattern = regexp.MustCompile(`(?i)[$€£]?\s*(\d+(?:[.,]\d+)?)\s*(k|m|thousand|million|grand)?\b`)

// budgetContext words must accompany a number for the budget rule to
// fire, keeping plain numerals quiet.
var budgetContext = []string{"budget", "cost", "price", "spend", "pay", "$", "€", "£", "dollars", "euros"}

// SystemRules returns the built-in rule set.
func SystemRules() []*meeting.Rule {
	return []*meeting.Rule{
		{
			ID:       SystemRuleCompliance,
			OrgID:    "system",
			Kind:     meeting.RuleKeyword,
			Priority: meeting.PriorityHigh,
			IsActive: true,
			Keywords: complianceKeywords,
			Message:  "compliance-sensitive topic mentioned",
		},
		{
			ID:       SystemRuleBudget,
			OrgID:    "system",
			Kind:     meeting.RuleCustom,
			Priority: meeting.PriorityMedium,
			IsActive: true,
			Message:  "budget amount mentioned",
		},
		{
			ID:       SystemRuleCommitment,
			OrgID:    "system",
			Kind:     meeting.RuleCustom,
			Priority: meeting.PriorityMedium,
			IsActive: true,
			Message:  "commitment detected",
		},
	}
}

// systemMatchers returns the custom matchers backing SystemRules.
func systemMatchers() map[string]Matcher {
	return map[string]Matcher{
		SystemRuleBudget:     MatcherFunc(matchBudget),
		SystemRuleCommitment: MatcherFunc(matchCommitment),
	}
}

// matchBudget fires on numeric amounts in budget context and
// normalizes the magnitude (12k -> 12000).
func matchBudget(in *Input) (*Match, error) {
	lower := strings.ToLower(in.Segment.Text)
	inContext := false
	for _, w := range budgetContext {
		if strings.Contains(lower, w) {
			inContext = true
			break
		}
	}
	if !inContext {
		return nil, nil
	}
	groups := moneyPattern.FindStringSubmatch(in.Segment.Text)
	if groups == nil {
		return nil, nil
	}
	raw := strings.ReplaceAll(groups[1], ",", ".")
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, nil
	}
	switch strings.ToLower(groups[2]) {
	case "k", "thousand", "grand":
		amount *= 1e3
	case "m", "million":
		amount *= 1e6
	}
	return &Match{
		Message: fmt.Sprintf("budget amount mentioned: %.0f", amount),
		Context: map[string]string{
			"amount": strconv.FormatFloat(amount, 'f', -1, 64),
			"raw":    strings.TrimSpace(groups[0]),
		},
	}, nil
}

// matchCommitment fires on commitment phrases.
func matchCommitment(in *Input) (*Match, error) {
	lower := strings.ToLower(in.Segment.Text)
	for _, phrase := range commitmentPhrases {
		if strings.Contains(lower, phrase) {
			return &Match{
				Message: fmt.Sprintf("commitment: %q", in.Segment.Text),
				Context: map[string]string{"phrase": phrase},
			}, nil
		}
	}
	return nil, nil
}
