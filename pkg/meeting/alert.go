package meeting

import "time"

// Priority orders alerts in the delivery queue.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns the wire name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParsePriority maps a wire name back to a Priority.
// Unknown names map to PriorityLow.
func ParsePriority(s string) Priority {
	switch s {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Rule is an immutable alert rule loaded per organization, plus the
// built-in system defaults (OrgID == "system"). The pipeline never
// mutates rules.
type Rule struct {
	ID       string   `json:"id"`
	OrgID    string   `json:"orgId"`
	Kind     RuleKind `json:"kind"`
	Priority Priority `json:"priority"`
	IsActive bool     `json:"isActive"`

	// Trigger parameters; which fields apply depends on Kind.
	Keywords  []string `json:"keywords,omitempty"`  // keyword rules
	Pattern   string   `json:"pattern,omitempty"`   // pattern rules (regex)
	Threshold float64  `json:"threshold,omitempty"` // sentiment/engagement rules
	Message   string   `json:"message,omitempty"`   // template for the alert message
}

// RuleKind selects the matcher strategy used to evaluate a rule.
type RuleKind string

const (
	RuleKeyword             RuleKind = "keyword"
	RulePattern             RuleKind = "pattern"
	RuleSentimentThreshold  RuleKind = "sentiment-threshold"
	RuleEngagementThreshold RuleKind = "engagement-threshold"
	RuleCustom              RuleKind = "custom"
)

// Alert is a single rule match. Lifecycle is two-state:
// open -> acknowledged.
type Alert struct {
	ID             string            `json:"id" msgpack:"id"`
	MeetingID      string            `json:"meetingId" msgpack:"mid"`
	RuleID         string            `json:"ruleId" msgpack:"rid"`
	Priority       Priority          `json:"priority" msgpack:"pri"`
	Message        string            `json:"message" msgpack:"msg"`
	Context        map[string]string `json:"context,omitempty" msgpack:"ctx,omitempty"`
	Speaker        string            `json:"speaker,omitempty" msgpack:"spk,omitempty"`
	IsAcknowledged bool              `json:"isAcknowledged" msgpack:"ack"`
	CreatedAt      time.Time         `json:"createdAt" msgpack:"ct"`
}
