package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/googleapis/gax-go/v2"

	"github.com/confabhq/confab/pkg/meeting"
)

const (
	// DedupWindow suppresses repeat alerts from the same rule and
	// speaker within this span.
	DedupWindow = 5 * time.Second

	// maxPersistAttempts bounds alert persistence retries before the
	// alert is dropped with an error event.
	maxPersistAttempts = 3
)

// AlertStore is the slice of the persistence contract the engine needs.
type AlertStore interface {
	UpsertAlert(ctx context.Context, alert *meeting.Alert) error
}

// Notifier is the out-of-band path for high and critical alerts,
// invoked immediately on match, ahead of the queued delivery.
type Notifier interface {
	Notify(ctx context.Context, alert *meeting.Alert)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(ctx context.Context, alert *meeting.Alert)

// Notify calls the underlying function.
func (f NotifierFunc) Notify(ctx context.Context, alert *meeting.Alert) { f(ctx, alert) }

// Options configures an Engine.
type Options struct {
	// MeetingID scopes the engine. Required.
	MeetingID string

	// OrgRules are merged with SystemRules(). Inactive rules are
	// skipped.
	OrgRules []*meeting.Rule

	// CustomMatchers resolves RuleCustom rules by rule ID, merged
	// over the built-in system matchers.
	CustomMatchers map[string]Matcher

	// Store persists alerts as they drain. Required.
	Store AlertStore

	// Notifier receives high/critical alerts immediately. May be nil.
	Notifier Notifier

	// OnAlert receives every drained alert for broadcast. May be nil.
	OnAlert func(*meeting.Alert)

	// OnError receives error events (rule failures, dropped alerts).
	// May be nil.
	OnError func(meeting.ErrorEvent)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// compiledRule pairs a rule with its matcher.
type compiledRule struct {
	rule    *meeting.Rule
	matcher Matcher
}

// Engine evaluates rules for one meeting. Evaluate is called from the
// meeting's pipeline goroutine; the drain loop runs separately and
// touches only the thread-safe queue and store.
type Engine struct {
	opts  Options
	rules []*compiledRule
	dedup map[string]time.Time // ruleID+"|"+speaker -> last alert
	queue *Queue
	log   *slog.Logger

	questions *QuestionTracker
}

// NewEngine compiles the merged rule set. Rules that fail to compile
// are skipped with an error event rather than failing construction.
func NewEngine(opts Options) (*Engine, error) {
	if opts.MeetingID == "" {
		return nil, fmt.Errorf("alert: Options.MeetingID is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("alert: Options.Store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	custom := systemMatchers()
	for id, m := range opts.CustomMatchers {
		custom[id] = m
	}

	e := &Engine{
		opts:  opts,
		dedup: make(map[string]time.Time),
		queue: NewQueue(),
		log:   opts.Logger,
	}
	e.questions = NewQuestionTracker(func(a *meeting.Alert) { e.queue.Push(a) })

	all := append(SystemRules(), opts.OrgRules...)
	for _, rule := range all {
		if !rule.IsActive {
			continue
		}
		m, err := compile(rule, custom)
		if err != nil {
			e.emitError("rule-compile", err)
			continue
		}
		e.rules = append(e.rules, &compiledRule{rule: rule, matcher: m})
	}
	return e, nil
}

// Evaluate runs all rules against one segment. A single rule's failure
// is isolated and reported; remaining rules still run.
func (e *Engine) Evaluate(in *Input) {
	seg := in.Segment
	for _, cr := range e.rules {
		match, err := e.safeMatch(cr, in)
		if err != nil {
			e.emitError("rule-eval", fmt.Errorf("alert: rule %s: %w", cr.rule.ID, err))
			continue
		}
		if match == nil {
			continue
		}
		if e.isDuplicate(cr.rule.ID, seg.Speaker, seg.EndTime) {
			continue
		}
		e.queue.Push(e.build(cr.rule, seg, match))
	}
	e.questions.Observe(seg)
}

// safeMatch isolates panics inside a matcher.
func (e *Engine) safeMatch(cr *compiledRule, in *Input) (m *Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("matcher panic: %v", r)
		}
	}()
	return cr.matcher.Match(in)
}

// isDuplicate records and checks the rule+speaker dedup window.
func (e *Engine) isDuplicate(ruleID, speaker string, at time.Time) bool {
	key := ruleID + "|" + speaker
	if last, ok := e.dedup[key]; ok && at.Sub(last) < DedupWindow {
		return true
	}
	e.dedup[key] = at
	return false
}

// build constructs the Alert for a match.
func (e *Engine) build(rule *meeting.Rule, seg *meeting.Segment, m *Match) *meeting.Alert {
	msg := m.Message
	if msg == "" {
		msg = rule.Message
	}
	if msg == "" {
		msg = fmt.Sprintf("rule %s matched", rule.ID)
	}
	ctx := m.Context
	if ctx == nil {
		ctx = map[string]string{}
	}
	ctx["text"] = seg.Text
	return &meeting.Alert{
		ID:        uuid.NewString(),
		MeetingID: e.opts.MeetingID,
		RuleID:    rule.ID,
		Priority:  rule.Priority,
		Message:   msg,
		Context:   ctx,
		Speaker:   seg.Speaker,
		CreatedAt: seg.EndTime,
	}
}

// Tick advances the question tracker; called on the pipeline's
// periodic tick.
func (e *Engine) Tick(now time.Time) {
	e.questions.Sweep(e.opts.MeetingID, now)
}

// Pending returns the number of queued alerts.
func (e *Engine) Pending() int { return e.queue.Len() }

// OpenQuestions returns the number of currently unanswered questions.
func (e *Engine) OpenQuestions() int { return e.questions.Open() }

// DrainOnce pops one alert, notifies, persists with backoff and hands
// it to OnAlert. Returns false when the queue was empty.
func (e *Engine) DrainOnce(ctx context.Context) bool {
	a := e.queue.Pop()
	if a == nil {
		return false
	}

	if a.Priority >= meeting.PriorityHigh && e.opts.Notifier != nil {
		e.opts.Notifier.Notify(ctx, a)
	}

	if err := e.persist(ctx, a); err != nil {
		e.emitError("persistence", fmt.Errorf("alert %s dropped: %w", a.ID, err))
		return true
	}

	if e.opts.OnAlert != nil {
		e.opts.OnAlert(a)
	}
	return true
}

// persist writes the alert with exponential backoff.
func (e *Engine) persist(ctx context.Context, a *meeting.Alert) error {
	bo := gax.Backoff{Initial: 100 * time.Millisecond, Max: 2 * time.Second, Multiplier: 2}
	var err error
	for attempt := 0; attempt < maxPersistAttempts; attempt++ {
		if attempt > 0 {
			if serr := gax.Sleep(ctx, bo.Pause()); serr != nil {
				return serr
			}
		}
		if err = e.opts.Store.UpsertAlert(ctx, a); err == nil {
			return nil
		}
	}
	return err
}

// Flush drains all pending alerts immediately; used at meeting end.
func (e *Engine) Flush(ctx context.Context) {
	for e.DrainOnce(ctx) {
	}
}

func (e *Engine) emitError(kind string, err error) {
	e.log.Error("alert: "+kind, "meeting", e.opts.MeetingID, "err", err)
	if e.opts.OnError != nil {
		e.opts.OnError(meeting.ErrorEvent{
			Type:      kind,
			MeetingID: e.opts.MeetingID,
			Cause:     err.Error(),
		})
	}
}
