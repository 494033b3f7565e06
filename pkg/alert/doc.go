// Package alert evaluates alert rules against incoming transcript
// segments and manages the resulting alert lifecycle: deduplication,
// priority queueing, persistence with bounded retry, and the immediate
// notification path for high and critical alerts.
//
// Rules are matcher strategies behind the Matcher interface; the five
// built-in kinds (keyword, pattern, sentiment-threshold,
// engagement-threshold, custom) can be extended by registering custom
// matchers by name. A faulty rule is isolated: its evaluation error is
// reported as an error event and the remaining rules still run.
package alert
