// Package analyze computes rolling conversation analytics over a
// sliding window of recent transcript segments: sentiment, emotion,
// active topics, per-participant engagement and conversation dynamics.
//
// The Analyzer is owned by one meeting's pipeline goroutine and is not
// safe for concurrent use. It recomputes on a fixed tick plus an
// immediate recompute when a segment matches the important keyword set.
//
// All scoring here is lexical heuristics over keyword tables. There is
// no ground truth; results carry confidence values and degrade to
// neutral defaults when the window holds too little data. The matchers
// live behind small strategy functions so individual analyses can be
// swapped without touching the window logic.
package analyze
