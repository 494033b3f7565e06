// Package meeting defines the core data model shared by the realtime
// pipeline: transcript segments, session and participant state, alerts,
// decisions, topics and the client/server event taxonomy.
//
// Types here are plain data. Ownership and mutation rules live with the
// components that manage them: session state belongs to session.Registry,
// metric series to metrics.Store, decisions to decision.Tracker. The one
// rule enforced here is segment validity (see Segment.Validate): every
// producer is expected to validate before emitting, so consumers never
// re-check.
package meeting
