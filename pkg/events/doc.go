// Package events defines the timestamped input records produced by a capture
// session and consumed by a replay session, together with their persisted JSON
// shape and the per-kind capture filter.
package events
