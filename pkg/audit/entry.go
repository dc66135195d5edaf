// Copyright 2026 © The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit maintains a tamper-evident log of agent activity:
// daily append-only segments, selective encryption of sensitive
// entries, a rolling retrieval index, and compliance reporting.
package audit

import "time"

// Entry is a single audit record. Once persisted an entry is never
// mutated; decryption recovers it without touching the stored form.
type Entry struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Agent      string         `json:"agent"`
	Action     string         `json:"action"`
	Outcome    string         `json:"outcome"`
	Details    map[string]any `json:"details,omitempty"`
	User       string         `json:"user,omitempty"`
	SessionID  string         `json:"sessionId,omitempty"`
	IPAddress  string         `json:"ipAddress,omitempty"`
	ResourceID string         `json:"resourceId,omitempty"`
	Encrypted  bool           `json:"encrypted,omitempty"`
}

// EventContext carries optional request metadata onto an entry.
type EventContext struct {
	User       string
	SessionID  string
	IPAddress  string
	ResourceID string
}

// IndexEntry is the plaintext projection kept in the rolling index for
// filtering without reading or decrypting segments. It never carries
// details.
type IndexEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	Action    string    `json:"action"`
}

// Index is the rolling index record. Entries older than the retention
// window are dropped on every update; segment data persists
// independently.
type Index struct {
	Entries []IndexEntry `json:"entries"`
}

// Filter restricts a log scan. Zero values mean no constraint.
type Filter struct {
	Agent  string
	Action string
	Start  time.Time
	End    time.Time
	Limit  int
}

// DecodePolicy decides what a bulk scan does with an unparsable
// segment line.
type DecodePolicy string

const (
	// DecodeSkip drops unparsable lines silently.
	DecodeSkip DecodePolicy = "skip"
	// DecodeAbort fails the scan on the first unparsable line.
	DecodeAbort DecodePolicy = "abort"
	// DecodeCollect completes the scan and returns the accumulated
	// decode failures alongside the full result.
	DecodeCollect DecodePolicy = "collect"
)

// Period bounds a compliance report.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Summary aggregates a report window.
type Summary struct {
	TotalEntries int            `json:"totalEntries"`
	UniqueAgents int            `json:"uniqueAgents"`
	Actions      map[string]int `json:"actions"`
}

// Report is a compliance summary over a time window.
type Report struct {
	Period         Period  `json:"period"`
	Summary        Summary `json:"summary"`
	SecurityEvents []Entry `json:"securityEvents"`
	SystemEvents   []Entry `json:"systemEvents"`
}
