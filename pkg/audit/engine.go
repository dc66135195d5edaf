// Copyright 2026 © The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/agora/pkg/envelope"
	"github.com/jllopis/agora/pkg/errors"
	"github.com/jllopis/agora/pkg/store"
	"github.com/jllopis/agora/pkg/telemetry"
)

const (
	segmentPrefix = "audit/segments/audit_"
	indexKey      = "audit/index"
	segmentDate   = "2006-01-02"

	// DefaultRetentionDays is the rolling index and scan window.
	DefaultRetentionDays = 30
)

// Engine ingests audit events and serves filtered retrieval and
// compliance reports. Segments are append-only; the engine never
// rewrites or prunes them.
type Engine struct {
	store         store.Store
	sealer        *envelope.Sealer
	locks         *store.KeyMutex
	retentionDays int
	policy        DecodePolicy
	metrics       *telemetry.AuditMetrics
	tracer        trace.Tracer
	now           func() time.Time
}

// EngineOption configures the audit engine.
type EngineOption func(*Engine)

// WithRetentionDays overrides the rolling index and scan window.
func WithRetentionDays(days int) EngineOption {
	return func(e *Engine) {
		if days > 0 {
			e.retentionDays = days
		}
	}
}

// WithDecodePolicy sets how bulk scans treat unparsable lines.
func WithDecodePolicy(p DecodePolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithMetrics attaches audit metrics.
func WithMetrics(m *telemetry.AuditMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the wall clock. Intended for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an audit engine on top of the given store and
// sealer.
func NewEngine(st store.Store, sealer *envelope.Sealer, opts ...EngineOption) *Engine {
	e := &Engine{
		store:         st,
		sealer:        sealer,
		locks:         store.NewKeyMutex(),
		retentionDays: DefaultRetentionDays,
		policy:        DecodeSkip,
		tracer:        otel.Tracer("agora/audit"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Log assembles an entry, encrypts it when the sensitivity predicate
// fires, appends it to the current UTC day's segment, and updates the
// rolling index. Returns the entry id.
func (e *Engine) Log(ctx context.Context, agent, action, outcome string, details map[string]any, evctx EventContext) (string, error) {
	ctx, span := e.tracer.Start(ctx, "audit.log", trace.WithAttributes(
		telemetry.Agent(agent),
		telemetry.AuditAction(action),
	))
	defer span.End()

	if agent == "" || action == "" {
		return "", errors.New(errors.CodeInvalidInput, "agent and action are required", nil)
	}

	now := e.now().UTC()
	entry := Entry{
		ID:         fmt.Sprintf("audit_%d_%s", now.UnixMilli(), uuid.NewString()[:8]),
		Timestamp:  now,
		Agent:      agent,
		Action:     action,
		Outcome:    outcome,
		Details:    details,
		User:       evctx.User,
		SessionID:  evctx.SessionID,
		IPAddress:  evctx.IPAddress,
		ResourceID: evctx.ResourceID,
		Encrypted:  isSensitive(action, details),
	}
	span.SetAttributes(
		attribute.String(telemetry.AttrAuditEntryID, entry.ID),
		telemetry.AuditEncrypted(entry.Encrypted),
	)

	var line any = entry
	if entry.Encrypted {
		plaintext, err := json.Marshal(entry)
		if err != nil {
			return "", errors.New(errors.CodeInternal, "failed to marshal audit entry", err)
		}
		env, err := e.sealer.Seal(entry.ID, entry.Timestamp, plaintext)
		if err != nil {
			return "", err
		}
		line = env
	}

	segment := e.segmentKey(now)
	e.locks.Lock(segment)
	err := e.store.AppendLine(ctx, segment, line)
	e.locks.Unlock(segment)
	if err != nil {
		return "", err
	}

	if err := e.updateIndex(ctx, entry); err != nil {
		return "", err
	}

	e.metrics.RecordLog(ctx, action, entry.Encrypted)
	slog.DebugContext(ctx, "audit event logged",
		"id", entry.ID, "agent", agent, "action", action, "encrypted", entry.Encrypted)
	return entry.ID, nil
}

// Logs scans the retention window's segments, newest day first, and
// returns the entries matching the filter. Encrypted entries are
// decrypted and verified before filtering; an integrity failure always
// surfaces. Unparsable lines follow the engine's decode policy.
func (e *Engine) Logs(ctx context.Context, filter Filter) ([]Entry, error) {
	ctx, span := e.tracer.Start(ctx, "audit.logs")
	defer span.End()

	var (
		results   []Entry
		collected []error
	)
	now := e.now().UTC()
	for i := 0; i < e.retentionDays; i++ {
		day := now.AddDate(0, 0, -i)
		segment := e.segmentKey(day)
		lines, err := e.store.ReadLines(ctx, segment)
		if err != nil {
			return nil, err
		}
		for _, raw := range lines {
			entry, err := e.decodeLine(raw)
			if err != nil {
				if errors.HasCode(err, errors.CodeIntegrity) {
					return nil, err
				}
				switch e.policy {
				case DecodeAbort:
					return nil, err
				case DecodeCollect:
					collected = append(collected, err)
				default:
					e.metrics.RecordDecodeError(ctx, segment)
				}
				continue
			}
			if !matches(entry, filter) {
				continue
			}
			results = append(results, entry)
			if filter.Limit > 0 && len(results) >= filter.Limit {
				return results, joinCollected(collected)
			}
		}
	}
	return results, joinCollected(collected)
}

// decodeLine parses one segment line, opening the envelope when the
// encrypted discriminant is set.
func (e *Engine) decodeLine(raw []byte) (Entry, error) {
	var probe struct {
		Encrypted bool `json:"encrypted"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Entry{}, errors.New(errors.CodeDecode, "unparsable segment line", err)
	}

	if !probe.Encrypted {
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return Entry{}, errors.New(errors.CodeDecode, "unparsable segment line", err)
		}
		return entry, nil
	}

	var env envelope.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Entry{}, errors.New(errors.CodeDecode, "unparsable envelope line", err)
	}
	plaintext, err := e.sealer.Open(env)
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(plaintext, &entry); err != nil {
		return Entry{}, errors.New(errors.CodeDecode, "unparsable decrypted entry", err)
	}
	return entry, nil
}

func matches(entry Entry, f Filter) bool {
	if f.Agent != "" && entry.Agent != f.Agent {
		return false
	}
	if f.Action != "" && entry.Action != f.Action {
		return false
	}
	if !f.Start.IsZero() && entry.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && entry.Timestamp.After(f.End) {
		return false
	}
	return true
}

func joinCollected(collected []error) error {
	if len(collected) == 0 {
		return nil
	}
	return errors.New(errors.CodeDecode,
		fmt.Sprintf("%d segment lines failed to decode", len(collected)),
		stderrors.Join(collected...)).WithRecoverable(true)
}

// updateIndex appends the plaintext projection to the rolling index and
// drops entries older than the retention window. Runs under the index
// key's lock so concurrent writers do not lose updates.
func (e *Engine) updateIndex(ctx context.Context, entry Entry) error {
	e.locks.Lock(indexKey)
	defer e.locks.Unlock(indexKey)

	var idx Index
	if err := e.store.Get(ctx, indexKey, &idx); err != nil && !stderrors.Is(err, store.ErrNotFound) {
		return err
	}

	idx.Entries = append(idx.Entries, IndexEntry{
		ID:        entry.ID,
		Timestamp: entry.Timestamp,
		Agent:     entry.Agent,
		Action:    entry.Action,
	})

	cutoff := e.now().UTC().AddDate(0, 0, -e.retentionDays)
	kept := idx.Entries[:0]
	for _, ie := range idx.Entries {
		if ie.Timestamp.After(cutoff) {
			kept = append(kept, ie)
		}
	}
	idx.Entries = kept

	return e.store.Put(ctx, indexKey, idx)
}

// IndexEntries returns the current rolling index projection.
func (e *Engine) IndexEntries(ctx context.Context) ([]IndexEntry, error) {
	var idx Index
	if err := e.store.Get(ctx, indexKey, &idx); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return idx.Entries, nil
}

func (e *Engine) segmentKey(day time.Time) string {
	return segmentPrefix + day.UTC().Format(segmentDate)
}
