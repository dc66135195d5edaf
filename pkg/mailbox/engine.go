// Copyright 2026 © The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package mailbox

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/agora/pkg/errors"
	"github.com/jllopis/agora/pkg/store"
	"github.com/jllopis/agora/pkg/telemetry"
)

const (
	messagePrefix = "messages"
	mailboxPrefix = "mailboxes"
)

// Engine sends, retrieves, and archives messages. All state lives in
// the injected store; the engine itself holds no message data between
// calls.
type Engine struct {
	store   store.Store
	locks   *store.KeyMutex
	roster  []string
	metrics *telemetry.MailboxMetrics
	tracer  trace.Tracer
	now     func() time.Time
}

// EngineOption configures the mailbox engine.
type EngineOption func(*Engine)

// WithRoster overrides the default agent roster.
func WithRoster(roster []string) EngineOption {
	return func(e *Engine) {
		if len(roster) > 0 {
			e.roster = roster
		}
	}
}

// WithMetrics attaches mailbox metrics.
func WithMetrics(m *telemetry.MailboxMetrics) EngineOption {
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

// NewEngine creates a mailbox engine on top of the given store.
func NewEngine(st store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  st,
		locks:  store.NewKeyMutex(),
		roster: DefaultRoster,
		tracer: otel.Tracer("agora/mailbox"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Roster returns the agent roster the engine fans emergency alerts to.
func (e *Engine) Roster() []string {
	out := make([]string, len(e.roster))
	copy(out, e.roster)
	return out
}

// SendOption configures a single send.
type SendOption func(*Message)

// WithPriority sets the message priority.
func WithPriority(p Priority) SendOption {
	return func(m *Message) { m.Priority = p }
}

// WithResponseRequired marks the message as expecting a response. This
// is advisory metadata; the engine does not enforce that one arrives.
func WithResponseRequired() SendOption {
	return func(m *Message) { m.ResponseRequired = true }
}

// WithParent threads the message under an existing parent message.
func WithParent(parentID string) SendOption {
	return func(m *Message) { m.ParentID = parentID }
}

// Send validates, persists, and fans out a message, returning its id.
// The message record is written before any folder index is touched, so
// a failed send leaves nothing visible to readers.
func (e *Engine) Send(ctx context.Context, sender string, recipients []string, msgType Type, content string, opts ...SendOption) (string, error) {
	ctx, span := e.tracer.Start(ctx, "mailbox.send", trace.WithAttributes(
		telemetry.Agent(sender),
		telemetry.MessageType(string(msgType)),
		attribute.Int(telemetry.AttrFanOut, len(recipients)),
	))
	defer span.End()

	if strings.TrimSpace(sender) == "" {
		return "", errors.New(errors.CodeInvalidInput, "sender is required", nil)
	}
	if len(recipients) == 0 {
		return "", errors.New(errors.CodeInvalidInput, "at least one recipient is required", nil)
	}
	for _, r := range recipients {
		if strings.TrimSpace(r) == "" {
			return "", errors.New(errors.CodeInvalidInput, "recipient name is empty", nil)
		}
	}
	if !knownTypes[msgType] {
		return "", errors.New(errors.CodeInvalidInput, "unknown message type", nil).
			WithContext("type", string(msgType))
	}

	msg := Message{
		Sender:     sender,
		Recipients: recipients,
		Type:       msgType,
		Content:    content,
		Timestamp:  e.now().UTC(),
		Priority:   PriorityNormal,
		Status:     StatusPending,
	}
	for _, opt := range opts {
		opt(&msg)
	}

	if msg.ParentID != "" {
		var parent Message
		if err := e.store.Get(ctx, messageKey(msg.ParentID), &parent); err != nil {
			if stderrors.Is(err, store.ErrNotFound) {
				return "", errors.New(errors.CodeInvalidInput, "parent message does not exist", nil).
					WithContext("parentId", msg.ParentID)
			}
			return "", err
		}
	}

	id, err := e.newMessageID(ctx)
	if err != nil {
		return "", err
	}
	msg.ID = id
	span.SetAttributes(attribute.String(telemetry.AttrMessageID, id))

	if err := e.store.Put(ctx, messageKey(id), msg); err != nil {
		return "", err
	}

	if err := e.addToFolder(ctx, sender, FolderSent, id); err != nil {
		return "", err
	}
	for _, recipient := range recipients {
		if err := e.addToFolder(ctx, recipient, FolderInbox, id); err != nil {
			return "", err
		}
	}

	e.metrics.RecordSend(ctx, string(msg.Type), string(msg.Priority), len(recipients))
	slog.DebugContext(ctx, "message sent",
		"id", id, "sender", sender, "type", msg.Type, "recipients", len(recipients))
	return id, nil
}

// Messages resolves the ids in an agent's folder to full messages, in
// insertion order. Ids whose record has gone missing are skipped. An
// agent with no mailbox yet yields an empty result, not an error.
func (e *Engine) Messages(ctx context.Context, agent string, folder Folder) ([]Message, error) {
	ctx, span := e.tracer.Start(ctx, "mailbox.messages", trace.WithAttributes(
		telemetry.Agent(agent),
		attribute.String(telemetry.AttrMessageFolder, string(folder)),
	))
	defer span.End()

	switch folder {
	case FolderInbox, FolderSent, FolderArchived:
	default:
		return nil, errors.New(errors.CodeInvalidInput, "unknown folder", nil).
			WithContext("folder", string(folder))
	}

	var box Mailbox
	if err := e.store.Get(ctx, mailboxKey(agent), &box); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var messages []Message
	for _, id := range box.folder(folder) {
		var msg Message
		err := e.store.Get(ctx, messageKey(id), &msg)
		if stderrors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// MarkRead sets a message's status to read. The folder indices are not
// touched.
func (e *Engine) MarkRead(ctx context.Context, agent, messageID string) error {
	ctx, span := e.tracer.Start(ctx, "mailbox.mark_read", trace.WithAttributes(
		telemetry.Agent(agent),
		attribute.String(telemetry.AttrMessageID, messageID),
	))
	defer span.End()

	key := messageKey(messageID)
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	var msg Message
	if err := e.store.Get(ctx, key, &msg); err != nil {
		return err
	}
	msg.Status = StatusRead
	return e.store.Put(ctx, key, msg)
}

// Archive moves a message id from the agent's inbox to its archived
// folder. Archiving twice is a no-op; the message record itself is not
// modified.
func (e *Engine) Archive(ctx context.Context, agent, messageID string) error {
	ctx, span := e.tracer.Start(ctx, "mailbox.archive", trace.WithAttributes(
		telemetry.Agent(agent),
		attribute.String(telemetry.AttrMessageID, messageID),
	))
	defer span.End()

	key := mailboxKey(agent)
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	var box Mailbox
	if err := e.store.Get(ctx, key, &box); err != nil && !stderrors.Is(err, store.ErrNotFound) {
		return err
	}

	kept := box.Inbox[:0]
	for _, id := range box.Inbox {
		if id != messageID {
			kept = append(kept, id)
		}
	}
	box.Inbox = kept
	if !contains(box.Archived, messageID) {
		box.Archived = append(box.Archived, messageID)
	}

	if err := e.store.Put(ctx, key, box); err != nil {
		return err
	}
	e.metrics.RecordArchive(ctx, agent)
	return nil
}

// SendStatusUpdate broadcasts an agent's status to the orchestrator and
// the CEO at normal priority.
func (e *Engine) SendStatusUpdate(ctx context.Context, agent, status string, details map[string]any) (string, error) {
	content := map[string]any{"status": status}
	for k, v := range details {
		content[k] = v
	}
	payload, err := json.Marshal(content)
	if err != nil {
		return "", errors.New(errors.CodeInternal, "failed to encode status update", err)
	}
	return e.Send(ctx, agent, statusUpdateRecipients, TypeStatusUpdate, string(payload))
}

// SendEmergencyAlert broadcasts an urgent alert to every agent on the
// roster. This is the escalation path: it bypasses normal recipient
// selection so the alert always reaches every participant.
func (e *Engine) SendEmergencyAlert(ctx context.Context, agent, alert string, details map[string]any) (string, error) {
	content := map[string]any{"alert": alert}
	for k, v := range details {
		content[k] = v
	}
	payload, err := json.Marshal(content)
	if err != nil {
		return "", errors.New(errors.CodeInternal, "failed to encode emergency alert", err)
	}
	return e.Send(ctx, agent, e.roster, TypeEmergencyAlert, string(payload),
		WithPriority(PriorityUrgent))
}

// RequestApproval sends a high-priority approval request to the given
// approvers with responseRequired set.
func (e *Engine) RequestApproval(ctx context.Context, agent, taskID, description string, approvers []string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"taskId":      taskID,
		"description": description,
		"requestedBy": agent,
	})
	if err != nil {
		return "", errors.New(errors.CodeInternal, "failed to encode approval request", err)
	}
	return e.Send(ctx, agent, approvers, TypeApprovalRequest, string(payload),
		WithPriority(PriorityHigh), WithResponseRequired())
}

// addToFolder appends the id to the agent's folder if not already
// present. The read-modify-write runs under the mailbox key's lock so
// insertion stays idempotent under concurrent senders.
func (e *Engine) addToFolder(ctx context.Context, agent string, folder Folder, messageID string) error {
	key := mailboxKey(agent)
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	var box Mailbox
	if err := e.store.Get(ctx, key, &box); err != nil && !stderrors.Is(err, store.ErrNotFound) {
		return err
	}

	switch folder {
	case FolderInbox:
		if contains(box.Inbox, messageID) {
			return nil
		}
		box.Inbox = append(box.Inbox, messageID)
	case FolderSent:
		if contains(box.Sent, messageID) {
			return nil
		}
		box.Sent = append(box.Sent, messageID)
	case FolderArchived:
		if contains(box.Archived, messageID) {
			return nil
		}
		box.Archived = append(box.Archived, messageID)
	}

	return e.store.Put(ctx, key, box)
}

// newMessageID generates a timestamp-prefixed id with a random suffix
// and verifies it is not already taken.
func (e *Engine) newMessageID(ctx context.Context) (string, error) {
	for {
		id := fmt.Sprintf("msg_%d_%s", e.now().UnixMilli(), uuid.NewString()[:8])
		var existing Message
		err := e.store.Get(ctx, messageKey(id), &existing)
		if stderrors.Is(err, store.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func messageKey(id string) string    { return messagePrefix + "/" + id }
func mailboxKey(agent string) string { return mailboxPrefix + "/" + agent }
