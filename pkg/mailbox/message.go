// Copyright 2026 © The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package mailbox delivers structured messages between named agents
// through a durable store. Each agent owns an index record with inbox,
// sent, and archived folders; message bodies are stored once and
// fanned out by id.
package mailbox

import "time"

// Type classifies a message.
type Type string

const (
	TypeDirect           Type = "direct"
	TypeBroadcast        Type = "broadcast"
	TypeStatusUpdate     Type = "status_update"
	TypeTaskNotification Type = "task_notification"
	TypeApprovalRequest  Type = "approval_request"
	TypeEmergencyAlert   Type = "emergency_alert"
)

// knownTypes is the accepted message type set. Unknown types are
// rejected at send time.
var knownTypes = map[Type]bool{
	TypeDirect:           true,
	TypeBroadcast:        true,
	TypeStatusUpdate:     true,
	TypeTaskNotification: true,
	TypeApprovalRequest:  true,
	TypeEmergencyAlert:   true,
}

// Priority orders message urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status describes the delivery state of a message.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// Folder names a mailbox index folder.
type Folder string

const (
	FolderInbox    Folder = "inbox"
	FolderSent     Folder = "sent"
	FolderArchived Folder = "archived"
)

// Message is a single exchange between agents. The id is immutable once
// assigned; only status transitions mutate a persisted message.
type Message struct {
	ID               string    `json:"id"`
	Sender           string    `json:"sender"`
	Recipients       []string  `json:"recipients"`
	Type             Type      `json:"type"`
	Content          string    `json:"content"`
	Timestamp        time.Time `json:"timestamp"`
	Priority         Priority  `json:"priority"`
	ResponseRequired bool      `json:"responseRequired"`
	Status           Status    `json:"status"`
	ParentID         string    `json:"parentId,omitempty"`
}

// Mailbox is the per-agent index of message ids. A message id appears
// at most once per folder, and in at most one of inbox/archived.
type Mailbox struct {
	Inbox    []string `json:"inbox"`
	Sent     []string `json:"sent"`
	Archived []string `json:"archived"`
}

func (m *Mailbox) folder(name Folder) []string {
	switch name {
	case FolderInbox:
		return m.Inbox
	case FolderSent:
		return m.Sent
	case FolderArchived:
		return m.Archived
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
