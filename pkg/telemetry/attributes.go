// Copyright 2026 © The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry integration for the mailbox
// and audit engines.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for Agora telemetry.
const (
	// Mailbox attributes
	AttrAgent           = "agora.agent"
	AttrMessageID       = "agora.message.id"
	AttrMessageType     = "agora.message.type"
	AttrMessagePriority = "agora.message.priority"
	AttrMessageFolder   = "agora.message.folder"
	AttrFanOut          = "agora.message.fan_out"

	// Audit attributes
	AttrAuditEntryID   = "agora.audit.entry_id"
	AttrAuditAction    = "agora.audit.action"
	AttrAuditOutcome   = "agora.audit.outcome"
	AttrAuditEncrypted = "agora.audit.encrypted"
	AttrAuditSegment   = "agora.audit.segment"

	// Store attributes
	AttrStoreBackend = "agora.store.backend"
	AttrStoreKey     = "agora.store.key"
)

// Agent returns the agent name attribute.
func Agent(name string) attribute.KeyValue {
	return attribute.String(AttrAgent, name)
}

// MessageType returns the message type attribute.
func MessageType(t string) attribute.KeyValue {
	return attribute.String(AttrMessageType, t)
}

// AuditAction returns the audit action attribute.
func AuditAction(action string) attribute.KeyValue {
	return attribute.String(AttrAuditAction, action)
}

// AuditEncrypted returns the audit encryption attribute.
func AuditEncrypted(encrypted bool) attribute.KeyValue {
	return attribute.Bool(AttrAuditEncrypted, encrypted)
}
