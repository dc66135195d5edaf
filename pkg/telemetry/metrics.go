// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MailboxMetrics tracks message traffic through the mailbox engine.
// A nil *MailboxMetrics is valid and records nothing.
type MailboxMetrics struct {
	sent     metric.Int64Counter
	fanOut   metric.Int64Counter
	archived metric.Int64Counter
}

// NewMailboxMetrics creates mailbox counters on the global meter.
func NewMailboxMetrics() (*MailboxMetrics, error) {
	meter := otel.Meter("agora/mailbox")

	sent, err := meter.Int64Counter(
		"agora.mailbox.messages_sent",
		metric.WithDescription("Messages sent, by type and priority"),
	)
	if err != nil {
		return nil, err
	}
	fanOut, err := meter.Int64Counter(
		"agora.mailbox.deliveries",
		metric.WithDescription("Per-recipient inbox deliveries"),
	)
	if err != nil {
		return nil, err
	}
	archived, err := meter.Int64Counter(
		"agora.mailbox.archived",
		metric.WithDescription("Messages moved to the archived folder"),
	)
	if err != nil {
		return nil, err
	}
	return &MailboxMetrics{sent: sent, fanOut: fanOut, archived: archived}, nil
}

// RecordSend counts one sent message and its recipient fan-out.
func (m *MailboxMetrics) RecordSend(ctx context.Context, msgType, priority string, recipients int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrMessageType, msgType),
		attribute.String(AttrMessagePriority, priority),
	)
	m.sent.Add(ctx, 1, attrs)
	m.fanOut.Add(ctx, int64(recipients), attrs)
}

// RecordArchive counts one archived message.
func (m *MailboxMetrics) RecordArchive(ctx context.Context, agent string) {
	if m == nil {
		return
	}
	m.archived.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrAgent, agent)))
}

// AuditMetrics tracks audit log ingestion and scans.
// A nil *AuditMetrics is valid and records nothing.
type AuditMetrics struct {
	logged       metric.Int64Counter
	decodeErrors metric.Int64Counter
	reports      metric.Int64Counter
}

// NewAuditMetrics creates audit counters on the global meter.
func NewAuditMetrics() (*AuditMetrics, error) {
	meter := otel.Meter("agora/audit")

	logged, err := meter.Int64Counter(
		"agora.audit.entries_logged",
		metric.WithDescription("Audit entries ingested, by action and encryption"),
	)
	if err != nil {
		return nil, err
	}
	decodeErrors, err := meter.Int64Counter(
		"agora.audit.decode_errors",
		metric.WithDescription("Segment lines that failed to parse during scans"),
	)
	if err != nil {
		return nil, err
	}
	reports, err := meter.Int64Counter(
		"agora.audit.reports_generated",
		metric.WithDescription("Compliance reports generated"),
	)
	if err != nil {
		return nil, err
	}
	return &AuditMetrics{logged: logged, decodeErrors: decodeErrors, reports: reports}, nil
}

// RecordLog counts one ingested audit entry.
func (m *AuditMetrics) RecordLog(ctx context.Context, action string, encrypted bool) {
	if m == nil {
		return
	}
	m.logged.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAuditAction, action),
		attribute.Bool(AttrAuditEncrypted, encrypted),
	))
}

// RecordDecodeError counts one skipped unparsable segment line.
func (m *AuditMetrics) RecordDecodeError(ctx context.Context, segment string) {
	if m == nil {
		return
	}
	m.decodeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrAuditSegment, segment)))
}

// RecordReport counts one generated compliance report.
func (m *AuditMetrics) RecordReport(ctx context.Context) {
	if m == nil {
		return
	}
	m.reports.Add(ctx, 1)
}
