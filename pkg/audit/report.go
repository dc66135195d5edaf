package audit

import (
	"context"
	"strings"
	"time"
)

var (
	securityActionTerms = []string{"authentication", "authorization", "security"}
	systemActionTerms   = []string{"system", "configuration", "initialization"}
)

// Report aggregates the audit window into a compliance summary. Zero
// bounds default to the trailing retention window.
func (e *Engine) Report(ctx context.Context, start, end time.Time) (Report, error) {
	ctx, span := e.tracer.Start(ctx, "audit.report")
	defer span.End()

	now := e.now().UTC()
	if start.IsZero() {
		start = now.AddDate(0, 0, -e.retentionDays)
	}
	if end.IsZero() {
		end = now
	}

	logs, err := e.Logs(ctx, Filter{Start: start, End: end})
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Period: Period{Start: start, End: end},
		Summary: Summary{
			TotalEntries: len(logs),
			Actions:      make(map[string]int),
		},
	}

	agents := make(map[string]bool)
	for _, entry := range logs {
		agents[entry.Agent] = true
		report.Summary.Actions[entry.Action]++
		if actionMatchesAny(entry.Action, securityActionTerms) {
			report.SecurityEvents = append(report.SecurityEvents, entry)
		}
		if actionMatchesAny(entry.Action, systemActionTerms) {
			report.SystemEvents = append(report.SystemEvents, entry)
		}
	}
	report.Summary.UniqueAgents = len(agents)

	e.metrics.RecordReport(ctx)
	return report, nil
}

func actionMatchesAny(action string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(action, term) {
			return true
		}
	}
	return false
}
