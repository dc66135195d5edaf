package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/jllopis/agora/pkg/audit"
)

func runAudit(ctx context.Context, a *app, global globalFlags, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("audit requires a subcommand: log, list, report, index")
	}
	switch args[0] {
	case "log":
		return runAuditLog(ctx, a, args[1:])
	case "list":
		return runAuditList(ctx, a, global, args[1:])
	case "report":
		return runAuditReport(ctx, a, global, args[1:])
	case "index":
		return runAuditIndex(ctx, a, global)
	default:
		return fmt.Errorf("unknown audit subcommand %q", args[0])
	}
}

func runAuditLog(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("audit log", flag.ContinueOnError)
	agent := fs.String("agent", "", "agent name")
	action := fs.String("action", "", "action performed")
	outcome := fs.String("outcome", "", "outcome of the action")
	user := fs.String("user", "", "associated user")
	session := fs.String("session", "", "session id")
	ip := fs.String("ip", "", "requester ip address")
	resource := fs.String("resource", "", "affected resource id")
	details := detailFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := a.audit.Log(ctx, *agent, *action, *outcome, details(), audit.EventContext{
		User:       *user,
		SessionID:  *session,
		IPAddress:  *ip,
		ResourceID: *resource,
	})
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runAuditList(ctx context.Context, a *app, global globalFlags, args []string) error {
	fs := flag.NewFlagSet("audit list", flag.ContinueOnError)
	agent := fs.String("agent", "", "filter by agent")
	action := fs.String("action", "", "filter by action")
	start := fs.String("start", "", "start bound (RFC 3339)")
	end := fs.String("end", "", "end bound (RFC 3339)")
	limit := fs.Int("limit", 0, "maximum number of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := audit.Filter{Agent: *agent, Action: *action, Limit: *limit}
	var err error
	if filter.Start, err = parseTimeFlag(*start); err != nil {
		return err
	}
	if filter.End, err = parseTimeFlag(*end); err != nil {
		return err
	}

	entries, err := a.audit.Logs(ctx, filter)
	if err != nil {
		return err
	}

	if global.JSON {
		return printJSON(entries)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAGENT\tACTION\tOUTCOME\tENCRYPTED\tTIMESTAMP")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n",
			e.ID, e.Agent, e.Action, e.Outcome, e.Encrypted, e.Timestamp.Format(time.RFC3339))
	}
	return w.Flush()
}

func runAuditReport(ctx context.Context, a *app, global globalFlags, args []string) error {
	fs := flag.NewFlagSet("audit report", flag.ContinueOnError)
	start := fs.String("start", "", "window start (RFC 3339)")
	end := fs.String("end", "", "window end (RFC 3339)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	startT, err := parseTimeFlag(*start)
	if err != nil {
		return err
	}
	endT, err := parseTimeFlag(*end)
	if err != nil {
		return err
	}

	report, err := a.audit.Report(ctx, startT, endT)
	if err != nil {
		return err
	}

	if global.JSON {
		return printJSON(report)
	}

	fmt.Printf("Period:  %s - %s\n",
		report.Period.Start.Format(time.RFC3339), report.Period.End.Format(time.RFC3339))
	fmt.Printf("Entries: %d\n", report.Summary.TotalEntries)
	fmt.Printf("Agents:  %d\n", report.Summary.UniqueAgents)
	fmt.Printf("Security events: %d\n", len(report.SecurityEvents))
	fmt.Printf("System events:   %d\n", len(report.SystemEvents))

	if len(report.Summary.Actions) > 0 {
		fmt.Println("\nActions:")
		actions := make([]string, 0, len(report.Summary.Actions))
		for action := range report.Summary.Actions {
			actions = append(actions, action)
		}
		sort.Strings(actions)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, action := range actions {
			fmt.Fprintf(w, "  %s\t%d\n", action, report.Summary.Actions[action])
		}
		return w.Flush()
	}
	return nil
}

func runAuditIndex(ctx context.Context, a *app, global globalFlags) error {
	entries, err := a.audit.IndexEntries(ctx)
	if err != nil {
		return err
	}
	if global.JSON {
		return printJSON(entries)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAGENT\tACTION\tTIMESTAMP")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Agent, e.Action, e.Timestamp.Format(time.RFC3339))
	}
	return w.Flush()
}

func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t, nil
}
