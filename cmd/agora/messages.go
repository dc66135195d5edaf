package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jllopis/agora/pkg/mailbox"
)

func runSend(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	from := fs.String("from", "", "sender agent name")
	to := fs.String("to", "", "comma-separated recipient agent names")
	msgType := fs.String("type", string(mailbox.TypeDirect), "message type")
	content := fs.String("content", "", "message content")
	priority := fs.String("priority", "", "priority (low, normal, high, urgent)")
	responseRequired := fs.Bool("response-required", false, "mark the message as expecting a response")
	parent := fs.String("parent", "", "parent message id for threading")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var opts []mailbox.SendOption
	if *priority != "" {
		opts = append(opts, mailbox.WithPriority(mailbox.Priority(*priority)))
	}
	if *responseRequired {
		opts = append(opts, mailbox.WithResponseRequired())
	}
	if *parent != "" {
		opts = append(opts, mailbox.WithParent(*parent))
	}

	id, err := a.mail.Send(ctx, *from, splitList(*to), mailbox.Type(*msgType), *content, opts...)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runInbox(ctx context.Context, a *app, global globalFlags, args []string) error {
	fs := flag.NewFlagSet("inbox", flag.ContinueOnError)
	agent := fs.String("agent", "", "agent name")
	folder := fs.String("folder", string(mailbox.FolderInbox), "folder (inbox, sent, archived)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	messages, err := a.mail.Messages(ctx, *agent, mailbox.Folder(*folder))
	if err != nil {
		return err
	}

	if global.JSON {
		return printJSON(messages)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFROM\tTYPE\tPRIORITY\tSTATUS\tTIMESTAMP")
	for _, m := range messages {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Sender, m.Type, m.Priority, m.Status, m.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runRead(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	agent := fs.String("agent", "", "agent name")
	id := fs.String("id", "", "message id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.mail.MarkRead(ctx, *agent, *id)
}

func runArchive(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("archive", flag.ContinueOnError)
	agent := fs.String("agent", "", "agent name")
	id := fs.String("id", "", "message id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.mail.Archive(ctx, *agent, *id)
}

func runStatus(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	agent := fs.String("agent", "", "agent name")
	status := fs.String("status", "", "status message")
	details := detailFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := a.mail.SendStatusUpdate(ctx, *agent, *status, details())
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runAlert(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("alert", flag.ContinueOnError)
	agent := fs.String("agent", "", "agent name")
	alert := fs.String("alert", "", "alert message")
	details := detailFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := a.mail.SendEmergencyAlert(ctx, *agent, *alert, details())
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runApproval(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("approval", flag.ContinueOnError)
	agent := fs.String("agent", "", "requesting agent name")
	task := fs.String("task", "", "task id")
	description := fs.String("description", "", "task description")
	approvers := fs.String("approvers", "", "comma-separated approver agent names")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := a.mail.RequestApproval(ctx, *agent, *task, *description, splitList(*approvers))
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runAgents(_ context.Context, a *app, global globalFlags) error {
	roster := a.mail.Roster()
	if global.JSON {
		return printJSON(roster)
	}
	for _, agent := range roster {
		fmt.Println(agent)
	}
	return nil
}

// detailFlags collects repeated --detail key=value pairs.
func detailFlags(fs *flag.FlagSet) func() map[string]any {
	details := map[string]any{}
	fs.Func("detail", "additional key=value detail (repeatable)", func(s string) error {
		key, value, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("detail must be key=value, got %q", s)
		}
		details[key] = value
		return nil
	})
	return func() map[string]any { return details }
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
