// Copyright 2026 © The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Command agora is the operator console for the agent coordination
// substrate: it sends and inspects mailbox messages and queries the
// audit log.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jllopis/agora/pkg/audit"
	"github.com/jllopis/agora/pkg/config"
	"github.com/jllopis/agora/pkg/envelope"
	"github.com/jllopis/agora/pkg/mailbox"
	"github.com/jllopis/agora/pkg/store"
	"github.com/jllopis/agora/pkg/telemetry"
)

const version = "0.1.0"

type globalFlags struct {
	ConfigArgs []string
	JSON       bool
	Help       bool
}

type app struct {
	cfg     *config.Config
	store   store.Store
	mail    *mailbox.Engine
	audit   *audit.Engine
	cleanup func(context.Context)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args := parseGlobalFlags(os.Args[1:])
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cmd := args[0]
	switch cmd {
	case "help":
		printUsage()
		return
	case "version":
		fmt.Printf("agora %s\n", version)
		return
	}

	a, err := newApp(global)
	if err != nil {
		fatal(err)
	}
	defer a.close(ctx)

	switch cmd {
	case "send":
		err = runSend(ctx, a, args[1:])
	case "inbox":
		err = runInbox(ctx, a, global, args[1:])
	case "read":
		err = runRead(ctx, a, args[1:])
	case "archive":
		err = runArchive(ctx, a, args[1:])
	case "status":
		err = runStatus(ctx, a, args[1:])
	case "alert":
		err = runAlert(ctx, a, args[1:])
	case "approval":
		err = runApproval(ctx, a, args[1:])
	case "agents":
		err = runAgents(ctx, a, global)
	case "audit":
		err = runAudit(ctx, a, global, args[1:])
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		fatal(err)
	}
}

// parseGlobalFlags splits global options from the subcommand and its
// arguments. Global flags may appear before the subcommand only.
func parseGlobalFlags(args []string) (globalFlags, []string) {
	var global globalFlags
	i := 0
	for ; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--json":
			global.JSON = true
		case arg == "--help" || arg == "-h":
			global.Help = true
		case strings.HasPrefix(arg, "--config="):
			global.ConfigArgs = append(global.ConfigArgs, strings.TrimPrefix(arg, "--config="))
		case arg == "--config" && i+1 < len(args):
			i++
			global.ConfigArgs = append(global.ConfigArgs, args[i])
		case strings.HasPrefix(arg, "--set="):
			global.ConfigArgs = append(global.ConfigArgs, strings.TrimPrefix(arg, "--set="))
		default:
			return global, args[i:]
		}
	}
	return global, nil
}

func newApp(global globalFlags) (*app, error) {
	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		return nil, err
	}

	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.Init("agora", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	roster := cfg.Roster
	if cfg.RosterFile != "" {
		roster, err = mailbox.LoadRosterFile(cfg.RosterFile)
		if err != nil {
			return nil, err
		}
	}

	mailOpts := []mailbox.EngineOption{}
	if len(roster) > 0 {
		mailOpts = append(mailOpts, mailbox.WithRoster(roster))
	}
	if mm, err := telemetry.NewMailboxMetrics(); err == nil {
		mailOpts = append(mailOpts, mailbox.WithMetrics(mm))
	}

	sealer := envelope.NewSealer(envelope.EnvKeyProvider{Var: cfg.Audit.KeyEnvVar})
	auditOpts := []audit.EngineOption{
		audit.WithRetentionDays(cfg.Audit.RetentionDays),
		audit.WithDecodePolicy(audit.DecodePolicy(cfg.Audit.OnDecodeError)),
	}
	if am, err := telemetry.NewAuditMetrics(); err == nil {
		auditOpts = append(auditOpts, audit.WithMetrics(am))
	}

	return &app{
		cfg:   cfg,
		store: st,
		mail:  mailbox.NewEngine(st, mailOpts...),
		audit: audit.NewEngine(st, sealer, auditOpts...),
		cleanup: func(ctx context.Context) {
			if shutdown != nil {
				ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}
		},
	}, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "", "file":
		return store.NewFileStore(cfg.Storage.Root)
	case "sqlite":
		return store.OpenSQLiteStore(cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func (a *app) close(ctx context.Context) {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.cleanup != nil {
		a.cleanup(ctx)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "agora: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`agora - agent coordination substrate

Usage:
  agora [global flags] <command> [args]

Global flags:
  --config <path>     config file (YAML)
  --set key=value     config override
  --json              JSON output
  --help              show this help

Commands:
  send       send a message between agents
  inbox      list an agent's messages
  read       mark a message as read
  archive    move a message to the archived folder
  status     broadcast a status update
  alert      broadcast an emergency alert to the full roster
  approval   request approval for a task
  agents     list the agent roster
  audit      audit log operations (log, list, report, index)
  version    print version
`)
}
