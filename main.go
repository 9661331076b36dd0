package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Emyrk/google-workspace-admin/shell"
	"github.com/Emyrk/google-workspace-admin/wsadmin"
)

// Requirements:
// 1. Google Workspace Admin SDK enabled
// 2. Either an OAuth client of type "Desktop app" (OAUTH_CLIENT_SECRETS_FILE)
// or a service account with domain-wide delegation
// (GWS_SERVICE_ACCOUNT_FILE + GWS_ADMIN_EMAIL).
// https://developers.google.com/identity/protocols/oauth2/service-account#delegatingauthority
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "gws-admin",
		Usage: "Manage Google Workspace users and organizational units",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file loaded before reading the environment",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "overrides LOG_LEVEL (debug, info, warn, error)",
			},
		},
		Action: func(c *cli.Context) error {
			return withManager(c, func(m *wsadmin.Manager) error {
				return shell.Run(c.Context, m, m.Console)
			})
		},
		Commands: []*cli.Command{
			{
				Name:  "users",
				Usage: "Print every user grouped by organizational unit",
				Action: func(c *cli.Context) error {
					return withManager(c, func(m *wsadmin.Manager) error {
						// Already printed by ListAllUsers.
						if err := m.ListAllUsers(c.Context); err != nil {
							return cli.Exit("", 1)
						}
						return nil
					})
				},
			},
			{
				Name:  "orgunits",
				Usage: "Print every organizational unit",
				Action: func(c *cli.Context) error {
					return withManager(c, func(m *wsadmin.Manager) error {
						if units := m.ListOrgUnits(c.Context); units == nil {
							return cli.Exit("", 1)
						}
						return nil
					})
				},
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatalf("gws-admin: %v", err)
	}
}

// withManager loads configuration, authorizes, and hands a Manager to fn.
// The credential provider is closed afterwards so refreshed tokens are kept.
func withManager(c *cli.Context, fn func(m *wsadmin.Manager) error) error {
	cfg, err := wsadmin.LoadConfig(c.String("env-file"))
	if err != nil {
		return err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	logger := wsadmin.NewLogger(os.Stderr, cfg.LogLevel)

	console := wsadmin.NewTerminalConsole()
	creds, err := wsadmin.NewCredentialProvider(cfg, logger, console.Out())
	if err != nil {
		return err
	}
	defer func() {
		if err := creds.Close(); err != nil {
			logger.Warn("failed to close credentials", slog.Any("error", err))
		}
	}()

	m, err := wsadmin.New(c.Context, cfg, creds, console, logger)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	return fn(m)
}
