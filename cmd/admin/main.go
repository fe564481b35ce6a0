package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/paper-guides/backend/auth"
	"github.com/paper-guides/backend/conf"
	"github.com/paper-guides/backend/logger"
	"github.com/paper-guides/backend/subm"
	"github.com/paper-guides/backend/subm/pgrepo"
	"github.com/spf13/cobra"
)

type app struct {
	cfg       *conf.Config
	pool      *pgxpool.Pool
	moderator *subm.Moderator
	actor     auth.Actor
}

func main() {
	var (
		configPath string
		username   string
		a          app
	)

	// connect opens the database lazily so that "token" works offline.
	connect := func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		connStr, err := a.cfg.PgConnStr(ctx, nil)
		if err != nil {
			return err
		}
		a.pool, err = pgxpool.New(ctx, connStr)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.moderator = subm.NewModerator(pgrepo.NewStore(a.pool))
		a.actor = auth.Actor{Username: username, Role: auth.RoleAdmin}
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           "pgadmin",
		Short:         "Moderation CLI for paper-guides submissions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				slog.Debug("no .env file loaded", "error", err)
			}
			cfg, err := conf.Load(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			cmd.SetContext(logger.WithLogger(cmd.Context(), slog.Default()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.pool != nil {
				a.pool.Close()
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "path to an optional TOML config file")
	rootCmd.PersistentFlags().StringVarP(&username, "as", "u", currentUser(), "administrator name recorded on moderation decisions")

	rootCmd.AddCommand(
		newPendingCmd(&a, connect),
		newShowCmd(&a, connect),
		newApproveCmd(&a, connect),
		newDeleteCmd(&a, connect),
		newMigrateCmd(&a),
		newTokenCmd(&a),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "admin"
}
