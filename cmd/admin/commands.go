package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/paper-guides/backend/auth"
	"github.com/paper-guides/backend/srvcerror"
	"github.com/paper-guides/backend/subm"
	"github.com/paper-guides/backend/subm/pgrepo"
	"github.com/spf13/cobra"
)

type runE func(cmd *cobra.Command, args []string) error

func newPendingCmd(a *app, connect runE) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:     "pending",
		Short:   "List pending submissions, oldest first",
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := subm.Kinds
			if kind != "" {
				k, err := subm.ParseKind(kind)
				if err != nil {
					return err
				}
				kinds = []subm.Kind{k}
			}

			var items []subm.PreviewItem
			for _, k := range kinds {
				res, err := a.moderator.ListPending(cmd.Context(), a.actor, k)
				if err != nil {
					return err
				}
				items = append(items, res...)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPreviewTable(items))
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "question, paper-yearly or paper-topical")
	return cmd
}

func newShowCmd(a *app, connect runE) *cobra.Command {
	return &cobra.Command{
		Use:     "show <uuid>",
		Short:   "Show one submission and its child questions",
		Args:    cobra.ExactArgs(1),
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid uuid %q: %w", args[0], err)
			}
			detail, err := a.moderator.Preview(cmd.Context(), a.actor, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDetail(detail))
			return nil
		},
	}
}

func newApproveCmd(a *app, connect runE) *cobra.Command {
	return &cobra.Command{
		Use:     "approve <uuid>...",
		Short:   "Approve submissions together with their child questions",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachUUID(cmd, args, "approved", func(id uuid.UUID) error {
				return a.moderator.Approve(cmd.Context(), a.actor, id)
			})
		},
	}
}

func newDeleteCmd(a *app, connect runE) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <uuid>...",
		Short:   "Tombstone submissions together with their child questions",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachUUID(cmd, args, "deleted", func(id uuid.UUID) error {
				return a.moderator.Delete(cmd.Context(), a.actor, id)
			})
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			connStr, err := a.cfg.PgConnStr(cmd.Context(), nil)
			if err != nil {
				return err
			}
			return pgrepo.Migrate(connStr, dir, slog.Default())
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "migrate", "directory with SQL migrations")
	return cmd
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		username string
		role     string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed JWT for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.JwtKey == "" {
				return fmt.Errorf("JWT_KEY is not set")
			}
			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			tok, err := auth.GenerateJWT(username, r, uuid.New(), []byte(a.cfg.JwtKey), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "username claim")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleAdmin), "role claim: guest, user or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// forEachUUID applies op to every argument and keeps going after failures.
func forEachUUID(cmd *cobra.Command, args []string, verb string, op func(uuid.UUID) error) error {
	failed := 0
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err == nil {
			err = op(id)
		}
		if err != nil {
			failed++
			msg := fmt.Sprintf("%s: %v", arg, err)
			if srvcerror.HasCode(err, subm.ErrCodeSubmissionNotFound) {
				msg = fmt.Sprintf("%s: no such submission", arg)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(msg))
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("%s %s", arg, verb)))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d submissions failed", failed, len(args))
	}
	return nil
}
