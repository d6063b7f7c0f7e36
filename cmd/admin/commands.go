package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dmchat/backend/internal/models"
	"dmchat/backend/internal/storage"

	"github.com/spf13/cobra"
)

// adminStore is the slice of storage the admin commands need.
type adminStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	SetUserStatus(ctx context.Context, userID string, status models.UserStatus) error
	BanUser(ctx context.Context, userID string, ttl time.Duration) error
	UnbanUser(ctx context.Context, userID string) error
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
}

type tokenIssuer interface {
	Issue(user *models.User) (string, error)
}

type env struct {
	store    adminStore
	issuer   tokenIssuer
	tokenTTL time.Duration
}

// newRootCmd збирає дерево команд; open викликається лише коли команда справді виконується.
func newRootCmd(open func(ctx context.Context) (*env, error)) *cobra.Command {
	var e *env
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administrative tasks for the dmchat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			e, err = open(cmd.Context())
			return err
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	get := func() *env { return e }

	root.AddCommand(userCmd(get), tokenCmd(get), banCmd(get), unbanCmd(get))
	return root
}

func userCmd(get func() *env) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage user accounts"}

	var avatar string
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := &models.User{Username: args[0], Avatar: avatar}
			if err := get().store.CreateUser(cmd.Context(), user); err != nil {
				if errors.Is(err, storage.ErrDuplicate) {
					return fmt.Errorf("username %q is taken", args[0])
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&avatar, "avatar", "", "avatar URL")

	cmd.AddCommand(create)
	return cmd
}

func tokenCmd(get func() *env) *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Issue and revoke access tokens"}

	issue := &cobra.Command{
		Use:   "issue <user-id|username>",
		Short: "Issue an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			user, err := resolveUser(cmd.Context(), e.store, args[0])
			if err != nil {
				return err
			}
			if !user.CanConnect() {
				return fmt.Errorf("user %s is %s", user.ID, user.Status)
			}
			token, err := e.issuer.Issue(user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	var ttl time.Duration
	revoke := &cobra.Command{
		Use:   "revoke <token-id>",
		Short: "Revoke a token by its jti",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			if ttl <= 0 {
				ttl = e.tokenTTL
			}
			if err := e.store.RevokeToken(cmd.Context(), args[0], ttl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token %s has been revoked.\n", args[0])
			return nil
		},
	}
	revoke.Flags().DurationVar(&ttl, "ttl", 0, "how long to keep the revocation (default: token lifetime)")

	cmd.AddCommand(issue, revoke)
	return cmd
}

func banCmd(get func() *env) *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "ban <user-id>",
		Short: "Ban a user, permanently or for --hours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			ctx := cmd.Context()
			user, err := resolveUser(ctx, e.store, args[0])
			if err != nil {
				return err
			}
			if hours > 0 {
				err = e.store.BanUser(ctx, user.ID, time.Duration(hours)*time.Hour)
			} else {
				err = e.store.SetUserStatus(ctx, user.ID, models.UserBanned)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s has been banned.\n", user.ID)
			return nil
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 0, "ban duration in hours (0 = permanent)")
	return cmd
}

func unbanCmd(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "unban <user-id>",
		Short: "Lift both temporary and permanent bans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			ctx := cmd.Context()
			user, err := resolveUser(ctx, e.store, args[0])
			if err != nil {
				return err
			}
			if err := e.store.UnbanUser(ctx, user.ID); err != nil {
				return err
			}
			if user.Status == models.UserBanned {
				if err := e.store.SetUserStatus(ctx, user.ID, models.UserActive); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s has been unbanned.\n", user.ID)
			return nil
		},
	}
}

// resolveUser accepts either a user id or a username.
func resolveUser(ctx context.Context, s adminStore, ref string) (*models.User, error) {
	user, err := s.GetUser(ctx, ref)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	user, err = s.GetUserByUsername(ctx, ref)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("user %q not found", ref)
	}
	return user, err
}
