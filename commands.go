package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"caballos/config"
	"caballos/gallery"
	"caballos/logging"
	"caballos/models"
	"caballos/storage"

	"github.com/spf13/cobra"
)

var (
	sweepOlderThan time.Duration
	grantEmail     string
	grantRole      string
	grantRevoke    bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete uploads left out of a failed album creation",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sweepOlderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		if err := setup(); err != nil {
			return err
		}
		defer logging.Sync()
		deleted, err := gallery.SweepOrphans(context.Background(), storage.GetDefaultStorage(), sweepOlderThan, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d orphaned uploads\n", deleted)
		return nil
	},
}

var grantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Give (or with --revoke, take away) a role from a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		role := models.RoleFromString(grantRole)
		if role == models.RoleNone {
			return fmt.Errorf("unknown role %q, use admin or moderator", grantRole)
		}
		if err := setup(); err != nil {
			return err
		}
		defer logging.Sync()
		user, err := models.UserByEmail(strings.ToLower(strings.TrimSpace(grantEmail)))
		if err != nil {
			return fmt.Errorf("user %s: %w", grantEmail, err)
		}
		if grantRevoke {
			n, err := models.RevokeRole(user.ID, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s from %s (%d grants)\n", role, user.Email, n)
			return nil
		}
		if err = models.GrantRole(user.ID, role, nil); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", role, user.Email)
		return nil
	},
}

func init() {
	defaultAge := config.ORPHAN_SWEEP_AFTER
	if defaultAge <= 0 {
		defaultAge = 24 * time.Hour
	}
	sweepCmd.Flags().DurationVar(&sweepOlderThan, "older-than", defaultAge, "Only delete uploads older than this")
	grantCmd.Flags().StringVar(&grantEmail, "email", "", "Email of the user")
	grantCmd.Flags().StringVar(&grantRole, "role", "moderator", "admin or moderator")
	grantCmd.Flags().BoolVar(&grantRevoke, "revoke", false, "Remove the role instead")
	_ = grantCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(sweepCmd, grantCmd)
}
