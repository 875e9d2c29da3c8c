/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/walterneylp/voltdocs19022026-sub000/configuration"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
	"github.com/walterneylp/voltdocs19022026-sub000/mqtt"
	"github.com/walterneylp/voltdocs19022026-sub000/pasta1"
)

func newSyncConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-config",
		Short: "Store the checklist definition when it changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			meta, items, err := app.engine.SyncConfig(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (%d items)\n", meta.Engine, meta.Version, meta.ConfigHash, len(items))
			return nil
		},
	}
}

func newRunAuditCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "run-audit",
		Short: "Run the Pasta 1 audit for a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			if mqtt.Init() {
				defer mqtt.Close()
				app.engine.Notify = mqtt.PublishRunFinished
			}

			run, results, err := app.engine.RunAudit(cmd.Context(), tenantID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s %s\n", run.ID, run.Status)
			for _, result := range results {
				fmt.Fprintf(out, "%-5s %3d %s\n", result.ItemID, result.Score, result.Status)
				if len(result.Missing) > 0 {
					fmt.Fprintf(out, "      faltando: %s\n", strings.Join(result.Missing, "; "))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant to audit")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newReindexCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "reindex [document-id...]",
		Short: "Rebuild the similarity index of a tenant",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, documentIDs []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			if app.indexer == nil {
				return pasta1.ErrIndexUnavailable
			}
			stats, err := app.indexer.Rebuild(cmd.Context(), tenantID, documentIDs...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d documents, %d chunks\n", stats.Documents, stats.Chunks)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant to reindex")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newSweepRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-runs",
		Short: "Mark runs stuck in executando as falhou",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			swept, err := app.engine.SweepStaleRuns(cmd.Context(), configuration.Config.RunTimeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d run(s) marked as %s\n", swept, models.RunStatusFailed)
			return nil
		},
	}
}

func newSetProfileCmd() *cobra.Command {
	profile := models.UserProfile{}

	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Map a token identity to a tenant and role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			if ok, missing := app.roles.CheckCapabilities(profile.Role, nil); !ok {
				return fmt.Errorf("unknown %s %q", missing, profile.Role)
			}
			if err := app.repo.CreateProfile(cmd.Context(), profile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> tenant %s, role %s\n", profile.UserID, profile.TenantID, profile.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&profile.UserID, "user", "", "identity claim value")
	cmd.Flags().StringVar(&profile.TenantID, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&profile.Role, "role", "viewer", "role name")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
