// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/archivist/internal/auth"
	"github.com/tomtom215/archivist/internal/config"
	"github.com/tomtom215/archivist/internal/models"
)

// newRootCommand builds the CLI. Running it without a subcommand starts the
// server.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "archivist",
		Short:         "Backup job orchestration and artifact lifecycle server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	root.AddCommand(
		newServeCommand(),
		newTokenCommand(),
		newVersionCommand(),
	)
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// newTokenCommand issues a signed capability token. It needs AUTH_MODE=jwt
// and JWT_SECRET in the environment or config file.
func newTokenCommand() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a signed capability token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithKoanf()
			if err != nil {
				return err
			}
			return issueToken(cmd.OutOrStdout(), &cfg.Security, args[0], label)
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "free-form label stored in the token")
	return cmd
}

func issueToken(w io.Writer, sec *config.SecurityConfig, subject, label string) error {
	if sec.AuthMode != string(auth.AuthModeJWT) {
		return fmt.Errorf("token issuing requires AUTH_MODE=jwt (current: %q)", sec.AuthMode)
	}
	manager, err := auth.NewJWTManager(sec)
	if err != nil {
		return err
	}

	ttl := sec.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	issuedAt := time.Now()
	token, err := manager.GenerateToken(subject, label)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(models.TokenResponse{
		Token:     token,
		Subject:   subject,
		ExpiresAt: issuedAt.Add(ttl).UTC(),
	})
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "archivist", version)
		},
	}
}
