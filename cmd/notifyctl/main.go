// absence-sms - parent notifications for absent students
// Copyright (C) 2026  absence-sms contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// notifyctl is an operator tool for the absence-sms service: it mints
// development ID tokens and invokes the sendAbsentSMS callable.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jredh-dev/absence-sms/internal/absence"
	"github.com/jredh-dev/absence-sms/internal/auth"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "notifyctl",
		Short:        "Operate the absence-sms callable",
		SilenceUsage: true,
	}
	root.AddCommand(newTokenCmd(), newSendCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "notifyctl %s (%s)\n", version, commit)
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		uid, email, signingKey, issuer string
		ttl                            time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development ID token (AUTH_MODE=jwt)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if signingKey == "" {
				signingKey = os.Getenv("JWT_SIGNING_KEY")
			}
			v, err := auth.NewJWTVerifier(signingKey, issuer)
			if err != nil {
				return err
			}
			tok, err := v.Issue(uid, email, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "caller uid")
	cmd.Flags().StringVar(&email, "email", "", "caller email")
	cmd.Flags().StringVar(&signingKey, "signing-key", "", "HS256 key (default $JWT_SIGNING_KEY)")
	cmd.Flags().StringVar(&issuer, "issuer", "absence-sms.local", "token issuer")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}

func newSendCmd() *cobra.Command {
	var (
		url, token string
		req        absence.Request
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Invoke sendAbsentSMS and print the response",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newClient(url, timeout)
			status, body, err := c.invoke(cmd.Context(), token, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			if status != 200 {
				return fmt.Errorf("callable returned HTTP %d", status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:8080/"+absence.FunctionName, "callable URL")
	cmd.Flags().StringVar(&token, "token", os.Getenv("ID_TOKEN"), "ID token (default $ID_TOKEN)")
	cmd.Flags().StringVar(&req.Mobile, "mobile", "", "parent mobile number")
	cmd.Flags().StringVar(&req.StudentName, "student", "", "student name")
	cmd.Flags().StringVar(&req.Date, "date", "", "absence date")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	return cmd
}
