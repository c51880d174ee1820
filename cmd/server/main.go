// absence-sms - parent notifications for absent students
// Copyright (C) 2026  absence-sms contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// server hosts the sendAbsentSMS callable.
//
// Configuration comes from environment variables (optionally seeded from a
// .env file in the working directory) and an optional YAML file:
//
//	PORT                        listen port (default 8080)
//	AUTH_MODE                   firebase | jwt
//	FIREBASE_PROJECT_ID         Firebase / GCP project
//	USE_FIREBASE_EMULATOR       verify tokens against the Auth emulator
//	LOG_HASH_KEY                key for recipient hashes in logs
//	SECRET_SOURCE               env | secretmanager
//	FAST2SMS_KEY                provider key when SECRET_SOURCE=env
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/api/option"

	"github.com/jredh-dev/absence-sms/config"
	"github.com/jredh-dev/absence-sms/internal/absence"
	"github.com/jredh-dev/absence-sms/internal/auth"
	"github.com/jredh-dev/absence-sms/internal/callable"
	"github.com/jredh-dev/absence-sms/internal/gohttp"
	"github.com/jredh-dev/absence-sms/internal/identity"
	"github.com/jredh-dev/absence-sms/internal/logger"
	"github.com/jredh-dev/absence-sms/internal/metrics"
	"github.com/jredh-dev/absence-sms/internal/secrets"
	"github.com/jredh-dev/absence-sms/internal/sms"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("absence-sms %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "absence-sms: load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "absence-sms: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "absence-sms: logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token verifier")
	}

	resolver, err := newResolver(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize secret resolver")
	}

	m := metrics.New()
	apiKey := secrets.Define(cfg.Fast2SMS.SecretName, resolver)
	sender := sms.NewFast2SMSSender(apiKey,
		sms.WithEndpoint(cfg.Fast2SMS.Endpoint),
		sms.WithTimeout(cfg.Fast2SMS.Timeout),
	)
	notifier := absence.New(sender, log, m,
		absence.WithRecipientHasher(identity.NewHasher([]byte(cfg.Log.HashKey))),
	)

	srv := gohttp.New(log)
	srv.Router.Handle("/metrics", m.Handler())
	srv.Router.Handle("/"+absence.FunctionName, otelhttp.NewHandler(
		callable.NewHandler(absence.FunctionName, notifier.Notify, verifier, log, m),
		absence.FunctionName,
	))

	started := time.Now()
	srv.OnStop(func() {
		log.Info().
			Dur("uptime", time.Since(started)).
			Msg("absence-sms stopping")
	})

	log.Info().
		Str("env", cfg.Server.Env).
		Str("auth_mode", cfg.Auth.Mode).
		Str("secret_source", cfg.Fast2SMS.SecretSource).
		Stringer("api_key", apiKey).
		Str("version", version).
		Msg("absence-sms configured")

	if err := srv.ListenAndServe(":" + cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

// newVerifier builds the ID token verifier for the configured auth mode.
func newVerifier(ctx context.Context, cfg *config.Config) (auth.Verifier, error) {
	if cfg.Auth.Mode == config.AuthModeJWT {
		v, err := auth.NewJWTVerifier(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)
		if err != nil {
			return nil, err
		}
		return v, nil
	}

	// The Admin SDK reads the emulator host from the environment.
	if cfg.Firebase.UseEmulator {
		if err := os.Setenv("FIREBASE_AUTH_EMULATOR_HOST", cfg.Firebase.EmulatorAuthHost); err != nil {
			return nil, fmt.Errorf("set emulator host: %w", err)
		}
	}

	var opts []option.ClientOption
	if cfg.Firebase.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return auth.NewFirebaseVerifier(client), nil
}

// newResolver builds the secret resolver for the configured source.
func newResolver(ctx context.Context, cfg *config.Config) (secrets.Resolver, error) {
	if cfg.Fast2SMS.SecretSource != config.SecretSourceSecretManager {
		return secrets.EnvResolver{}, nil
	}

	var opts []option.ClientOption
	if cfg.Firebase.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsPath))
	}
	r, err := secrets.NewSecretManagerResolver(ctx, cfg.Firebase.ProjectID, opts...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

