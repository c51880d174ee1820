// absence-sms - parent notifications for absent students
// Copyright (C) 2026  absence-sms contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package secrets resolves named credentials at invocation time. Values are
// never embedded in source and never printed.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrNotFound is returned when a secret has no value in its backing store.
var ErrNotFound = errors.New("secret not found")

// Resolver looks up the current value of a named secret.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// EnvResolver reads secrets from the process environment. Cloud Run and
// Cloud Functions expose bound Secret Manager secrets this way.
type EnvResolver struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(key string) (string, bool)
}

// Resolve returns the environment value for name.
func (r EnvResolver) Resolve(_ context.Context, name string) (string, error) {
	lookup := r.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(name)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return v, nil
}

// Secret is a named secret definition bound to a resolver.
type Secret struct {
	name     string
	resolver Resolver
}

// Define declares a secret by name.
func Define(name string, r Resolver) *Secret {
	return &Secret{name: name, resolver: r}
}

// Name returns the secret's name.
func (s *Secret) Name() string {
	return s.name
}

// Value resolves the secret. An empty value is reported as ErrNotFound.
func (s *Secret) Value(ctx context.Context) (string, error) {
	v, err := s.resolver.Resolve(ctx, s.name)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", s.name, err)
	}
	if v == "" {
		return "", fmt.Errorf("resolve %s: %w", s.name, ErrNotFound)
	}
	return v, nil
}

// String implements fmt.Stringer without exposing the value.
func (s *Secret) String() string {
	return "secret(" + s.name + ")"
}
