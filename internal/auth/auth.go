// absence-sms - parent notifications for absent students
// Copyright (C) 2026  absence-sms contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package auth verifies caller ID tokens. Production uses Firebase Auth;
// local development and tests use HS256 tokens signed with a shared key.
package auth

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// Identity is the authenticated caller attached to an invocation.
type Identity struct {
	UID    string
	Email  string
	Claims map[string]interface{}
}

// Verifier turns a bearer ID token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// idTokenVerifier is the subset of *auth.Client used here.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier validates Firebase ID tokens. When the process runs with
// FIREBASE_AUTH_EMULATOR_HOST set, the SDK accepts emulator-issued tokens.
type FirebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier wraps a Firebase auth client.
func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// Verify validates a Firebase ID token and returns the caller identity.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if idToken == "" {
		return nil, ErrMissingToken
	}
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := &Identity{UID: token.UID, Claims: token.Claims}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	return id, nil
}
