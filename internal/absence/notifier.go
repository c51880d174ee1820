// absence-sms - parent notifications for absent students
// Copyright (C) 2026  absence-sms contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package absence implements the callable that texts a parent when their
// child is marked absent.
package absence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jredh-dev/absence-sms/internal/callable"
	"github.com/jredh-dev/absence-sms/internal/identity"
	"github.com/jredh-dev/absence-sms/internal/metrics"
	"github.com/jredh-dev/absence-sms/internal/sms"
)

// FunctionName is the callable name clients invoke.
const FunctionName = "sendAbsentSMS"

// Caller-visible messages.
const (
	msgAuthRequired  = "Authentication required"
	msgMissingFields = "Missing required fields"
	msgSendFailed    = "SMS sending failed"
)

// Request is the callable payload.
type Request struct {
	Mobile      string `json:"mobile"`
	StudentName string `json:"studentName"`
	Date        string `json:"date"`
}

// Result is returned to the caller on success.
type Result struct {
	Success  bool            `json:"success"`
	Fast2SMS json.RawMessage `json:"fast2sms"`
}

// Notifier sends absence notifications. It holds no mutable state and is
// safe for concurrent use.
type Notifier struct {
	sender  sms.Sender
	logger  zerolog.Logger
	metrics *metrics.Metrics
	hasher  *identity.Hasher
	now     func() time.Time
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithRecipientHasher sets the hasher for the recipient_hash log field.
// The default uses a per-process random key.
func WithRecipientHasher(h *identity.Hasher) Option {
	return func(n *Notifier) {
		if h != nil {
			n.hasher = h
		}
	}
}

// New creates a Notifier. m may be nil.
func New(sender sms.Sender, logger zerolog.Logger, m *metrics.Metrics, opts ...Option) *Notifier {
	n := &Notifier{
		sender:  sender,
		logger:  logger.With().Str("function", FunctionName).Logger(),
		metrics: m,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.hasher == nil {
		n.hasher = identity.NewHasher(nil)
	}
	return n
}

// Notify is the callable.Func for sendAbsentSMS.
func (n *Notifier) Notify(ctx context.Context, req *callable.Request) (interface{}, error) {
	if req.Auth == nil {
		n.metrics.Notification(metrics.OutcomeUnauthenticated)
		return nil, callable.NewError(callable.CodeUnauthenticated, msgAuthRequired)
	}

	in, ok := decodeRequest(req.Data)
	if !ok {
		n.metrics.Notification(metrics.OutcomeInvalidArgument)
		return nil, callable.NewError(callable.CodeInvalidArgument, msgMissingFields)
	}

	msg := sms.OutboundMessage{
		ID:   uuid.New().String(),
		To:   in.Mobile,
		Body: ComposeMessage(in.StudentName, in.Date),
	}

	start := n.now()
	body, err := n.sender.Send(ctx, msg)
	n.metrics.ProviderCall(n.now().Sub(start), err)
	if err != nil {
		n.metrics.Notification(metrics.OutcomeProviderError)
		return nil, n.maskProviderError(msg, req.Auth.UID, err)
	}

	n.metrics.Notification(metrics.OutcomeSent)
	n.logger.Info().
		Str("notification_id", msg.ID).
		Str("caller_uid", req.Auth.UID).
		Str("recipient_hash", n.hasher.PhoneHash(msg.To)).
		Msg("absence sms sent")

	return &Result{Success: true, Fast2SMS: body}, nil
}

// maskProviderError is the single place provider failures cross into the
// caller's view: full detail goes to the log, the caller gets a fixed message.
func (n *Notifier) maskProviderError(msg sms.OutboundMessage, uid string, err error) error {
	n.logger.Error().
		Err(err).
		Str("notification_id", msg.ID).
		Str("caller_uid", uid).
		Str("recipient_hash", n.hasher.PhoneHash(msg.To)).
		Msg("sms sending failed")
	return callable.NewError(callable.CodeInternal, msgSendFailed)
}

// decodeRequest extracts the payload. Keys are matched exactly and each
// value must be a non-empty JSON string; nothing else about them is checked.
func decodeRequest(data json.RawMessage) (Request, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Request{}, false
	}

	var in Request
	for key, dst := range map[string]*string{
		"mobile":      &in.Mobile,
		"studentName": &in.StudentName,
		"date":        &in.Date,
	} {
		raw, ok := fields[key]
		if !ok {
			return Request{}, false
		}
		if err := json.Unmarshal(raw, dst); err != nil || *dst == "" {
			return Request{}, false
		}
	}
	return in, true
}
