// absence-sms - parent notifications for absent students
// Copyright (C) 2026  absence-sms contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package sms delivers outbound text messages through the Fast2SMS bulk API.
package sms

// OutboundMessage is one SMS to be delivered.
type OutboundMessage struct {
	// ID is generated per invocation and only used to correlate log lines.
	// Fast2SMS never sees it.
	ID string `json:"id"`

	// To is passed to the provider verbatim. Fast2SMS accepts a single
	// 10-digit number or a comma-separated list.
	To string `json:"to"`

	// Body is the UTF-8 message text.
	Body string `json:"body"`
}
