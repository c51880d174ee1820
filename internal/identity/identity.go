// absence-sms - parent notifications for absent students
// Copyright (C) 2026  absence-sms contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package identity normalizes and hashes phone numbers so that log lines can
// correlate deliveries to the same recipient without carrying the number.
package identity

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// indiaCountryCode is prepended to bare 10-digit mobile numbers.
const indiaCountryCode = "91"

// NormalizePhone strips a phone number down to digits, dropping leading
// zeros (trunk and international prefixes). A 10-digit result is treated as
// an Indian mobile number without country code and gets "91" prepended.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}

	result := strings.TrimLeft(digits.String(), "0")

	if len(result) == 10 {
		result = indiaCountryCode + result
	}

	return result
}

// keySize is the length of a generated hashing key.
const keySize = 32

// Hasher produces keyed phone hashes. Without the key a hash cannot be
// reversed by enumerating the number space.
type Hasher struct {
	key []byte
}

// NewHasher creates a Hasher keyed with key. An empty key is replaced by a
// random one, so hashes only correlate within the running process.
func NewHasher(key []byte) *Hasher {
	if len(key) == 0 {
		key = make([]byte, keySize)
		if _, err := rand.Read(key); err != nil {
			panic("identity: read random key: " + err.Error())
		}
	}
	return &Hasher{key: append([]byte(nil), key...)}
}

// HashIdentifier returns the hex-encoded HMAC-SHA256 of normalized.
func (h *Hasher) HashIdentifier(normalized string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(normalized)) //nolint:errcheck
	return hex.EncodeToString(mac.Sum(nil))
}

// PhoneHash normalizes the phone number and returns its keyed hash.
func (h *Hasher) PhoneHash(phone string) string {
	return h.HashIdentifier(NormalizePhone(phone))
}
