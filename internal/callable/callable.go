// absence-sms - parent notifications for absent students
// Copyright (C) 2026  absence-sms contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package callable serves Go functions over the Firebase callable protocol.
//
// Requests are JSON POSTs of the form {"data": ...} with an optional
// "Authorization: Bearer <idToken>" header. Successful calls answer
// {"result": ...}; failures answer {"error": {"status": ..., "message": ...}}
// with the HTTP status matching the error code.
package callable

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jredh-dev/absence-sms/internal/auth"
	"github.com/jredh-dev/absence-sms/internal/metrics"
)

// maxBodyBytes bounds the size of a callable request body.
const maxBodyBytes = 1 << 20

// Request is the invocation context handed to a Func.
type Request struct {
	// Auth is nil when the caller presented no ID token.
	Auth *auth.Identity
	// Data is the raw "data" member of the request body.
	Data json.RawMessage
	// RawRequest is the originating HTTP request.
	RawRequest *http.Request
}

// Func is a callable function. It returns a JSON-encodable result or an error;
// a *Error is reported to the caller verbatim.
type Func func(ctx context.Context, req *Request) (interface{}, error)

// Handler adapts a Func to the callable protocol.
type Handler struct {
	name     string
	fn       Func
	verifier auth.Verifier
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewHandler creates a Handler for fn. name labels logs and metrics.
func NewHandler(name string, fn Func, verifier auth.Verifier, logger zerolog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		name:     name,
		fn:       fn,
		verifier: verifier,
		logger:   logger.With().Str("function", name).Logger(),
		metrics:  m,
	}
}

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()

	if r.Method != http.MethodPost {
		h.writeError(w, NewError(CodeInvalidArgument, "Bad Request"))
		return
	}

	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		h.writeError(w, NewError(CodeInvalidArgument, "Bad Request"))
		return
	}

	// "data" is required but may be null.
	var body map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		log.Debug().Err(err).Msg("callable: malformed request body")
		h.writeError(w, NewError(CodeInvalidArgument, "Bad Request"))
		return
	}
	data, ok := body["data"]
	if !ok {
		h.writeError(w, NewError(CodeInvalidArgument, "Bad Request"))
		return
	}

	req := &Request{Data: data, RawRequest: r}

	if header := r.Header.Get("Authorization"); header != "" {
		id, err := h.verifier.Verify(r.Context(), bearerToken(header))
		if err != nil {
			log.Warn().Err(err).Msg("callable: rejected id token")
			h.writeError(w, NewError(CodeUnauthenticated, "Unauthenticated"))
			return
		}
		req.Auth = id
	}

	result, err := h.fn(r.Context(), req)
	if err != nil {
		var cerr *Error
		if !errors.As(err, &cerr) {
			log.Error().Err(err).Msg("callable: unhandled error")
			cerr = NewError(CodeInternal, "INTERNAL")
		}
		h.writeError(w, cerr)
		return
	}

	h.metrics.CallableResponse(h.name, "OK")
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": result})
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	h.metrics.CallableResponse(h.name, e.Code.Status())
	writeJSON(w, e.Code.HTTPStatus(), map[string]errorBody{
		"error": {Status: e.Code.Status(), Message: e.Message},
	})
}

// bearerToken strips the "Bearer " scheme. A header without the scheme is
// returned unchanged so verification fails on it rather than silently
// running unauthenticated.
func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) >= len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return header
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
