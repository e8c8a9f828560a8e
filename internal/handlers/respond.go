// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON REST handlers of the bizdir API.
// Handlers are grouped by concern and receive their dependencies through
// the handler struct; business rules live in the services they call.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bizdir/internal/apperr"
	"bizdir/internal/auth"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

// writeError maps err through the error taxonomy. Internal errors are
// logged here and masked in the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	code, msg := apperr.Public(err)
	writeJSON(w, apperr.HTTPStatus(kind), errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// decodeJSON reads a single JSON object into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperr.InvalidInput("body_too_large", "Request body is too large.")
		case errors.Is(err, io.EOF):
			return apperr.InvalidInput("empty_body", "Request body is required.")
		default:
			return apperr.Wrap(apperr.KindInvalidInput, "invalid_json", "Request body is not valid JSON: "+err.Error(), err)
		}
	}
	if dec.More() {
		return apperr.InvalidInput("invalid_json", "Request body must contain a single JSON object.")
	}
	return validateStruct(dst)
}

// pathUUID parses a UUID route parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.InvalidInput("invalid_id", name+" is not a valid identifier.")
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidInput("invalid_"+name, name+" must be an integer.")
	}
	return n, nil
}

// queryBool reads an optional boolean query parameter.
func queryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.InvalidInput("invalid_"+name, name+" must be true or false.")
	}
	return b, nil
}

// principal returns the caller placed in the context by the auth
// middleware. Routes without RequireAuth get the zero principal.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}
