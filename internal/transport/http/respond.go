// Copyright 2026 The Fieldbook Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/observability/logger"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind authz.Kind) int {
	switch kind {
	case authz.KindUnauthorized:
		return http.StatusUnauthorized
	case authz.KindForbidden:
		return http.StatusForbidden
	case authz.KindNotFound:
		return http.StatusNotFound
	case authz.KindBadRequest:
		return http.StatusBadRequest
	case authz.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes a service error using its public message.
// Internal errors are logged with their cause and answered generically.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := authz.KindOf(err)
	if kind == authz.KindInternal {
		actor := GetActor(r.Context())
		slog.ErrorContext(r.Context(), "request failed",
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.TenantID(actor.TenantID),
			logger.UserID(actor.UserID),
			logger.Error(err),
		)
	}
	respondError(w, statusFor(kind), authz.PublicMessage(err))
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return authz.BadRequest("invalid request body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return authz.BadRequest("invalid request body")
	}
	return nil
}
