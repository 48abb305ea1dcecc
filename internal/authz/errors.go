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

package authz

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers outside the core.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindBadRequest
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified failure. Message is safe to show to the caller;
// Err holds the underlying cause and is never shown.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrForbidden)
// holds regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel values for errors.Is comparisons.
var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "not authenticated"}
	ErrForbidden    = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found"}
	ErrBadRequest   = &Error{Kind: KindBadRequest, Message: "bad request"}
	ErrConflict     = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInternal     = &Error{Kind: KindInternal, Message: "internal error"}
)

// Forbidden returns the generic forbidden error. It never says which check failed.
func Forbidden() error {
	return &Error{Kind: KindForbidden, Message: "forbidden"}
}

// NotFound returns a not-found error for the named resource.
func NotFound(resource string) error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// BadRequest returns a caller-actionable validation error.
func BadRequest(message string) error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// Conflict returns a caller-actionable conflict error.
func Conflict(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

// Unauthorized returns the missing-identity error.
func Unauthorized() error {
	return &Error{Kind: KindUnauthorized, Message: "not authenticated"}
}

// Internal wraps cause as an internal error. Already-classified errors pass
// through unchanged.
func Internal(cause error) error {
	if cause == nil {
		return nil
	}
	var e *Error
	if errors.As(cause, &e) {
		return cause
	}
	return &Error{Kind: KindInternal, Message: "internal error", Err: cause}
}

// KindOf returns the classification of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the text that may be shown to the caller for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal error"
}
