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

// Package objectkey derives and validates storage object keys. A key encodes
// the owning tenant and, optionally, project:
//
//	companies/{tenantID}/projects/{projectID}/files/{randomID}
//	companies/{tenantID}/files/{randomID}
//
// Validation is an exact prefix match against the caller's own tenant and
// project. It does not consult the database.
package objectkey

import (
	"errors"
	"strings"

	"github.com/fieldbook/fieldbook/internal/id"
)

const root = "companies"

var (
	// ErrInvalidKey is returned when a key is outside the caller's namespace.
	ErrInvalidKey = errors.New("object key is outside the caller's namespace")

	// ErrInvalidScope is returned when a tenant or project id cannot be
	// embedded in a key.
	ErrInvalidScope = errors.New("invalid object key scope")
)

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, "/\\")
}

// Prefix returns the namespace prefix for a tenant, or for a project inside
// it when projectID is non-nil. The prefix always ends with "/".
func Prefix(tenantID string, projectID *string) (string, error) {
	if !validSegment(tenantID) {
		return "", ErrInvalidScope
	}
	if projectID == nil {
		return root + "/" + tenantID + "/files/", nil
	}
	if !validSegment(*projectID) {
		return "", ErrInvalidScope
	}
	return root + "/" + tenantID + "/projects/" + *projectID + "/files/", nil
}

// New returns a fresh key under the tenant or project namespace. The final
// segment is random and never derived from user input.
func New(tenantID string, projectID *string) (string, error) {
	prefix, err := Prefix(tenantID, projectID)
	if err != nil {
		return "", err
	}
	return prefix + id.NewRandom(), nil
}

// Validate checks that key lies directly under the namespace of tenantID
// and projectID. A tenant-scoped check (nil projectID) does not accept
// project-scoped keys, and the reverse.
func Validate(key, tenantID string, projectID *string) error {
	prefix, err := Prefix(tenantID, projectID)
	if err != nil {
		return ErrInvalidKey
	}
	if !strings.HasPrefix(key, prefix) {
		return ErrInvalidKey
	}
	if !validSegment(strings.TrimPrefix(key, prefix)) {
		return ErrInvalidKey
	}
	return nil
}
