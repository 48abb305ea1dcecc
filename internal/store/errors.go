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

// Package store holds the storage-level error contract shared by every
// repository implementation.
package store

import "errors"

var (
	// ErrNotFound is returned by point lookups that match no row.
	ErrNotFound = errors.New("record not found")

	// ErrUniqueViolation is returned by inserts rejected by a uniqueness
	// constraint. It must be distinguishable from any other write failure.
	ErrUniqueViolation = errors.New("unique constraint violation")
)
