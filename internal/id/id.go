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

// Package id generates identifiers for persisted entities.
package id

import "github.com/google/uuid"

// NewUUIDv7 returns a time-ordered UUIDv7 string.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewRandom returns a UUIDv4 string. Used where the identifier must not leak
// creation order, such as object storage keys.
func NewRandom() string {
	return uuid.NewString()
}
