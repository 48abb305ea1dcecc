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
	"context"

	"github.com/fieldbook/fieldbook/internal/authz"
)

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a context carrying the authenticated actor.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor retrieves the authenticated actor from context. The zero Actor
// is returned when none is set and fails every authorization check.
func GetActor(ctx context.Context) authz.Actor {
	if val, ok := ctx.Value(actorKey).(authz.Actor); ok {
		return val
	}
	return authz.Actor{}
}
