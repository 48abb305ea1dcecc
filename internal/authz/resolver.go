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
	"context"
	"fmt"
)

// MembershipReader answers tenant-scoped existence questions. Implementations
// must filter on every id they are given.
type MembershipReader interface {
	// ProjectExists reports whether a non-deleted project matches both ids.
	ProjectExists(ctx context.Context, tenantID, projectID string) (bool, error)

	// IsMember reports whether a membership row matches all three ids.
	IsMember(ctx context.Context, tenantID, projectID, userID string) (bool, error)
}

// Resolver performs the I/O-backed half of authorization.
type Resolver struct {
	repo MembershipReader
}

// NewResolver creates a new resolver
func NewResolver(repo MembershipReader) *Resolver {
	return &Resolver{repo: repo}
}

// ProjectExists reports whether projectID exists inside tenantID. A project
// that lives in another tenant is indistinguishable from a missing one.
func (r *Resolver) ProjectExists(ctx context.Context, tenantID, projectID string) (bool, error) {
	if tenantID == "" || projectID == "" {
		return false, nil
	}
	ok, err := r.repo.ProjectExists(ctx, tenantID, projectID)
	if err != nil {
		return false, fmt.Errorf("failed to check project existence: %w", err)
	}
	return ok, nil
}

// IsMember reports whether userID is a member of projectID inside tenantID.
func (r *Resolver) IsMember(ctx context.Context, tenantID, projectID, userID string) (bool, error) {
	if tenantID == "" || projectID == "" || userID == "" {
		return false, nil
	}
	ok, err := r.repo.IsMember(ctx, tenantID, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check project membership: %w", err)
	}
	return ok, nil
}

// requireProject is step one of every project-scoped check.
func (r *Resolver) requireProject(ctx context.Context, actor Actor, projectID string) error {
	if !actor.Authenticated() {
		return Unauthorized()
	}
	exists, err := r.ProjectExists(ctx, actor.TenantID, projectID)
	if err != nil {
		return Internal(err)
	}
	if !exists {
		return NotFound("project")
	}
	return nil
}

// RequireProjectMember checks, in order, that the project exists in the
// actor's tenant (NotFound) and that the actor is a member (Forbidden).
func (r *Resolver) RequireProjectMember(ctx context.Context, actor Actor, projectID string) error {
	if err := r.requireProject(ctx, actor, projectID); err != nil {
		return err
	}
	member, err := r.IsMember(ctx, actor.TenantID, projectID, actor.UserID)
	if err != nil {
		return Internal(err)
	}
	if !member {
		return Forbidden()
	}
	return nil
}

// RequireProjectPolicy checks that the project exists in the actor's tenant
// (NotFound) and then that allow permits the actor (Forbidden).
func (r *Resolver) RequireProjectPolicy(ctx context.Context, actor Actor, projectID string, allow func(Actor) bool) error {
	if err := r.requireProject(ctx, actor, projectID); err != nil {
		return err
	}
	if !allow(actor) {
		return Forbidden()
	}
	return nil
}
