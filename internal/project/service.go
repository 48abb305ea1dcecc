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

package project

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fieldbook/fieldbook/internal/audit"
	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/id"
	"github.com/fieldbook/fieldbook/internal/idempotent"
	"github.com/fieldbook/fieldbook/internal/observability/logger"
	"github.com/fieldbook/fieldbook/internal/store"
)

// Options tune service behavior that is a product decision rather than an
// invariant.
type Options struct {
	// ReaddUpdatesRole makes AddMember change the role of an existing
	// membership when the requested role differs. Off by default: re-adding
	// returns the existing membership untouched.
	ReaddUpdatesRole bool
}

// Service provides project management business logic
type Service struct {
	repo        Repository
	members     MembershipRepository
	users       UserDirectory
	resolver    *authz.Resolver
	auditLogger audit.Logger
	idem        *idempotent.Manager
	opts        Options
	now         func() time.Time
}

// NewService creates a new project service
func NewService(
	repo Repository,
	members MembershipRepository,
	users UserDirectory,
	resolver *authz.Resolver,
	auditLogger audit.Logger,
	idem *idempotent.Manager,
	opts Options,
) *Service {
	return &Service{
		repo:        repo,
		members:     members,
		users:       users,
		resolver:    resolver,
		auditLogger: auditLogger,
		idem:        idem,
		opts:        opts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput holds the caller-supplied fields of a new project.
type CreateInput struct {
	Name      string
	Address   string
	Latitude  *float64
	Longitude *float64
}

// CreateProject creates an ACTIVE project and makes the creator its OWNER member.
func (s *Service) CreateProject(ctx context.Context, actor authz.Actor, in CreateInput) (*Project, error) {
	if !actor.Authenticated() {
		return nil, authz.Unauthorized()
	}
	if !authz.CanCreateProject(actor) {
		return nil, authz.Forbidden()
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, authz.BadRequest("project name is required")
	}

	now := s.now()
	p := &Project{
		ID:        id.NewUUIDv7(),
		TenantID:  actor.TenantID,
		Name:      name,
		Status:    StatusActive,
		Address:   in.Address,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := &Membership{
		ID:        id.NewUUIDv7(),
		TenantID:  actor.TenantID,
		ProjectID: p.ID,
		UserID:    actor.UserID,
		Role:      authz.RoleOwner,
		CreatedAt: now,
	}

	if err := s.repo.CreateWithOwner(ctx, p, owner); err != nil {
		return nil, authz.Internal(err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		TenantID:   actor.TenantID,
		ActorID:    actor.UserID,
		ProjectID:  &p.ID,
		EntityType: audit.EntityProject,
		EntityID:   p.ID,
		Action:     audit.ActionCreated,
		Metadata:   audit.Metadata(map[string]string{"name": p.Name}),
	})

	return p, nil
}

// GetProject returns a project the actor is a member of.
func (s *Service) GetProject(ctx context.Context, actor authz.Actor, projectID string) (*Project, error) {
	if err := s.resolver.RequireProjectMember(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.load(ctx, actor.TenantID, projectID)
}

// ListProjects returns the projects the actor is a member of.
func (s *Service) ListProjects(ctx context.Context, actor authz.Actor) ([]*Project, error) {
	if !actor.Authenticated() {
		return nil, authz.Unauthorized()
	}
	projects, err := s.repo.ListForMember(ctx, actor.TenantID, actor.UserID)
	if err != nil {
		return nil, authz.Internal(err)
	}
	return projects, nil
}

// ArchiveProject archives an ACTIVE project. Archiving an already archived
// project returns it unchanged.
func (s *Service) ArchiveProject(ctx context.Context, actor authz.Actor, projectID string) (*Project, error) {
	if err := s.resolver.RequireProjectPolicy(ctx, actor, projectID, authz.CanArchiveProject); err != nil {
		return nil, err
	}

	p, err := s.repo.Archive(ctx, actor.TenantID, projectID, s.now())
	if errors.Is(err, store.ErrNotFound) {
		// Either already archived or deleted since the existence check.
		return s.load(ctx, actor.TenantID, projectID)
	}
	if err != nil {
		return nil, authz.Internal(err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		TenantID:   actor.TenantID,
		ActorID:    actor.UserID,
		ProjectID:  &p.ID,
		EntityType: audit.EntityProject,
		EntityID:   p.ID,
		Action:     audit.ActionArchived,
	})

	return p, nil
}

func (s *Service) load(ctx context.Context, tenantID, projectID string) (*Project, error) {
	p, err := s.repo.GetByID(ctx, tenantID, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, authz.NotFound("project")
	}
	if err != nil {
		return nil, authz.Internal(err)
	}
	return p, nil
}

// AddMember adds userID to the project with role. Adding an existing member
// returns the stored membership and, unless Options.ReaddUpdatesRole is set,
// leaves its role as it was.
func (s *Service) AddMember(ctx context.Context, actor authz.Actor, projectID, userID string, role authz.Role) (idempotent.Result[*Membership], error) {
	var zero idempotent.Result[*Membership]

	if err := s.resolver.RequireProjectPolicy(ctx, actor, projectID, authz.CanManageProjectMembers); err != nil {
		return zero, err
	}
	if !role.Valid() {
		return zero, authz.BadRequest("invalid project role")
	}
	if userID == "" {
		return zero, authz.BadRequest("user_id is required")
	}

	inTenant, err := s.users.UserInTenant(ctx, actor.TenantID, userID)
	if err != nil {
		return zero, authz.Internal(err)
	}
	if !inTenant {
		return zero, authz.NotFound("user")
	}

	res, err := idempotent.GetOrCreate(ctx, s.idem, idempotent.Spec[*Membership]{
		Resource: "project_member",
		Lookup: func(ctx context.Context) (*Membership, error) {
			return s.members.GetMembership(ctx, actor.TenantID, projectID, userID)
		},
		Insert: func(ctx context.Context) (*Membership, error) {
			m := &Membership{
				ID:        id.NewUUIDv7(),
				TenantID:  actor.TenantID,
				ProjectID: projectID,
				UserID:    userID,
				Role:      role,
				CreatedAt: s.now(),
			}
			if err := s.members.InsertMembership(ctx, m); err != nil {
				return nil, err
			}
			return m, nil
		},
		OnCreate: func(ctx context.Context, m *Membership) {
			s.auditLogger.Log(ctx, audit.Event{
				TenantID:   actor.TenantID,
				ActorID:    actor.UserID,
				ProjectID:  &m.ProjectID,
				EntityType: audit.EntityProjectMember,
				EntityID:   m.ID,
				Action:     audit.ActionMemberAdded,
				Metadata:   audit.Metadata(map[string]string{"user_id": m.UserID, "role": string(m.Role)}),
			})
		},
	})
	if err != nil {
		return zero, authz.Internal(err)
	}

	if res.Created || res.Value.Role == role || !s.opts.ReaddUpdatesRole {
		return res, nil
	}

	previous := res.Value.Role
	updated, err := s.members.UpdateMembershipRole(ctx, actor.TenantID, projectID, userID, role)
	if err != nil {
		return zero, authz.Internal(err)
	}
	slog.InfoContext(ctx, "project member role changed on re-add",
		logger.TenantID(actor.TenantID),
		logger.ProjectID(projectID),
		logger.UserID(userID),
	)
	s.auditLogger.Log(ctx, audit.Event{
		TenantID:   actor.TenantID,
		ActorID:    actor.UserID,
		ProjectID:  &updated.ProjectID,
		EntityType: audit.EntityProjectMember,
		EntityID:   updated.ID,
		Action:     audit.ActionRoleChanged,
		Metadata:   audit.Metadata(map[string]string{"from": string(previous), "to": string(role)}),
	})
	res.Value = updated
	return res, nil
}

// ListMembers returns the memberships of a project the actor belongs to.
func (s *Service) ListMembers(ctx context.Context, actor authz.Actor, projectID string) ([]*Membership, error) {
	if err := s.resolver.RequireProjectMember(ctx, actor, projectID); err != nil {
		return nil, err
	}
	members, err := s.members.ListMembers(ctx, actor.TenantID, projectID)
	if err != nil {
		return nil, authz.Internal(err)
	}
	return members, nil
}
