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

package tenant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fieldbook/fieldbook/internal/audit"
	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/store"
)

// Service provides company management business logic
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new tenant service
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
	}
}

// GetCompany returns the actor's own company. Any other id is reported as
// not found.
func (s *Service) GetCompany(ctx context.Context, actor authz.Actor, companyID string) (*Company, error) {
	if !actor.Authenticated() {
		return nil, authz.Unauthorized()
	}
	if companyID != actor.TenantID {
		return nil, authz.NotFound("company")
	}

	c, err := s.repo.GetByID(ctx, companyID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, authz.NotFound("company")
	}
	if err != nil {
		return nil, authz.Internal(err)
	}
	return c, nil
}

// RenameCompany changes the actor's company name. Owners only.
func (s *Service) RenameCompany(ctx context.Context, actor authz.Actor, name string) (*Company, error) {
	if !actor.Authenticated() {
		return nil, authz.Unauthorized()
	}
	if !authz.CanManageCompanyUsers(actor) {
		return nil, authz.Forbidden()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, authz.BadRequest("company name is required")
	}

	c, err := s.repo.Rename(ctx, actor.TenantID, name, time.Now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return nil, authz.NotFound("company")
	}
	if err != nil {
		return nil, authz.Internal(err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		TenantID:   actor.TenantID,
		ActorID:    actor.UserID,
		EntityType: audit.EntityCompany,
		EntityID:   c.ID,
		Action:     audit.ActionUpdated,
		Metadata:   audit.Metadata(map[string]string{"name": c.Name}),
	})
	return c, nil
}
