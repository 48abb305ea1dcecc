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


package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/fieldbook/fieldbook/internal/identity"
	"github.com/fieldbook/fieldbook/internal/store"
	"github.com/fieldbook/fieldbook/internal/tenant"
)

// Users returns the user and credential tables as an identity.UserRepository.
// Users created through it are also visible to UserInTenant.
func (s *Store) Users() identity.UserRepository {
	return userRepo{s}
}

// Companies returns the company table as a tenant.Repository.
func (s *Store) Companies() tenant.Repository {
	return companyRepo{s}
}

type userRepo struct{ s *Store }

// emailTaken must be called with the lock held.
func (r userRepo) emailTaken(email string) bool {
	for _, u := range r.s.accounts {
		if u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// put must be called with the lock held.
func (r userRepo) put(u *identity.User, cred *identity.Credentials) {
	cu := *u
	cc := *cred
	r.s.accounts[u.ID] = &cu
	r.s.credentials[u.ID] = &cc
	r.s.users[u.ID] = u.TenantID
	r.s.writes.Add(1)
}

func (r userRepo) CreateCompanyWithOwner(_ context.Context, c *tenant.Company, u *identity.User, cred *identity.Credentials) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.companies[c.ID]; ok || r.emailTaken(u.Email) {
		return store.ErrUniqueViolation
	}
	cc := *c
	r.s.companies[c.ID] = &cc
	r.put(u, cred)
	return nil
}

func (r userRepo) CreateUser(_ context.Context, u *identity.User, cred *identity.Credentials) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.emailTaken(u.Email) {
		return store.ErrUniqueViolation
	}
	r.put(u, cred)
	return nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.accounts {
		if u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
			cu := *u
			return &cu, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r userRepo) GetByID(_ context.Context, tenantID, userID string) (*identity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.accounts[userID]
	if !ok || u.TenantID != tenantID || u.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	cu := *u
	return &cu, nil
}

func (r userRepo) ListByTenant(_ context.Context, tenantID string) ([]*identity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*identity.User
	for _, u := range r.s.accounts {
		if u.TenantID == tenantID && u.DeletedAt == nil {
			cu := *u
			out = append(out, &cu)
		}
	}
	return out, nil
}

func (r userRepo) GetCredentials(_ context.Context, userID string) (*identity.Credentials, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.credentials[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (r userRepo) UpdateLockout(_ context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.accounts[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.FailedLoginAttempts = failedAttempts
	u.LockedUntil = lockedUntil
	return nil
}

type companyRepo struct{ s *Store }

func (r companyRepo) GetByID(_ context.Context, id string) (*tenant.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.companies[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (r companyRepo) Rename(_ context.Context, id, name string, at time.Time) (*tenant.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.companies[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c.Name = name
	c.UpdatedAt = at
	r.s.writes.Add(1)
	cc := *c
	return &cc, nil
}
