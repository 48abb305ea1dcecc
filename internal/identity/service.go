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

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/fieldbook/fieldbook/internal/audit"
	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/id"
	"github.com/fieldbook/fieldbook/internal/observability/logger"
	"github.com/fieldbook/fieldbook/internal/store"
	"github.com/fieldbook/fieldbook/internal/tenant"
)

// Service provides identity-related business logic
type Service struct {
	repo               UserRepository
	hasher             Hasher
	auditLogger        audit.Logger
	lockoutMaxAttempts int
	lockoutDuration    time.Duration
	now                func() time.Time
	// dummyHash is verified against when there is no real hash to check.
	dummyHash string
}

// NewService creates a new identity service
func NewService(
	repo UserRepository,
	hasher Hasher,
	auditLogger audit.Logger,
	lockoutMaxAttempts int,
	lockoutDuration time.Duration,
) *Service {
	dummyHash, err := hasher.Hash("fieldbook-unknown-account")
	if err != nil {
		slog.Error("failed to prepare dummy password hash", logger.Error(err))
	}
	return &Service{
		repo:               repo,
		hasher:             hasher,
		auditLogger:        auditLogger,
		lockoutMaxAttempts: lockoutMaxAttempts,
		lockoutDuration:    lockoutDuration,
		now:                func() time.Time { return time.Now().UTC() },
		dummyHash:          dummyHash,
	}
}

// RegisterInput creates a company and its first owner.
type RegisterInput struct {
	CompanyName string
	Email       string
	Name        string
	Password    string
}

// Register creates a company with an OWNER user. An email already in use
// anywhere is a Conflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*tenant.Company, *User, error) {
	companyName := strings.TrimSpace(in.CompanyName)
	if companyName == "" {
		return nil, nil, authz.BadRequest("company name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, nil, authz.BadRequest(err.Error())
	}
	if !isStrongPassword(in.Password) {
		return nil, nil, authz.BadRequest(ErrWeakPassword.Error())
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, authz.Internal(err)
	}

	now := s.now()
	company := &tenant.Company{
		ID:        id.NewUUIDv7(),
		Name:      companyName,
		Status:    tenant.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	user := &User{
		ID:        id.NewUUIDv7(),
		TenantID:  company.ID,
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		Role:      authz.RoleOwner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred := &Credentials{UserID: user.ID, PasswordHash: hash, UpdatedAt: now}

	if err := s.repo.CreateCompanyWithOwner(ctx, company, user, cred); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return nil, nil, authz.Conflict("email is already registered")
		}
		return nil, nil, authz.Internal(fmt.Errorf("failed to register company: %w", err))
	}

	s.auditLogger.Log(ctx, audit.Event{
		TenantID:   company.ID,
		ActorID:    user.ID,
		EntityType: audit.EntityCompany,
		EntityID:   company.ID,
		Action:     audit.ActionCreated,
		Metadata:   audit.Metadata(map[string]string{"name": company.Name}),
	})

	return company, user, nil
}

// ProvisionInput creates a user inside the actor's company.
type ProvisionInput struct {
	Email    string
	Name     string
	Password string
	Role     authz.Role
}

// ProvisionUser adds a user to the actor's company. Owners only.
func (s *Service) ProvisionUser(ctx context.Context, actor authz.Actor, in ProvisionInput) (*User, error) {
	if !actor.Authenticated() {
		return nil, authz.Unauthorized()
	}
	if !authz.CanManageCompanyUsers(actor) {
		return nil, authz.Forbidden()
	}

	role := in.Role
	if role == "" {
		role = authz.RoleMember
	}
	if !role.Valid() {
		return nil, authz.BadRequest("invalid role")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, authz.BadRequest(err.Error())
	}
	if !isStrongPassword(in.Password) {
		return nil, authz.BadRequest(ErrWeakPassword.Error())
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, authz.Internal(err)
	}

	now := s.now()
	user := &User{
		ID:        id.NewUUIDv7(),
		TenantID:  actor.TenantID,
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateUser(ctx, user, &Credentials{UserID: user.ID, PasswordHash: hash, UpdatedAt: now}); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return nil, authz.Conflict("email is already registered")
		}
		return nil, authz.Internal(fmt.Errorf("failed to create user: %w", err))
	}

	s.auditLogger.Log(ctx, audit.Event{
		TenantID:   actor.TenantID,
		ActorID:    actor.UserID,
		EntityType: audit.EntityUser,
		EntityID:   user.ID,
		Action:     audit.ActionCreated,
		Metadata:   audit.Metadata(map[string]string{"role": string(role)}),
	})

	return user, nil
}

// Authenticate checks an email and password. Every failure is reported as
// Unauthorized and costs one hash verification, so callers cannot probe
// which emails exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, authz.Internal(err)
		}
		s.verifyDummy(password)
		return nil, authz.Unauthorized()
	}

	now := s.now()
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		slog.WarnContext(ctx, "login attempt on locked account",
			logger.TenantID(user.TenantID),
			logger.UserID(user.ID),
		)
		s.verifyDummy(password)
		return nil, authz.Unauthorized()
	}

	cred, err := s.repo.GetCredentials(ctx, user.ID)
	if err != nil {
		s.verifyDummy(password)
		return nil, authz.Unauthorized()
	}

	// An expired lock starts a fresh series of attempts.
	failed := user.FailedLoginAttempts
	if user.LockedUntil != nil {
		failed = 0
	}

	valid, err := s.hasher.Verify(password, cred.PasswordHash)
	if err != nil || !valid {
		attempts := failed + 1
		var lockedUntil *time.Time
		if s.lockoutMaxAttempts > 0 && attempts >= s.lockoutMaxAttempts {
			until := now.Add(s.lockoutDuration)
			lockedUntil = &until
			slog.WarnContext(ctx, "account locked after failed logins",
				logger.TenantID(user.TenantID),
				logger.UserID(user.ID),
				slog.Int("attempts", attempts),
			)
		}
		if err := s.repo.UpdateLockout(ctx, user.ID, attempts, lockedUntil); err != nil {
			slog.ErrorContext(ctx, "failed to record failed login", logger.Error(err))
		}
		return nil, authz.Unauthorized()
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		if err := s.repo.UpdateLockout(ctx, user.ID, 0, nil); err != nil {
			slog.ErrorContext(ctx, "failed to reset lockout", logger.Error(err))
		}
	}

	return user, nil
}

// verifyDummy spends the same work as a real verification.
func (s *Service) verifyDummy(password string) {
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

// GetUser returns a user of the actor's company.
func (s *Service) GetUser(ctx context.Context, actor authz.Actor, userID string) (*User, error) {
	if !actor.Authenticated() {
		return nil, authz.Unauthorized()
	}
	user, err := s.repo.GetByID(ctx, actor.TenantID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, authz.NotFound("user")
	}
	if err != nil {
		return nil, authz.Internal(err)
	}
	return user, nil
}

// ListUsers returns the users of the actor's company.
func (s *Service) ListUsers(ctx context.Context, actor authz.Actor) ([]*User, error) {
	if !actor.Authenticated() {
		return nil, authz.Unauthorized()
	}
	users, err := s.repo.ListByTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, authz.Internal(err)
	}
	return users, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(email) > 254 {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func isStrongPassword(password string) bool {
	return len(password) >= 8
}
