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
	"time"

	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/tenant"
)

// Domain errors
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrWeakPassword = errors.New("password does not meet security requirements")
)

// User is a person belonging to exactly one company. Role is the system
// role; project roles live on memberships.
type User struct {
	ID                  string     `json:"id"`
	TenantID            string     `json:"tenant_id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	Role                authz.Role `json:"role"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	DeletedAt           *time.Time `json:"-"`
}

// Actor returns the authorization identity of the user.
func (u *User) Actor() authz.Actor {
	return authz.Actor{UserID: u.ID, TenantID: u.TenantID, Role: u.Role}
}

// Credentials represents user authentication credentials
type Credentials struct {
	UserID       string
	PasswordHash string
	UpdatedAt    time.Time
}

// UserRepository defines the interface for user persistence. Email is
// unique across all companies; inserts return store.ErrUniqueViolation when
// it is taken.
type UserRepository interface {
	// CreateCompanyWithOwner inserts the company, its first user and the
	// user's credentials in one transaction.
	CreateCompanyWithOwner(ctx context.Context, c *tenant.Company, u *User, cred *Credentials) error

	// CreateUser inserts a user and credentials in one transaction.
	CreateUser(ctx context.Context, u *User, cred *Credentials) error

	// GetByEmail returns a non-deleted user or store.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID returns a non-deleted user of the tenant or store.ErrNotFound.
	GetByID(ctx context.Context, tenantID, userID string) (*User, error)

	// ListByTenant returns the non-deleted users of a tenant.
	ListByTenant(ctx context.Context, tenantID string) ([]*User, error)

	// GetCredentials retrieves user credentials
	GetCredentials(ctx context.Context, userID string) (*Credentials, error)

	// UpdateLockout updates user lockout status
	UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error
}
