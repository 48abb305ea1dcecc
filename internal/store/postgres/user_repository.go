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

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldbook/fieldbook/internal/identity"
	"github.com/fieldbook/fieldbook/internal/tenant"
	"github.com/jackc/pgx/v5"
)

// UserRepository implements identity.UserRepository and project.UserDirectory
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, tenant_id, email, name, role, failed_login_attempts, locked_until,
	created_at, updated_at, deleted_at`

func scanUser(row pgx.Row) (*identity.User, error) {
	var u identity.User
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Role, &u.FailedLoginAttempts, &u.LockedUntil,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func insertUser(ctx context.Context, tx pgx.Tx, u *identity.User, cred *identity.Credentials) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (id, tenant_id, email, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.TenantID, u.Email, u.Name, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return mapError(fmt.Errorf("failed to insert user: %w", err))
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO credentials (user_id, password_hash, updated_at)
		VALUES ($1, $2, $3)
	`, cred.UserID, cred.PasswordHash, cred.UpdatedAt)
	if err != nil {
		return mapError(fmt.Errorf("failed to insert credentials: %w", err))
	}
	return nil
}

// CreateCompanyWithOwner inserts the company, its owner and credentials
func (r *UserRepository) CreateCompanyWithOwner(ctx context.Context, c *tenant.Company, u *identity.User, cred *identity.Credentials) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO companies (id, name, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, c.ID, c.Name, c.Status, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return mapError(fmt.Errorf("failed to insert company: %w", err))
		}
		return insertUser(ctx, tx, u, cred)
	})
}

// CreateUser inserts a user with credentials
func (r *UserRepository) CreateUser(ctx context.Context, u *identity.User, cred *identity.Credentials) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		return insertUser(ctx, tx, u, cred)
	})
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	return scanUser(r.db.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`, email))
}

// GetByID retrieves a user of a tenant by ID
func (r *UserRepository) GetByID(ctx context.Context, tenantID, userID string) (*identity.User, error) {
	return scanUser(r.db.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, userID))
}

// ListByTenant lists the users of a tenant
func (r *UserRepository) ListByTenant(ctx context.Context, tenantID string) ([]*identity.User, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserInTenant reports whether a live user belongs to the tenant
func (r *UserRepository) UserInTenant(ctx context.Context, tenantID, userID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
		)
	`, tenantID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

// GetCredentials retrieves user credentials
func (r *UserRepository) GetCredentials(ctx context.Context, userID string) (*identity.Credentials, error) {
	var c identity.Credentials
	err := r.db.pool.QueryRow(ctx, `
		SELECT user_id, password_hash, updated_at
		FROM credentials
		WHERE user_id = $1
	`, userID).Scan(&c.UserID, &c.PasswordHash, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// UpdateLockout updates user lockout status
func (r *UserRepository) UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	_, err := r.db.pool.Exec(ctx, `
		UPDATE users
		SET failed_login_attempts = $2, locked_until = $3, updated_at = now()
		WHERE id = $1
	`, userID, failedAttempts, lockedUntil)
	if err != nil {
		return fmt.Errorf("failed to update lockout: %w", err)
	}
	return nil
}

// CompanyRepository implements tenant.Repository
type CompanyRepository struct {
	db *DB
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// GetByID retrieves a company by ID
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*tenant.Company, error) {
	var c tenant.Company
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, status, created_at, updated_at
		FROM companies
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// Rename updates a company's name
func (r *CompanyRepository) Rename(ctx context.Context, id, name string, at time.Time) (*tenant.Company, error) {
	var c tenant.Company
	err := r.db.pool.QueryRow(ctx, `
		UPDATE companies SET name = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, name, status, created_at, updated_at
	`, id, name, at).Scan(&c.ID, &c.Name, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}
