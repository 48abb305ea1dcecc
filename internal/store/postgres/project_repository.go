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

	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/project"
	"github.com/jackc/pgx/v5"
)

// ProjectRepository implements project.Repository,
// project.MembershipRepository and authz.MembershipReader
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `p.id, p.tenant_id, p.name, p.status, p.address, p.latitude, p.longitude,
	p.created_by, p.created_at, p.updated_at, p.archived_at, p.deleted_at`

func scanProject(row pgx.Row) (*project.Project, error) {
	var p project.Project
	err := row.Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Status, &p.Address, &p.Latitude, &p.Longitude,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt, &p.ArchivedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// CreateWithOwner inserts the project and the owner membership together
func (r *ProjectRepository) CreateWithOwner(ctx context.Context, p *project.Project, owner *project.Membership) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO projects (
				id, tenant_id, name, status, address, latitude, longitude,
				created_by, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, p.ID, p.TenantID, p.Name, p.Status, p.Address, p.Latitude, p.Longitude,
			p.CreatedBy, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return mapError(fmt.Errorf("failed to insert project: %w", err))
		}
		return insertMembership(ctx, tx, owner)
	})
}

// GetByID retrieves a live project of a tenant
func (r *ProjectRepository) GetByID(ctx context.Context, tenantID, projectID string) (*project.Project, error) {
	return scanProject(r.db.pool.QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		WHERE p.tenant_id = $1 AND p.id = $2 AND p.deleted_at IS NULL
	`, tenantID, projectID))
}

// Archive moves an ACTIVE project to ARCHIVED
func (r *ProjectRepository) Archive(ctx context.Context, tenantID, projectID string, at time.Time) (*project.Project, error) {
	return scanProject(r.db.pool.QueryRow(ctx, `
		UPDATE projects p
		SET status = $3, archived_at = $4, updated_at = $4
		WHERE p.tenant_id = $1 AND p.id = $2 AND p.status = $5 AND p.deleted_at IS NULL
		RETURNING `+projectColumns,
		tenantID, projectID, project.StatusArchived, at, project.StatusActive))
}

// ListForMember lists the projects a user belongs to
func (r *ProjectRepository) ListForMember(ctx context.Context, tenantID, userID string) ([]*project.Project, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN project_members m ON m.project_id = p.id AND m.tenant_id = p.tenant_id
		WHERE p.tenant_id = $1 AND m.user_id = $2 AND p.deleted_at IS NULL
		ORDER BY p.created_at DESC
	`, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ProjectExists reports whether a live project matches both ids
func (r *ProjectRepository) ProjectExists(ctx context.Context, tenantID, projectID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM projects WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
		)
	`, tenantID, projectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check project: %w", err)
	}
	return exists, nil
}

// IsMember reports whether a membership matches all three ids
func (r *ProjectRepository) IsMember(ctx context.Context, tenantID, projectID, userID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM project_members WHERE tenant_id = $1 AND project_id = $2 AND user_id = $3
		)
	`, tenantID, projectID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

const memberColumns = `id, tenant_id, project_id, user_id, role, created_at`

func scanMembership(row pgx.Row) (*project.Membership, error) {
	var m project.Membership
	if err := row.Scan(&m.ID, &m.TenantID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

func insertMembership(ctx context.Context, q querier, m *project.Membership) error {
	_, err := q.Exec(ctx, `
		INSERT INTO project_members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.TenantID, m.ProjectID, m.UserID, m.Role, m.CreatedAt)
	if err != nil {
		return mapError(fmt.Errorf("failed to insert membership: %w", err))
	}
	return nil
}

// GetMembership retrieves a membership by its natural key
func (r *ProjectRepository) GetMembership(ctx context.Context, tenantID, projectID, userID string) (*project.Membership, error) {
	return scanMembership(r.db.pool.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM project_members
		WHERE tenant_id = $1 AND project_id = $2 AND user_id = $3
	`, tenantID, projectID, userID))
}

// InsertMembership inserts a membership; duplicates surface as store.ErrUniqueViolation
func (r *ProjectRepository) InsertMembership(ctx context.Context, m *project.Membership) error {
	return insertMembership(ctx, r.db.pool, m)
}

// UpdateMembershipRole sets the role of an existing membership
func (r *ProjectRepository) UpdateMembershipRole(ctx context.Context, tenantID, projectID, userID string, role authz.Role) (*project.Membership, error) {
	return scanMembership(r.db.pool.QueryRow(ctx, `
		UPDATE project_members SET role = $4
		WHERE tenant_id = $1 AND project_id = $2 AND user_id = $3
		RETURNING `+memberColumns,
		tenantID, projectID, userID, role))
}

// ListMembers lists the memberships of a project
func (r *ProjectRepository) ListMembers(ctx context.Context, tenantID, projectID string) ([]*project.Membership, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+memberColumns+`
		FROM project_members
		WHERE tenant_id = $1 AND project_id = $2
		ORDER BY created_at
	`, tenantID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*project.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
