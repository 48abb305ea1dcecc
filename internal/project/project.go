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
	"time"

	"github.com/fieldbook/fieldbook/internal/authz"
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
)

// Project is a tenant-owned unit of work. Address and location fields are
// carried but not interpreted.
type Project struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Name       string     `json:"name"`
	Status     Status     `json:"status"`
	Address    string     `json:"address,omitempty"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	DeletedAt  *time.Time `json:"-"`
}

// Membership grants a user a project role. (TenantID, ProjectID, UserID)
// is unique.
type Membership struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	ProjectID string     `json:"project_id"`
	UserID    string     `json:"user_id"`
	Role      authz.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

// Repository defines the interface for project storage. Every method
// filters on tenantID; lookups return store.ErrNotFound on a miss.
type Repository interface {
	// CreateWithOwner inserts the project and the creator's OWNER membership
	// in one transaction.
	CreateWithOwner(ctx context.Context, p *Project, owner *Membership) error

	// GetByID returns a non-deleted project.
	GetByID(ctx context.Context, tenantID, projectID string) (*Project, error)

	// Archive moves an ACTIVE project to ARCHIVED. It returns store.ErrNotFound
	// when no ACTIVE project matched.
	Archive(ctx context.Context, tenantID, projectID string, at time.Time) (*Project, error)

	// ListForMember returns non-deleted projects the user is a member of.
	ListForMember(ctx context.Context, tenantID, userID string) ([]*Project, error)
}

// MembershipRepository defines the interface for membership storage.
type MembershipRepository interface {
	// GetMembership returns the membership for the triple.
	GetMembership(ctx context.Context, tenantID, projectID, userID string) (*Membership, error)

	// InsertMembership returns store.ErrUniqueViolation when the triple exists.
	InsertMembership(ctx context.Context, m *Membership) error

	// UpdateMembershipRole sets the role of an existing membership.
	UpdateMembershipRole(ctx context.Context, tenantID, projectID, userID string, role authz.Role) (*Membership, error)

	// ListMembers returns all memberships of a project.
	ListMembers(ctx context.Context, tenantID, projectID string) ([]*Membership, error)
}

// UserDirectory answers whether a user belongs to a tenant.
type UserDirectory interface {
	UserInTenant(ctx context.Context, tenantID, userID string) (bool, error)
}
