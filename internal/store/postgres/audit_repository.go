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

	"github.com/fieldbook/fieldbook/internal/audit"
	"github.com/fieldbook/fieldbook/internal/id"
)

// AuditRepository implements audit.Store
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append writes one audit event. Metadata is stored as given.
func (r *AuditRepository) Append(ctx context.Context, e audit.Event) error {
	if e.ID == "" {
		e.ID = id.NewUUIDv7()
	}
	var metadata []byte
	if len(e.Metadata) > 0 {
		metadata = e.Metadata
	}
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO audit_events (
			id, tenant_id, actor_id, project_id, entity_type, entity_id, action, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.TenantID, e.ActorID, e.ProjectID, e.EntityType, e.EntityID, e.Action, metadata, e.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}
