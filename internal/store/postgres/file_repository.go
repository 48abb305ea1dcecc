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

	"github.com/fieldbook/fieldbook/internal/file"
)

// FileRepository implements file.Repository
type FileRepository struct {
	db *DB
}

// NewFileRepository creates a new file repository
func NewFileRepository(db *DB) *FileRepository {
	return &FileRepository{db: db}
}

// GetByKey retrieves a registered object by its natural key
func (r *FileRepository) GetByKey(ctx context.Context, tenantID, bucket, objectKey string) (*file.Object, error) {
	var o file.Object
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, project_id, bucket, object_key, file_name, mime_type,
			size_bytes, uploaded_by, created_at
		FROM file_objects
		WHERE tenant_id = $1 AND bucket = $2 AND object_key = $3
	`, tenantID, bucket, objectKey).Scan(
		&o.ID, &o.TenantID, &o.ProjectID, &o.Bucket, &o.ObjectKey, &o.FileName, &o.MimeType,
		&o.Size, &o.UploadedBy, &o.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &o, nil
}

// Insert registers an object; a duplicate key surfaces as store.ErrUniqueViolation
func (r *FileRepository) Insert(ctx context.Context, o *file.Object) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO file_objects (
			id, tenant_id, project_id, bucket, object_key, file_name, mime_type,
			size_bytes, uploaded_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, o.ID, o.TenantID, o.ProjectID, o.Bucket, o.ObjectKey, o.FileName, o.MimeType,
		o.Size, o.UploadedBy, o.CreatedAt)
	if err != nil {
		return mapError(fmt.Errorf("failed to insert file object: %w", err))
	}
	return nil
}
