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

// Package file registers uploaded objects. Uploads go straight to object
// storage through a pre-signed URL; the service only issues keys and records
// finalized uploads.
package file

import (
	"context"
	"time"
)

// Object is a finalized upload. ProjectID is nil for company-level files.
// (TenantID, Bucket, ObjectKey) is unique.
type Object struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	ProjectID  *string   `json:"project_id,omitempty"`
	Bucket     string    `json:"bucket"`
	ObjectKey  string    `json:"object_key"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// Upload is the response to a presign request.
type Upload struct {
	ObjectKey string    `json:"object_key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Signer produces a time-limited upload URL for a key.
type Signer interface {
	PresignPut(ctx context.Context, bucket, key, contentType string) (url string, expiresAt time.Time, err error)
}

// Repository defines the interface for file object storage
type Repository interface {
	// GetByKey returns store.ErrNotFound on a miss.
	GetByKey(ctx context.Context, tenantID, bucket, objectKey string) (*Object, error)

	// Insert returns store.ErrUniqueViolation when the key is already registered.
	Insert(ctx context.Context, o *Object) error
}
