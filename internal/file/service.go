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

package file

import (
	"context"
	"strings"
	"time"

	"github.com/fieldbook/fieldbook/internal/audit"
	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/id"
	"github.com/fieldbook/fieldbook/internal/idempotent"
	"github.com/fieldbook/fieldbook/internal/objectkey"
)

// Service provides file upload business logic
type Service struct {
	repo        Repository
	signer      Signer
	bucket      string
	resolver    *authz.Resolver
	auditLogger audit.Logger
	idem        *idempotent.Manager
	now         func() time.Time
}

// NewService creates a new file service writing into bucket.
func NewService(repo Repository, signer Signer, bucket string, resolver *authz.Resolver, auditLogger audit.Logger, idem *idempotent.Manager) *Service {
	return &Service{
		repo:        repo,
		signer:      signer,
		bucket:      bucket,
		resolver:    resolver,
		auditLogger: auditLogger,
		idem:        idem,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// PresignInput describes an upload the client is about to make.
type PresignInput struct {
	ProjectID *string
	MimeType  string
}

// FinalizeInput registers an upload made against a presigned key.
type FinalizeInput struct {
	ProjectID *string
	ObjectKey string
	FileName  string
	MimeType  string
	Size      int64
}

// authorize checks access to the scope a key lives in. Company-level files
// are open to every authenticated user of the tenant.
func (s *Service) authorize(ctx context.Context, actor authz.Actor, projectID *string) error {
	if projectID == nil {
		if !actor.Authenticated() {
			return authz.Unauthorized()
		}
		return nil
	}
	return s.resolver.RequireProjectMember(ctx, actor, *projectID)
}

// Presign generates a fresh object key in the caller's namespace and a URL
// to upload to it.
func (s *Service) Presign(ctx context.Context, actor authz.Actor, in PresignInput) (*Upload, error) {
	if err := s.authorize(ctx, actor, in.ProjectID); err != nil {
		return nil, err
	}

	key, err := objectkey.New(actor.TenantID, in.ProjectID)
	if err != nil {
		return nil, authz.BadRequest("invalid upload scope")
	}

	url, expiresAt, err := s.signer.PresignPut(ctx, s.bucket, key, in.MimeType)
	if err != nil {
		return nil, authz.Internal(err)
	}

	return &Upload{ObjectKey: key, UploadURL: url, ExpiresAt: expiresAt}, nil
}

// FinalizeUpload records an uploaded object. The key is validated against
// the caller's namespace before anything else; calling it again with the
// same key returns the already registered object.
func (s *Service) FinalizeUpload(ctx context.Context, actor authz.Actor, in FinalizeInput) (idempotent.Result[*Object], error) {
	var zero idempotent.Result[*Object]

	if !actor.Authenticated() {
		return zero, authz.Unauthorized()
	}
	if err := objectkey.Validate(in.ObjectKey, actor.TenantID, in.ProjectID); err != nil {
		return zero, authz.BadRequest("object key does not belong to this scope")
	}
	if strings.TrimSpace(in.FileName) == "" {
		return zero, authz.BadRequest("file name is required")
	}
	if in.Size < 0 {
		return zero, authz.BadRequest("file size must not be negative")
	}
	if err := s.authorize(ctx, actor, in.ProjectID); err != nil {
		return zero, err
	}

	res, err := idempotent.GetOrCreate(ctx, s.idem, idempotent.Spec[*Object]{
		Resource: "file_object",
		Lookup: func(ctx context.Context) (*Object, error) {
			return s.repo.GetByKey(ctx, actor.TenantID, s.bucket, in.ObjectKey)
		},
		Insert: func(ctx context.Context) (*Object, error) {
			o := &Object{
				ID:         id.NewUUIDv7(),
				TenantID:   actor.TenantID,
				ProjectID:  in.ProjectID,
				Bucket:     s.bucket,
				ObjectKey:  in.ObjectKey,
				FileName:   in.FileName,
				MimeType:   in.MimeType,
				Size:       in.Size,
				UploadedBy: actor.UserID,
				CreatedAt:  s.now(),
			}
			if err := s.repo.Insert(ctx, o); err != nil {
				return nil, err
			}
			return o, nil
		},
		OnCreate: func(ctx context.Context, o *Object) {
			s.auditLogger.Log(ctx, audit.Event{
				TenantID:   o.TenantID,
				ActorID:    actor.UserID,
				ProjectID:  o.ProjectID,
				EntityType: audit.EntityFile,
				EntityID:   o.ID,
				Action:     audit.ActionUploaded,
				Metadata: audit.Metadata(map[string]any{
					"file_name": o.FileName,
					"mime_type": o.MimeType,
					"size":      o.Size,
				}),
			})
		},
	})
	if err != nil {
		return zero, authz.Internal(err)
	}
	return res, nil
}

