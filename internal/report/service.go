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

package report

import (
	"context"
	"errors"
	"time"

	"github.com/fieldbook/fieldbook/internal/audit"
	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/id"
	"github.com/fieldbook/fieldbook/internal/idempotent"
	"github.com/fieldbook/fieldbook/internal/store"
)

// Service provides daily report business logic
type Service struct {
	repo        Repository
	resolver    *authz.Resolver
	auditLogger audit.Logger
	idem        *idempotent.Manager
	now         func() time.Time
}

// NewService creates a new report service
func NewService(repo Repository, resolver *authz.Resolver, auditLogger audit.Logger, idem *idempotent.Manager) *Service {
	return &Service{
		repo:        repo,
		resolver:    resolver,
		auditLogger: auditLogger,
		idem:        idem,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrGetDraft returns the project's report for date, creating an empty
// DRAFT when none exists. A replayed call returns the stored report as it is
// now, which may have been edited or submitted since.
func (s *Service) CreateOrGetDraft(ctx context.Context, actor authz.Actor, projectID string, date time.Time) (idempotent.Result[*DailyReport], error) {
	var zero idempotent.Result[*DailyReport]

	if err := s.resolver.RequireProjectMember(ctx, actor, projectID); err != nil {
		return zero, err
	}

	day := NormalizeDate(date)
	res, err := idempotent.GetOrCreate(ctx, s.idem, idempotent.Spec[*DailyReport]{
		Resource: "daily_report",
		Lookup: func(ctx context.Context) (*DailyReport, error) {
			return s.repo.GetByDate(ctx, actor.TenantID, projectID, day)
		},
		Insert: func(ctx context.Context) (*DailyReport, error) {
			now := s.now()
			r := &DailyReport{
				ID:         id.NewUUIDv7(),
				TenantID:   actor.TenantID,
				ProjectID:  projectID,
				ReportDate: day,
				Status:     authz.ReportDraft,
				CreatedBy:  actor.UserID,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.repo.Insert(ctx, r); err != nil {
				return nil, err
			}
			return r, nil
		},
		OnCreate: func(ctx context.Context, r *DailyReport) {
			s.auditLogger.Log(ctx, audit.Event{
				TenantID:   r.TenantID,
				ActorID:    actor.UserID,
				ProjectID:  &r.ProjectID,
				EntityType: audit.EntityDailyReport,
				EntityID:   r.ID,
				Action:     audit.ActionCreated,
				Metadata:   audit.Metadata(map[string]string{"report_date": r.ReportDate.Format(DateLayout)}),
			})
		},
	})
	if err != nil {
		return zero, authz.Internal(err)
	}
	return res, nil
}

// Get returns a report to a member of its project.
func (s *Service) Get(ctx context.Context, actor authz.Actor, reportID string) (*DailyReport, error) {
	r, err := s.load(ctx, actor, reportID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.RequireProjectMember(ctx, actor, r.ProjectID); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateDraft edits the content of a DRAFT report.
func (s *Service) UpdateDraft(ctx context.Context, actor authz.Actor, reportID string, c Content) (*DailyReport, error) {
	r, err := s.load(ctx, actor, reportID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.RequireProjectMember(ctx, actor, r.ProjectID); err != nil {
		return nil, err
	}
	if !authz.CanEditDraftReport(actor, r.State()) {
		return nil, authz.Forbidden()
	}

	updated, err := s.repo.UpdateDraft(ctx, actor.TenantID, reportID, c, s.now())
	if errors.Is(err, store.ErrNotFound) {
		// Submitted by someone else after we loaded it.
		return nil, authz.Forbidden()
	}
	if err != nil {
		return nil, authz.Internal(err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		TenantID:   updated.TenantID,
		ActorID:    actor.UserID,
		ProjectID:  &updated.ProjectID,
		EntityType: audit.EntityDailyReport,
		EntityID:   updated.ID,
		Action:     audit.ActionUpdated,
	})
	return updated, nil
}

// Submit moves a DRAFT report to SUBMITTED.
func (s *Service) Submit(ctx context.Context, actor authz.Actor, reportID string) (*DailyReport, error) {
	r, err := s.load(ctx, actor, reportID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.RequireProjectMember(ctx, actor, r.ProjectID); err != nil {
		return nil, err
	}
	if !authz.CanSubmitReport(actor, r.State()) {
		return nil, authz.Forbidden()
	}

	now := s.now()
	updated, err := s.repo.Transition(ctx, actor.TenantID, reportID, Transition{
		From: authz.ReportDraft,
		To:   authz.ReportSubmitted,
		At:   now,
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, authz.Forbidden()
	}
	if err != nil {
		return nil, authz.Internal(err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		TenantID:   updated.TenantID,
		ActorID:    actor.UserID,
		ProjectID:  &updated.ProjectID,
		EntityType: audit.EntityDailyReport,
		EntityID:   updated.ID,
		Action:     audit.ActionSubmitted,
	})
	return updated, nil
}

// Approve moves a SUBMITTED report to APPROVED. Only owners may approve;
// approving a report in any other state is a Conflict.
func (s *Service) Approve(ctx context.Context, actor authz.Actor, reportID string) (*DailyReport, error) {
	r, err := s.load(ctx, actor, reportID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.RequireProjectPolicy(ctx, actor, r.ProjectID, authz.CanApproveDailyReport); err != nil {
		return nil, err
	}
	if r.Status != authz.ReportSubmitted {
		return nil, authz.Conflict("report is not awaiting approval")
	}

	approver := actor.UserID
	updated, err := s.repo.Transition(ctx, actor.TenantID, reportID, Transition{
		From:       authz.ReportSubmitted,
		To:         authz.ReportApproved,
		At:         s.now(),
		ApprovedBy: &approver,
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, authz.Conflict("report is not awaiting approval")
	}
	if err != nil {
		return nil, authz.Internal(err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		TenantID:   updated.TenantID,
		ActorID:    actor.UserID,
		ProjectID:  &updated.ProjectID,
		EntityType: audit.EntityDailyReport,
		EntityID:   updated.ID,
		Action:     audit.ActionApproved,
	})
	return updated, nil
}

// load reads a report inside the actor's tenant. Reports of other tenants
// are indistinguishable from missing ones.
func (s *Service) load(ctx context.Context, actor authz.Actor, reportID string) (*DailyReport, error) {
	if !actor.Authenticated() {
		return nil, authz.Unauthorized()
	}
	if reportID == "" {
		return nil, authz.NotFound("report")
	}
	r, err := s.repo.GetByID(ctx, actor.TenantID, reportID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, authz.NotFound("report")
	}
	if err != nil {
		return nil, authz.Internal(err)
	}
	return r, nil
}
