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

// Package memstore is an in-memory implementation of the repositories used
// in unit tests. It enforces the same natural-key uniqueness as the Postgres
// schema so the get-or-create protocol can be exercised under races.
package memstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fieldbook/fieldbook/internal/audit"
	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/file"
	"github.com/fieldbook/fieldbook/internal/identity"
	"github.com/fieldbook/fieldbook/internal/project"
	"github.com/fieldbook/fieldbook/internal/report"
	"github.com/fieldbook/fieldbook/internal/store"
	"github.com/fieldbook/fieldbook/internal/tenant"
)

type memberKey struct{ tenant, project, user string }

type reportKey struct {
	tenant, project string
	date            time.Time
}

type fileKey struct{ tenant, bucket, key string }

// Store holds every table behind one mutex.
type Store struct {
	mu          sync.Mutex
	users       map[string]string // user id -> tenant id
	projects    map[string]*project.Project
	memberships map[memberKey]*project.Membership
	reports     map[string]*report.DailyReport
	reportDates map[reportKey]string
	files       map[fileKey]*file.Object
	events      []audit.Event
	accounts    map[string]*identity.User
	credentials map[string]*identity.Credentials
	companies   map[string]*tenant.Company

	writes atomic.Int64
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:       make(map[string]string),
		projects:    make(map[string]*project.Project),
		memberships: make(map[memberKey]*project.Membership),
		reports:     make(map[string]*report.DailyReport),
		reportDates: make(map[reportKey]string),
		files:       make(map[fileKey]*file.Object),
		accounts:    make(map[string]*identity.User),
		credentials: make(map[string]*identity.Credentials),
		companies:   make(map[string]*tenant.Company),
	}
}

// Writes returns the number of successful mutating calls.
func (s *Store) Writes() int64 {
	return s.writes.Load()
}

// AddUser registers a user in a tenant.
func (s *Store) AddUser(tenantID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = tenantID
}

// Events returns a copy of the appended audit events.
func (s *Store) Events() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Event(nil), s.events...)
}

// EventsFor returns events for one entity and action.
func (s *Store) EventsFor(entityType, action string) []audit.Event {
	var out []audit.Event
	for _, e := range s.Events() {
		if e.EntityType == entityType && e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// Append implements audit.Store.
func (s *Store) Append(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// UserInTenant implements project.UserDirectory.
func (s *Store) UserInTenant(_ context.Context, tenantID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.users[userID]
	return ok && t == tenantID, nil
}

// ProjectExists implements authz.MembershipReader.
func (s *Store) ProjectExists(_ context.Context, tenantID, projectID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	return ok && p.TenantID == tenantID && p.DeletedAt == nil, nil
}

// IsMember implements authz.MembershipReader.
func (s *Store) IsMember(_ context.Context, tenantID, projectID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.memberships[memberKey{tenantID, projectID, userID}]
	return ok, nil
}

// CreateWithOwner implements project.Repository.
func (s *Store) CreateWithOwner(_ context.Context, p *project.Project, owner *project.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return store.ErrUniqueViolation
	}
	cp := *p
	s.projects[p.ID] = &cp
	om := *owner
	s.memberships[memberKey{owner.TenantID, owner.ProjectID, owner.UserID}] = &om
	s.writes.Add(1)
	return nil
}

// GetByID implements project.Repository.
func (s *Store) GetByID(_ context.Context, tenantID, projectID string) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok || p.TenantID != tenantID || p.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Archive implements project.Repository.
func (s *Store) Archive(_ context.Context, tenantID, projectID string, at time.Time) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok || p.TenantID != tenantID || p.DeletedAt != nil || p.Status != project.StatusActive {
		return nil, store.ErrNotFound
	}
	p.Status = project.StatusArchived
	p.ArchivedAt = &at
	p.UpdatedAt = at
	s.writes.Add(1)
	cp := *p
	return &cp, nil
}

// ListForMember implements project.Repository.
func (s *Store) ListForMember(_ context.Context, tenantID, userID string) ([]*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*project.Project
	for k := range s.memberships {
		if k.tenant != tenantID || k.user != userID {
			continue
		}
		if p, ok := s.projects[k.project]; ok && p.DeletedAt == nil {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// SeedProject inserts a project directly.
func (s *Store) SeedProject(p *project.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.projects[p.ID] = &cp
}

// SeedMember inserts a membership directly.
func (s *Store) SeedMember(tenantID, projectID, userID string, role authz.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[memberKey{tenantID, projectID, userID}] = &project.Membership{
		ID:        projectID + ":" + userID,
		TenantID:  tenantID,
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}
}

// GetMembership implements project.MembershipRepository.
func (s *Store) GetMembership(_ context.Context, tenantID, projectID, userID string) (*project.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[memberKey{tenantID, projectID, userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

// InsertMembership implements project.MembershipRepository.
func (s *Store) InsertMembership(_ context.Context, m *project.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memberKey{m.TenantID, m.ProjectID, m.UserID}
	if _, ok := s.memberships[k]; ok {
		return store.ErrUniqueViolation
	}
	cp := *m
	s.memberships[k] = &cp
	s.writes.Add(1)
	return nil
}

// UpdateMembershipRole implements project.MembershipRepository.
func (s *Store) UpdateMembershipRole(_ context.Context, tenantID, projectID, userID string, role authz.Role) (*project.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[memberKey{tenantID, projectID, userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	m.Role = role
	s.writes.Add(1)
	cp := *m
	return &cp, nil
}

// ListMembers implements project.MembershipRepository.
func (s *Store) ListMembers(_ context.Context, tenantID, projectID string) ([]*project.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*project.Membership
	for k, m := range s.memberships {
		if k.tenant == tenantID && k.project == projectID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Reports exposes the report repository.
func (s *Store) Reports() report.Repository {
	return reportRepo{s}
}

// Files exposes the file repository.
func (s *Store) Files() file.Repository {
	return fileRepo{s}
}

// ReportCount returns the number of stored reports.
func (s *Store) ReportCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

type reportRepo struct{ s *Store }

func (r reportRepo) GetByDate(_ context.Context, tenantID, projectID string, date time.Time) (*report.DailyReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.reportDates[reportKey{tenantID, projectID, date}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r.s.reports[id]
	return &cp, nil
}

func (r reportRepo) GetByID(_ context.Context, tenantID, reportID string) (*report.DailyReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.reports[reportID]
	if !ok || rep.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *rep
	return &cp, nil
}

func (r reportRepo) Insert(_ context.Context, rep *report.DailyReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := reportKey{rep.TenantID, rep.ProjectID, rep.ReportDate}
	if _, ok := r.s.reportDates[k]; ok {
		return store.ErrUniqueViolation
	}
	cp := *rep
	r.s.reports[rep.ID] = &cp
	r.s.reportDates[k] = rep.ID
	r.s.writes.Add(1)
	return nil
}

func (r reportRepo) UpdateDraft(_ context.Context, tenantID, reportID string, c report.Content, at time.Time) (*report.DailyReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.reports[reportID]
	if !ok || rep.TenantID != tenantID || rep.Status != authz.ReportDraft {
		return nil, store.ErrNotFound
	}
	if c.WorkCompleted != nil {
		rep.WorkCompleted = c.WorkCompleted
	}
	if c.Issues != nil {
		rep.Issues = c.Issues
	}
	if c.Notes != nil {
		rep.Notes = c.Notes
	}
	rep.UpdatedAt = at
	r.s.writes.Add(1)
	cp := *rep
	return &cp, nil
}

func (r reportRepo) Transition(_ context.Context, tenantID, reportID string, t report.Transition) (*report.DailyReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.reports[reportID]
	if !ok || rep.TenantID != tenantID || rep.Status != t.From {
		return nil, store.ErrNotFound
	}
	rep.Status = t.To
	rep.UpdatedAt = t.At
	switch t.To {
	case authz.ReportSubmitted:
		rep.SubmittedAt = &t.At
	case authz.ReportApproved:
		rep.ApprovedAt = &t.At
		rep.ApprovedBy = t.ApprovedBy
	}
	r.s.writes.Add(1)
	cp := *rep
	return &cp, nil
}

type fileRepo struct{ s *Store }

func (r fileRepo) GetByKey(_ context.Context, tenantID, bucket, objectKey string) (*file.Object, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.files[fileKey{tenantID, bucket, objectKey}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r fileRepo) Insert(_ context.Context, o *file.Object) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := fileKey{o.TenantID, o.Bucket, o.ObjectKey}
	if _, ok := r.s.files[k]; ok {
		return store.ErrUniqueViolation
	}
	cp := *o
	r.s.files[k] = &cp
	r.s.writes.Add(1)
	return nil
}
