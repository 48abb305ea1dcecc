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

// Package report manages daily site reports: one per project per calendar
// day, moving DRAFT -> SUBMITTED -> APPROVED.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldbook/fieldbook/internal/authz"
)

// DateLayout is the wire format of a report date.
const DateLayout = "2006-01-02"

// DailyReport is one project's report for one calendar day. ReportDate is
// always midnight UTC.
type DailyReport struct {
	ID            string             `json:"id"`
	TenantID      string             `json:"tenant_id"`
	ProjectID     string             `json:"project_id"`
	ReportDate    time.Time          `json:"report_date"`
	Status        authz.ReportStatus `json:"status"`
	WorkCompleted *string            `json:"work_completed,omitempty"`
	Issues        *string            `json:"issues,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	CreatedBy     string             `json:"created_by"`
	SubmittedAt   *time.Time         `json:"submitted_at,omitempty"`
	ApprovedAt    *time.Time         `json:"approved_at,omitempty"`
	ApprovedBy    *string            `json:"approved_by,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// State projects the report onto the fields policies look at.
func (r *DailyReport) State() authz.ReportState {
	return authz.ReportState{TenantID: r.TenantID, Status: r.Status}
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid report date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// NormalizeDate truncates t to its calendar day in UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Content is the editable body of a draft. Nil fields are left unchanged.
type Content struct {
	WorkCompleted *string
	Issues        *string
	Notes         *string
}

// Transition describes a guarded status change.
type Transition struct {
	From       authz.ReportStatus
	To         authz.ReportStatus
	At         time.Time
	ApprovedBy *string
}

// Repository defines the interface for report storage. Every method filters
// on tenantID and ignores soft-deleted rows.
type Repository interface {
	// GetByDate returns store.ErrNotFound when the project has no report for date.
	GetByDate(ctx context.Context, tenantID, projectID string, date time.Time) (*DailyReport, error)

	// GetByID returns store.ErrNotFound on a miss.
	GetByID(ctx context.Context, tenantID, reportID string) (*DailyReport, error)

	// Insert returns store.ErrUniqueViolation when a live report already
	// exists for (tenant, project, date).
	Insert(ctx context.Context, r *DailyReport) error

	// UpdateDraft writes content to a DRAFT report. It returns
	// store.ErrNotFound when the report is no longer a draft.
	UpdateDraft(ctx context.Context, tenantID, reportID string, c Content, at time.Time) (*DailyReport, error)

	// Transition moves the report from t.From to t.To. It returns
	// store.ErrNotFound when the report was not in t.From.
	Transition(ctx context.Context, tenantID, reportID string, t Transition) (*DailyReport, error)
}
