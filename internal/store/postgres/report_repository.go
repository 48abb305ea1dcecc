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

	"github.com/fieldbook/fieldbook/internal/report"
	"github.com/jackc/pgx/v5"
)

// ReportRepository implements report.Repository
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, tenant_id, project_id, report_date, status,
	work_completed, issues, notes, created_by,
	submitted_at, approved_at, approved_by, created_at, updated_at`

func scanReport(row pgx.Row) (*report.DailyReport, error) {
	var r report.DailyReport
	err := row.Scan(
		&r.ID, &r.TenantID, &r.ProjectID, &r.ReportDate, &r.Status,
		&r.WorkCompleted, &r.Issues, &r.Notes, &r.CreatedBy,
		&r.SubmittedAt, &r.ApprovedAt, &r.ApprovedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	r.ReportDate = report.NormalizeDate(r.ReportDate)
	return &r, nil
}

// GetByDate retrieves the live report of a project for a day
func (r *ReportRepository) GetByDate(ctx context.Context, tenantID, projectID string, date time.Time) (*report.DailyReport, error) {
	return scanReport(r.db.pool.QueryRow(ctx, `
		SELECT `+reportColumns+`
		FROM daily_reports
		WHERE tenant_id = $1 AND project_id = $2 AND report_date = $3 AND deleted_at IS NULL
	`, tenantID, projectID, date))
}

// GetByID retrieves a live report of a tenant
func (r *ReportRepository) GetByID(ctx context.Context, tenantID, reportID string) (*report.DailyReport, error) {
	return scanReport(r.db.pool.QueryRow(ctx, `
		SELECT `+reportColumns+`
		FROM daily_reports
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, reportID))
}

// Insert creates a report; a second live report for the same day surfaces
// as store.ErrUniqueViolation
func (r *ReportRepository) Insert(ctx context.Context, rep *report.DailyReport) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO daily_reports (
			id, tenant_id, project_id, report_date, status,
			work_completed, issues, notes, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rep.ID, rep.TenantID, rep.ProjectID, rep.ReportDate, rep.Status,
		rep.WorkCompleted, rep.Issues, rep.Notes, rep.CreatedBy, rep.CreatedAt, rep.UpdatedAt)
	if err != nil {
		return mapError(fmt.Errorf("failed to insert report: %w", err))
	}
	return nil
}

// UpdateDraft writes content to a report that is still a DRAFT
func (r *ReportRepository) UpdateDraft(ctx context.Context, tenantID, reportID string, c report.Content, at time.Time) (*report.DailyReport, error) {
	return scanReport(r.db.pool.QueryRow(ctx, `
		UPDATE daily_reports
		SET work_completed = COALESCE($3, work_completed),
			issues = COALESCE($4, issues),
			notes = COALESCE($5, notes),
			updated_at = $6
		WHERE tenant_id = $1 AND id = $2 AND status = 'DRAFT' AND deleted_at IS NULL
		RETURNING `+reportColumns,
		tenantID, reportID, c.WorkCompleted, c.Issues, c.Notes, at))
}

// Transition performs a guarded status change
func (r *ReportRepository) Transition(ctx context.Context, tenantID, reportID string, t report.Transition) (*report.DailyReport, error) {
	return scanReport(r.db.pool.QueryRow(ctx, `
		UPDATE daily_reports
		SET status = $4::text,
			updated_at = $5::timestamptz,
			submitted_at = CASE WHEN $4 = 'SUBMITTED' THEN $5 ELSE submitted_at END,
			approved_at = CASE WHEN $4 = 'APPROVED' THEN $5 ELSE approved_at END,
			approved_by = CASE WHEN $4 = 'APPROVED' THEN $6::text ELSE approved_by END
		WHERE tenant_id = $1 AND id = $2 AND status = $3 AND deleted_at IS NULL
		RETURNING `+reportColumns,
		tenantID, reportID, t.From, t.To, t.At, t.ApprovedBy))
}
