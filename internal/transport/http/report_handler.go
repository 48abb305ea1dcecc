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


package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/report"
)

// DraftRequest names the calendar day of a draft
type DraftRequest struct {
	ReportDate string `json:"report_date" example:"2026-10-17"`
}

// UpdateReportRequest carries draft edits. Omitted fields are unchanged.
type UpdateReportRequest struct {
	WorkCompleted *string `json:"work_completed,omitempty"`
	Issues        *string `json:"issues,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// CreateOrGetDraft returns the project's report for a day, creating a draft
// on first use
// @Summary Create or Get Daily Report Draft
// @Description Idempotent: 201 when the draft was created, 200 when a report for the day already existed.
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Param request body DraftRequest true "Report date"
// @Success 200 {object} report.DailyReport
// @Success 201 {object} report.DailyReport
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /projects/{projectID}/reports [post]
func (h *Handler) CreateOrGetDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	date, err := report.ParseDate(req.ReportDate)
	if err != nil {
		respondServiceError(w, r, authz.BadRequest("report_date must be YYYY-MM-DD"))
		return
	}

	res, err := h.reportService.CreateOrGetDraft(r.Context(), GetActor(r.Context()), chi.URLParam(r, "projectID"), date)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, createdStatus(res.Created), res.Value)
}

// GetReport returns a daily report
// @Summary Get Daily Report
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param reportID path string true "Report ID"
// @Success 200 {object} report.DailyReport
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /reports/{reportID} [get]
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reportService.Get(r.Context(), GetActor(r.Context()), chi.URLParam(r, "reportID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// UpdateReport edits a draft
// @Summary Update Daily Report Draft
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param reportID path string true "Report ID"
// @Param request body UpdateReportRequest true "Edits"
// @Success 200 {object} report.DailyReport
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /reports/{reportID} [patch]
func (h *Handler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	var req UpdateReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	rep, err := h.reportService.UpdateDraft(r.Context(), GetActor(r.Context()), chi.URLParam(r, "reportID"), report.Content{
		WorkCompleted: req.WorkCompleted,
		Issues:        req.Issues,
		Notes:         req.Notes,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// SubmitReport moves a draft to SUBMITTED
// @Summary Submit Daily Report
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param reportID path string true "Report ID"
// @Success 200 {object} report.DailyReport
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /reports/{reportID}/submit [post]
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reportService.Submit(r.Context(), GetActor(r.Context()), chi.URLParam(r, "reportID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// ApproveReport moves a submitted report to APPROVED
// @Summary Approve Daily Report
// @Description OWNER only.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param reportID path string true "Report ID"
// @Success 200 {object} report.DailyReport
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /reports/{reportID}/approve [post]
func (h *Handler) ApproveReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reportService.Approve(r.Context(), GetActor(r.Context()), chi.URLParam(r, "reportID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}
