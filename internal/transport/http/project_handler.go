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
	"github.com/fieldbook/fieldbook/internal/project"
)

// CreateProjectRequest represents project creation data
type CreateProjectRequest struct {
	Name      string   `json:"name" example:"Riverside Tower"`
	Address   string   `json:"address,omitempty" example:"1 River St"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// AddMemberRequest represents a membership grant
type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role" example:"MEMBER"`
}

// CreateProject handles project creation
// @Summary Create Project
// @Description OWNER only. The creator becomes the project's OWNER member.
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateProjectRequest true "Project Data"
// @Success 201 {object} project.Project
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	p, err := h.projectService.CreateProject(r.Context(), GetActor(r.Context()), project.CreateInput{
		Name:      req.Name,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// ListProjects lists the caller's projects
// @Summary List Projects
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Success 200 {array} project.Project
// @Router /projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectService.ListProjects(r.Context(), GetActor(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if projects == nil {
		projects = []*project.Project{}
	}
	respondJSON(w, http.StatusOK, projects)
}

// GetProject returns a project
// @Summary Get Project
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Success 200 {object} project.Project
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /projects/{projectID} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.projectService.GetProject(r.Context(), GetActor(r.Context()), chi.URLParam(r, "projectID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// ArchiveProject archives a project
// @Summary Archive Project
// @Description OWNER only. Archiving an archived project returns it unchanged.
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Success 200 {object} project.Project
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /projects/{projectID}/archive [post]
func (h *Handler) ArchiveProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.projectService.ArchiveProject(r.Context(), GetActor(r.Context()), chi.URLParam(r, "projectID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// AddMember adds a user to a project
// @Summary Add Project Member
// @Description Idempotent: 201 when the membership was created, 200 when it already existed.
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Param request body AddMemberRequest true "Membership"
// @Success 200 {object} project.Membership
// @Success 201 {object} project.Membership
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /projects/{projectID}/members [post]
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	res, err := h.projectService.AddMember(r.Context(), GetActor(r.Context()),
		chi.URLParam(r, "projectID"), req.UserID, authz.Role(req.Role))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, createdStatus(res.Created), res.Value)
}

// ListMembers lists project members
// @Summary List Project Members
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Success 200 {array} project.Membership
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /projects/{projectID}/members [get]
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.projectService.ListMembers(r.Context(), GetActor(r.Context()), chi.URLParam(r, "projectID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if members == nil {
		members = []*project.Membership{}
	}
	respondJSON(w, http.StatusOK, members)
}
