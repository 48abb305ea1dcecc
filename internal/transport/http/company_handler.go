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
	"github.com/fieldbook/fieldbook/internal/identity"
)

// RenameCompanyRequest represents a company rename
type RenameCompanyRequest struct {
	Name string `json:"name" example:"Acme Builders Ltd"`
}

// ProvisionUserRequest represents user provisioning data
type ProvisionUserRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Name     string `json:"name" example:"John Doe"`
	Password string `json:"password" example:"secret123"`
	Role     string `json:"role,omitempty" example:"MEMBER"`
}

// GetCompany returns the caller's company
// @Summary Get Company
// @Tags Company
// @Produce json
// @Security BearerAuth
// @Success 200 {object} tenant.Company
// @Failure 401 {object} map[string]string
// @Router /company [get]
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	actor := GetActor(r.Context())
	company, err := h.tenantService.GetCompany(r.Context(), actor, actor.TenantID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, company)
}

// RenameCompany renames the caller's company
// @Summary Rename Company
// @Tags Company
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RenameCompanyRequest true "New name"
// @Success 200 {object} tenant.Company
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /company [put]
func (h *Handler) RenameCompany(w http.ResponseWriter, r *http.Request) {
	var req RenameCompanyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	company, err := h.tenantService.RenameCompany(r.Context(), GetActor(r.Context()), req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, company)
}

// ProvisionUser creates a user in the caller's company
// @Summary Provision User
// @Description OWNER only. Role defaults to MEMBER.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProvisionUserRequest true "User Data"
// @Success 201 {object} identity.User
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /users [post]
func (h *Handler) ProvisionUser(w http.ResponseWriter, r *http.Request) {
	var req ProvisionUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	user, err := h.identityService.ProvisionUser(r.Context(), GetActor(r.Context()), identity.ProvisionInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     authz.Role(req.Role),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// ListUsers lists the caller's company users
// @Summary List Users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} identity.User
// @Router /users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identityService.ListUsers(r.Context(), GetActor(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []*identity.User{}
	}
	respondJSON(w, http.StatusOK, users)
}

// GetUser returns one user of the caller's company
// @Summary Get User
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Success 200 {object} identity.User
// @Failure 404 {object} map[string]string
// @Router /users/{userID} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.identityService.GetUser(r.Context(), GetActor(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
