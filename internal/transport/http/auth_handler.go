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
	"time"

	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/identity"
	"github.com/fieldbook/fieldbook/internal/tenant"
)

// RegisterRequest represents registration data
type RegisterRequest struct {
	CompanyName string `json:"company_name" example:"Acme Builders"`
	Email       string `json:"email" example:"owner@example.com"`
	Name        string `json:"name" example:"Jane Doe"`
	Password    string `json:"password" example:"secret123"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" example:"owner@example.com"`
	Password string `json:"password" example:"secret123"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        *identity.User `json:"user"`
}

// RegisterResponse is a TokenResponse plus the new company.
type RegisterResponse struct {
	TokenResponse
	Company *tenant.Company `json:"company"`
}

func (h *Handler) issue(user *identity.User) (TokenResponse, error) {
	token, expiresAt, err := h.tokens.Issue(user.Actor())
	if err != nil {
		return TokenResponse{}, authz.Internal(err)
	}
	return TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// Register handles company registration
// @Summary Register a company
// @Description Create a company with its first OWNER user and return an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration Data"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	company, user, err := h.identityService.Register(r.Context(), identity.RegisterInput{
		CompanyName: req.CompanyName,
		Email:       req.Email,
		Name:        req.Name,
		Password:    req.Password,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	tok, err := h.issue(user)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, RegisterResponse{TokenResponse: tok, Company: company})
}

// Login handles user login
// @Summary Login
// @Description Authenticate with email and password and return an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	tok, err := h.issue(user)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tok)
}

// GetCurrentUser returns the caller
// @Summary Get Current User
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} identity.User
// @Failure 401 {object} map[string]string
// @Router /auth/me [get]
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor := GetActor(r.Context())
	user, err := h.identityService.GetUser(r.Context(), actor, actor.UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
