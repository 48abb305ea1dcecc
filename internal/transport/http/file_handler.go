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

	"github.com/fieldbook/fieldbook/internal/file"
)

// PresignRequest describes an upload the client is about to make. A missing
// project_id uploads into the company scope.
type PresignRequest struct {
	ProjectID *string `json:"project_id,omitempty"`
	MimeType  string  `json:"mime_type" example:"image/jpeg"`
}

// FinalizeRequest registers a completed upload
type FinalizeRequest struct {
	ProjectID *string `json:"project_id,omitempty"`
	ObjectKey string  `json:"object_key"`
	FileName  string  `json:"file_name" example:"site.jpg"`
	MimeType  string  `json:"mime_type" example:"image/jpeg"`
	Size      int64   `json:"size"`
}

// PresignUpload returns a pre-signed PUT URL
// @Summary Presign Upload
// @Tags Files
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PresignRequest true "Upload"
// @Success 200 {object} file.Upload
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /files/presign [post]
func (h *Handler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	var req PresignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	up, err := h.fileService.Presign(r.Context(), GetActor(r.Context()), file.PresignInput{
		ProjectID: req.ProjectID,
		MimeType:  req.MimeType,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, up)
}

// FinalizeUpload records an uploaded object
// @Summary Finalize Upload
// @Description Idempotent per object key: 201 on first registration, 200 on replay.
// @Tags Files
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FinalizeRequest true "Upload"
// @Success 200 {object} file.Object
// @Success 201 {object} file.Object
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /files [post]
func (h *Handler) FinalizeUpload(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	res, err := h.fileService.FinalizeUpload(r.Context(), GetActor(r.Context()), file.FinalizeInput{
		ProjectID: req.ProjectID,
		ObjectKey: req.ObjectKey,
		FileName:  req.FileName,
		MimeType:  req.MimeType,
		Size:      req.Size,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, createdStatus(res.Created), res.Value)
}
