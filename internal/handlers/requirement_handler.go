package handlers

import (
	"encoding/json"
	"net/http"

	"transparency-monitor/internal/middleware"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/service"
)

// RequirementHandler handles requirement catalog HTTP requests
type RequirementHandler struct {
	requirementService *service.RequirementService
}

// NewRequirementHandler creates a new requirement handler
func NewRequirementHandler(requirementService *service.RequirementService) *RequirementHandler {
	return &RequirementHandler{requirementService: requirementService}
}

// CreateRequirement adds a criterion to the catalog
// @Summary Create requirement
// @Tags Requirements
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.Requirement true "Requirement"
// @Success 201 {object} models.Requirement
// @Failure 400 {object} map[string]string "Invalid requirement"
// @Router /requirements [post]
func (h *RequirementHandler) CreateRequirement(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req models.Requirement
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.requirementService.CreateRequirement(actor, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// CreateSubRequirement decomposes a requirement into a sub-item
// @Summary Create sub-requirement
// @Tags Requirements
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Requirement ID"
// @Param request body models.SubRequirement true "Sub-requirement"
// @Success 201 {object} models.SubRequirement
// @Failure 404 {object} map[string]string "Requirement not found"
// @Router /requirements/{id}/sub-requirements [post]
func (h *RequirementHandler) CreateSubRequirement(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidID)
		return
	}

	var sub models.SubRequirement
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	sub.RequirementID = id

	if err := h.requirementService.CreateSubRequirement(actor, &sub); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// GetCatalog retrieves the catalog that applies to one organization
// @Summary Get requirement catalog
// @Description Global criteria plus the organization's specific entries
// @Tags Requirements
// @Security BearerAuth
// @Produce json
// @Param orgId path int true "Organization ID"
// @Success 200 {array} models.RequirementWithSubs
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/{orgId}/requirements [get]
func (h *RequirementHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(r, "orgId")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidID)
		return
	}

	catalog, err := h.requirementService.GetCatalogForOrganization(orgID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	JSONResponse(w, catalog)
}

// UpdateRequirement updates a catalog entry
// @Summary Update requirement
// @Tags Requirements
// @Security BearerAuth
// @Accept json
// @Param id path int true "Requirement ID"
// @Param request body models.Requirement true "Requirement"
// @Success 204 "Updated"
// @Failure 404 {object} map[string]string "Not found"
// @Router /requirements/{id} [put]
func (h *RequirementHandler) UpdateRequirement(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidID)
		return
	}

	var req models.Requirement
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	req.ID = id

	if err := h.requirementService.UpdateRequirement(actor, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteRequirement removes a catalog entry
// @Summary Delete requirement
// @Tags Requirements
// @Security BearerAuth
// @Param id path int true "Requirement ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Not found"
// @Router /requirements/{id} [delete]
func (h *RequirementHandler) DeleteRequirement(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidID)
		return
	}

	if err := h.requirementService.DeleteRequirement(actor, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
