package handlers

import (
	"encoding/json"
	"net/http"

	"transparency-monitor/internal/middleware"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/service"
)

// OrganizationHandler handles organization directory HTTP requests
type OrganizationHandler struct {
	orgService *service.OrganizationService
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(orgService *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

// CreateOrganization registers an organization
// @Summary Create organization
// @Tags Organizations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.Organization true "Organization"
// @Success 201 {object} models.Organization
// @Failure 400 {object} map[string]string "Invalid or duplicate code"
// @Router /organizations [post]
func (h *OrganizationHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var org models.Organization
	if err := json.NewDecoder(r.Body).Decode(&org); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.orgService.CreateOrganization(actor, &org); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

// ListOrganizations lists the organization directory
// @Summary List organizations
// @Tags Organizations
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Organization
// @Router /organizations [get]
func (h *OrganizationHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgService.ListOrganizations()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	JSONResponse(w, orgs)
}

// GetOrganization retrieves one organization
// @Summary Get organization
// @Tags Organizations
// @Security BearerAuth
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {object} models.Organization
// @Failure 404 {object} map[string]string "Not found"
// @Router /organizations/{id} [get]
func (h *OrganizationHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidID)
		return
	}

	org, err := h.orgService.GetOrganization(id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// UpdateOrganization updates directory data
// @Summary Update organization
// @Tags Organizations
// @Security BearerAuth
// @Accept json
// @Param id path int true "Organization ID"
// @Param request body models.Organization true "Organization"
// @Success 204 "Updated"
// @Failure 404 {object} map[string]string "Not found"
// @Router /organizations/{id} [put]
func (h *OrganizationHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
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

	var org models.Organization
	if err := json.NewDecoder(r.Body).Decode(&org); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	org.ID = id

	if err := h.orgService.UpdateOrganization(actor, &org); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOrganizationUsers lists the accounts of an organization
// @Summary List organization users
// @Tags Organizations
// @Security BearerAuth
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {array} models.User
// @Failure 403 {object} map[string]string "Wrong organization"
// @Router /organizations/{id}/users [get]
func (h *OrganizationHandler) ListOrganizationUsers(w http.ResponseWriter, r *http.Request) {
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

	users, err := h.orgService.ListOrganizationUsers(actor, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	JSONResponse(w, users)
}
