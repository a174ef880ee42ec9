package handlers

import (
	"encoding/json"
	"net/http"

	"transparency-monitor/internal/middleware"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/service"
)

// ScanHandler handles crawler scan session HTTP requests
type ScanHandler struct {
	scanService *service.ScanService
}

// NewScanHandler creates a new scan handler
func NewScanHandler(scanService *service.ScanService) *ScanHandler {
	return &ScanHandler{scanService: scanService}
}

// StartScanRequest opens a scan session for an organization
type StartScanRequest struct {
	OrganizationID uint `json:"organization_id"`
}

// RecordLinkRequest reports one discovered URL
type RecordLinkRequest struct {
	URL           string `json:"url"`
	RequirementID *uint  `json:"requirement_id,omitempty"`
}

// ScanSessionResponse pairs a session with its discovered links
type ScanSessionResponse struct {
	Session *models.ScanSession     `json:"session"`
	Links   []models.DiscoveredLink `json:"links"`
}

// StartSession opens a crawler scan session
// @Summary Start scan session
// @Tags Scans
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body StartScanRequest true "Target organization"
// @Success 201 {object} models.ScanSession
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /scans [post]
func (h *ScanHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req StartScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	session, err := h.scanService.StartSession(actor, req.OrganizationID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// RecordLink reports one URL discovered by an active session
// @Summary Record discovered link
// @Tags Scans
// @Security BearerAuth
// @Accept json
// @Param sessionId path string true "Session ID"
// @Param request body RecordLinkRequest true "Discovered URL"
// @Success 204 "Link recorded"
// @Failure 409 {object} map[string]string "Session not active"
// @Router /scans/{sessionId}/links [post]
func (h *ScanHandler) RecordLink(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	var req RecordLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.scanService.RecordLink(sessionID, req.URL, req.RequirementID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FinishSession closes an active scan session
// @Summary Finish scan session
// @Tags Scans
// @Security BearerAuth
// @Param sessionId path string true "Session ID"
// @Success 204 "Session closed"
// @Failure 409 {object} map[string]string "Session already closed"
// @Router /scans/{sessionId}/finish [post]
func (h *ScanHandler) FinishSession(w http.ResponseWriter, r *http.Request) {
	if err := h.scanService.FinishSession(r.PathValue("sessionId")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InterruptSession aborts an active scan session
// @Summary Interrupt scan session
// @Tags Scans
// @Security BearerAuth
// @Param sessionId path string true "Session ID"
// @Success 204 "Session aborted"
// @Failure 409 {object} map[string]string "Session already closed"
// @Router /scans/{sessionId}/interrupt [post]
func (h *ScanHandler) InterruptSession(w http.ResponseWriter, r *http.Request) {
	if err := h.scanService.InterruptSession(r.PathValue("sessionId")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSession retrieves a scan session and its discovered links
// @Summary Get scan session
// @Tags Scans
// @Security BearerAuth
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} ScanSessionResponse
// @Failure 404 {object} map[string]string "Not found"
// @Router /scans/{sessionId} [get]
func (h *ScanHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	session, links, err := h.scanService.GetSession(actor, r.PathValue("sessionId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	JSONResponse(w, ScanSessionResponse{Session: session, Links: links})
}

// DeleteSession removes a closed scan session from the history
// @Summary Delete scan session
// @Tags Scans
// @Security BearerAuth
// @Param sessionId path string true "Session ID"
// @Success 204 "Session deleted"
// @Failure 409 {object} map[string]string "Session still active"
// @Router /scans/{sessionId} [delete]
func (h *ScanHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	if err := h.scanService.DeleteSession(actor, r.PathValue("sessionId")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions retrieves the scan history for an organization
// @Summary List scan sessions
// @Tags Scans
// @Security BearerAuth
// @Produce json
// @Param orgId path int true "Organization ID"
// @Success 200 {array} models.ScanSession
// @Failure 403 {object} map[string]string "Wrong organization"
// @Router /organizations/{orgId}/scans [get]
func (h *ScanHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	orgID, ok := pathID(r, "orgId")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidID)
		return
	}

	sessions, err := h.scanService.ListSessions(actor, orgID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	JSONResponse(w, sessions)
}
