package handlers

import (
	"encoding/json"
	"net/http"

	"transparency-monitor/internal/middleware"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/service"
)

// ReviewHandler handles analyst validation HTTP requests
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// ValidateResponse records a first-pass verdict for a response
// @Summary Validate response
// @Description Record the analyst's first-pass verdict and reference links
// @Tags Review
// @Security BearerAuth
// @Accept json
// @Param id path int true "Response ID"
// @Param request body service.ValidateResponseInput true "Verdict"
// @Success 204 "Verdict recorded"
// @Failure 409 {object} map[string]string "First-pass analysis closed"
// @Router /responses/{id}/validate [put]
func (h *ReviewHandler) ValidateResponse(w http.ResponseWriter, r *http.Request) {
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

	var input service.ValidateResponseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.reviewService.ValidateResponse(actor, id, input); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ValidateSubResponse records a verdict for a sub-response. The parent
// response's status is re-derived from its sub-items.
// @Summary Validate sub-response
// @Tags Review
// @Security BearerAuth
// @Accept json
// @Param id path int true "Sub-response ID"
// @Param phase query string true "first_pass or post_appeal"
// @Param request body service.ValidateSubResponseInput true "Verdict"
// @Success 204 "Verdict recorded"
// @Failure 400 {object} map[string]string "Invalid phase"
// @Router /sub-responses/{id}/validate [put]
func (h *ReviewHandler) ValidateSubResponse(w http.ResponseWriter, r *http.Request) {
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

	phase := models.Phase(r.URL.Query().Get("phase"))

	var input service.ValidateSubResponseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.reviewService.ValidateSubResponse(actor, id, phase, input); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FinalAnalysis records the post-appeal verdict for a response
// @Summary Record final analysis
// @Description Record the post-appeal verdict and final decision text
// @Tags Review
// @Security BearerAuth
// @Accept json
// @Param id path int true "Response ID"
// @Param request body service.FinalAnalysisInput true "Verdict"
// @Success 204 "Verdict recorded"
// @Failure 409 {object} map[string]string "Not under appeal review"
// @Router /responses/{id}/final-analysis [put]
func (h *ReviewHandler) FinalAnalysis(w http.ResponseWriter, r *http.Request) {
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

	var input service.FinalAnalysisInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.reviewService.FinalAnalysis(actor, id, input); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
