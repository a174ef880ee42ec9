package handlers

import (
	"encoding/json"
	"net/http"

	"transparency-monitor/internal/middleware"
	"transparency-monitor/internal/service"
)

// AssessmentHandler handles evaluation lifecycle HTTP requests
type AssessmentHandler struct {
	assessmentService *service.AssessmentService
}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler(assessmentService *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService}
}

// AppealRequest carries an organization's appeal submission. Both lists
// may be empty, which confirms the first-pass result as a whole.
type AppealRequest struct {
	Responses    []service.ResponseAppealInput    `json:"responses"`
	SubResponses []service.SubResponseAppealInput `json:"sub_responses"`
}

// PostAppealScoreRequest persists the score computed during appeal review
type PostAppealScoreRequest struct {
	Score int `json:"score"`
}

// CreateAssessment receives a self-assessment submission
// @Summary Submit self-assessment
// @Description Record an organization's transparency self-assessment and open its evaluation
// @Tags Assessments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.CreateAssessmentInput true "Self-assessment"
// @Success 201 {object} models.Assessment
// @Failure 400 {object} map[string]string "Invalid submission"
// @Failure 403 {object} map[string]string "Wrong organization"
// @Router /assessments [post]
func (h *AssessmentHandler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var input service.CreateAssessmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	assessment, err := h.assessmentService.CreateAssessment(actor, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assessment)
}

// ListAssessments lists the assessments visible to the caller
// @Summary List assessments
// @Tags Assessments
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.AssessmentWithDetails
// @Router /assessments [get]
func (h *AssessmentHandler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	assessments, err := h.assessmentService.ListAssessments(actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	JSONResponse(w, assessments)
}

// GetAssessment retrieves one assessment with its responses
// @Summary Get assessment
// @Tags Assessments
// @Security BearerAuth
// @Produce json
// @Param id path int true "Assessment ID"
// @Success 200 {object} models.AssessmentWithDetails
// @Failure 403 {object} map[string]string "Wrong organization"
// @Failure 404 {object} map[string]string "Not found"
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidAssessmentID)
		return
	}

	assessment, err := h.assessmentService.GetAssessment(actor, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	JSONResponse(w, assessment)
}

// ReturnForAppeal closes first-pass analysis and opens the appeal window
// @Summary Return assessment for appeal
// @Description Compute the first-pass score and open the business-day appeal window
// @Tags Assessments
// @Security BearerAuth
// @Produce json
// @Param id path int true "Assessment ID"
// @Success 200 {object} models.Assessment
// @Failure 409 {object} map[string]string "Wrong lifecycle status"
// @Router /assessments/{id}/return-for-appeal [post]
func (h *AssessmentHandler) ReturnForAppeal(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidAssessmentID)
		return
	}

	assessment, err := h.assessmentService.ReturnForAppeal(actor, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

// SubmitAppeal records the organization's appeal
// @Summary Submit appeal
// @Description Record appeal items. An empty appeal confirms the first-pass result.
// @Tags Assessments
// @Security BearerAuth
// @Accept json
// @Param id path int true "Assessment ID"
// @Param request body AppealRequest true "Appeal items"
// @Success 204 "Appeal recorded"
// @Failure 409 {object} map[string]string "Appeal window not open"
// @Router /assessments/{id}/appeal [post]
func (h *AssessmentHandler) SubmitAppeal(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidAssessmentID)
		return
	}

	var req AppealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.assessmentService.SubmitAppeal(actor, id, req.Responses, req.SubResponses); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckAppealDeadline reports the remaining appeal window
// @Summary Check appeal deadline
// @Tags Assessments
// @Security BearerAuth
// @Produce json
// @Param id path int true "Assessment ID"
// @Success 200 {object} models.DeadlineCheck
// @Failure 409 {object} map[string]string "No deadline set"
// @Router /assessments/{id}/deadline [get]
func (h *AssessmentHandler) CheckAppealDeadline(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidAssessmentID)
		return
	}

	check, err := h.assessmentService.CheckAppealDeadline(actor, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// SavePostAppealScore persists the post-appeal score snapshot
// @Summary Save post-appeal score
// @Tags Assessments
// @Security BearerAuth
// @Accept json
// @Param id path int true "Assessment ID"
// @Param request body PostAppealScoreRequest true "Score"
// @Success 204 "Score saved"
// @Failure 409 {object} map[string]string "Not under appeal review"
// @Router /assessments/{id}/post-appeal-score [put]
func (h *AssessmentHandler) SavePostAppealScore(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidAssessmentID)
		return
	}

	var req PostAppealScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.assessmentService.SavePostAppealScore(actor, id, req.Score); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FinalizeAssessment publishes the final score
// @Summary Finalize assessment
// @Description Compute and persist all score snapshots and close the evaluation
// @Tags Assessments
// @Security BearerAuth
// @Produce json
// @Param id path int true "Assessment ID"
// @Success 200 {object} models.ScoreBreakdown
// @Failure 409 {object} map[string]string "Wrong lifecycle status"
// @Router /assessments/{id}/finalize [post]
func (h *AssessmentHandler) FinalizeAssessment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidAssessmentID)
		return
	}

	scores, err := h.assessmentService.FinalizeAssessment(actor, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// GetFinalScore returns the persisted score snapshots
// @Summary Get score breakdown
// @Tags Assessments
// @Security BearerAuth
// @Produce json
// @Param id path int true "Assessment ID"
// @Success 200 {object} models.ScoreBreakdown
// @Failure 403 {object} map[string]string "Not yet published"
// @Router /assessments/{id}/score [get]
func (h *AssessmentHandler) GetFinalScore(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidAssessmentID)
		return
	}

	scores, err := h.assessmentService.GetFinalScore(actor, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// DeleteAssessment removes an assessment
// @Summary Delete assessment
// @Tags Assessments
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Not found"
// @Router /assessments/{id} [delete]
func (h *AssessmentHandler) DeleteAssessment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidAssessmentID)
		return
	}

	if err := h.assessmentService.DeleteAssessment(actor, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
