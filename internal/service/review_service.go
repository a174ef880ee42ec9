package service

import (
	"database/sql"
	"fmt"

	"transparency-monitor/internal/models"
	"transparency-monitor/internal/repository"
)

// ValidateResponseInput carries an analyst's first-pass verdict for a
// single response
type ValidateResponseInput struct {
	Status       models.ValidationStatus `json:"status"`
	Comment      *string                 `json:"comment,omitempty"`
	AnalystLinks []string                `json:"analyst_links,omitempty"`
}

// ValidateSubResponseInput carries an analyst's verdict for a single
// sub-response
type ValidateSubResponseInput struct {
	Status  models.ValidationStatus `json:"status"`
	Comment *string                 `json:"comment,omitempty"`
}

// FinalAnalysisInput carries the post-appeal verdict for a response
type FinalAnalysisInput struct {
	Status        models.ValidationStatus `json:"status"`
	Comment       *string                 `json:"comment,omitempty"`
	FinalDecision *string                 `json:"final_decision,omitempty"`
	AnalystLinks  []string                `json:"analyst_links,omitempty"`
}

// ReviewService covers the analyst side of an evaluation: first-pass
// validation, sub-item verdicts, and the final post-appeal analysis.
type ReviewService struct {
	db              *sql.DB
	assessmentRepo  *repository.AssessmentRepository
	responseRepo    *repository.ResponseRepository
	subResponseRepo *repository.SubResponseRepository
}

// NewReviewService creates a new review service
func NewReviewService(
	db *sql.DB,
	assessmentRepo *repository.AssessmentRepository,
	responseRepo *repository.ResponseRepository,
	subResponseRepo *repository.SubResponseRepository,
) *ReviewService {
	return &ReviewService{
		db:              db,
		assessmentRepo:  assessmentRepo,
		responseRepo:    responseRepo,
		subResponseRepo: subResponseRepo,
	}
}

var validVerdicts = map[models.ValidationStatus]bool{
	models.ValidationApproved: true,
	models.ValidationRejected: true,
	models.ValidationPartial:  true,
}

func (s *ReviewService) loadResponse(actor Actor, responseID uint) (*models.Response, *models.Assessment, error) {
	if !actor.IsReviewer() {
		return nil, nil, fmt.Errorf("%w: only reviewers can validate responses", ErrForbidden)
	}
	response, err := s.responseRepo.GetByID(responseID)
	if err != nil {
		return nil, nil, err
	}
	if response == nil {
		return nil, nil, fmt.Errorf("%w: response %d", ErrNotFound, responseID)
	}
	assessment, err := s.assessmentRepo.GetByID(response.AssessmentID)
	if err != nil {
		return nil, nil, err
	}
	if assessment == nil {
		return nil, nil, fmt.Errorf("%w: assessment %d", ErrNotFound, response.AssessmentID)
	}
	return response, assessment, nil
}

// ValidateResponse records the first-pass verdict for a response and
// replaces its analyst reference links
func (s *ReviewService) ValidateResponse(actor Actor, responseID uint, input ValidateResponseInput) error {
	if !validVerdicts[input.Status] {
		return fmt.Errorf("%w: unknown validation status %q", ErrValidation, input.Status)
	}
	_, assessment, err := s.loadResponse(actor, responseID)
	if err != nil {
		return err
	}
	if assessment.Status != models.StatusSelfAssessmentReceived {
		return fmt.Errorf("%w: first-pass analysis is closed for assessment %d", ErrInvalidState, assessment.ID)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.responseRepo.UpdateFirstPass(tx, responseID, input.Status, input.Comment); err != nil {
		return err
	}
	if input.AnalystLinks != nil {
		if err := s.responseRepo.ReplaceLinks(tx, responseID, models.LinkAnalyst, input.AnalystLinks); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ValidateSubResponse records an analyst verdict for a sub-response and
// recomputes the parent response's derived status
func (s *ReviewService) ValidateSubResponse(actor Actor, subResponseID uint, phase models.Phase, input ValidateSubResponseInput) error {
	if !actor.IsReviewer() {
		return fmt.Errorf("%w: only reviewers can validate sub-responses", ErrForbidden)
	}
	if !validVerdicts[input.Status] {
		return fmt.Errorf("%w: unknown validation status %q", ErrValidation, input.Status)
	}
	if phase != models.PhaseFirstPass && phase != models.PhasePostAppeal {
		return fmt.Errorf("%w: sub-response verdicts apply to first-pass or post-appeal phases", ErrValidation)
	}

	sub, err := s.subResponseRepo.GetByID(subResponseID)
	if err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("%w: sub-response %d", ErrNotFound, subResponseID)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if phase == models.PhaseFirstPass {
		err = s.subResponseRepo.UpdateFirstPass(tx, subResponseID, input.Status, input.Comment)
	} else {
		err = s.subResponseRepo.UpdatePostAppeal(tx, subResponseID, input.Status, input.Comment)
	}
	if err != nil {
		return err
	}

	if _, err := recomputeParentStatus(tx, s.subResponseRepo, s.responseRepo, sub.ResponseID, phase); err != nil {
		return err
	}
	return tx.Commit()
}

// FinalAnalysis records the post-appeal verdict and final decision text
// for a response
func (s *ReviewService) FinalAnalysis(actor Actor, responseID uint, input FinalAnalysisInput) error {
	if !validVerdicts[input.Status] {
		return fmt.Errorf("%w: unknown validation status %q", ErrValidation, input.Status)
	}
	_, assessment, err := s.loadResponse(actor, responseID)
	if err != nil {
		return err
	}
	if assessment.Status != models.StatusAppealUnderReview {
		return fmt.Errorf("%w: assessment %d is not under appeal review", ErrInvalidState, assessment.ID)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.responseRepo.UpdateFinalAnalysis(tx, responseID, input.Status, input.Comment, input.FinalDecision); err != nil {
		return err
	}
	if input.AnalystLinks != nil {
		if err := s.responseRepo.ReplaceLinks(tx, responseID, models.LinkFinalAnalysis, input.AnalystLinks); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// recomputeParentStatus derives a parent response's validation status
// from its sub-responses: approved when every sub-item is approved,
// rejected when none are, partial otherwise. A response with no
// sub-items keeps its direct verdict untouched.
func recomputeParentStatus(q repository.Queryer, subRepo *repository.SubResponseRepository, respRepo *repository.ResponseRepository, responseID uint, phase models.Phase) (models.ValidationStatus, error) {
	subs, err := subRepo.GetByResponseID(q, responseID)
	if err != nil {
		return "", err
	}
	if len(subs) == 0 {
		return "", nil
	}

	approved := 0
	for _, sub := range subs {
		status := sub.FirstPassStatus
		if phase == models.PhasePostAppeal && sub.PostAppealStatus != nil {
			status = *sub.PostAppealStatus
		}
		if status == models.ValidationApproved {
			approved++
		}
	}

	var derived models.ValidationStatus
	switch {
	case approved == len(subs):
		derived = models.ValidationApproved
	case approved == 0:
		derived = models.ValidationRejected
	default:
		derived = models.ValidationPartial
	}

	if err := respRepo.UpdateDerivedStatus(q, responseID, phase, derived); err != nil {
		return "", err
	}
	return derived, nil
}
