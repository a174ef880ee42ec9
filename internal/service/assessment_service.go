package service

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"transparency-monitor/internal/deadline"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/repository"
	"transparency-monitor/internal/scoring"
	"transparency-monitor/pkg/validator"
)

// Actor identifies the authenticated caller of a service operation
type Actor struct {
	UserID         uint
	Email          string
	Role           string
	OrganizationID *uint
}

// IsReviewer reports whether the actor belongs to the controller's
// analyst team
func (a Actor) IsReviewer() bool {
	return a.Role == models.RoleReviewer
}

// OwnsOrganization reports whether the actor belongs to the given
// organization
func (a Actor) OwnsOrganization(orgID uint) bool {
	return a.OrganizationID != nil && *a.OrganizationID == orgID
}

// allowedTransitions is the closed set of lifecycle edges. Anything
// else is rejected as an invalid state.
var allowedTransitions = map[models.AssessmentStatus][]models.AssessmentStatus{
	models.StatusSelfAssessmentReceived: {models.StatusAppealWindowOpen},
	models.StatusAppealWindowOpen:       {models.StatusAppealUnderReview},
	models.StatusAppealUnderReview:      {models.StatusFinalized},
	models.StatusFinalized:              {},
}

// CanTransition reports whether the lifecycle allows moving from one
// status to another
func CanTransition(from, to models.AssessmentStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SubItemInput is one sub-requirement answer in a self-assessment
type SubItemInput struct {
	SubRequirementID uint    `json:"sub_requirement_id"`
	Meets            bool    `json:"meets"`
	Justification    *string `json:"justification,omitempty"`
}

// ResponseInput is one requirement answer in a self-assessment
type ResponseInput struct {
	RequirementID uint           `json:"requirement_id"`
	Meets         bool           `json:"meets"`
	Justification *string        `json:"justification,omitempty"`
	EvidenceLinks []string       `json:"evidence_links,omitempty"`
	SubItems      []SubItemInput `json:"sub_items,omitempty"`
}

// CreateAssessmentInput carries a full self-assessment submission
type CreateAssessmentInput struct {
	OrganizationID   uint            `json:"organization_id"`
	CycleYear        int             `json:"cycle_year"`
	ResponsibleName  string          `json:"responsible_name"`
	ResponsibleEmail string          `json:"responsible_email"`
	Responses        []ResponseInput `json:"responses"`
}

// ResponseAppealInput is one response-level appeal item
type ResponseAppealInput struct {
	ResponseID uint   `json:"response_id"`
	AppealText string `json:"appeal_text"`
	Meets      bool   `json:"meets"`
}

// SubResponseAppealInput is one sub-response-level appeal item
type SubResponseAppealInput struct {
	SubResponseID uint   `json:"sub_response_id"`
	AppealText    string `json:"appeal_text"`
	Meets         bool   `json:"meets"`
}

// AssessmentService governs the evaluation lifecycle: submission,
// appeal window, appeal, expiration, and finalization.
type AssessmentService struct {
	db              *sql.DB
	assessmentRepo  *repository.AssessmentRepository
	responseRepo    *repository.ResponseRepository
	subResponseRepo *repository.SubResponseRepository
	requirementRepo *repository.RequirementRepository
	orgRepo         *repository.OrganizationRepository
	notifier        Notifier
	cycleYear       int
	now             func() time.Time
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(
	db *sql.DB,
	assessmentRepo *repository.AssessmentRepository,
	responseRepo *repository.ResponseRepository,
	subResponseRepo *repository.SubResponseRepository,
	requirementRepo *repository.RequirementRepository,
	orgRepo *repository.OrganizationRepository,
	notifier Notifier,
	cycleYear int,
) *AssessmentService {
	return &AssessmentService{
		db:              db,
		assessmentRepo:  assessmentRepo,
		responseRepo:    responseRepo,
		subResponseRepo: subResponseRepo,
		requirementRepo: requirementRepo,
		orgRepo:         orgRepo,
		notifier:        notifier,
		cycleYear:       cycleYear,
		now:             time.Now,
	}
}

// CreateAssessment persists a self-assessment submission and opens the
// evaluation lifecycle for it
func (s *AssessmentService) CreateAssessment(actor Actor, input CreateAssessmentInput) (*models.Assessment, error) {
	if !actor.IsReviewer() && !actor.OwnsOrganization(input.OrganizationID) {
		return nil, fmt.Errorf("%w: assessment belongs to another organization", ErrForbidden)
	}
	if strings.TrimSpace(input.ResponsibleName) == "" || strings.TrimSpace(input.ResponsibleEmail) == "" {
		return nil, fmt.Errorf("%w: responsible name and email are required", ErrValidation)
	}
	if err := validator.ValidateEmail(input.ResponsibleEmail); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(input.Responses) == 0 {
		return nil, fmt.Errorf("%w: at least one response is required", ErrValidation)
	}

	org, err := s.orgRepo.GetByID(input.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("%w: organization %d", ErrNotFound, input.OrganizationID)
	}

	catalog, err := s.requirementRepo.GetForOrganization(input.OrganizationID)
	if err != nil {
		return nil, err
	}
	requirements := make(map[uint]models.RequirementWithSubs, len(catalog))
	for _, req := range catalog {
		requirements[req.ID] = req
	}

	selfScore := 0
	totalPossible := 0
	for _, req := range catalog {
		totalPossible += req.PointValue
	}
	for _, resp := range input.Responses {
		req, ok := requirements[resp.RequirementID]
		if !ok {
			return nil, fmt.Errorf("%w: requirement %d does not apply to organization %d", ErrValidation, resp.RequirementID, input.OrganizationID)
		}
		if len(resp.SubItems) > 0 {
			subIDs := make(map[uint]bool, len(req.SubRequirements))
			for _, sub := range req.SubRequirements {
				subIDs[sub.ID] = true
			}
			for _, subInput := range resp.SubItems {
				if !subIDs[subInput.SubRequirementID] {
					return nil, fmt.Errorf("%w: sub-requirement %d does not belong to requirement %d", ErrValidation, subInput.SubRequirementID, resp.RequirementID)
				}
			}
		}
		if resp.Meets {
			selfScore += req.PointValue
		}
	}

	cycleYear := input.CycleYear
	if cycleYear == 0 {
		cycleYear = s.cycleYear
	}

	assessment := &models.Assessment{
		OrganizationID:   input.OrganizationID,
		CycleYear:        cycleYear,
		ResponsibleName:  input.ResponsibleName,
		ResponsibleEmail: input.ResponsibleEmail,
		Status:           models.StatusSelfAssessmentReceived,
		SelfScore:        &selfScore,
		TotalPossible:    &totalPossible,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.assessmentRepo.Create(tx, assessment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: organization %d already submitted an assessment for cycle %d", ErrInvalidState, input.OrganizationID, cycleYear)
		}
		return nil, err
	}

	for _, respInput := range input.Responses {
		response := &models.Response{
			AssessmentID:    assessment.ID,
			RequirementID:   respInput.RequirementID,
			MeetsOriginal:   respInput.Meets,
			Meets:           respInput.Meets,
			Justification:   respInput.Justification,
			FirstPassStatus: models.ValidationPending,
		}
		if err := s.responseRepo.Create(tx, response); err != nil {
			return nil, err
		}
		if len(respInput.EvidenceLinks) > 0 {
			if err := s.responseRepo.ReplaceLinks(tx, response.ID, models.LinkEvidence, respInput.EvidenceLinks); err != nil {
				return nil, err
			}
		}
		for _, subInput := range respInput.SubItems {
			sub := &models.SubResponse{
				ResponseID:       response.ID,
				SubRequirementID: subInput.SubRequirementID,
				MeetsOriginal:    subInput.Meets,
				Meets:            subInput.Meets,
				Justification:    subInput.Justification,
				FirstPassStatus:  models.ValidationPending,
			}
			if err := s.subResponseRepo.Create(tx, sub); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if err := s.notifier.SendAssessmentReceived(assessment.ResponsibleEmail, org.Name, assessment.CycleYear); err != nil {
		slog.Error("Failed to send assessment received notification",
			"assessment_id", assessment.ID,
			"error", err,
		)
	}

	return assessment, nil
}

// ReturnForAppeal closes the first-pass analysis and opens the appeal
// window, computing the deadline and the first-pass score snapshot
func (s *AssessmentService) ReturnForAppeal(actor Actor, assessmentID uint) (*models.Assessment, error) {
	if !actor.IsReviewer() {
		return nil, fmt.Errorf("%w: only reviewers can return an assessment for appeal", ErrForbidden)
	}

	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if err != nil {
		return nil, err
	}
	if assessment == nil {
		return nil, fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if !CanTransition(assessment.Status, models.StatusAppealWindowOpen) {
		return nil, fmt.Errorf("%w: cannot open appeal window from status %s", ErrInvalidState, assessment.Status)
	}

	responses, err := s.responseRepo.GetDetailedByAssessmentID(assessmentID)
	if err != nil {
		return nil, err
	}
	firstPassScore := scoring.ScoreAssessment(responses, models.PhaseFirstPass)
	appealDeadline := deadline.ComputeAppealDeadline(s.now())

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ok, err := s.assessmentRepo.OpenAppealWindow(tx, assessmentID, firstPassScore, appealDeadline)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: assessment %d is no longer awaiting first-pass analysis", ErrInvalidState, assessmentID)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	assessment.Status = models.StatusAppealWindowOpen
	assessment.FirstPassScore = &firstPassScore
	assessment.AppealDeadline = &appealDeadline
	assessment.AppealExpired = false

	s.notifyReturnedForAppeal(assessment, responses, firstPassScore, appealDeadline)

	return assessment, nil
}

func (s *AssessmentService) notifyReturnedForAppeal(assessment *models.Assessment, responses []models.ResponseWithDetails, firstPassScore int, appealDeadline time.Time) {
	org, err := s.orgRepo.GetByID(assessment.OrganizationID)
	if err != nil || org == nil {
		slog.Error("Failed to load organization for appeal notification",
			"assessment_id", assessment.ID,
			"error", err,
		)
		return
	}
	total := scoring.TotalPossible(responses)
	if err := s.notifier.SendReturnedForAppeal(assessment.ResponsibleEmail, org.Name, firstPassScore, total, appealDeadline); err != nil {
		slog.Error("Failed to send returned-for-appeal notification",
			"assessment_id", assessment.ID,
			"error", err,
		)
	}
}

// SubmitAppeal records the organization's appeal and moves the
// assessment into appeal review.
//
// An appeal with zero response-level and zero sub-response-level items
// is a total confirmation: the organization accepts the first-pass
// result verbatim and only the status changes.
func (s *AssessmentService) SubmitAppeal(actor Actor, assessmentID uint, responseAppeals []ResponseAppealInput, subAppeals []SubResponseAppealInput) error {
	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if err != nil {
		return err
	}
	if assessment == nil {
		return fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if !actor.OwnsOrganization(assessment.OrganizationID) {
		return fmt.Errorf("%w: assessment belongs to another organization", ErrForbidden)
	}
	if assessment.Status != models.StatusAppealWindowOpen {
		return fmt.Errorf("%w: appeal window is not open for assessment %d", ErrInvalidState, assessmentID)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	parentIDs := make(map[uint]bool)
	for _, item := range responseAppeals {
		response, err := s.responseRepo.GetByID(item.ResponseID)
		if err != nil {
			return err
		}
		if response == nil || response.AssessmentID != assessmentID {
			return fmt.Errorf("%w: response %d does not belong to assessment %d", ErrValidation, item.ResponseID, assessmentID)
		}
		appealText := item.AppealText
		if err := s.responseRepo.UpdateAppeal(tx, item.ResponseID, &appealText, item.Meets); err != nil {
			return err
		}
	}
	for _, item := range subAppeals {
		sub, err := s.subResponseRepo.GetByID(item.SubResponseID)
		if err != nil {
			return err
		}
		if sub == nil {
			return fmt.Errorf("%w: sub-response %d", ErrValidation, item.SubResponseID)
		}
		parent, err := s.responseRepo.GetByID(sub.ResponseID)
		if err != nil {
			return err
		}
		if parent == nil || parent.AssessmentID != assessmentID {
			return fmt.Errorf("%w: sub-response %d does not belong to assessment %d", ErrValidation, item.SubResponseID, assessmentID)
		}
		appealText := item.AppealText
		if err := s.subResponseRepo.UpdateAppeal(tx, item.SubResponseID, &appealText, item.Meets); err != nil {
			return err
		}
		parentIDs[sub.ResponseID] = true
	}

	for parentID := range parentIDs {
		if _, err := recomputeParentStatus(tx, s.subResponseRepo, s.responseRepo, parentID, models.PhasePostAppeal); err != nil {
			return err
		}
	}

	ok, err := s.assessmentRepo.MarkAppealUnderReview(tx, assessmentID, false)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: appeal window already closed for assessment %d", ErrInvalidState, assessmentID)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if org, orgErr := s.orgRepo.GetByID(assessment.OrganizationID); orgErr == nil && org != nil {
		if err := s.notifier.SendAppealReceived(assessment.ResponsibleEmail, org.Name); err != nil {
			slog.Error("Failed to send appeal received notification",
				"assessment_id", assessmentID,
				"error", err,
			)
		}
	}

	return nil
}

// ExpireAppeal forces the appeal-window transition for an assessment
// whose deadline passed without an appeal. The first-pass result stands
// and no score is recomputed.
func (s *AssessmentService) ExpireAppeal(assessmentID uint) error {
	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if err != nil {
		return err
	}
	if assessment == nil {
		return fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if assessment.Status != models.StatusAppealWindowOpen || assessment.AppealExpired {
		return fmt.Errorf("%w: assessment %d is not awaiting an appeal", ErrInvalidState, assessmentID)
	}
	if assessment.AppealDeadline == nil || s.now().Before(*assessment.AppealDeadline) {
		return fmt.Errorf("%w: appeal deadline has not passed for assessment %d", ErrInvalidState, assessmentID)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ok, err := s.assessmentRepo.MarkAppealUnderReview(tx, assessmentID, true)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: assessment %d was concurrently transitioned", ErrInvalidState, assessmentID)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.notifyAppealExpired(assessment)
	return nil
}

func (s *AssessmentService) notifyAppealExpired(assessment *models.Assessment) {
	org, err := s.orgRepo.GetByID(assessment.OrganizationID)
	if err != nil || org == nil {
		slog.Error("Failed to load organization for expiry notification",
			"assessment_id", assessment.ID,
			"error", err,
		)
		return
	}
	firstPass := 0
	if assessment.FirstPassScore != nil {
		firstPass = *assessment.FirstPassScore
	}
	total := 0
	if assessment.TotalPossible != nil {
		total = *assessment.TotalPossible
	}
	if err := s.notifier.SendAppealDeadlineExpired(assessment.ResponsibleEmail, org.Name, firstPass, total); err != nil {
		slog.Error("Failed to send appeal deadline expired notification",
			"assessment_id", assessment.ID,
			"error", err,
		)
	}
}

// SweepExpiredAppeals finds every assessment past its appeal deadline
// and forces the expiry transition. Failures are isolated per item so
// one bad assessment never blocks the rest of the batch.
func (s *AssessmentService) SweepExpiredAppeals() int {
	expired, err := s.assessmentRepo.GetExpiredAppealWindows(s.now())
	if err != nil {
		slog.Error("Failed to query expired appeal windows", "error", err)
		return 0
	}

	processed := 0
	for _, assessment := range expired {
		if err := s.ExpireAppeal(assessment.ID); err != nil {
			slog.Error("Failed to expire appeal window",
				"assessment_id", assessment.ID,
				"error", err,
			)
			continue
		}
		slog.Info("Appeal window expired",
			"assessment_id", assessment.ID,
			"organization_id", assessment.OrganizationID,
		)
		processed++
	}
	return processed
}

// SavePostAppealScore persists the post-appeal score snapshot computed
// during appeal review. The persisted value is authoritative at
// finalize time and is never recomputed.
func (s *AssessmentService) SavePostAppealScore(actor Actor, assessmentID uint, score int) error {
	if !actor.IsReviewer() {
		return fmt.Errorf("%w: only reviewers can save the post-appeal score", ErrForbidden)
	}

	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if err != nil {
		return err
	}
	if assessment == nil {
		return fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if assessment.Status != models.StatusAppealUnderReview {
		return fmt.Errorf("%w: assessment %d is not under appeal review", ErrInvalidState, assessmentID)
	}
	if score < 0 || (assessment.TotalPossible != nil && score > *assessment.TotalPossible) {
		return fmt.Errorf("%w: score %d out of range", ErrValidation, score)
	}

	return s.assessmentRepo.SavePostAppealScore(s.db, assessmentID, score)
}

// FinalizeAssessment computes and persists all four score snapshots and
// moves the assessment to its terminal status
func (s *AssessmentService) FinalizeAssessment(actor Actor, assessmentID uint) (*models.ScoreBreakdown, error) {
	if !actor.IsReviewer() {
		return nil, fmt.Errorf("%w: only reviewers can finalize an assessment", ErrForbidden)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	assessment, err := s.assessmentRepo.GetByIDForUpdate(tx, assessmentID)
	if err != nil {
		return nil, err
	}
	if assessment == nil {
		return nil, fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if !CanTransition(assessment.Status, models.StatusFinalized) {
		return nil, fmt.Errorf("%w: cannot finalize from status %s", ErrInvalidState, assessment.Status)
	}

	responses, err := s.responseRepo.GetDetailedByAssessmentID(assessmentID)
	if err != nil {
		return nil, err
	}

	scores := models.ScoreBreakdown{
		Self:          scoring.ScoreAssessment(responses, models.PhaseSelf),
		FirstPass:     scoring.ScoreAssessment(responses, models.PhaseFirstPass),
		Final:         scoring.ScoreAssessment(responses, models.PhaseFinal),
		TotalPossible: scoring.TotalPossible(responses),
	}
	// A score persisted during appeal review wins over recomputation.
	if assessment.PostAppealScore != nil {
		scores.PostAppeal = *assessment.PostAppealScore
	} else {
		scores.PostAppeal = scoring.ScoreAssessment(responses, models.PhasePostAppeal)
	}

	ok, err := s.assessmentRepo.Finalize(tx, assessmentID, scores, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: assessment %d was concurrently transitioned", ErrInvalidState, assessmentID)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if org, orgErr := s.orgRepo.GetByID(assessment.OrganizationID); orgErr == nil && org != nil {
		if err := s.notifier.SendFinalScorePublished(assessment.ResponsibleEmail, org.Name, scores.Final, scores.TotalPossible, assessment.CycleYear); err != nil {
			slog.Error("Failed to send final score notification",
				"assessment_id", assessmentID,
				"error", err,
			)
		}
	}

	return &scores, nil
}

// CheckAppealDeadline reports whether the appeal window is still open
// and how many whole seconds remain
func (s *AssessmentService) CheckAppealDeadline(actor Actor, assessmentID uint) (*models.DeadlineCheck, error) {
	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if err != nil {
		return nil, err
	}
	if assessment == nil {
		return nil, fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if !actor.IsReviewer() && !actor.OwnsOrganization(assessment.OrganizationID) {
		return nil, fmt.Errorf("%w: assessment belongs to another organization", ErrForbidden)
	}
	if assessment.AppealDeadline == nil {
		return nil, fmt.Errorf("%w: no appeal deadline set for assessment %d", ErrInvalidState, assessmentID)
	}

	now := s.now()
	remaining := deadline.SecondsRemaining(now, *assessment.AppealDeadline)
	check := &models.DeadlineCheck{
		WithinWindow:     assessment.Status == models.StatusAppealWindowOpen && remaining > 0,
		SecondsRemaining: remaining,
		Expired:          assessment.AppealExpired || remaining == 0,
		Deadline:         assessment.AppealDeadline,
	}
	return check, nil
}

// GetAssessment retrieves an assessment with its responses, enforcing
// ownership for organization actors
func (s *AssessmentService) GetAssessment(actor Actor, assessmentID uint) (*models.AssessmentWithDetails, error) {
	assessment, err := s.assessmentRepo.GetByIDWithDetails(assessmentID)
	if err != nil {
		return nil, err
	}
	if assessment == nil {
		return nil, fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if !actor.IsReviewer() && !actor.OwnsOrganization(assessment.OrganizationID) {
		return nil, fmt.Errorf("%w: assessment belongs to another organization", ErrForbidden)
	}

	responses, err := s.responseRepo.GetDetailedByAssessmentID(assessmentID)
	if err != nil {
		return nil, err
	}
	assessment.Responses = responses
	return assessment, nil
}

// ListAssessments retrieves the assessments visible to the actor:
// reviewers see everything, organizations see their own
func (s *AssessmentService) ListAssessments(actor Actor) ([]models.AssessmentWithDetails, error) {
	if actor.IsReviewer() {
		return s.assessmentRepo.GetAllWithDetails()
	}
	if actor.OrganizationID == nil {
		return nil, fmt.Errorf("%w: caller has no organization", ErrForbidden)
	}
	own, err := s.assessmentRepo.GetByOrganizationID(*actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	result := make([]models.AssessmentWithDetails, 0, len(own))
	for _, assessment := range own {
		result = append(result, models.AssessmentWithDetails{Assessment: assessment})
	}
	return result, nil
}

// GetFinalScore returns the persisted score snapshots. Organizations
// can only see their own score once the assessment is finalized.
func (s *AssessmentService) GetFinalScore(actor Actor, assessmentID uint) (*models.ScoreBreakdown, error) {
	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if err != nil {
		return nil, err
	}
	if assessment == nil {
		return nil, fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if !actor.IsReviewer() {
		if !actor.OwnsOrganization(assessment.OrganizationID) {
			return nil, fmt.Errorf("%w: assessment belongs to another organization", ErrForbidden)
		}
		if assessment.Status != models.StatusFinalized {
			return nil, fmt.Errorf("%w: scores are published only after finalization", ErrForbidden)
		}
	}

	scores := &models.ScoreBreakdown{}
	if assessment.SelfScore != nil {
		scores.Self = *assessment.SelfScore
	}
	if assessment.FirstPassScore != nil {
		scores.FirstPass = *assessment.FirstPassScore
	}
	if assessment.PostAppealScore != nil {
		scores.PostAppeal = *assessment.PostAppealScore
	}
	if assessment.FinalScore != nil {
		scores.Final = *assessment.FinalScore
	}
	if assessment.TotalPossible != nil {
		scores.TotalPossible = *assessment.TotalPossible
	}
	return scores, nil
}

// DeleteAssessment removes an assessment and everything it owns
func (s *AssessmentService) DeleteAssessment(actor Actor, assessmentID uint) error {
	if !actor.IsReviewer() {
		return fmt.Errorf("%w: only reviewers can delete assessments", ErrForbidden)
	}
	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if err != nil {
		return err
	}
	if assessment == nil {
		return fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	return s.assessmentRepo.Delete(assessmentID)
}
