package service

import (
	"errors"
	"testing"
	"time"

	"transparency-monitor/internal/deadline"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/repository"
	"transparency-monitor/internal/testutil"
)

// serviceEnv wires the service layer against a real database with a
// controllable clock
type serviceEnv struct {
	fixtures *testutil.Fixtures
	notifier *testutil.NopNotifier

	assessments *AssessmentService
	reviews     *ReviewService

	responseRepo   *repository.ResponseRepository
	assessmentRepo *repository.AssessmentRepository

	now time.Time
}

func setupServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	containers := testutil.SetupPostgres(t)
	t.Cleanup(func() { containers.Cleanup(t) })

	fixtures := testutil.SetupFixtures(t, containers.DB)
	notifier := &testutil.NopNotifier{}

	db := containers.DB
	assessmentRepo := repository.NewAssessmentRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	subResponseRepo := repository.NewSubResponseRepository(db)
	requirementRepo := repository.NewRequirementRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)

	env := &serviceEnv{
		fixtures:       fixtures,
		notifier:       notifier,
		responseRepo:   responseRepo,
		assessmentRepo: assessmentRepo,
		// A Friday morning, so the appeal deadline math is predictable.
		now: time.Date(2026, time.March, 6, 10, 0, 0, 0, time.UTC),
	}

	env.assessments = NewAssessmentService(db, assessmentRepo, responseRepo, subResponseRepo, requirementRepo, orgRepo, notifier, 2026)
	env.assessments.now = func() time.Time { return env.now }
	env.reviews = NewReviewService(db, assessmentRepo, responseRepo, subResponseRepo)

	return env
}

func (env *serviceEnv) reviewer() Actor {
	u := env.fixtures.ReviewerUser
	return Actor{UserID: u.ID, Email: u.Email, Role: u.Role, OrganizationID: u.OrganizationID}
}

func (env *serviceEnv) orgActor() Actor {
	u := env.fixtures.OrgUser
	return Actor{UserID: u.ID, Email: u.Email, Role: u.Role, OrganizationID: u.OrganizationID}
}

// submitAssessment answers the full fixture catalog affirmatively: two
// plain requirements (10 and 14 points) and one requirement with three
// sub-items (6 points)
func (env *serviceEnv) submitAssessment(t *testing.T) *models.Assessment {
	t.Helper()

	composite := env.fixtures.Requirements[2]
	input := CreateAssessmentInput{
		OrganizationID:   env.fixtures.Organization.ID,
		CycleYear:        2026,
		ResponsibleName:  "Responsavel PMT",
		ResponsibleEmail: "portal@pmt.test",
		Responses: []ResponseInput{
			{RequirementID: env.fixtures.Requirements[0].ID, Meets: true, EvidenceLinks: []string{"https://pmt.example.gov/organograma"}},
			{RequirementID: env.fixtures.Requirements[1].ID, Meets: true},
			{
				RequirementID: composite.ID,
				Meets:         true,
				SubItems: []SubItemInput{
					{SubRequirementID: composite.SubRequirements[0].ID, Meets: true},
					{SubRequirementID: composite.SubRequirements[1].ID, Meets: true},
					{SubRequirementID: composite.SubRequirements[2].ID, Meets: true},
				},
			},
		},
	}
	assessment, err := env.assessments.CreateAssessment(env.orgActor(), input)
	if err != nil {
		t.Fatalf("Failed to create assessment: %v", err)
	}
	return assessment
}

// responsesByRequirement maps requirement id to the stored response
func (env *serviceEnv) responsesByRequirement(t *testing.T, assessmentID uint) map[uint]models.ResponseWithDetails {
	t.Helper()

	responses, err := env.responseRepo.GetDetailedByAssessmentID(assessmentID)
	if err != nil {
		t.Fatalf("Failed to load responses: %v", err)
	}
	byReq := make(map[uint]models.ResponseWithDetails, len(responses))
	for _, resp := range responses {
		byReq[resp.RequirementID] = resp
	}
	return byReq
}

func TestAssessmentLifecycle(t *testing.T) {
	env := setupServiceEnv(t)
	assessment := env.submitAssessment(t)

	if assessment.Status != models.StatusSelfAssessmentReceived {
		t.Fatalf("Expected status %s, got %s", models.StatusSelfAssessmentReceived, assessment.Status)
	}
	if assessment.SelfScore == nil || *assessment.SelfScore != 30 {
		t.Errorf("Expected self score 30, got %v", assessment.SelfScore)
	}
	if assessment.TotalPossible == nil || *assessment.TotalPossible != 30 {
		t.Errorf("Expected total possible 30, got %v", assessment.TotalPossible)
	}
	if env.notifier.SentCount("assessment_received") != 1 {
		t.Errorf("Expected receipt notification, got %v", env.notifier.Sent)
	}

	reviewer := env.reviewer()
	byReq := env.responsesByRequirement(t, assessment.ID)
	plain10 := byReq[env.fixtures.Requirements[0].ID]
	plain14 := byReq[env.fixtures.Requirements[1].ID]
	composite := byReq[env.fixtures.Requirements[2].ID]

	// First pass: approve the 10-point item, reject the 14-point item,
	// approve two of the three sub-items of the 6-point item.
	if err := env.reviews.ValidateResponse(reviewer, plain10.ID, ValidateResponseInput{Status: models.ValidationApproved}); err != nil {
		t.Fatalf("Failed to validate response: %v", err)
	}
	comment := "Pagina desatualizada"
	if err := env.reviews.ValidateResponse(reviewer, plain14.ID, ValidateResponseInput{Status: models.ValidationRejected, Comment: &comment}); err != nil {
		t.Fatalf("Failed to validate response: %v", err)
	}
	subStatuses := []models.ValidationStatus{models.ValidationApproved, models.ValidationApproved, models.ValidationRejected}
	for i, sub := range composite.SubResponses {
		if err := env.reviews.ValidateSubResponse(reviewer, sub.ID, models.PhaseFirstPass, ValidateSubResponseInput{Status: subStatuses[i]}); err != nil {
			t.Fatalf("Failed to validate sub-response: %v", err)
		}
	}

	// Two approved of three sub-items derive a partial parent.
	byReq = env.responsesByRequirement(t, assessment.ID)
	if got := byReq[env.fixtures.Requirements[2].ID].FirstPassStatus; got != models.ValidationPartial {
		t.Errorf("Expected derived partial status, got %s", got)
	}

	// Opening the appeal window computes the first-pass score:
	// 10 + 0 + round(6*2/3) = 14.
	returned, err := env.assessments.ReturnForAppeal(reviewer, assessment.ID)
	if err != nil {
		t.Fatalf("Failed to return for appeal: %v", err)
	}
	if returned.Status != models.StatusAppealWindowOpen {
		t.Errorf("Expected status %s, got %s", models.StatusAppealWindowOpen, returned.Status)
	}
	if returned.FirstPassScore == nil || *returned.FirstPassScore != 14 {
		t.Errorf("Expected first pass score 14, got %v", returned.FirstPassScore)
	}
	wantDeadline := deadline.ComputeAppealDeadline(env.now)
	if returned.AppealDeadline == nil || !returned.AppealDeadline.Equal(wantDeadline) {
		t.Errorf("Expected deadline %v, got %v", wantDeadline, returned.AppealDeadline)
	}
	if returned.AppealDeadline.Weekday() != time.Friday {
		t.Errorf("Deadline for a Friday submission should land on the following Friday, got %s", returned.AppealDeadline.Weekday())
	}

	check, err := env.assessments.CheckAppealDeadline(env.orgActor(), assessment.ID)
	if err != nil {
		t.Fatalf("Failed to check deadline: %v", err)
	}
	if !check.WithinWindow || check.Expired {
		t.Errorf("Expected open window, got %+v", check)
	}

	// The organization appeals the rejected item and the rejected
	// sub-item.
	appealText := "Relatorio republicado com os dados exigidos"
	err = env.assessments.SubmitAppeal(env.orgActor(), assessment.ID,
		[]ResponseAppealInput{{ResponseID: plain14.ID, AppealText: appealText, Meets: true}},
		[]SubResponseAppealInput{{SubResponseID: composite.SubResponses[2].ID, AppealText: appealText, Meets: true}},
	)
	if err != nil {
		t.Fatalf("Failed to submit appeal: %v", err)
	}
	if env.notifier.SentCount("appeal_received") != 1 {
		t.Errorf("Expected appeal receipt notification, got %v", env.notifier.Sent)
	}

	// Final analysis accepts both appeals.
	if err := env.reviews.FinalAnalysis(reviewer, plain14.ID, FinalAnalysisInput{Status: models.ValidationApproved}); err != nil {
		t.Fatalf("Failed to record final analysis: %v", err)
	}
	if err := env.reviews.ValidateSubResponse(reviewer, composite.SubResponses[2].ID, models.PhasePostAppeal, ValidateSubResponseInput{Status: models.ValidationApproved}); err != nil {
		t.Fatalf("Failed to validate sub-response post appeal: %v", err)
	}

	breakdown, err := env.assessments.FinalizeAssessment(reviewer, assessment.ID)
	if err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}
	if breakdown.Self != 30 || breakdown.FirstPass != 14 || breakdown.Final != 30 || breakdown.TotalPossible != 30 {
		t.Errorf("Unexpected score breakdown: %+v", breakdown)
	}
	if env.notifier.SentCount("final_score_published") != 1 {
		t.Errorf("Expected publication notification, got %v", env.notifier.Sent)
	}

	final, err := env.assessmentRepo.GetByID(assessment.ID)
	if err != nil {
		t.Fatalf("Failed to reload assessment: %v", err)
	}
	if final.Status != models.StatusFinalized {
		t.Errorf("Expected status %s, got %s", models.StatusFinalized, final.Status)
	}
	if final.FinalScore == nil || *final.FinalScore != 30 {
		t.Errorf("Expected final score 30, got %v", final.FinalScore)
	}
	if final.FinalizedAt == nil {
		t.Error("Expected finalized timestamp")
	}
}

func TestEmptyAppealConfirmsFirstPass(t *testing.T) {
	env := setupServiceEnv(t)
	assessment := env.submitAssessment(t)

	if _, err := env.assessments.ReturnForAppeal(env.reviewer(), assessment.ID); err != nil {
		t.Fatalf("Failed to return for appeal: %v", err)
	}

	// An empty appeal accepts the first-pass result wholesale.
	if err := env.assessments.SubmitAppeal(env.orgActor(), assessment.ID, nil, nil); err != nil {
		t.Fatalf("Failed to submit empty appeal: %v", err)
	}

	reloaded, err := env.assessmentRepo.GetByID(assessment.ID)
	if err != nil {
		t.Fatalf("Failed to reload assessment: %v", err)
	}
	if reloaded.Status != models.StatusAppealUnderReview {
		t.Errorf("Expected status %s, got %s", models.StatusAppealUnderReview, reloaded.Status)
	}
	if reloaded.AppealExpired {
		t.Error("Empty appeal must not be flagged as expired")
	}

	for _, resp := range env.responsesByRequirement(t, assessment.ID) {
		if resp.AppealText != nil || resp.AppealMeets != nil {
			t.Errorf("Response %d should carry no appeal data, got text=%v meets=%v", resp.ID, resp.AppealText, resp.AppealMeets)
		}
	}
}

func TestAppealWindowExpirationSweep(t *testing.T) {
	env := setupServiceEnv(t)
	assessment := env.submitAssessment(t)

	returned, err := env.assessments.ReturnForAppeal(env.reviewer(), assessment.ID)
	if err != nil {
		t.Fatalf("Failed to return for appeal: %v", err)
	}

	// Before the deadline, manual expiration is refused and the sweep
	// finds nothing.
	if err := env.assessments.ExpireAppeal(assessment.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for early expiration, got %v", err)
	}
	if expired := env.assessments.SweepExpiredAppeals(); expired != 0 {
		t.Errorf("Expected no expirations before deadline, got %d", expired)
	}

	env.now = returned.AppealDeadline.Add(time.Minute)

	if expired := env.assessments.SweepExpiredAppeals(); expired != 1 {
		t.Fatalf("Expected one expiration, got %d", expired)
	}

	reloaded, err := env.assessmentRepo.GetByID(assessment.ID)
	if err != nil {
		t.Fatalf("Failed to reload assessment: %v", err)
	}
	if reloaded.Status != models.StatusAppealUnderReview {
		t.Errorf("Expected status %s, got %s", models.StatusAppealUnderReview, reloaded.Status)
	}
	if !reloaded.AppealExpired {
		t.Error("Expected appeal_expired flag")
	}
	if env.notifier.SentCount("appeal_deadline_expired") != 1 {
		t.Errorf("Expected expiration notification, got %v", env.notifier.Sent)
	}

	// The expired window is gone; late appeals bounce.
	err = env.assessments.SubmitAppeal(env.orgActor(), assessment.ID, nil, nil)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for late appeal, got %v", err)
	}

	// Sweeping again is a no-op.
	if expired := env.assessments.SweepExpiredAppeals(); expired != 0 {
		t.Errorf("Expected idempotent sweep, got %d expirations", expired)
	}
}

func TestLifecycleTransitionGuards(t *testing.T) {
	env := setupServiceEnv(t)
	assessment := env.submitAssessment(t)
	reviewer := env.reviewer()
	orgActor := env.orgActor()

	// No shortcut from received straight to finalized.
	if _, err := env.assessments.FinalizeAssessment(reviewer, assessment.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState finalizing a fresh assessment, got %v", err)
	}
	// No appeal before the window opens.
	if err := env.assessments.SubmitAppeal(orgActor, assessment.ID, nil, nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState appealing a fresh assessment, got %v", err)
	}
	// No post-appeal score outside review.
	if err := env.assessments.SavePostAppealScore(reviewer, assessment.ID, 10); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState saving score early, got %v", err)
	}

	if _, err := env.assessments.ReturnForAppeal(reviewer, assessment.ID); err != nil {
		t.Fatalf("Failed to return for appeal: %v", err)
	}
	// Opening the window twice is rejected.
	if _, err := env.assessments.ReturnForAppeal(reviewer, assessment.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState on second return, got %v", err)
	}

	// Only reviewers drive lifecycle transitions.
	if _, err := env.assessments.ReturnForAppeal(orgActor, assessment.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for organization actor, got %v", err)
	}
}

func TestPersistedPostAppealScoreWins(t *testing.T) {
	env := setupServiceEnv(t)
	assessment := env.submitAssessment(t)
	reviewer := env.reviewer()

	if _, err := env.assessments.ReturnForAppeal(reviewer, assessment.ID); err != nil {
		t.Fatalf("Failed to return for appeal: %v", err)
	}
	if err := env.assessments.SubmitAppeal(env.orgActor(), assessment.ID, nil, nil); err != nil {
		t.Fatalf("Failed to submit appeal: %v", err)
	}

	// A manually persisted post-appeal score overrides the recomputed
	// one at finalization.
	if err := env.assessments.SavePostAppealScore(reviewer, assessment.ID, 21); err != nil {
		t.Fatalf("Failed to save post-appeal score: %v", err)
	}
	if err := env.assessments.SavePostAppealScore(reviewer, assessment.ID, 99); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for out-of-range score, got %v", err)
	}

	breakdown, err := env.assessments.FinalizeAssessment(reviewer, assessment.ID)
	if err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}
	if breakdown.PostAppeal != 21 {
		t.Errorf("Expected persisted post-appeal score 21, got %d", breakdown.PostAppeal)
	}
}

// Each sub-item verdict must be reflected in the parent status derived
// right after it, including the write still pending in the same
// transaction.
func TestSubItemAggregation(t *testing.T) {
	env := setupServiceEnv(t)
	reviewer := env.reviewer()

	requirementRepo := repository.NewRequirementRepository(env.fixtures.DB)
	single := &models.Requirement{Title: "Publica agenda de autoridades", PointValue: 4}
	if err := requirementRepo.Create(single); err != nil {
		t.Fatalf("Failed to create requirement: %v", err)
	}
	singleSub := &models.SubRequirement{RequirementID: single.ID, Title: "Agenda do prefeito"}
	if err := requirementRepo.CreateSub(singleSub); err != nil {
		t.Fatalf("Failed to create sub-requirement: %v", err)
	}

	composite := env.fixtures.Requirements[2]
	input := CreateAssessmentInput{
		OrganizationID:   env.fixtures.Organization.ID,
		CycleYear:        2026,
		ResponsibleName:  "Responsavel PMT",
		ResponsibleEmail: "portal@pmt.test",
		Responses: []ResponseInput{
			{
				RequirementID: composite.ID,
				Meets:         true,
				SubItems: []SubItemInput{
					{SubRequirementID: composite.SubRequirements[0].ID, Meets: true},
					{SubRequirementID: composite.SubRequirements[1].ID, Meets: true},
					{SubRequirementID: composite.SubRequirements[2].ID, Meets: true},
				},
			},
			{
				RequirementID: single.ID,
				Meets:         true,
				SubItems:      []SubItemInput{{SubRequirementID: singleSub.ID, Meets: true}},
			},
		},
	}
	assessment, err := env.assessments.CreateAssessment(env.orgActor(), input)
	if err != nil {
		t.Fatalf("Failed to create assessment: %v", err)
	}

	// Approving every sub-item one by one must leave the parent
	// approved after the last verdict, not one verdict behind.
	byReq := env.responsesByRequirement(t, assessment.ID)
	for _, sub := range byReq[composite.ID].SubResponses {
		if err := env.reviews.ValidateSubResponse(reviewer, sub.ID, models.PhaseFirstPass, ValidateSubResponseInput{Status: models.ValidationApproved}); err != nil {
			t.Fatalf("Failed to validate sub-response: %v", err)
		}
	}
	byReq = env.responsesByRequirement(t, assessment.ID)
	if got := byReq[composite.ID].FirstPassStatus; got != models.ValidationApproved {
		t.Errorf("Expected derived approved status after approving all sub-items, got %s", got)
	}

	// A single-sub parent mirrors its one verdict.
	oneSub := byReq[single.ID].SubResponses[0]
	if err := env.reviews.ValidateSubResponse(reviewer, oneSub.ID, models.PhaseFirstPass, ValidateSubResponseInput{Status: models.ValidationApproved}); err != nil {
		t.Fatalf("Failed to validate sub-response: %v", err)
	}
	byReq = env.responsesByRequirement(t, assessment.ID)
	if got := byReq[single.ID].FirstPassStatus; got != models.ValidationApproved {
		t.Errorf("Expected approved parent for approved single sub-item, got %s", got)
	}

	if err := env.reviews.ValidateSubResponse(reviewer, oneSub.ID, models.PhaseFirstPass, ValidateSubResponseInput{Status: models.ValidationRejected}); err != nil {
		t.Fatalf("Failed to validate sub-response: %v", err)
	}
	byReq = env.responsesByRequirement(t, assessment.ID)
	if got := byReq[single.ID].FirstPassStatus; got != models.ValidationRejected {
		t.Errorf("Expected rejected parent for rejected single sub-item, got %s", got)
	}
}

func TestCreateAssessmentValidation(t *testing.T) {
	env := setupServiceEnv(t)
	orgActor := env.orgActor()

	base := CreateAssessmentInput{
		OrganizationID:   env.fixtures.Organization.ID,
		CycleYear:        2026,
		ResponsibleName:  "Responsavel PMT",
		ResponsibleEmail: "portal@pmt.test",
		Responses:        []ResponseInput{{RequirementID: env.fixtures.Requirements[0].ID, Meets: true}},
	}

	tests := []struct {
		name    string
		mutate  func(*CreateAssessmentInput)
		wantErr error
	}{
		{
			name:    "missing responsible name",
			mutate:  func(in *CreateAssessmentInput) { in.ResponsibleName = "  " },
			wantErr: ErrValidation,
		},
		{
			name:    "malformed email",
			mutate:  func(in *CreateAssessmentInput) { in.ResponsibleEmail = "not-an-email" },
			wantErr: ErrValidation,
		},
		{
			name:    "no responses",
			mutate:  func(in *CreateAssessmentInput) { in.Responses = nil },
			wantErr: ErrValidation,
		},
		{
			name:    "unknown organization",
			mutate:  func(in *CreateAssessmentInput) { in.OrganizationID = 9999 },
			wantErr: ErrForbidden,
		},
		{
			name: "requirement outside catalog",
			mutate: func(in *CreateAssessmentInput) {
				in.Responses = []ResponseInput{{RequirementID: 9999, Meets: true}}
			},
			wantErr: ErrValidation,
		},
		{
			name: "sub-item under the wrong requirement",
			mutate: func(in *CreateAssessmentInput) {
				foreignSub := env.fixtures.Requirements[2].SubRequirements[0].ID
				in.Responses = []ResponseInput{{
					RequirementID: env.fixtures.Requirements[0].ID,
					Meets:         true,
					SubItems:      []SubItemInput{{SubRequirementID: foreignSub, Meets: true}},
				}}
			},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := base
			tt.mutate(&input)
			_, err := env.assessments.CreateAssessment(orgActor, input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// One assessment per organization and cycle year.
func TestDuplicateCycleSubmission(t *testing.T) {
	env := setupServiceEnv(t)
	orgActor := env.orgActor()

	input := CreateAssessmentInput{
		OrganizationID:   env.fixtures.Organization.ID,
		CycleYear:        2026,
		ResponsibleName:  "Responsavel PMT",
		ResponsibleEmail: "portal@pmt.test",
		Responses:        []ResponseInput{{RequirementID: env.fixtures.Requirements[0].ID, Meets: true}},
	}
	if _, err := env.assessments.CreateAssessment(orgActor, input); err != nil {
		t.Fatalf("Failed to create assessment: %v", err)
	}

	if _, err := env.assessments.CreateAssessment(orgActor, input); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for duplicate cycle submission, got %v", err)
	}
}
