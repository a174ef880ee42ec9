package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"transparency-monitor/internal/handlers"
	"transparency-monitor/internal/middleware"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/repository"
	"transparency-monitor/internal/service"
	"transparency-monitor/internal/testutil"
)

// testEnv wires the handler stack against a real database, the same
// way cmd/api does
type testEnv struct {
	containers *testutil.TestContainers
	fixtures   *testutil.Fixtures
	auth       *testutil.AuthHelper
	notifier   *testutil.NopNotifier

	assessmentSvc *service.AssessmentService
	router        http.Handler
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	containers := testutil.SetupPostgres(t)
	t.Cleanup(func() { containers.Cleanup(t) })

	fixtures := testutil.SetupFixtures(t, containers.DB)
	authHelper := testutil.NewAuthHelper()
	notifier := &testutil.NopNotifier{}

	db := containers.DB
	assessmentRepo := repository.NewAssessmentRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	subResponseRepo := repository.NewSubResponseRepository(db)
	requirementRepo := repository.NewRequirementRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)

	assessmentSvc := service.NewAssessmentService(db, assessmentRepo, responseRepo, subResponseRepo, requirementRepo, orgRepo, notifier, 2026)
	reviewSvc := service.NewReviewService(db, assessmentRepo, responseRepo, subResponseRepo)

	assessmentHandler := handlers.NewAssessmentHandler(assessmentSvc)
	reviewHandler := handlers.NewReviewHandler(reviewSvc)

	authMw := middleware.NewAuthMiddleware(authHelper.Service)
	rbacMw := middleware.NewRBACMiddleware()

	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/assessments/{id}", authMw.Authenticate(http.HandlerFunc(assessmentHandler.GetAssessment)))
	mux.Handle("GET /api/v1/assessments/{id}/score", authMw.Authenticate(http.HandlerFunc(assessmentHandler.GetFinalScore)))
	mux.Handle("POST /api/v1/assessments/{id}/return-for-appeal",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(assessmentHandler.ReturnForAppeal),
			),
		),
	)
	mux.Handle("POST /api/v1/assessments/{id}/appeal",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleOrganization)(
				http.HandlerFunc(assessmentHandler.SubmitAppeal),
			),
		),
	)
	mux.Handle("PUT /api/v1/responses/{id}/validate",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(reviewHandler.ValidateResponse),
			),
		),
	)

	return &testEnv{
		containers:    containers,
		fixtures:      fixtures,
		auth:          authHelper,
		notifier:      notifier,
		assessmentSvc: assessmentSvc,
		router:        mux,
	}
}

func actorFor(user *models.User) service.Actor {
	return service.Actor{
		UserID:         user.ID,
		Email:          user.Email,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
	}
}

// createAssessment submits a self-assessment for the fixture
// organization through the service layer
func (env *testEnv) createAssessment(t *testing.T) *models.Assessment {
	t.Helper()

	input := service.CreateAssessmentInput{
		OrganizationID:   env.fixtures.Organization.ID,
		CycleYear:        2026,
		ResponsibleName:  "Responsavel PMT",
		ResponsibleEmail: "portal@pmt.test",
		Responses: []service.ResponseInput{
			{RequirementID: env.fixtures.Requirements[0].ID, Meets: true},
			{RequirementID: env.fixtures.Requirements[1].ID, Meets: false},
		},
	}
	assessment, err := env.assessmentSvc.CreateAssessment(actorFor(env.fixtures.OrgUser), input)
	if err != nil {
		t.Fatalf("Failed to create assessment: %v", err)
	}
	return assessment
}

func (env *testEnv) doRequest(t *testing.T, user *models.User, method, url string, body interface{}) *testutil.TestResponse {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	if user != nil {
		env.auth.AddAuthHeader(t, req, user)
	}

	resp := testutil.NewTestResponse()
	env.router.ServeHTTP(resp, req)
	return resp
}

func TestAssessmentOrganizationIsolation(t *testing.T) {
	env := setupTestEnv(t)
	assessment := env.createAssessment(t)

	otherOrg := testutil.CreateOrganization(t, env.containers.DB, "Prefeitura Vizinha", "PVZ")
	otherUser := testutil.CreateUser(t, env.containers.DB, "portal@pvz.test", "Responsavel PVZ", models.RoleOrganization, &otherOrg.ID)

	url := "/api/v1/assessments/" + itoa(assessment.ID)

	resp := env.doRequest(t, otherUser, http.MethodGet, url, nil)
	resp.AssertStatusForbidden(t)

	resp = env.doRequest(t, env.fixtures.OrgUser, http.MethodGet, url, nil)
	resp.AssertStatusOK(t)

	resp = env.doRequest(t, env.fixtures.ReviewerUser, http.MethodGet, url, nil)
	resp.AssertStatusOK(t)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	env := setupTestEnv(t)
	assessment := env.createAssessment(t)

	resp := env.doRequest(t, nil, http.MethodGet, "/api/v1/assessments/"+itoa(assessment.ID), nil)
	resp.AssertStatusUnauthorized(t)
}

func TestReviewerRoutesRejectOrganizationUsers(t *testing.T) {
	env := setupTestEnv(t)
	assessment := env.createAssessment(t)

	resp := env.doRequest(t, env.fixtures.OrgUser, http.MethodPost,
		"/api/v1/assessments/"+itoa(assessment.ID)+"/return-for-appeal", nil)
	resp.AssertStatusForbidden(t)

	resp = env.doRequest(t, env.fixtures.OrgUser, http.MethodPut,
		"/api/v1/responses/1/validate",
		map[string]string{"status": "approved"})
	resp.AssertStatusForbidden(t)
}

func TestAppealRouteRejectsReviewers(t *testing.T) {
	env := setupTestEnv(t)
	assessment := env.createAssessment(t)

	if _, err := env.assessmentSvc.ReturnForAppeal(actorFor(env.fixtures.ReviewerUser), assessment.ID); err != nil {
		t.Fatalf("Failed to open appeal window: %v", err)
	}

	resp := env.doRequest(t, env.fixtures.ReviewerUser, http.MethodPost,
		"/api/v1/assessments/"+itoa(assessment.ID)+"/appeal",
		map[string]interface{}{"responses": []interface{}{}})
	resp.AssertStatusForbidden(t)
}

func TestScoreHiddenUntilFinalized(t *testing.T) {
	env := setupTestEnv(t)
	assessment := env.createAssessment(t)
	scoreURL := "/api/v1/assessments/" + itoa(assessment.ID) + "/score"

	// Before finalization the owning organization cannot read scores.
	resp := env.doRequest(t, env.fixtures.OrgUser, http.MethodGet, scoreURL, nil)
	resp.AssertStatusForbidden(t)

	reviewer := actorFor(env.fixtures.ReviewerUser)
	orgActor := actorFor(env.fixtures.OrgUser)

	if _, err := env.assessmentSvc.ReturnForAppeal(reviewer, assessment.ID); err != nil {
		t.Fatalf("Failed to open appeal window: %v", err)
	}
	if err := env.assessmentSvc.SubmitAppeal(orgActor, assessment.ID, nil, nil); err != nil {
		t.Fatalf("Failed to submit appeal: %v", err)
	}
	if _, err := env.assessmentSvc.FinalizeAssessment(reviewer, assessment.ID); err != nil {
		t.Fatalf("Failed to finalize assessment: %v", err)
	}

	resp = env.doRequest(t, env.fixtures.OrgUser, http.MethodGet, scoreURL, nil)
	resp.AssertStatusOK(t)

	var breakdown models.ScoreBreakdown
	if err := json.Unmarshal(resp.Body.Bytes(), &breakdown); err != nil {
		t.Fatalf("Failed to decode score breakdown: %v", err)
	}
	if breakdown.TotalPossible != 30 {
		t.Errorf("Expected total possible 30, got %d", breakdown.TotalPossible)
	}
}

func TestFinalizedAssessmentRejectsAppeal(t *testing.T) {
	env := setupTestEnv(t)
	assessment := env.createAssessment(t)

	reviewer := actorFor(env.fixtures.ReviewerUser)
	orgActor := actorFor(env.fixtures.OrgUser)

	if _, err := env.assessmentSvc.ReturnForAppeal(reviewer, assessment.ID); err != nil {
		t.Fatalf("Failed to open appeal window: %v", err)
	}
	if err := env.assessmentSvc.SubmitAppeal(orgActor, assessment.ID, nil, nil); err != nil {
		t.Fatalf("Failed to submit appeal: %v", err)
	}
	if _, err := env.assessmentSvc.FinalizeAssessment(reviewer, assessment.ID); err != nil {
		t.Fatalf("Failed to finalize assessment: %v", err)
	}

	resp := env.doRequest(t, env.fixtures.OrgUser, http.MethodPost,
		"/api/v1/assessments/"+itoa(assessment.ID)+"/appeal",
		map[string]interface{}{"responses": []interface{}{}})
	resp.AssertStatus(t, http.StatusConflict)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
