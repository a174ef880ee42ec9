package service

import (
	"errors"
	"testing"

	"transparency-monitor/internal/models"
	"transparency-monitor/internal/repository"
	"transparency-monitor/internal/testutil"
)

func setupCatalogEnv(t *testing.T) (*testutil.Fixtures, *RequirementService, *OrganizationService) {
	t.Helper()

	containers := testutil.SetupPostgres(t)
	t.Cleanup(func() { containers.Cleanup(t) })

	fixtures := testutil.SetupFixtures(t, containers.DB)
	requirementRepo := repository.NewRequirementRepository(containers.DB)
	orgRepo := repository.NewOrganizationRepository(containers.DB)
	userRepo := repository.NewUserRepository(containers.DB)

	return fixtures,
		NewRequirementService(requirementRepo, orgRepo),
		NewOrganizationService(orgRepo, userRepo)
}

func reviewerActor(fixtures *testutil.Fixtures) Actor {
	u := fixtures.ReviewerUser
	return Actor{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func organizationActor(fixtures *testutil.Fixtures) Actor {
	u := fixtures.OrgUser
	return Actor{UserID: u.ID, Email: u.Email, Role: u.Role, OrganizationID: u.OrganizationID}
}

func TestRequirementCatalogManagement(t *testing.T) {
	fixtures, requirements, _ := setupCatalogEnv(t)
	reviewer := reviewerActor(fixtures)
	orgUser := organizationActor(fixtures)

	// Catalog writes are reviewer-only.
	req := &models.Requirement{Title: "Publica dados de obras", PointValue: 8}
	if err := requirements.CreateRequirement(orgUser, req); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for organization actor, got %v", err)
	}

	if err := requirements.CreateRequirement(reviewer, &models.Requirement{Title: " ", PointValue: 8}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for blank title, got %v", err)
	}
	if err := requirements.CreateRequirement(reviewer, &models.Requirement{Title: "Sem pontos", PointValue: 0}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for zero points, got %v", err)
	}

	if err := requirements.CreateRequirement(reviewer, req); err != nil {
		t.Fatalf("Failed to create requirement: %v", err)
	}
	if req.ID == 0 {
		t.Fatal("Expected requirement id to be set")
	}

	sub := &models.SubRequirement{RequirementID: req.ID, Title: "Cronograma fisico-financeiro"}
	if err := requirements.CreateSubRequirement(reviewer, sub); err != nil {
		t.Fatalf("Failed to create sub-requirement: %v", err)
	}
	if err := requirements.CreateSubRequirement(reviewer, &models.SubRequirement{RequirementID: 9999, Title: "Orfao"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown parent, got %v", err)
	}

	req.PointValue = 12
	if err := requirements.UpdateRequirement(reviewer, req); err != nil {
		t.Fatalf("Failed to update requirement: %v", err)
	}

	if err := requirements.DeleteRequirement(reviewer, req.ID); err != nil {
		t.Fatalf("Failed to delete requirement: %v", err)
	}
	if err := requirements.DeleteRequirement(reviewer, req.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestCatalogScoping(t *testing.T) {
	fixtures, requirements, organizations := setupCatalogEnv(t)
	reviewer := reviewerActor(fixtures)

	other := &models.Organization{Name: "Camara Municipal", Code: "CMT", URL: "https://cmt.example.gov"}
	if err := organizations.CreateOrganization(reviewer, other); err != nil {
		t.Fatalf("Failed to create organization: %v", err)
	}

	// An organization-specific criterion is invisible to everyone else.
	scoped := &models.Requirement{OrganizationID: &other.ID, Title: "Publica atas do plenario", PointValue: 5}
	if err := requirements.CreateRequirement(reviewer, scoped); err != nil {
		t.Fatalf("Failed to create scoped requirement: %v", err)
	}

	catalog, err := requirements.GetCatalogForOrganization(other.ID)
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}
	// Global fixtures plus the scoped entry.
	if len(catalog) != len(fixtures.Requirements)+1 {
		t.Errorf("Expected %d catalog entries, got %d", len(fixtures.Requirements)+1, len(catalog))
	}

	baseline, err := requirements.GetCatalogForOrganization(fixtures.Organization.ID)
	if err != nil {
		t.Fatalf("Failed to load baseline catalog: %v", err)
	}
	if len(baseline) != len(fixtures.Requirements) {
		t.Errorf("Expected %d baseline entries, got %d", len(fixtures.Requirements), len(baseline))
	}

	if _, err := requirements.GetCatalogForOrganization(9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown organization, got %v", err)
	}
}

func TestOrganizationDirectory(t *testing.T) {
	fixtures, _, organizations := setupCatalogEnv(t)
	reviewer := reviewerActor(fixtures)
	orgUser := organizationActor(fixtures)

	if err := organizations.CreateOrganization(orgUser, &models.Organization{Name: "X", Code: "X"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for organization actor, got %v", err)
	}
	// Codes are unique.
	dup := &models.Organization{Name: "Prefeitura Duplicada", Code: fixtures.Organization.Code}
	if err := organizations.CreateOrganization(reviewer, dup); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for duplicate code, got %v", err)
	}

	users, err := organizations.ListOrganizationUsers(orgUser, fixtures.Organization.ID)
	if err != nil {
		t.Fatalf("Failed to list own users: %v", err)
	}
	if len(users) != 1 || users[0].Email != fixtures.OrgUser.Email {
		t.Errorf("Expected the fixture account, got %+v", users)
	}

	foreignID := uint(0)
	foreign := Actor{UserID: 999, Role: models.RoleOrganization, OrganizationID: &foreignID}
	if _, err := organizations.ListOrganizationUsers(foreign, fixtures.Organization.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for foreign actor, got %v", err)
	}
}
