package testutil

import (
	"database/sql"
	"testing"

	"transparency-monitor/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// Fixtures holds test data: one organization with an account, a
// reviewer account, and a small requirement catalog
type Fixtures struct {
	DB           *sql.DB
	Organization *models.Organization
	OrgUser      *models.User
	ReviewerUser *models.User
	Requirements []models.RequirementWithSubs
}

// SetupFixtures creates test data
func SetupFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()

	fixtures := &Fixtures{DB: db}

	fixtures.Organization = CreateOrganization(t, db, "Prefeitura de Teste", "PMT")
	fixtures.ReviewerUser = CreateUser(t, db, "analista@controladoria.test", "Analista Teste", models.RoleReviewer, nil)
	fixtures.OrgUser = CreateUser(t, db, "portal@pmt.test", "Responsavel PMT", models.RoleOrganization, &fixtures.Organization.ID)

	// Two plain requirements and one decomposed into three sub-items.
	fixtures.Requirements = []models.RequirementWithSubs{
		CreateRequirement(t, db, nil, "Publica o organograma atualizado", 10, nil),
		CreateRequirement(t, db, nil, "Divulga receitas e despesas", 14, nil),
		CreateRequirement(t, db, nil, "Mantem portal da transparencia completo", 6,
			[]string{"Licitacoes", "Contratos", "Diarias"}),
	}

	return fixtures
}

// CreateOrganization inserts an organization
func CreateOrganization(t *testing.T, db *sql.DB, name, code string) *models.Organization {
	t.Helper()

	org := &models.Organization{Name: name, Code: code, URL: "https://" + code + ".example.gov"}
	err := db.QueryRow(`
		INSERT INTO organizations (name, code, url)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, org.Name, org.Code, org.URL).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create organization %s: %v", code, err)
	}
	return org
}

// CreateUser inserts an active user with the password "password123"
func CreateUser(t *testing.T, db *sql.DB, email, name, role string, orgID *uint) *models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		OrganizationID: orgID,
		Email:          email,
		Name:           name,
		Role:           role,
		IsActive:       true,
	}
	hash := string(hashed)
	user.PasswordHash = &hash

	err = db.QueryRow(`
		INSERT INTO users (organization_id, email, password_hash, name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id, created_at, updated_at
	`, orgID, email, hash, name, role).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}
	return user
}

// CreateRequirement inserts a requirement, optionally with sub-items
func CreateRequirement(t *testing.T, db *sql.DB, orgID *uint, title string, points int, subTitles []string) models.RequirementWithSubs {
	t.Helper()

	var req models.RequirementWithSubs
	req.OrganizationID = orgID
	req.Title = title
	req.PointValue = points

	err := db.QueryRow(`
		INSERT INTO requirements (organization_id, title, point_value, sort_order)
		VALUES ($1, $2, $3, 0)
		RETURNING id, created_at, updated_at
	`, orgID, title, points).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create requirement %q: %v", title, err)
	}

	for i, subTitle := range subTitles {
		var sub models.SubRequirement
		sub.RequirementID = req.ID
		sub.Title = subTitle
		sub.SortOrder = i
		err := db.QueryRow(`
			INSERT INTO sub_requirements (requirement_id, title, sort_order)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, req.ID, subTitle, i).Scan(&sub.ID, &sub.CreatedAt)
		if err != nil {
			t.Fatalf("Failed to create sub-requirement %q: %v", subTitle, err)
		}
		req.SubRequirements = append(req.SubRequirements, sub)
	}

	return req
}
