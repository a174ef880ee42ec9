package repository

import (
	"database/sql"

	"transparency-monitor/internal/models"
)

// OrganizationRepository handles database operations for organizations
type OrganizationRepository struct {
	db *sql.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create creates a new organization
func (r *OrganizationRepository) Create(org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, code, url, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(query, org.Name, org.Code, org.URL).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(id uint) (*models.Organization, error) {
	var org models.Organization
	query := `
		SELECT id, name, code, url, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(
		&org.ID, &org.Name, &org.Code, &org.URL, &org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByCode retrieves an organization by its unique short code
func (r *OrganizationRepository) GetByCode(code string) (*models.Organization, error) {
	var org models.Organization
	query := `
		SELECT id, name, code, url, created_at, updated_at
		FROM organizations
		WHERE code = $1
	`
	err := r.db.QueryRow(query, code).Scan(
		&org.ID, &org.Name, &org.Code, &org.URL, &org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetAll retrieves all organizations ordered by name
func (r *OrganizationRepository) GetAll() ([]models.Organization, error) {
	query := `
		SELECT id, name, code, url, created_at, updated_at
		FROM organizations
		ORDER BY name ASC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(
			&org.ID, &org.Name, &org.Code, &org.URL, &org.CreatedAt, &org.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// Update updates an organization's name and URL
func (r *OrganizationRepository) Update(org *models.Organization) error {
	query := `
		UPDATE organizations
		SET name = $1, url = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	_, err := r.db.Exec(query, org.Name, org.URL, org.ID)
	return err
}
