package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"transparency-monitor/internal/models"
)

// RequirementRepository handles database operations for the requirement
// catalog, including organization-specific extra requirements.
type RequirementRepository struct {
	db *sql.DB
}

// NewRequirementRepository creates a new requirement repository
func NewRequirementRepository(db *sql.DB) *RequirementRepository {
	return &RequirementRepository{db: db}
}

// Create creates a new requirement
func (r *RequirementRepository) Create(req *models.Requirement) error {
	query := `
		INSERT INTO requirements (organization_id, title, help_text, point_value, fixed_link, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(
		query,
		req.OrganizationID,
		req.Title,
		req.HelpText,
		req.PointValue,
		req.FixedLink,
		req.SortOrder,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

// CreateSub creates a new sub-requirement
func (r *RequirementRepository) CreateSub(sub *models.SubRequirement) error {
	query := `
		INSERT INTO sub_requirements (requirement_id, title, sort_order, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at
	`
	return r.db.QueryRow(query, sub.RequirementID, sub.Title, sub.SortOrder).
		Scan(&sub.ID, &sub.CreatedAt)
}

// GetByID retrieves a requirement by ID
func (r *RequirementRepository) GetByID(id uint) (*models.Requirement, error) {
	var req models.Requirement
	query := `
		SELECT id, organization_id, title, help_text, point_value, fixed_link, sort_order, created_at, updated_at
		FROM requirements
		WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(
		&req.ID,
		&req.OrganizationID,
		&req.Title,
		&req.HelpText,
		&req.PointValue,
		&req.FixedLink,
		&req.SortOrder,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetForOrganization retrieves the full catalog that applies to one
// organization: every global requirement plus the organization's own
// extras, each with its sub-requirements.
func (r *RequirementRepository) GetForOrganization(orgID uint) ([]models.RequirementWithSubs, error) {
	query := `
		SELECT id, organization_id, title, help_text, point_value, fixed_link, sort_order, created_at, updated_at
		FROM requirements
		WHERE organization_id IS NULL OR organization_id = $1
		ORDER BY sort_order ASC, id ASC
	`
	rows, err := r.db.Query(query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []models.RequirementWithSubs
	var ids []uint
	for rows.Next() {
		var req models.RequirementWithSubs
		if err := rows.Scan(
			&req.ID,
			&req.OrganizationID,
			&req.Title,
			&req.HelpText,
			&req.PointValue,
			&req.FixedLink,
			&req.SortOrder,
			&req.CreatedAt,
			&req.UpdatedAt,
		); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
		ids = append(ids, req.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return reqs, nil
	}

	subs, err := r.GetSubsByRequirementIDs(ids)
	if err != nil {
		return nil, err
	}
	byRequirement := make(map[uint][]models.SubRequirement, len(subs))
	for _, sub := range subs {
		byRequirement[sub.RequirementID] = append(byRequirement[sub.RequirementID], sub)
	}
	for i := range reqs {
		reqs[i].SubRequirements = byRequirement[reqs[i].ID]
	}
	return reqs, nil
}

// GetSubsByRequirementIDs retrieves sub-requirements for a set of requirements
func (r *RequirementRepository) GetSubsByRequirementIDs(requirementIDs []uint) ([]models.SubRequirement, error) {
	query := `
		SELECT id, requirement_id, title, sort_order, created_at
		FROM sub_requirements
		WHERE requirement_id = ANY($1)
		ORDER BY requirement_id ASC, sort_order ASC
	`
	rows, err := r.db.Query(query, pq.Array(requirementIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.SubRequirement
	for rows.Next() {
		var sub models.SubRequirement
		if err := rows.Scan(&sub.ID, &sub.RequirementID, &sub.Title, &sub.SortOrder, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Update updates a requirement's text, help text, point value, and fixed link
func (r *RequirementRepository) Update(req *models.Requirement) error {
	query := `
		UPDATE requirements
		SET title = $1, help_text = $2, point_value = $3, fixed_link = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
	`
	_, err := r.db.Exec(query, req.Title, req.HelpText, req.PointValue, req.FixedLink, req.ID)
	return err
}

// Delete deletes a requirement and cascades to its sub-requirements
func (r *RequirementRepository) Delete(id uint) error {
	_, err := r.db.Exec(`DELETE FROM requirements WHERE id = $1`, id)
	return err
}
