package repository

import (
	"database/sql"

	"transparency-monitor/internal/models"
)

// SubResponseRepository handles database operations for sub-responses
type SubResponseRepository struct {
	db *sql.DB
}

// NewSubResponseRepository creates a new sub-response repository
func NewSubResponseRepository(db *sql.DB) *SubResponseRepository {
	return &SubResponseRepository{db: db}
}

const subResponseColumns = `id, response_id, sub_requirement_id, meets_original, meets, appeal_meets,
	       justification, first_pass_status, first_pass_comment,
	       appeal_text, post_appeal_status, post_appeal_comment, created_at, updated_at`

func scanSubResponse(scan func(dest ...interface{}) error, sub *models.SubResponse) error {
	return scan(
		&sub.ID,
		&sub.ResponseID,
		&sub.SubRequirementID,
		&sub.MeetsOriginal,
		&sub.Meets,
		&sub.AppealMeets,
		&sub.Justification,
		&sub.FirstPassStatus,
		&sub.FirstPassComment,
		&sub.AppealText,
		&sub.PostAppealStatus,
		&sub.PostAppealComment,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
}

// Create inserts a new sub-response inside the caller's transaction
func (r *SubResponseRepository) Create(q Queryer, sub *models.SubResponse) error {
	query := `
		INSERT INTO sub_responses (response_id, sub_requirement_id, meets_original, meets, justification, first_pass_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at
	`
	return q.QueryRow(
		query,
		sub.ResponseID,
		sub.SubRequirementID,
		sub.MeetsOriginal,
		sub.Meets,
		sub.Justification,
		sub.FirstPassStatus,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

// GetByID retrieves a sub-response by ID
func (r *SubResponseRepository) GetByID(id uint) (*models.SubResponse, error) {
	var sub models.SubResponse
	query := `SELECT ` + subResponseColumns + ` FROM sub_responses WHERE id = $1`
	err := scanSubResponse(r.db.QueryRow(query, id).Scan, &sub)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByResponseID retrieves all sub-responses of one response. It runs
// on the caller's Queryer so a recompute inside a transaction sees the
// verdict written just before it.
func (r *SubResponseRepository) GetByResponseID(q Queryer, responseID uint) ([]models.SubResponse, error) {
	query := `SELECT ` + subResponseColumns + ` FROM sub_responses WHERE response_id = $1 ORDER BY id ASC`
	rows, err := q.Query(query, responseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.SubResponse
	for rows.Next() {
		var sub models.SubResponse
		if err := scanSubResponse(rows.Scan, &sub); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpdateFirstPass records the analyst's first-pass verdict on a sub-response
func (r *SubResponseRepository) UpdateFirstPass(q Queryer, id uint, status models.ValidationStatus, comment *string) error {
	query := `
		UPDATE sub_responses
		SET first_pass_status = $1, first_pass_comment = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	_, err := q.Exec(query, status, comment, id)
	return err
}

// UpdatePostAppeal records the analyst's post-appeal verdict on a sub-response
func (r *SubResponseRepository) UpdatePostAppeal(q Queryer, id uint, status models.ValidationStatus, comment *string) error {
	query := `
		UPDATE sub_responses
		SET post_appeal_status = $1, post_appeal_comment = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	_, err := q.Exec(query, status, comment, id)
	return err
}

// UpdateAppeal records the organization's appeal on a sub-response
func (r *SubResponseRepository) UpdateAppeal(q Queryer, id uint, appealText *string, appealMeets bool) error {
	query := `
		UPDATE sub_responses
		SET appeal_text = $1, appeal_meets = $2, meets = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	_, err := q.Exec(query, appealText, appealMeets, id)
	return err
}
