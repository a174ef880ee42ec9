package repository

import (
	"database/sql"
	"time"

	"transparency-monitor/internal/models"
)

// AssessmentRepository handles database operations for assessments.
// Status-changing writes are guarded by the expected current status so
// a concurrent transition surfaces as zero affected rows instead of a
// lost update.
type AssessmentRepository struct {
	db *sql.DB
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *sql.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

const assessmentColumns = `id, organization_id, cycle_year, responsible_name, responsible_email, status,
	       appeal_deadline, appeal_expired, self_score, first_pass_score, post_appeal_score,
	       final_score, total_possible, finalized_at, created_at, updated_at`

func scanAssessment(scan func(dest ...interface{}) error, a *models.Assessment) error {
	return scan(
		&a.ID,
		&a.OrganizationID,
		&a.CycleYear,
		&a.ResponsibleName,
		&a.ResponsibleEmail,
		&a.Status,
		&a.AppealDeadline,
		&a.AppealExpired,
		&a.SelfScore,
		&a.FirstPassScore,
		&a.PostAppealScore,
		&a.FinalScore,
		&a.TotalPossible,
		&a.FinalizedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
}

// Create inserts a new assessment inside the caller's transaction
func (r *AssessmentRepository) Create(q Queryer, assessment *models.Assessment) error {
	query := `
		INSERT INTO assessments (organization_id, cycle_year, responsible_name, responsible_email, status, self_score, total_possible, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at
	`
	return q.QueryRow(
		query,
		assessment.OrganizationID,
		assessment.CycleYear,
		assessment.ResponsibleName,
		assessment.ResponsibleEmail,
		assessment.Status,
		assessment.SelfScore,
		assessment.TotalPossible,
	).Scan(&assessment.ID, &assessment.CreatedAt, &assessment.UpdatedAt)
}

// GetByID retrieves an assessment by ID
func (r *AssessmentRepository) GetByID(id uint) (*models.Assessment, error) {
	var assessment models.Assessment
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1`
	err := scanAssessment(r.db.QueryRow(query, id).Scan, &assessment)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

// GetByIDForUpdate retrieves an assessment inside a transaction, taking
// a row lock so concurrent transitions on the same assessment serialize.
func (r *AssessmentRepository) GetByIDForUpdate(q Queryer, id uint) (*models.Assessment, error) {
	var assessment models.Assessment
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1 FOR UPDATE`
	err := scanAssessment(q.QueryRow(query, id).Scan, &assessment)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

// GetByIDWithDetails retrieves an assessment with organization details
func (r *AssessmentRepository) GetByIDWithDetails(id uint) (*models.AssessmentWithDetails, error) {
	var assessment models.AssessmentWithDetails
	query := `
		SELECT a.id, a.organization_id, a.cycle_year, a.responsible_name, a.responsible_email, a.status,
		       a.appeal_deadline, a.appeal_expired, a.self_score, a.first_pass_score, a.post_appeal_score,
		       a.final_score, a.total_possible, a.finalized_at, a.created_at, a.updated_at,
		       o.name as organization_name, o.code as organization_code
		FROM assessments a
		JOIN organizations o ON a.organization_id = o.id
		WHERE a.id = $1
	`
	err := r.db.QueryRow(query, id).Scan(
		&assessment.ID,
		&assessment.OrganizationID,
		&assessment.CycleYear,
		&assessment.ResponsibleName,
		&assessment.ResponsibleEmail,
		&assessment.Status,
		&assessment.AppealDeadline,
		&assessment.AppealExpired,
		&assessment.SelfScore,
		&assessment.FirstPassScore,
		&assessment.PostAppealScore,
		&assessment.FinalScore,
		&assessment.TotalPossible,
		&assessment.FinalizedAt,
		&assessment.CreatedAt,
		&assessment.UpdatedAt,
		&assessment.OrganizationName,
		&assessment.OrganizationCode,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

// GetByOrganizationID retrieves all assessments belonging to an organization
func (r *AssessmentRepository) GetByOrganizationID(orgID uint) ([]models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE organization_id = $1 ORDER BY cycle_year DESC, created_at DESC`
	return r.queryAssessments(query, orgID)
}

// GetAllWithDetails retrieves every assessment with organization details
func (r *AssessmentRepository) GetAllWithDetails() ([]models.AssessmentWithDetails, error) {
	query := `
		SELECT a.id, a.organization_id, a.cycle_year, a.responsible_name, a.responsible_email, a.status,
		       a.appeal_deadline, a.appeal_expired, a.self_score, a.first_pass_score, a.post_appeal_score,
		       a.final_score, a.total_possible, a.finalized_at, a.created_at, a.updated_at,
		       o.name as organization_name, o.code as organization_code
		FROM assessments a
		JOIN organizations o ON a.organization_id = o.id
		ORDER BY a.created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []models.AssessmentWithDetails
	for rows.Next() {
		var assessment models.AssessmentWithDetails
		if err := rows.Scan(
			&assessment.ID,
			&assessment.OrganizationID,
			&assessment.CycleYear,
			&assessment.ResponsibleName,
			&assessment.ResponsibleEmail,
			&assessment.Status,
			&assessment.AppealDeadline,
			&assessment.AppealExpired,
			&assessment.SelfScore,
			&assessment.FirstPassScore,
			&assessment.PostAppealScore,
			&assessment.FinalScore,
			&assessment.TotalPossible,
			&assessment.FinalizedAt,
			&assessment.CreatedAt,
			&assessment.UpdatedAt,
			&assessment.OrganizationName,
			&assessment.OrganizationCode,
		); err != nil {
			return nil, err
		}
		assessments = append(assessments, assessment)
	}
	return assessments, rows.Err()
}

// GetExpiredAppealWindows retrieves assessments whose appeal window has
// passed without an appeal and without having been expired yet.
func (r *AssessmentRepository) GetExpiredAppealWindows(now time.Time) ([]models.Assessment, error) {
	query := `
		SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE status = $1 AND appeal_deadline < $2 AND appeal_expired = FALSE
		ORDER BY appeal_deadline ASC
	`
	return r.queryAssessments(query, models.StatusAppealWindowOpen, now)
}

// OpenAppealWindow moves an assessment into the appeal window, guarded
// by the expected current status. Returns false if the guard did not
// match.
func (r *AssessmentRepository) OpenAppealWindow(q Queryer, id uint, firstPassScore int, deadline time.Time) (bool, error) {
	query := `
		UPDATE assessments
		SET status = $1, first_pass_score = $2, appeal_deadline = $3, appeal_expired = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4 AND status = $5
	`
	result, err := q.Exec(query, models.StatusAppealWindowOpen, firstPassScore, deadline, id, models.StatusSelfAssessmentReceived)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// MarkAppealUnderReview moves an assessment out of the appeal window,
// either because an appeal arrived (expired = false) or because the
// sweep found the window passed (expired = true).
func (r *AssessmentRepository) MarkAppealUnderReview(q Queryer, id uint, expired bool) (bool, error) {
	query := `
		UPDATE assessments
		SET status = $1, appeal_expired = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND status = $4 AND appeal_expired = FALSE
	`
	result, err := q.Exec(query, models.StatusAppealUnderReview, expired, id, models.StatusAppealWindowOpen)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// SavePostAppealScore persists the post-appeal score snapshot
func (r *AssessmentRepository) SavePostAppealScore(q Queryer, id uint, score int) error {
	query := `UPDATE assessments SET post_appeal_score = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := q.Exec(query, score, id)
	return err
}

// Finalize persists all four score snapshots and moves the assessment
// to its terminal status, guarded by the expected current status.
func (r *AssessmentRepository) Finalize(q Queryer, id uint, scores models.ScoreBreakdown, finalizedAt time.Time) (bool, error) {
	query := `
		UPDATE assessments
		SET status = $1, self_score = $2, first_pass_score = $3, post_appeal_score = $4,
		    final_score = $5, total_possible = $6, finalized_at = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $8 AND status = $9
	`
	result, err := q.Exec(
		query,
		models.StatusFinalized,
		scores.Self,
		scores.FirstPass,
		scores.PostAppeal,
		scores.Final,
		scores.TotalPossible,
		finalizedAt,
		id,
		models.StatusAppealUnderReview,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// Delete deletes an assessment and cascades to its responses
func (r *AssessmentRepository) Delete(id uint) error {
	_, err := r.db.Exec(`DELETE FROM assessments WHERE id = $1`, id)
	return err
}

func (r *AssessmentRepository) queryAssessments(query string, args ...interface{}) ([]models.Assessment, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []models.Assessment
	for rows.Next() {
		var assessment models.Assessment
		if err := scanAssessment(rows.Scan, &assessment); err != nil {
			return nil, err
		}
		assessments = append(assessments, assessment)
	}
	return assessments, rows.Err()
}
