package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"transparency-monitor/internal/models"
)

// ResponseRepository handles database operations for responses and
// their evidence links.
type ResponseRepository struct {
	db *sql.DB
}

// NewResponseRepository creates a new response repository
func NewResponseRepository(db *sql.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

const responseColumns = `id, assessment_id, requirement_id, meets_original, meets, justification,
	       first_pass_status, first_pass_comment, appeal_text, appeal_meets,
	       post_appeal_status, post_appeal_comment, final_decision, created_at, updated_at`

func scanResponse(scan func(dest ...interface{}) error, resp *models.Response) error {
	return scan(
		&resp.ID,
		&resp.AssessmentID,
		&resp.RequirementID,
		&resp.MeetsOriginal,
		&resp.Meets,
		&resp.Justification,
		&resp.FirstPassStatus,
		&resp.FirstPassComment,
		&resp.AppealText,
		&resp.AppealMeets,
		&resp.PostAppealStatus,
		&resp.PostAppealComment,
		&resp.FinalDecision,
		&resp.CreatedAt,
		&resp.UpdatedAt,
	)
}

// Create inserts a new response inside the caller's transaction
func (r *ResponseRepository) Create(q Queryer, resp *models.Response) error {
	query := `
		INSERT INTO responses (assessment_id, requirement_id, meets_original, meets, justification, first_pass_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at
	`
	return q.QueryRow(
		query,
		resp.AssessmentID,
		resp.RequirementID,
		resp.MeetsOriginal,
		resp.Meets,
		resp.Justification,
		resp.FirstPassStatus,
	).Scan(&resp.ID, &resp.CreatedAt, &resp.UpdatedAt)
}

// GetByID retrieves a response by ID
func (r *ResponseRepository) GetByID(id uint) (*models.Response, error) {
	var resp models.Response
	query := `SELECT ` + responseColumns + ` FROM responses WHERE id = $1`
	err := scanResponse(r.db.QueryRow(query, id).Scan, &resp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDetailedByAssessmentID retrieves all responses of an assessment
// with requirement info, evidence links, and sub-responses attached.
func (r *ResponseRepository) GetDetailedByAssessmentID(assessmentID uint) ([]models.ResponseWithDetails, error) {
	query := `
		SELECT r.id, r.assessment_id, r.requirement_id, r.meets_original, r.meets, r.justification,
		       r.first_pass_status, r.first_pass_comment, r.appeal_text, r.appeal_meets,
		       r.post_appeal_status, r.post_appeal_comment, r.final_decision, r.created_at, r.updated_at,
		       req.title as requirement_title, req.point_value
		FROM responses r
		JOIN requirements req ON r.requirement_id = req.id
		WHERE r.assessment_id = $1
		ORDER BY req.sort_order ASC, req.id ASC
	`
	rows, err := r.db.Query(query, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []models.ResponseWithDetails
	var ids []uint
	for rows.Next() {
		var resp models.ResponseWithDetails
		if err := rows.Scan(
			&resp.ID,
			&resp.AssessmentID,
			&resp.RequirementID,
			&resp.MeetsOriginal,
			&resp.Meets,
			&resp.Justification,
			&resp.FirstPassStatus,
			&resp.FirstPassComment,
			&resp.AppealText,
			&resp.AppealMeets,
			&resp.PostAppealStatus,
			&resp.PostAppealComment,
			&resp.FinalDecision,
			&resp.CreatedAt,
			&resp.UpdatedAt,
			&resp.RequirementTitle,
			&resp.PointValue,
		); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
		ids = append(ids, resp.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return responses, nil
	}

	links, err := r.GetLinksByResponseIDs(ids)
	if err != nil {
		return nil, err
	}
	linksByResponse := make(map[uint][]models.ResponseLink)
	for _, link := range links {
		linksByResponse[link.ResponseID] = append(linksByResponse[link.ResponseID], link)
	}

	subs, err := r.getDetailedSubsByResponseIDs(ids)
	if err != nil {
		return nil, err
	}
	subsByResponse := make(map[uint][]models.SubResponseWithDetails)
	for _, sub := range subs {
		subsByResponse[sub.ResponseID] = append(subsByResponse[sub.ResponseID], sub)
	}

	for i := range responses {
		responses[i].Links = linksByResponse[responses[i].ID]
		responses[i].SubResponses = subsByResponse[responses[i].ID]
	}
	return responses, nil
}

// UpdateFirstPass records the analyst's first-pass verdict on a response
func (r *ResponseRepository) UpdateFirstPass(q Queryer, id uint, status models.ValidationStatus, comment *string) error {
	query := `
		UPDATE responses
		SET first_pass_status = $1, first_pass_comment = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	_, err := q.Exec(query, status, comment, id)
	return err
}

// UpdateAppeal records the organization's appeal on a response. The
// current view of the answer follows the appeal-time claim; the
// original self-assessment snapshot is never touched.
func (r *ResponseRepository) UpdateAppeal(q Queryer, id uint, appealText *string, appealMeets bool) error {
	query := `
		UPDATE responses
		SET appeal_text = $1, appeal_meets = $2, meets = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	_, err := q.Exec(query, appealText, appealMeets, id)
	return err
}

// UpdateFinalAnalysis records the analyst's post-appeal verdict,
// comment, and structured final decision on a response
func (r *ResponseRepository) UpdateFinalAnalysis(q Queryer, id uint, status models.ValidationStatus, comment, decision *string) error {
	query := `
		UPDATE responses
		SET post_appeal_status = $1, post_appeal_comment = $2, final_decision = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`
	_, err := q.Exec(query, status, comment, decision, id)
	return err
}

// UpdateDerivedStatus writes an aggregated status onto a composite
// response for the given phase
func (r *ResponseRepository) UpdateDerivedStatus(q Queryer, id uint, phase models.Phase, status models.ValidationStatus) error {
	column := "first_pass_status"
	if phase == models.PhasePostAppeal {
		column = "post_appeal_status"
	}
	query := `UPDATE responses SET ` + column + ` = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := q.Exec(query, status, id)
	return err
}

// ReplaceLinks replaces all links of one kind on a response
func (r *ResponseRepository) ReplaceLinks(q Queryer, responseID uint, kind models.LinkKind, urls []string) error {
	if _, err := q.Exec(`DELETE FROM response_links WHERE response_id = $1 AND kind = $2`, responseID, kind); err != nil {
		return err
	}
	for _, url := range urls {
		if _, err := q.Exec(
			`INSERT INTO response_links (response_id, kind, url, created_at) VALUES ($1, $2, $3, CURRENT_TIMESTAMP)`,
			responseID, kind, url,
		); err != nil {
			return err
		}
	}
	return nil
}

// GetLinksByResponseIDs retrieves all evidence links for a set of responses
func (r *ResponseRepository) GetLinksByResponseIDs(responseIDs []uint) ([]models.ResponseLink, error) {
	query := `
		SELECT id, response_id, kind, url, created_at
		FROM response_links
		WHERE response_id = ANY($1)
		ORDER BY response_id ASC, id ASC
	`
	rows, err := r.db.Query(query, pq.Array(responseIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []models.ResponseLink
	for rows.Next() {
		var link models.ResponseLink
		if err := rows.Scan(&link.ID, &link.ResponseID, &link.Kind, &link.URL, &link.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *ResponseRepository) getDetailedSubsByResponseIDs(responseIDs []uint) ([]models.SubResponseWithDetails, error) {
	query := `
		SELECT s.id, s.response_id, s.sub_requirement_id, s.meets_original, s.meets, s.appeal_meets,
		       s.justification, s.first_pass_status, s.first_pass_comment,
		       s.appeal_text, s.post_appeal_status, s.post_appeal_comment, s.created_at, s.updated_at,
		       sr.title as sub_requirement_title, sr.sort_order
		FROM sub_responses s
		JOIN sub_requirements sr ON s.sub_requirement_id = sr.id
		WHERE s.response_id = ANY($1)
		ORDER BY s.response_id ASC, sr.sort_order ASC
	`
	rows, err := r.db.Query(query, pq.Array(responseIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.SubResponseWithDetails
	for rows.Next() {
		var sub models.SubResponseWithDetails
		if err := rows.Scan(
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
			&sub.SubRequirementTitle,
			&sub.SortOrder,
		); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
