package repository

import (
	"database/sql"
	"time"

	"transparency-monitor/internal/models"
)

// ScanSessionRepository handles database operations for crawler scan
// sessions and the links they discover
type ScanSessionRepository struct {
	db *sql.DB
}

// NewScanSessionRepository creates a new scan session repository
func NewScanSessionRepository(db *sql.DB) *ScanSessionRepository {
	return &ScanSessionRepository{db: db}
}

const scanSessionColumns = `id, session_id, organization_id, status, started_at, finished_at, created_at`

func scanScanSession(scan func(dest ...interface{}) error, s *models.ScanSession) error {
	return scan(&s.ID, &s.SessionID, &s.OrganizationID, &s.Status, &s.StartedAt, &s.FinishedAt, &s.CreatedAt)
}

// Create persists a new scan session
func (r *ScanSessionRepository) Create(session *models.ScanSession) error {
	query := `
		INSERT INTO scan_sessions (session_id, organization_id, status, started_at, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		RETURNING id, created_at
	`
	return r.db.QueryRow(query, session.SessionID, session.OrganizationID, session.Status, session.StartedAt).
		Scan(&session.ID, &session.CreatedAt)
}

// GetBySessionID retrieves a scan session by its external session id
func (r *ScanSessionRepository) GetBySessionID(sessionID string) (*models.ScanSession, error) {
	var session models.ScanSession
	query := `SELECT ` + scanSessionColumns + ` FROM scan_sessions WHERE session_id = $1`
	err := scanScanSession(r.db.QueryRow(query, sessionID).Scan, &session)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetByOrganizationID retrieves all scan sessions for an organization
func (r *ScanSessionRepository) GetByOrganizationID(orgID uint) ([]models.ScanSession, error) {
	query := `SELECT ` + scanSessionColumns + ` FROM scan_sessions WHERE organization_id = $1 ORDER BY started_at DESC`
	return r.querySessions(query, orgID)
}

// GetByStatus retrieves all scan sessions in one status
func (r *ScanSessionRepository) GetByStatus(status string) ([]models.ScanSession, error) {
	query := `SELECT ` + scanSessionColumns + ` FROM scan_sessions WHERE status = $1 ORDER BY started_at ASC`
	return r.querySessions(query, status)
}

// UpdateStatus moves a scan session to a new status, stamping the
// finish time for terminal statuses
func (r *ScanSessionRepository) UpdateStatus(sessionID, status string, finishedAt *time.Time) error {
	query := `UPDATE scan_sessions SET status = $1, finished_at = $2 WHERE session_id = $3`
	_, err := r.db.Exec(query, status, finishedAt, sessionID)
	return err
}

// Delete removes a scan session and its discovered links
func (r *ScanSessionRepository) Delete(sessionID string) error {
	_, err := r.db.Exec(`DELETE FROM scan_sessions WHERE session_id = $1`, sessionID)
	return err
}

// AddDiscoveredLink persists one link found during a scan
func (r *ScanSessionRepository) AddDiscoveredLink(link *models.DiscoveredLink) error {
	query := `
		INSERT INTO discovered_links (scan_session_id, requirement_id, url, found_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.db.QueryRow(query, link.ScanSessionID, link.RequirementID, link.URL, link.FoundAt).
		Scan(&link.ID)
}

// GetDiscoveredLinks retrieves all links found by one scan session
func (r *ScanSessionRepository) GetDiscoveredLinks(scanSessionID uint) ([]models.DiscoveredLink, error) {
	query := `
		SELECT id, scan_session_id, requirement_id, url, found_at
		FROM discovered_links
		WHERE scan_session_id = $1
		ORDER BY found_at ASC
	`
	rows, err := r.db.Query(query, scanSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []models.DiscoveredLink
	for rows.Next() {
		var link models.DiscoveredLink
		if err := rows.Scan(&link.ID, &link.ScanSessionID, &link.RequirementID, &link.URL, &link.FoundAt); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *ScanSessionRepository) querySessions(query string, args ...interface{}) ([]models.ScanSession, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ScanSession
	for rows.Next() {
		var session models.ScanSession
		if err := scanScanSession(rows.Scan, &session); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
