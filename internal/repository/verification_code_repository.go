package repository

import (
	"database/sql"
	"time"

	"transparency-monitor/internal/models"
)

// VerificationCodeRepository handles database operations for one-time
// verification codes
type VerificationCodeRepository struct {
	db *sql.DB
}

// NewVerificationCodeRepository creates a new verification code repository
func NewVerificationCodeRepository(db *sql.DB) *VerificationCodeRepository {
	return &VerificationCodeRepository{db: db}
}

// Create stores a new verification code
func (r *VerificationCodeRepository) Create(code *models.VerificationCode) error {
	query := `
		INSERT INTO verification_codes (user_id, code, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		RETURNING id, created_at
	`
	return r.db.QueryRow(query, code.UserID, code.Code, code.Purpose, code.ExpiresAt).
		Scan(&code.ID, &code.CreatedAt)
}

// GetActive retrieves an unused, unexpired code matching user, code
// value, and purpose
func (r *VerificationCodeRepository) GetActive(userID uint, code, purpose string, now time.Time) (*models.VerificationCode, error) {
	var vc models.VerificationCode
	query := `
		SELECT id, user_id, code, purpose, expires_at, used_at, created_at
		FROM verification_codes
		WHERE user_id = $1 AND code = $2 AND purpose = $3 AND used_at IS NULL AND expires_at > $4
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.QueryRow(query, userID, code, purpose, now).Scan(
		&vc.ID, &vc.UserID, &vc.Code, &vc.Purpose, &vc.ExpiresAt, &vc.UsedAt, &vc.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vc, nil
}

// MarkUsed consumes a code. Returns false if the code was already used.
func (r *VerificationCodeRepository) MarkUsed(id uint) (bool, error) {
	query := `UPDATE verification_codes SET used_at = CURRENT_TIMESTAMP WHERE id = $1 AND used_at IS NULL`
	result, err := r.db.Exec(query, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// InvalidateForUser marks all pending codes of one purpose as used so a
// newly issued code is the only valid one
func (r *VerificationCodeRepository) InvalidateForUser(userID uint, purpose string) error {
	query := `UPDATE verification_codes SET used_at = CURRENT_TIMESTAMP WHERE user_id = $1 AND purpose = $2 AND used_at IS NULL`
	_, err := r.db.Exec(query, userID, purpose)
	return err
}

// DeleteExpired removes codes past their expiry, used by the cleanup task
func (r *VerificationCodeRepository) DeleteExpired(now time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM verification_codes WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
