package service

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"transparency-monitor/internal/auth"
	"transparency-monitor/internal/config"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/repository"
	"transparency-monitor/internal/testutil"
)

type authEnv struct {
	db       *sql.DB
	fixtures *testutil.Fixtures
	notifier *testutil.NopNotifier
	tokens   *auth.Service
	svc      *AuthService
	now      time.Time
}

func setupAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	containers := testutil.SetupPostgres(t)
	t.Cleanup(func() { containers.Cleanup(t) })

	fixtures := testutil.SetupFixtures(t, containers.DB)
	notifier := &testutil.NopNotifier{}
	tokens := auth.NewService(&config.JWTConfig{Secret: "test-secret", Expiration: time.Hour})

	env := &authEnv{
		db:       containers.DB,
		fixtures: fixtures,
		notifier: notifier,
		tokens:   tokens,
		now:      time.Date(2026, time.March, 6, 10, 0, 0, 0, time.UTC),
	}
	env.svc = NewAuthService(
		repository.NewUserRepository(containers.DB),
		repository.NewVerificationCodeRepository(containers.DB),
		tokens,
		notifier,
	)
	env.svc.now = func() time.Time { return env.now }
	return env
}

// createPendingUser inserts an organization account that has never set
// a password
func (env *authEnv) createPendingUser(t *testing.T, email string) *models.User {
	t.Helper()

	user := &models.User{
		OrganizationID: &env.fixtures.Organization.ID,
		Email:          email,
		Name:           "Conta Pendente",
		Role:           models.RoleOrganization,
		IsActive:       true,
	}
	err := env.db.QueryRow(`
		INSERT INTO users (organization_id, email, name, role, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at, updated_at
	`, user.OrganizationID, user.Email, user.Name, user.Role).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create pending user: %v", err)
	}
	return user
}

func TestLogin(t *testing.T) {
	env := setupAuthEnv(t)
	orgUser := env.fixtures.OrgUser

	token, user, err := env.svc.Login(orgUser.Email, "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != orgUser.ID {
		t.Errorf("Expected user %d, got %d", orgUser.ID, user.ID)
	}

	claims, err := env.tokens.ValidateToken(token)
	if err != nil {
		t.Fatalf("Issued token does not validate: %v", err)
	}
	if claims.Role != models.RoleOrganization {
		t.Errorf("Expected role %s in claims, got %s", models.RoleOrganization, claims.Role)
	}
	if claims.OrganizationID == nil || *claims.OrganizationID != env.fixtures.Organization.ID {
		t.Errorf("Expected organization %d in claims, got %v", env.fixtures.Organization.ID, claims.OrganizationID)
	}

	if _, _, err := env.svc.Login(orgUser.Email, "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, _, err := env.svc.Login("nobody@example.test", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	if _, err := env.db.Exec(`UPDATE users SET is_active = FALSE WHERE id = $1`, orgUser.ID); err != nil {
		t.Fatalf("Failed to deactivate user: %v", err)
	}
	if _, _, err := env.svc.Login(orgUser.Email, "password123"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for inactive account, got %v", err)
	}
}

func TestFirstAccessFlow(t *testing.T) {
	env := setupAuthEnv(t)
	pending := env.createPendingUser(t, "novo@pmt.test")

	if err := env.svc.RequestFirstAccessCode(pending.Email); err != nil {
		t.Fatalf("Failed to request first-access code: %v", err)
	}
	code := env.notifier.LastCode()
	if len(code) != 6 {
		t.Fatalf("Expected 6-digit code, got %q", code)
	}

	// Passwords below the minimum are rejected before the code is
	// consumed.
	if err := env.svc.SetPasswordWithCode(pending.Email, code, models.PurposeFirstAccess, "short"); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for short password, got %v", err)
	}
	if err := env.svc.SetPasswordWithCode(pending.Email, "000000", models.PurposeFirstAccess, "senha-segura-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for wrong code, got %v", err)
	}

	if err := env.svc.SetPasswordWithCode(pending.Email, code, models.PurposeFirstAccess, "senha-segura-1"); err != nil {
		t.Fatalf("Failed to set password: %v", err)
	}
	if _, _, err := env.svc.Login(pending.Email, "senha-segura-1"); err != nil {
		t.Fatalf("Login after activation failed: %v", err)
	}

	// The code is single use.
	if err := env.svc.SetPasswordWithCode(pending.Email, code, models.PurposeFirstAccess, "outra-senha-2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for reused code, got %v", err)
	}
	// An activated account cannot request first access again.
	if err := env.svc.RequestFirstAccessCode(pending.Email); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for activated account, got %v", err)
	}
}

func TestRecoveryFlow(t *testing.T) {
	env := setupAuthEnv(t)
	orgUser := env.fixtures.OrgUser

	// Unknown accounts are not revealed.
	if err := env.svc.RequestRecoveryCode("nobody@example.test"); err != nil {
		t.Fatalf("Recovery request for unknown account should be silent, got %v", err)
	}
	if env.notifier.SentCount("verification_code") != 0 {
		t.Error("No code should be sent for unknown accounts")
	}

	if err := env.svc.RequestRecoveryCode(orgUser.Email); err != nil {
		t.Fatalf("Failed to request recovery code: %v", err)
	}
	code := env.notifier.LastCode()

	if err := env.svc.VerifyCode(orgUser.Email, code, models.PurposePasswordRecovery); err != nil {
		t.Errorf("Expected code to verify, got %v", err)
	}
	// A recovery code cannot be spent on first access.
	if err := env.svc.VerifyCode(orgUser.Email, code, models.PurposeFirstAccess); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for wrong purpose, got %v", err)
	}

	if err := env.svc.SetPasswordWithCode(orgUser.Email, code, models.PurposePasswordRecovery, "nova-senha-123"); err != nil {
		t.Fatalf("Failed to reset password: %v", err)
	}
	if _, _, err := env.svc.Login(orgUser.Email, "nova-senha-123"); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}
	if _, _, err := env.svc.Login(orgUser.Email, "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Old password should no longer work, got %v", err)
	}
}

func TestCodeExpiry(t *testing.T) {
	env := setupAuthEnv(t)
	orgUser := env.fixtures.OrgUser

	if err := env.svc.RequestRecoveryCode(orgUser.Email); err != nil {
		t.Fatalf("Failed to request recovery code: %v", err)
	}
	code := env.notifier.LastCode()

	env.now = env.now.Add(31 * time.Minute)

	if err := env.svc.VerifyCode(orgUser.Email, code, models.PurposePasswordRecovery); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected expired code to be rejected, got %v", err)
	}

	env.svc.CleanupExpiredCodes()

	var remaining int
	if err := env.db.QueryRow(`SELECT COUNT(*) FROM verification_codes`).Scan(&remaining); err != nil {
		t.Fatalf("Failed to count codes: %v", err)
	}
	if remaining != 0 {
		t.Errorf("Expected expired codes to be deleted, %d remain", remaining)
	}
}

// A new code request invalidates the previous code for that purpose.
func TestNewCodeInvalidatesPrevious(t *testing.T) {
	env := setupAuthEnv(t)
	orgUser := env.fixtures.OrgUser

	if err := env.svc.RequestRecoveryCode(orgUser.Email); err != nil {
		t.Fatalf("Failed to request recovery code: %v", err)
	}
	first := env.notifier.LastCode()

	if err := env.svc.RequestRecoveryCode(orgUser.Email); err != nil {
		t.Fatalf("Failed to request second recovery code: %v", err)
	}
	second := env.notifier.LastCode()

	if err := env.svc.VerifyCode(orgUser.Email, first, models.PurposePasswordRecovery); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected superseded code to be rejected, got %v", err)
	}
	if err := env.svc.VerifyCode(orgUser.Email, second, models.PurposePasswordRecovery); err != nil {
		t.Errorf("Expected fresh code to verify, got %v", err)
	}
}
