package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"transparency-monitor/internal/models"
	"transparency-monitor/internal/repository"
	"transparency-monitor/internal/testutil"
)

type scanEnv struct {
	fixtures *testutil.Fixtures
	scanRepo *repository.ScanSessionRepository
	orgRepo  *repository.OrganizationRepository
	svc      *ScanService
}

func setupScanEnv(t *testing.T) *scanEnv {
	t.Helper()

	containers := testutil.SetupPostgres(t)
	t.Cleanup(func() { containers.Cleanup(t) })

	fixtures := testutil.SetupFixtures(t, containers.DB)
	scanRepo := repository.NewScanSessionRepository(containers.DB)
	orgRepo := repository.NewOrganizationRepository(containers.DB)

	return &scanEnv{
		fixtures: fixtures,
		scanRepo: scanRepo,
		orgRepo:  orgRepo,
		svc:      NewScanService(scanRepo, orgRepo),
	}
}

func (env *scanEnv) reviewer() Actor {
	u := env.fixtures.ReviewerUser
	return Actor{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func (env *scanEnv) orgActor() Actor {
	u := env.fixtures.OrgUser
	return Actor{UserID: u.ID, Email: u.Email, Role: u.Role, OrganizationID: u.OrganizationID}
}

func TestScanSessionLifecycle(t *testing.T) {
	env := setupScanEnv(t)
	reviewer := env.reviewer()

	session, err := env.svc.StartSession(reviewer, env.fixtures.Organization.ID)
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	if session.Status != models.ScanStarted {
		t.Errorf("Expected status %s, got %s", models.ScanStarted, session.Status)
	}
	if env.svc.ActiveSessionCount() != 1 {
		t.Errorf("Expected 1 active session, got %d", env.svc.ActiveSessionCount())
	}

	reqID := env.fixtures.Requirements[0].ID
	if err := env.svc.RecordLink(session.SessionID, "https://pmt.example.gov/licitacoes", &reqID); err != nil {
		t.Fatalf("Failed to record link: %v", err)
	}
	if err := env.svc.RecordLink(session.SessionID, "https://pmt.example.gov/contratos", nil); err != nil {
		t.Fatalf("Failed to record link: %v", err)
	}

	stored, links, err := env.svc.GetSession(reviewer, session.SessionID)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if stored.OrganizationID != env.fixtures.Organization.ID {
		t.Errorf("Session bound to wrong organization: %d", stored.OrganizationID)
	}
	if len(links) != 2 {
		t.Fatalf("Expected 2 discovered links, got %d", len(links))
	}

	if err := env.svc.FinishSession(session.SessionID); err != nil {
		t.Fatalf("Failed to finish session: %v", err)
	}
	if env.svc.ActiveSessionCount() != 0 {
		t.Errorf("Expected no active sessions, got %d", env.svc.ActiveSessionCount())
	}

	stored, _, err = env.svc.GetSession(reviewer, session.SessionID)
	if err != nil {
		t.Fatalf("Failed to reload session: %v", err)
	}
	if stored.Status != models.ScanFinished {
		t.Errorf("Expected status %s, got %s", models.ScanFinished, stored.Status)
	}
	if stored.FinishedAt == nil {
		t.Error("Expected finished timestamp")
	}

	// Closed sessions accept no more links and cannot be closed twice.
	if err := env.svc.RecordLink(session.SessionID, "https://pmt.example.gov/diarias", nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState recording on closed session, got %v", err)
	}
	if err := env.svc.FinishSession(session.SessionID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState on double finish, got %v", err)
	}

	if err := env.svc.DeleteSession(reviewer, session.SessionID); err != nil {
		t.Fatalf("Failed to delete closed session: %v", err)
	}
	if _, _, err := env.svc.GetSession(reviewer, session.SessionID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteSessionGuards(t *testing.T) {
	env := setupScanEnv(t)
	reviewer := env.reviewer()

	session, err := env.svc.StartSession(reviewer, env.fixtures.Organization.ID)
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	if err := env.svc.DeleteSession(env.orgActor(), session.SessionID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for organization actor, got %v", err)
	}
	if err := env.svc.DeleteSession(reviewer, session.SessionID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState deleting an active session, got %v", err)
	}
	if err := env.svc.DeleteSession(reviewer, "missing-session"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown session, got %v", err)
	}
}

func TestScanSessionPermissions(t *testing.T) {
	env := setupScanEnv(t)

	if _, err := env.svc.StartSession(env.orgActor(), env.fixtures.Organization.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for organization actor, got %v", err)
	}
	if _, err := env.svc.StartSession(env.reviewer(), 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown organization, got %v", err)
	}

	session, err := env.svc.StartSession(env.reviewer(), env.fixtures.Organization.ID)
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	// The scanned organization may read its own session.
	if _, _, err := env.svc.GetSession(env.orgActor(), session.SessionID); err != nil {
		t.Errorf("Owning organization should read its session, got %v", err)
	}

	otherOrgID := uint(0)
	otherActor := Actor{UserID: 999, Email: "portal@outra.test", Role: models.RoleOrganization, OrganizationID: &otherOrgID}
	if _, _, err := env.svc.GetSession(otherActor, session.SessionID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for foreign organization, got %v", err)
	}
	if _, err := env.svc.ListSessions(otherActor, env.fixtures.Organization.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden listing foreign history, got %v", err)
	}
}

func TestReconcileAbandonedSessions(t *testing.T) {
	env := setupScanEnv(t)

	session, err := env.svc.StartSession(env.reviewer(), env.fixtures.Organization.ID)
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	// A fresh service simulates a process restart: the in-memory
	// registry is empty but the database row is still started.
	restarted := NewScanService(env.scanRepo, env.orgRepo)
	if err := restarted.ReconcileAbandonedSessions(); err != nil {
		t.Fatalf("Failed to reconcile: %v", err)
	}

	stored, _, err := restarted.GetSession(env.reviewer(), session.SessionID)
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if stored.Status != models.ScanInterrupted {
		t.Errorf("Expected status %s, got %s", models.ScanInterrupted, stored.Status)
	}
	if restarted.ActiveSessionCount() != 0 {
		t.Errorf("Expected no active sessions after reconcile, got %d", restarted.ActiveSessionCount())
	}
}

// fakeLauncher records launch and stop calls
type fakeLauncher struct {
	mu       sync.Mutex
	launched []string
	stopped  []string
	fail     bool
}

func (f *fakeLauncher) Launch(session *models.ScanSession, targetURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("binary not found")
	}
	f.launched = append(f.launched, session.SessionID)
	return nil
}

func (f *fakeLauncher) Stop(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, sessionID)
}

func TestScanLauncherWiring(t *testing.T) {
	env := setupScanEnv(t)
	launcher := &fakeLauncher{}
	env.svc.SetLauncher(launcher)

	session, err := env.svc.StartSession(env.reviewer(), env.fixtures.Organization.ID)
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	if len(launcher.launched) != 1 || launcher.launched[0] != session.SessionID {
		t.Errorf("Expected launch for %s, got %v", session.SessionID, launcher.launched)
	}

	if err := env.svc.InterruptSession(session.SessionID); err != nil {
		t.Fatalf("Failed to interrupt session: %v", err)
	}
	if len(launcher.stopped) != 1 || launcher.stopped[0] != session.SessionID {
		t.Errorf("Expected stop for %s, got %v", session.SessionID, launcher.stopped)
	}
}

func TestScanLauncherFailureClosesSession(t *testing.T) {
	env := setupScanEnv(t)
	launcher := &fakeLauncher{fail: true}
	env.svc.SetLauncher(launcher)

	_, err := env.svc.StartSession(env.reviewer(), env.fixtures.Organization.ID)
	if err == nil {
		t.Fatal("Expected launch failure to surface")
	}
	if env.svc.ActiveSessionCount() != 0 {
		t.Errorf("Failed launch must not leave an active session, got %d", env.svc.ActiveSessionCount())
	}

	sessions, listErr := env.svc.ListSessions(env.reviewer(), env.fixtures.Organization.ID)
	if listErr != nil {
		t.Fatalf("Failed to list sessions: %v", listErr)
	}
	if len(sessions) != 1 || sessions[0].Status != models.ScanInterrupted {
		t.Errorf("Expected one interrupted session, got %+v", sessions)
	}
}
