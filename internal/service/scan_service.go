package service

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"transparency-monitor/internal/auth"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/repository"
)

// ScanLauncher starts and stops the external crawler process for a
// scan session. A nil launcher means sessions are driven by an
// out-of-process crawler reporting over HTTP.
type ScanLauncher interface {
	Launch(session *models.ScanSession, targetURL string) error
	Stop(sessionID string)
}

// ScanService tracks crawler runs over organization sites. Active
// sessions live in an in-memory registry backed by the database, so a
// restart can reconcile sessions the process abandoned.
type ScanService struct {
	scanRepo *repository.ScanSessionRepository
	orgRepo  *repository.OrganizationRepository
	launcher ScanLauncher
	now      func() time.Time

	mu     sync.Mutex
	active map[string]*models.ScanSession
}

// NewScanService creates a new scan service
func NewScanService(scanRepo *repository.ScanSessionRepository, orgRepo *repository.OrganizationRepository) *ScanService {
	return &ScanService{
		scanRepo: scanRepo,
		orgRepo:  orgRepo,
		now:      time.Now,
		active:   make(map[string]*models.ScanSession),
	}
}

// SetLauncher attaches a crawler process launcher. The launcher calls
// back into this service when the process exits, so it is wired after
// construction.
func (s *ScanService) SetLauncher(launcher ScanLauncher) {
	s.launcher = launcher
}

// ReconcileAbandonedSessions marks sessions left in the started status
// by a previous process as interrupted. Called once at startup before
// new scans are accepted.
func (s *ScanService) ReconcileAbandonedSessions() error {
	stale, err := s.scanRepo.GetByStatus(models.ScanStarted)
	if err != nil {
		return err
	}
	for _, session := range stale {
		finishedAt := s.now()
		if err := s.scanRepo.UpdateStatus(session.SessionID, models.ScanInterrupted, &finishedAt); err != nil {
			slog.Error("Failed to mark abandoned scan session as interrupted",
				"session_id", session.SessionID,
				"error", err,
			)
			continue
		}
		slog.Warn("Marked abandoned scan session as interrupted",
			"session_id", session.SessionID,
			"organization_id", session.OrganizationID,
		)
	}
	return nil
}

// StartSession registers a new crawler run for an organization and
// returns its session id
func (s *ScanService) StartSession(actor Actor, orgID uint) (*models.ScanSession, error) {
	if !actor.IsReviewer() {
		return nil, fmt.Errorf("%w: only reviewers can start scans", ErrForbidden)
	}
	org, err := s.orgRepo.GetByID(orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("%w: organization %d", ErrNotFound, orgID)
	}

	sessionID, err := auth.GenerateRandomToken(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	session := &models.ScanSession{
		SessionID:      sessionID,
		OrganizationID: orgID,
		Status:         models.ScanStarted,
		StartedAt:      s.now(),
	}
	if err := s.scanRepo.Create(session); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.active[sessionID] = session
	s.mu.Unlock()

	if s.launcher != nil {
		if err := s.launcher.Launch(session, org.URL); err != nil {
			if closeErr := s.closeSession(sessionID, models.ScanInterrupted); closeErr != nil {
				slog.Error("Failed to close session after launch failure",
					"session_id", sessionID,
					"error", closeErr,
				)
			}
			return nil, fmt.Errorf("failed to launch crawler: %w", err)
		}
	}

	slog.Info("Scan session started",
		"session_id", sessionID,
		"organization_id", orgID,
	)
	return session, nil
}

// RecordLink persists one URL discovered by an active scan session
func (s *ScanService) RecordLink(sessionID, url string, requirementID *uint) error {
	s.mu.Lock()
	session, ok := s.active[sessionID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: scan session %s is not active", ErrInvalidState, sessionID)
	}

	link := &models.DiscoveredLink{
		ScanSessionID: session.ID,
		RequirementID: requirementID,
		URL:           url,
		FoundAt:       s.now(),
	}
	return s.scanRepo.AddDiscoveredLink(link)
}

// FinishSession closes an active scan session
func (s *ScanService) FinishSession(sessionID string) error {
	return s.closeSession(sessionID, models.ScanFinished)
}

// InterruptSession aborts an active scan session
func (s *ScanService) InterruptSession(sessionID string) error {
	return s.closeSession(sessionID, models.ScanInterrupted)
}

func (s *ScanService) closeSession(sessionID, status string) error {
	s.mu.Lock()
	_, ok := s.active[sessionID]
	delete(s.active, sessionID)
	s.mu.Unlock()

	if ok && s.launcher != nil {
		s.launcher.Stop(sessionID)
	}

	if !ok {
		session, err := s.scanRepo.GetBySessionID(sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("%w: scan session %s", ErrNotFound, sessionID)
		}
		if session.Status != models.ScanStarted {
			return fmt.Errorf("%w: scan session %s is already closed", ErrInvalidState, sessionID)
		}
	}

	finishedAt := s.now()
	if err := s.scanRepo.UpdateStatus(sessionID, status, &finishedAt); err != nil {
		return err
	}
	slog.Info("Scan session closed", "session_id", sessionID, "status", status)
	return nil
}

// DeleteSession removes a closed scan session and its discovered
// links from the history
func (s *ScanService) DeleteSession(actor Actor, sessionID string) error {
	if !actor.IsReviewer() {
		return fmt.Errorf("%w: only reviewers can delete scan sessions", ErrForbidden)
	}

	s.mu.Lock()
	_, active := s.active[sessionID]
	s.mu.Unlock()
	if active {
		return fmt.Errorf("%w: scan session %s is still active", ErrInvalidState, sessionID)
	}

	session, err := s.scanRepo.GetBySessionID(sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: scan session %s", ErrNotFound, sessionID)
	}
	return s.scanRepo.Delete(sessionID)
}

// ActiveSessionCount reports how many scan sessions are currently
// registered in memory
func (s *ScanService) ActiveSessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// GetSession retrieves a scan session with its discovered links
func (s *ScanService) GetSession(actor Actor, sessionID string) (*models.ScanSession, []models.DiscoveredLink, error) {
	session, err := s.scanRepo.GetBySessionID(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, fmt.Errorf("%w: scan session %s", ErrNotFound, sessionID)
	}
	if !actor.IsReviewer() && !actor.OwnsOrganization(session.OrganizationID) {
		return nil, nil, fmt.Errorf("%w: scan session belongs to another organization", ErrForbidden)
	}
	links, err := s.scanRepo.GetDiscoveredLinks(session.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, links, nil
}

// ListSessions retrieves the scan history for an organization
func (s *ScanService) ListSessions(actor Actor, orgID uint) ([]models.ScanSession, error) {
	if !actor.IsReviewer() && !actor.OwnsOrganization(orgID) {
		return nil, fmt.Errorf("%w: scan history belongs to another organization", ErrForbidden)
	}
	return s.scanRepo.GetByOrganizationID(orgID)
}
