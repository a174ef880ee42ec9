package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"transparency-monitor/internal/config"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/service"
)

// Runner launches the external crawler binary for scan sessions and
// reports process exits back to the scan service. The binary receives
// the session id and target URL as flags and reports discovered links
// over the HTTP API.
type Runner struct {
	cfg   *config.CrawlerConfig
	scans *service.ScanService

	mu    sync.Mutex
	procs map[string]context.CancelFunc
}

// NewRunner creates a new crawler process runner
func NewRunner(cfg *config.CrawlerConfig, scans *service.ScanService) *Runner {
	return &Runner{
		cfg:   cfg,
		scans: scans,
		procs: make(map[string]context.CancelFunc),
	}
}

// Launch starts one crawler process for a scan session
func (r *Runner) Launch(session *models.ScanSession, targetURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)

	cmd := exec.CommandContext(ctx, r.cfg.Binary,
		"--session", session.SessionID,
		"--target", targetURL,
	)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start crawler %s: %w", r.cfg.Binary, err)
	}

	r.mu.Lock()
	r.procs[session.SessionID] = cancel
	r.mu.Unlock()

	slog.Info("Crawler process started",
		"session_id", session.SessionID,
		"target", targetURL,
		"pid", cmd.Process.Pid,
	)

	go r.wait(session.SessionID, cmd, cancel)
	return nil
}

// wait blocks until the crawler process exits and closes the session
// accordingly. A session already closed through the API is left alone.
func (r *Runner) wait(sessionID string, cmd *exec.Cmd, cancel context.CancelFunc) {
	err := cmd.Wait()
	cancel()

	r.mu.Lock()
	_, tracked := r.procs[sessionID]
	delete(r.procs, sessionID)
	r.mu.Unlock()

	if !tracked {
		return
	}

	if err != nil {
		slog.Warn("Crawler process exited with error", "session_id", sessionID, "error", err)
		if closeErr := r.scans.InterruptSession(sessionID); closeErr != nil {
			slog.Error("Failed to interrupt scan session", "session_id", sessionID, "error", closeErr)
		}
		return
	}

	slog.Info("Crawler process finished", "session_id", sessionID)
	if closeErr := r.scans.FinishSession(sessionID); closeErr != nil {
		slog.Error("Failed to finish scan session", "session_id", sessionID, "error", closeErr)
	}
}

// Stop kills the crawler process for a session. Safe to call for
// sessions without a tracked process.
func (r *Runner) Stop(sessionID string) {
	r.mu.Lock()
	cancel, ok := r.procs[sessionID]
	delete(r.procs, sessionID)
	r.mu.Unlock()

	if ok {
		cancel()
	}
}
