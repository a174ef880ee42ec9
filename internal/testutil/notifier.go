package testutil

import (
	"sync"
	"time"
)

// NopNotifier satisfies the service layer's notifier interface and
// records sent notifications for assertions
type NopNotifier struct {
	mu    sync.Mutex
	Sent  []string
	Codes []string
}

func (n *NopNotifier) record(kind string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, kind)
	return nil
}

func (n *NopNotifier) SendAssessmentReceived(to, orgName string, cycleYear int) error {
	return n.record("assessment_received")
}

func (n *NopNotifier) SendReturnedForAppeal(to, orgName string, firstPassScore, totalPossible int, deadline time.Time) error {
	return n.record("returned_for_appeal")
}

func (n *NopNotifier) SendAppealReceived(to, orgName string) error {
	return n.record("appeal_received")
}

func (n *NopNotifier) SendAppealDeadlineExpired(to, orgName string, firstPassScore, totalPossible int) error {
	return n.record("appeal_deadline_expired")
}

func (n *NopNotifier) SendFinalScorePublished(to, orgName string, finalScore, totalPossible, cycleYear int) error {
	return n.record("final_score_published")
}

func (n *NopNotifier) SendVerificationCode(to, name, code string, expiresIn time.Duration) error {
	n.mu.Lock()
	n.Codes = append(n.Codes, code)
	n.mu.Unlock()
	return n.record("verification_code")
}

// LastCode returns the most recently emailed verification code
func (n *NopNotifier) LastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Codes) == 0 {
		return ""
	}
	return n.Codes[len(n.Codes)-1]
}

// SentCount reports how many notifications of a kind were recorded
func (n *NopNotifier) SentCount(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, sent := range n.Sent {
		if sent == kind {
			count++
		}
	}
	return count
}
