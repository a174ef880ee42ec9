package service

import "time"

// Notifier delivers outbound notifications. Failures are never fatal to
// the triggering transition; callers log and move on.
type Notifier interface {
	SendAssessmentReceived(to, orgName string, cycleYear int) error
	SendReturnedForAppeal(to, orgName string, firstPassScore, totalPossible int, deadline time.Time) error
	SendAppealReceived(to, orgName string) error
	SendAppealDeadlineExpired(to, orgName string, firstPassScore, totalPossible int) error
	SendFinalScorePublished(to, orgName string, finalScore, totalPossible, cycleYear int) error
	SendVerificationCode(to, name, code string, expiresIn time.Duration) error
}
