package models

import (
	"time"
)

// AssessmentStatus is the lifecycle state of an assessment.
type AssessmentStatus string

const (
	StatusSelfAssessmentReceived AssessmentStatus = "self_assessment_received"
	StatusAppealWindowOpen       AssessmentStatus = "appeal_window_open"
	StatusAppealUnderReview      AssessmentStatus = "appeal_under_review"
	StatusFinalized              AssessmentStatus = "finalized"
)

// Phase identifies which review phase a status or score belongs to.
type Phase string

const (
	PhaseSelf       Phase = "self"
	PhaseFirstPass  Phase = "first_pass"
	PhasePostAppeal Phase = "post_appeal"
	PhaseFinal      Phase = "final"
)

// ValidationStatus is an analyst's verdict on a response or sub-response.
type ValidationStatus string

const (
	ValidationPending  ValidationStatus = "pending"
	ValidationApproved ValidationStatus = "approved"
	ValidationRejected ValidationStatus = "rejected"
	ValidationPartial  ValidationStatus = "partial"
)

// User roles.
const (
	RoleReviewer     = "reviewer"
	RoleOrganization = "organization"
)

// Verification code purposes.
const (
	PurposePasswordRecovery = "password_recovery"
	PurposeFirstAccess      = "first_access"
)

// LinkKind distinguishes which phase an evidence link was attached in.
type LinkKind string

const (
	LinkEvidence      LinkKind = "evidence"
	LinkAnalyst       LinkKind = "analyst"
	LinkAppeal        LinkKind = "appeal"
	LinkFinalAnalysis LinkKind = "final_analysis"
)

// Organization represents a government agency under evaluation
type Organization struct {
	ID        uint      `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"` // unique short code (acronym)
	URL       string    `json:"url" db:"url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// User represents an account in the system
type User struct {
	ID             uint       `json:"id" db:"id"`
	OrganizationID *uint      `json:"organization_id,omitempty" db:"organization_id"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   *string    `json:"-" db:"password_hash"` // nil until first access completes
	Name           string     `json:"name" db:"name"`
	Role           string     `json:"role" db:"role"` // "reviewer" or "organization"
	IsActive       bool       `json:"is_active" db:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Requirement represents one scored transparency criterion. A nil
// OrganizationID means the requirement applies to every organization.
type Requirement struct {
	ID             uint      `json:"id" db:"id"`
	OrganizationID *uint     `json:"organization_id,omitempty" db:"organization_id"`
	Title          string    `json:"title" db:"title"`
	HelpText       *string   `json:"help_text,omitempty" db:"help_text"`
	PointValue     int       `json:"point_value" db:"point_value"`
	FixedLink      *string   `json:"fixed_link,omitempty" db:"fixed_link"` // literal URL or "KEYWORD:..." marker
	SortOrder      int       `json:"sort_order" db:"sort_order"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// SubRequirement is a decomposed sub-criterion of a requirement
type SubRequirement struct {
	ID            uint      `json:"id" db:"id"`
	RequirementID uint      `json:"requirement_id" db:"requirement_id"`
	Title         string    `json:"title" db:"title"`
	SortOrder     int       `json:"sort_order" db:"sort_order"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// RequirementWithSubs extends Requirement with its sub-requirements
type RequirementWithSubs struct {
	Requirement
	SubRequirements []SubRequirement `json:"sub_requirements,omitempty"`
}

// Assessment represents one organization's transparency evaluation for a cycle
type Assessment struct {
	ID               uint             `json:"id" db:"id"`
	OrganizationID   uint             `json:"organization_id" db:"organization_id"`
	CycleYear        int              `json:"cycle_year" db:"cycle_year"`
	ResponsibleName  string           `json:"responsible_name" db:"responsible_name"`
	ResponsibleEmail string           `json:"responsible_email" db:"responsible_email"`
	Status           AssessmentStatus `json:"status" db:"status"`
	AppealDeadline   *time.Time       `json:"appeal_deadline,omitempty" db:"appeal_deadline"`
	AppealExpired    bool             `json:"appeal_expired" db:"appeal_expired"`
	SelfScore        *int             `json:"self_score,omitempty" db:"self_score"`
	FirstPassScore   *int             `json:"first_pass_score,omitempty" db:"first_pass_score"`
	PostAppealScore  *int             `json:"post_appeal_score,omitempty" db:"post_appeal_score"`
	FinalScore       *int             `json:"final_score,omitempty" db:"final_score"`
	TotalPossible    *int             `json:"total_possible,omitempty" db:"total_possible"`
	FinalizedAt      *time.Time       `json:"finalized_at,omitempty" db:"finalized_at"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// AssessmentWithDetails includes organization information and responses
type AssessmentWithDetails struct {
	Assessment
	OrganizationName string                `json:"organization_name,omitempty"`
	OrganizationCode string                `json:"organization_code,omitempty"`
	Responses        []ResponseWithDetails `json:"responses,omitempty"`
}

// Response records one organization's answer against one requirement,
// together with the analyst verdicts accumulated across phases.
type Response struct {
	ID            uint `json:"id" db:"id"`
	AssessmentID  uint `json:"assessment_id" db:"assessment_id"`
	RequirementID uint `json:"requirement_id" db:"requirement_id"`

	// MeetsOriginal is an immutable snapshot of the self-assessment
	// answer; Meets is the current view and may change on appeal.
	MeetsOriginal bool    `json:"meets_original" db:"meets_original"`
	Meets         bool    `json:"meets" db:"meets"`
	Justification *string `json:"justification,omitempty" db:"justification"`

	FirstPassStatus  ValidationStatus `json:"first_pass_status" db:"first_pass_status"`
	FirstPassComment *string          `json:"first_pass_comment,omitempty" db:"first_pass_comment"`

	AppealText  *string `json:"appeal_text,omitempty" db:"appeal_text"`
	AppealMeets *bool   `json:"appeal_meets,omitempty" db:"appeal_meets"`

	PostAppealStatus  *ValidationStatus `json:"post_appeal_status,omitempty" db:"post_appeal_status"`
	PostAppealComment *string           `json:"post_appeal_comment,omitempty" db:"post_appeal_comment"`
	FinalDecision     *string           `json:"final_decision,omitempty" db:"final_decision"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ResponseWithDetails includes requirement info, links, and sub-responses
type ResponseWithDetails struct {
	Response
	RequirementTitle string                   `json:"requirement_title,omitempty"`
	PointValue       int                      `json:"point_value"`
	Links            []ResponseLink           `json:"links,omitempty"`
	SubResponses     []SubResponseWithDetails `json:"sub_responses,omitempty"`
}

// SubResponse mirrors Response for one sub-requirement. The parent
// response's statuses are derived from its sub-responses, never set
// directly, whenever at least one sub-response exists.
type SubResponse struct {
	ID               uint  `json:"id" db:"id"`
	ResponseID       uint  `json:"response_id" db:"response_id"`
	SubRequirementID uint  `json:"sub_requirement_id" db:"sub_requirement_id"`
	MeetsOriginal    bool  `json:"meets_original" db:"meets_original"`
	Meets            bool  `json:"meets" db:"meets"`
	AppealMeets      *bool `json:"appeal_meets,omitempty" db:"appeal_meets"`

	Justification    *string          `json:"justification,omitempty" db:"justification"`
	FirstPassStatus  ValidationStatus `json:"first_pass_status" db:"first_pass_status"`
	FirstPassComment *string          `json:"first_pass_comment,omitempty" db:"first_pass_comment"`

	AppealText        *string           `json:"appeal_text,omitempty" db:"appeal_text"`
	PostAppealStatus  *ValidationStatus `json:"post_appeal_status,omitempty" db:"post_appeal_status"`
	PostAppealComment *string           `json:"post_appeal_comment,omitempty" db:"post_appeal_comment"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SubResponseWithDetails includes the sub-requirement title and ordering
type SubResponseWithDetails struct {
	SubResponse
	SubRequirementTitle string `json:"sub_requirement_title,omitempty"`
	SortOrder           int    `json:"sort_order"`
}

// ResponseLink is one evidence URL attached to a response in some phase
type ResponseLink struct {
	ID         uint      `json:"id" db:"id"`
	ResponseID uint      `json:"response_id" db:"response_id"`
	Kind       LinkKind  `json:"kind" db:"kind"`
	URL        string    `json:"url" db:"url"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// VerificationCode is a one-time emailed code for password recovery or
// first access, valid for 30 minutes and consumed exactly once.
type VerificationCode struct {
	ID        uint       `json:"id" db:"id"`
	UserID    uint       `json:"user_id" db:"user_id"`
	Code      string     `json:"-" db:"code"`
	Purpose   string     `json:"purpose" db:"purpose"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty" db:"used_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// ScanSession represents one crawler run over an organization's site
type ScanSession struct {
	ID             uint       `json:"id" db:"id"`
	SessionID      string     `json:"session_id" db:"session_id"`
	OrganizationID uint       `json:"organization_id" db:"organization_id"`
	Status         string     `json:"status" db:"status"` // started, finished, interrupted
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Scan session statuses.
const (
	ScanStarted     = "started"
	ScanFinished    = "finished"
	ScanInterrupted = "interrupted"
)

// DiscoveredLink is one URL found by the crawler during a scan session
type DiscoveredLink struct {
	ID            uint      `json:"id" db:"id"`
	ScanSessionID uint      `json:"scan_session_id" db:"scan_session_id"`
	RequirementID *uint     `json:"requirement_id,omitempty" db:"requirement_id"`
	URL           string    `json:"url" db:"url"`
	FoundAt       time.Time `json:"found_at" db:"found_at"`
}

// ScoreBreakdown is the set of score snapshots reported at finalize time
type ScoreBreakdown struct {
	Self          int `json:"self"`
	FirstPass     int `json:"first_pass"`
	PostAppeal    int `json:"post_appeal"`
	Final         int `json:"final"`
	TotalPossible int `json:"total_possible"`
}

// DeadlineCheck reports whether the appeal window for an assessment is
// still open and how much time remains.
type DeadlineCheck struct {
	WithinWindow     bool       `json:"within_window"`
	SecondsRemaining int64      `json:"seconds_remaining"`
	Expired          bool       `json:"expired"`
	Deadline         *time.Time `json:"deadline,omitempty"`
}
