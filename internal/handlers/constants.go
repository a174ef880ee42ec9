package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody  = "Invalid request body"
	ErrMsgUnauthorized        = "Unauthorized"
	ErrMsgInvalidCredentials  = "Invalid credentials"
	ErrMsgInvalidID           = "Invalid ID"
	ErrMsgInvalidAssessmentID = "Invalid assessment ID"
	ErrMsgInternal            = "Internal server error"
)
