package handlers

import (
	"encoding/json"
	"net/http"

	"transparency-monitor/internal/middleware"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/service"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// CodeRequest asks for a one-time code to be emailed
type CodeRequest struct {
	Email string `json:"email"`
}

// VerifyCodeRequest carries a code for verification
type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// SetPasswordRequest consumes a code and sets a new password
type SetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// Login authenticates a user
// @Summary Login
// @Description Authenticate with email and password, returns a JWT
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	token, user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// RequestFirstAccessCode emails an activation code to an account that
// has never set a password
// @Summary Request first access code
// @Tags Auth
// @Accept json
// @Param request body CodeRequest true "Account email"
// @Success 204 "Code sent if the account exists"
// @Router /auth/first-access/request [post]
func (h *AuthHandler) RequestFirstAccessCode(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.authService.RequestFirstAccessCode(req.Email); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteFirstAccess consumes an activation code and sets the first
// password
// @Summary Complete first access
// @Tags Auth
// @Accept json
// @Param request body SetPasswordRequest true "Code and new password"
// @Success 204 "Password set"
// @Failure 401 {object} map[string]string "Invalid or expired code"
// @Router /auth/first-access/complete [post]
func (h *AuthHandler) CompleteFirstAccess(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.authService.SetPasswordWithCode(req.Email, req.Code, models.PurposeFirstAccess, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestRecoveryCode emails a password recovery code
// @Summary Request password recovery code
// @Tags Auth
// @Accept json
// @Param request body CodeRequest true "Account email"
// @Success 204 "Code sent if the account exists"
// @Router /auth/recovery/request [post]
func (h *AuthHandler) RequestRecoveryCode(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.authService.RequestRecoveryCode(req.Email); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerifyRecoveryCode checks a recovery code without consuming it
// @Summary Verify recovery code
// @Tags Auth
// @Accept json
// @Param request body VerifyCodeRequest true "Email and code"
// @Success 204 "Code is valid"
// @Failure 401 {object} map[string]string "Invalid or expired code"
// @Router /auth/recovery/verify [post]
func (h *AuthHandler) VerifyRecoveryCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.authService.VerifyCode(req.Email, req.Code, models.PurposePasswordRecovery); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword consumes a recovery code and sets a new password
// @Summary Reset password
// @Tags Auth
// @Accept json
// @Param request body SetPasswordRequest true "Code and new password"
// @Success 204 "Password reset"
// @Failure 401 {object} map[string]string "Invalid or expired code"
// @Router /auth/recovery/reset [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.authService.SetPasswordWithCode(req.Email, req.Code, models.PurposePasswordRecovery, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user's profile
// @Summary Current user
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
