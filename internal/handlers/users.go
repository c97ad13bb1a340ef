package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"spendlog/internal/auth"
	"spendlog/internal/log"
	"spendlog/internal/models"
	"spendlog/internal/storage"
)

var passwordTooLong = fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordBytes)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	UserID  int64  `json:"userId"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

type profileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Register creates a user account.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, log.ComponentUser).With(log.FieldOperation, log.OpRegister)

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeText(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeText(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		writeText(w, http.StatusBadRequest, passwordTooLong)
		return
	}
	if err != nil {
		logger.Error("Error hashing password", log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	user, err := h.db.CreateUser(r.Context(), req.Username, strings.TrimSpace(req.Email), hash)
	if err != nil {
		logger.Error("Error registering user", log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	logger.Info("User registered", log.FieldUserID, user.ID)
	writeText(w, http.StatusOK, "User registered successfully")
}

// Login verifies credentials, opens a session and sets the session cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, log.ComponentAuth).With(log.FieldOperation, log.OpLogin)
	invalid := map[string]string{"message": "Invalid credentials"}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, invalid)
			return
		}
		logger.Error("Error querying user", log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Error querying user"})
		return
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		logger.Warn("Rejected login", log.FieldUserID, user.ID)
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}

	token, err := h.startSession(r.Context(), user)
	if err != nil {
		logger.Error("Failed to create session", log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Error creating session"})
		return
	}
	h.setSessionCookie(w, token)

	writeJSON(w, http.StatusOK, LoginResponse{
		UserID:  user.ID,
		Message: "Login successful",
		Token:   token,
	})
}

// Logout ends the caller's session, if any, and clears the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if raw, _ := sessionToken(r); raw != "" {
		if claims, err := h.tokens.Parse(raw); err == nil {
			if err := h.db.DeleteSession(r.Context(), claims.SessionID()); err != nil {
				h.logger(r, log.ComponentAuth).Error("Failed to delete session",
					log.FieldOperation, log.OpLogout, log.FieldError, err)
				writeText(w, http.StatusInternalServerError, "Error logging out")
				return
			}
		}
	}
	h.clearSessionCookie(w)
	writeText(w, http.StatusOK, "Logout successful")
}

// GetUser returns the caller's profile.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.pathUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile changes the caller's username and email.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeValidationError(w, `"username" is required`)
		return
	}

	if err := h.db.UpdateUserProfile(r.Context(), user.ID, username, strings.TrimSpace(req.Email)); err != nil {
		h.logger(r, log.ComponentUser).Error("Error updating profile",
			log.FieldOperation, log.OpUpdate, log.FieldUserID, user.ID, log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error updating profile")
		return
	}
	writeText(w, http.StatusOK, "Profile updated successfully")
}

// ChangePassword replaces the caller's password after checking the current one.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := h.pathUser(w, r)
	if !ok {
		return
	}
	logger := h.logger(r, log.ComponentUser).With(log.FieldOperation, log.OpUpdate, log.FieldUserID, sessionUser.ID)

	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	// Re-read the hash; the session copy may predate another password change.
	user, err := h.db.GetUserByID(r.Context(), sessionUser.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Error("Error fetching user", log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error fetching user")
		return
	}
	if user == nil || !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		writeText(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}
	if req.NewPassword == "" {
		writeValidationError(w, `"newPassword" is required`)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		writeValidationError(w, fmt.Sprintf(`"newPassword" must be at most %d bytes`, auth.MaxPasswordBytes))
		return
	}
	if err != nil {
		logger.Error("Error hashing password", log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error updating password")
		return
	}
	if err := h.db.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		logger.Error("Error updating password", log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error updating password")
		return
	}
	writeText(w, http.StatusOK, "Password changed successfully")
}

// pathUser returns the session user when it matches the {userId} path
// segment, writing 403 otherwise.
func (h *Handlers) pathUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	id, err := strconv.ParseInt(r.PathValue("userId"), 10, 64)
	if err != nil || id != user.ID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}
	return user, true
}
