package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"spendlog/internal/auth"
	"spendlog/internal/log"
	"spendlog/internal/models"
	"spendlog/internal/storage"
	"spendlog/internal/validation"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// DefaultSessionDuration is how long sessions last (30 days).
	DefaultSessionDuration = 30 * 24 * time.Hour

	maxBodyBytes = 1 << 20
)

// Options configures Handlers.
type Options struct {
	Tokens       *auth.TokenIssuer
	SecureCookie bool
	SessionTTL   time.Duration
	Logger       *log.Logger
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	pages        fs.FS
	tokens       *auth.TokenIssuer
	validator    *validation.Validator
	secureCookie bool
	sessionTTL   time.Duration
	log          *log.Logger
}

// NewHandlers creates a new Handlers instance. pages holds the static site
// with one HTML file per screen at its root.
func NewHandlers(db *storage.DB, pages fs.FS, opts Options) *Handlers {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionDuration
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return &Handlers{
		db:           db,
		pages:        pages,
		tokens:       opts.Tokens,
		validator:    validation.New(),
		secureCookie: opts.SecureCookie,
		sessionTTL:   ttl,
		log:          logger,
	}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// RequireAPIAuth rejects requests without a valid session with 401.
func (h *Handlers) RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := h.authenticate(w, r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware wraps page handlers to require authentication, sending
// anonymous visitors to the login page.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := h.authenticate(w, r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate resolves the caller's session from the cookie or a Bearer
// token. It also implements rolling sessions: if a session is past the
// halfway point of its lifetime, it is renewed and the cookie re-issued.
func (h *Handlers) authenticate(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	raw, fromCookie := sessionToken(r)
	if raw == "" {
		return nil, false
	}

	claims, err := h.tokens.Parse(raw)
	if err != nil {
		if fromCookie {
			h.clearSessionCookie(w)
		}
		return nil, false
	}

	info, err := h.db.ValidateSessionWithInfo(r.Context(), claims.SessionID())
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger(r, log.ComponentAuth).Error("Failed to validate session", log.FieldError, err)
		}
		if fromCookie {
			h.clearSessionCookie(w)
		}
		return nil, false
	}
	if userID, _ := claims.UserID(); userID != info.User.ID {
		return nil, false
	}

	now := time.Now()
	if info.ExpiresAt.Sub(now) < h.sessionTTL/2 {
		newExpiresAt := now.Add(h.sessionTTL)
		if err := h.db.RenewSession(r.Context(), claims.SessionID(), newExpiresAt); err != nil {
			// Keep serving on the current session.
			h.logger(r, log.ComponentAuth).Warn("Failed to renew session", log.FieldError, err)
		} else if fromCookie {
			if token, err := h.tokens.Issue(info.User.ID, claims.SessionID(), newExpiresAt); err == nil {
				h.setSessionCookie(w, token)
			}
		}
	}

	return info.User, true
}

// sessionToken returns the raw token and whether it came from the cookie.
func sessionToken(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token), false
	}
	return "", false
}

// startSession creates a session row for user and returns its signed token.
func (h *Handlers) startSession(ctx context.Context, user *models.User) (string, error) {
	sessionID, err := auth.GenerateSessionToken()
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(h.sessionTTL)
	if err := h.db.CreateSession(ctx, sessionID, user.ID, expiresAt); err != nil {
		return "", err
	}
	return h.tokens.Issue(user.ID, sessionID, expiresAt)
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// logger returns the request-scoped logger when the logging middleware ran.
func (h *Handlers) logger(r *http.Request, component string) *log.Logger {
	if l, ok := log.Lookup(r.Context()); ok {
		return l.WithComponent(component)
	}
	return h.log.WithComponent(component)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

func writeValidationError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}
