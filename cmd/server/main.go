package main

import (
	"context"
	"crypto/rand"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spendlog/internal/auth"
	"spendlog/internal/config"
	"spendlog/internal/handlers"
	"spendlog/internal/log"
	"spendlog/internal/storage"
	"spendlog/web"

	"github.com/rs/cors"
)

const sessionSweepInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Database ready", "driver", cfg.Database.Driver)

	if err := bootstrapAdmin(ctx, db, cfg, logger); err != nil {
		return err
	}

	secret, err := sessionSecret(cfg, logger)
	if err != nil {
		return err
	}

	h := handlers.NewHandlers(db, web.Static(), handlers.Options{
		Tokens:       auth.NewTokenIssuer(secret),
		SecureCookie: cfg.SecureCookie,
		SessionTTL:   cfg.SessionTTL,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           wrapHandler(setupRouter(h, web.Static()), cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go sweepSessions(ctx, db, sessionSweepInterval, logger.WithComponent(log.ComponentStorage))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server running", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func setupRouter(h *handlers.Handlers, static fs.FS) *http.ServeMux {
	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("GET /{$}", h.Page("home.html"))
	mux.HandleFunc("GET /home", h.Page("home.html"))
	mux.HandleFunc("GET /register", h.Page("register.html"))
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.Handle("GET /dashboard", h.AuthMiddleware(h.Page("dashboard.html")))
	mux.Handle("GET /add-expense", h.AuthMiddleware(h.Page("add-expense.html")))
	mux.Handle("GET /edit-expense", h.AuthMiddleware(h.Page("edit-expense.html")))
	mux.Handle("GET /settings", h.AuthMiddleware(h.Page("settings.html")))
	mux.Handle("GET /", handlers.StaticFiles(static))
	mux.HandleFunc("GET /healthz", h.Health)

	// Public API
	mux.HandleFunc("GET /api/categories", h.Categories)
	mux.HandleFunc("POST /api/register", h.Register)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.Logout)

	// Authenticated API
	api := func(fn http.HandlerFunc) http.Handler { return h.RequireAPIAuth(fn) }
	mux.Handle("POST /api/expenses", api(h.CreateExpense))
	mux.Handle("GET /api/expenses", api(h.ListExpenses))
	mux.Handle("GET /api/expenses/summary", api(h.Summary))
	mux.Handle("GET /api/expenses/{id}", api(h.GetExpense))
	mux.Handle("PUT /api/expenses/{id}", api(h.UpdateExpense))
	mux.Handle("DELETE /api/expenses/{id}", api(h.DeleteExpense))
	mux.Handle("GET /api/users/{userId}", api(h.GetUser))
	mux.Handle("PUT /api/users/{userId}", api(h.UpdateProfile))
	mux.Handle("PUT /api/users/{userId}/password", api(h.ChangePassword))

	return mux
}

// wrapHandler adds request logging and, when origins are configured, CORS.
func wrapHandler(next http.Handler, cfg *config.Config, logger *log.Logger) http.Handler {
	if len(cfg.CORSAllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
			AllowCredentials: true,
		})
		next = c.Handler(next)
	}
	return log.Middleware(logger)(next)
}

// bootstrapAdmin creates the configured admin account on an empty database.
func bootstrapAdmin(ctx context.Context, db *storage.DB, cfg *config.Config, logger *log.Logger) error {
	if cfg.AdminUser == "" || cfg.AdminPassword == "" {
		return nil
	}
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	user, err := db.CreateUser(ctx, cfg.AdminUser, cfg.AdminEmail, hash)
	if err != nil {
		return err
	}
	logger.Info("Created admin user", "username", user.Username, log.FieldUserID, user.ID)
	return nil
}

// sessionSecret returns the configured token key, or a random one that
// invalidates all sessions on restart.
func sessionSecret(cfg *config.Config, logger *log.Logger) ([]byte, error) {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	logger.Warn("SESSION_SECRET is not set; sessions will not survive a restart")
	return secret, nil
}

func sweepSessions(ctx context.Context, db *storage.DB, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := db.CleanExpiredSessions(ctx)
			if err != nil {
				logger.Error("Failed to clean expired sessions", log.FieldError, err)
				continue
			}
			if removed > 0 {
				logger.Info("Cleaned expired sessions", "count", removed)
			}
		}
	}
}
