package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "transparency-monitor/docs" // This is for Swagger
	"transparency-monitor/internal/auth"
	"transparency-monitor/internal/config"
	"transparency-monitor/internal/crawler"
	"transparency-monitor/internal/database"
	"transparency-monitor/internal/email"
	"transparency-monitor/internal/handlers"
	"transparency-monitor/internal/logger"
	"transparency-monitor/internal/middleware"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/repository"
	"transparency-monitor/internal/scheduler"
	"transparency-monitor/internal/service"
	"transparency-monitor/internal/vault"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Transparency Monitor API
// @version 1.0
// @description Backend API for municipal transparency compliance evaluation: self-assessments, analyst validation, appeals and score publication

// @contact.name API Support
// @contact.email suporte@transparency-monitor.gov

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level: cfg.Log.Level,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"cycle_year", cfg.App.CycleYear,
		"log_level", cfg.Log.Level,
	)

	// Load secrets from Vault when enabled. The JWT signing key and
	// SMTP password come from a single KV v2 secret.
	if cfg.Vault.Enabled {
		vaultClient, err := vault.NewClient(&vault.Config{
			Address: cfg.Vault.Address,
			Token:   cfg.Vault.Token,
			KVMount: cfg.Vault.KVMount,
		})
		if err != nil {
			slog.Error("Failed to initialize Vault client", "error", err)
			os.Exit(1)
		}
		if err := vaultClient.Health(); err != nil {
			slog.Error("Vault health check failed", "error", err)
			os.Exit(1)
		}

		jwtSecret, err := vaultClient.GetString(cfg.Vault.SecretPath, "jwt_secret")
		if err != nil {
			slog.Error("Failed to load JWT secret from Vault", "error", err)
			os.Exit(1)
		}
		if jwtSecret != "" {
			cfg.JWT.Secret = jwtSecret
		}

		smtpPassword, err := vaultClient.GetString(cfg.Vault.SecretPath, "smtp_password")
		if err != nil {
			slog.Warn("Failed to load SMTP password from Vault", "error", err)
		} else if smtpPassword != "" {
			cfg.Email.SMTPPassword = smtpPassword
		}

		slog.Info("Secrets loaded from Vault", "vault_addr", cfg.Vault.Address)
	}

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		err := db.Close()
		if err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations("./migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	codeRepo := repository.NewVerificationCodeRepository(db.DB)
	orgRepo := repository.NewOrganizationRepository(db.DB)
	requirementRepo := repository.NewRequirementRepository(db.DB)
	assessmentRepo := repository.NewAssessmentRepository(db.DB)
	responseRepo := repository.NewResponseRepository(db.DB)
	subResponseRepo := repository.NewSubResponseRepository(db.DB)
	scanRepo := repository.NewScanSessionRepository(db.DB)

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	emailService := email.NewService(&cfg.Email)
	authSvc := service.NewAuthService(userRepo, codeRepo, authService, emailService)
	orgService := service.NewOrganizationService(orgRepo, userRepo)
	requirementService := service.NewRequirementService(requirementRepo, orgRepo)
	assessmentService := service.NewAssessmentService(db.DB, assessmentRepo, responseRepo, subResponseRepo, requirementRepo, orgRepo, emailService, cfg.App.CycleYear)
	reviewService := service.NewReviewService(db.DB, assessmentRepo, responseRepo, subResponseRepo)
	scanService := service.NewScanService(scanRepo, orgRepo)

	if cfg.Crawler.Enabled {
		scanService.SetLauncher(crawler.NewRunner(&cfg.Crawler, scanService))
		slog.Info("Crawler runner enabled", "binary", cfg.Crawler.Binary)
	}

	// Close scan sessions a previous process left open
	if err := scanService.ReconcileAbandonedSessions(); err != nil {
		slog.Error("Failed to reconcile abandoned scan sessions", "error", err)
		os.Exit(1)
	}

	// Initialize scheduler
	schedulerService := scheduler.NewScheduler(assessmentService, authSvc, &cfg.Scheduler)
	schedulerService.Start()
	defer schedulerService.Stop()

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService)
	rbacMw := middleware.NewRBACMiddleware()
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authSvc)
	configHandler := handlers.NewConfigHandler(cfg, db)
	orgHandler := handlers.NewOrganizationHandler(orgService)
	requirementHandler := handlers.NewRequirementHandler(requirementService)
	assessmentHandler := handlers.NewAssessmentHandler(assessmentService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	scanHandler := handlers.NewScanHandler(scanService)

	// Setup router
	mux := http.NewServeMux()

	// Public auth routes
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/first-access/request", authHandler.RequestFirstAccessCode)
	mux.HandleFunc("POST /api/v1/auth/first-access/complete", authHandler.CompleteFirstAccess)
	mux.HandleFunc("POST /api/v1/auth/recovery/request", authHandler.RequestRecoveryCode)
	mux.HandleFunc("POST /api/v1/auth/recovery/verify", authHandler.VerifyRecoveryCode)
	mux.HandleFunc("POST /api/v1/auth/recovery/reset", authHandler.ResetPassword)

	// Config routes (public)
	mux.HandleFunc("GET /api/v1/config/app", configHandler.GetAppConfig)

	// Authenticated user info
	mux.Handle("GET /api/v1/auth/me", authMw.Authenticate(http.HandlerFunc(authHandler.Me)))

	// Organization routes
	mux.Handle("POST /api/v1/organizations",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(orgHandler.CreateOrganization),
			),
		),
	)
	mux.Handle("GET /api/v1/organizations", authMw.Authenticate(http.HandlerFunc(orgHandler.ListOrganizations)))
	mux.Handle("GET /api/v1/organizations/{id}", authMw.Authenticate(http.HandlerFunc(orgHandler.GetOrganization)))
	mux.Handle("PUT /api/v1/organizations/{id}",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(orgHandler.UpdateOrganization),
			),
		),
	)
	mux.Handle("GET /api/v1/organizations/{id}/users", authMw.Authenticate(http.HandlerFunc(orgHandler.ListOrganizationUsers)))

	// Requirement catalog routes
	mux.Handle("POST /api/v1/requirements",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(requirementHandler.CreateRequirement),
			),
		),
	)
	mux.Handle("POST /api/v1/requirements/{id}/sub-requirements",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(requirementHandler.CreateSubRequirement),
			),
		),
	)
	mux.Handle("PUT /api/v1/requirements/{id}",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(requirementHandler.UpdateRequirement),
			),
		),
	)
	mux.Handle("DELETE /api/v1/requirements/{id}",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(requirementHandler.DeleteRequirement),
			),
		),
	)
	mux.Handle("GET /api/v1/organizations/{orgId}/requirements", authMw.Authenticate(http.HandlerFunc(requirementHandler.GetCatalog)))

	// Assessment lifecycle routes. Ownership and lifecycle rules live
	// in the service layer; only reviewer-exclusive operations get an
	// RBAC guard here.
	mux.Handle("POST /api/v1/assessments", authMw.Authenticate(http.HandlerFunc(assessmentHandler.CreateAssessment)))
	mux.Handle("GET /api/v1/assessments", authMw.Authenticate(http.HandlerFunc(assessmentHandler.ListAssessments)))
	mux.Handle("GET /api/v1/assessments/{id}", authMw.Authenticate(http.HandlerFunc(assessmentHandler.GetAssessment)))
	mux.Handle("POST /api/v1/assessments/{id}/return-for-appeal",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(assessmentHandler.ReturnForAppeal),
			),
		),
	)
	mux.Handle("POST /api/v1/assessments/{id}/appeal",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleOrganization)(
				http.HandlerFunc(assessmentHandler.SubmitAppeal),
			),
		),
	)
	mux.Handle("GET /api/v1/assessments/{id}/deadline", authMw.Authenticate(http.HandlerFunc(assessmentHandler.CheckAppealDeadline)))
	mux.Handle("PUT /api/v1/assessments/{id}/post-appeal-score",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(assessmentHandler.SavePostAppealScore),
			),
		),
	)
	mux.Handle("POST /api/v1/assessments/{id}/finalize",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(assessmentHandler.FinalizeAssessment),
			),
		),
	)
	mux.Handle("GET /api/v1/assessments/{id}/score", authMw.Authenticate(http.HandlerFunc(assessmentHandler.GetFinalScore)))
	mux.Handle("DELETE /api/v1/assessments/{id}",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(assessmentHandler.DeleteAssessment),
			),
		),
	)

	// Analyst validation routes
	mux.Handle("PUT /api/v1/responses/{id}/validate",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(reviewHandler.ValidateResponse),
			),
		),
	)
	mux.Handle("PUT /api/v1/sub-responses/{id}/validate",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(reviewHandler.ValidateSubResponse),
			),
		),
	)
	mux.Handle("PUT /api/v1/responses/{id}/final-analysis",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(reviewHandler.FinalAnalysis),
			),
		),
	)

	// Crawler scan session routes
	mux.Handle("POST /api/v1/scans",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(scanHandler.StartSession),
			),
		),
	)
	mux.Handle("POST /api/v1/scans/{sessionId}/links",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(scanHandler.RecordLink),
			),
		),
	)
	mux.Handle("POST /api/v1/scans/{sessionId}/finish",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(scanHandler.FinishSession),
			),
		),
	)
	mux.Handle("POST /api/v1/scans/{sessionId}/interrupt",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(scanHandler.InterruptSession),
			),
		),
	)
	mux.Handle("DELETE /api/v1/scans/{sessionId}",
		authMw.Authenticate(
			rbacMw.RequireRole(models.RoleReviewer)(
				http.HandlerFunc(scanHandler.DeleteSession),
			),
		),
	)
	mux.Handle("GET /api/v1/scans/{sessionId}", authMw.Authenticate(http.HandlerFunc(scanHandler.GetSession)))
	mux.Handle("GET /api/v1/organizations/{orgId}/scans", authMw.Authenticate(http.HandlerFunc(scanHandler.ListSessions)))

	// Health check endpoint
	mux.HandleFunc("GET /health", configHandler.Health)

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
