package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deptcare/deptcare/internal/analytics"
	"github.com/deptcare/deptcare/internal/audit"
	"github.com/deptcare/deptcare/internal/config"
	"github.com/deptcare/deptcare/internal/identity"
	"github.com/deptcare/deptcare/internal/orders"
	"github.com/deptcare/deptcare/internal/patient"
	"github.com/deptcare/deptcare/internal/platform/auth"
	"github.com/deptcare/deptcare/internal/platform/db"
	"github.com/deptcare/deptcare/internal/platform/middleware"
	"github.com/deptcare/deptcare/internal/records"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "deptcare-server",
		Short: "Hospital department API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// userCmd seeds staff accounts from the command line, used to create the
// first admin before any login is possible.
func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			department, _ := cmd.Flags().GetString("department")

			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			if !identity.ValidRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			hash, err := identity.HashPassword(password)
			if err != nil {
				return err
			}
			u := &identity.User{
				Username:     username,
				PasswordHash: hash,
				Role:         role,
				Department:   department,
			}
			if err := identity.NewRepoPG(pool).Create(ctx, u); err != nil {
				return err
			}

			fmt.Printf("Created user %s (id=%d, role=%s)\n", u.Username, u.ID, u.Role)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login name")
	createCmd.Flags().String("password", "", "Initial password")
	createCmd.Flags().String("role", "staff", "Role: admin, doctor, or staff")
	createCmd.Flags().String("department", "", "Department name")

	cmd.AddCommand(createCmd)
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	jwtSecret, generated, err := resolveJWTSecret(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve JWT secret")
	}
	if generated {
		logger.Warn().Msg("JWT_SECRET not set, using a per-process random key; sessions will not survive restarts")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.DownloadDir).Msg("failed to create download directory")
	}

	txRunner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}

	// Services
	auditSvc := audit.NewService(audit.NewRepoPG(pool))
	patientSvc := patient.NewService(patient.NewRepoPG(pool), auditSvc, txRunner)
	recordsSvc := records.NewService(
		records.NewMedicalRecordRepoPG(pool),
		records.NewPrescriptionRepoPG(pool),
		patient.NewRepoPG(pool),
		auditSvc,
		txRunner,
	)
	issuer := auth.NewTokenIssuer(jwtSecret, cfg.TokenTTL)
	identitySvc := identity.NewService(identity.NewRepoPG(pool), issuer, auditSvc, txRunner)
	analyticsSvc := analytics.NewService(analytics.NewRepoPG(pool))

	history := orders.NewFileHistoryStore(cfg.HistoryPath, logger)
	ordersSvc := orders.NewService(
		history,
		orders.NewLabClient(cfg.LabHost, cfg.SharedAPIKey),
		orders.NewScanClient(cfg.ImagingHost, cfg.SharedAPIKey),
		orders.NewRetriever(cfg.DownloadDir),
		orders.NewPoller(cfg.PollInterval, cfg.PollTimeout, logger),
		logger,
	)

	departmentKeys := auth.NewInMemoryDepartmentKeys(cfg.DepartmentKeyMap())

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
	}))
	e.Use(middleware.Access(logger))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")

	// Login is the only unauthenticated API route.
	identityHandler := identity.NewHandler(identitySvc)
	identityHandler.RegisterLoginRoute(apiV1)

	// Staff routes, JWT-protected.
	staff := apiV1.Group("", auth.JWTMiddleware(jwtSecret))

	patientsGroup := staff.Group("/patients")
	patient.NewHandler(patientSvc).RegisterRoutes(patientsGroup)
	records.NewHandler(recordsSvc).RegisterRoutes(patientsGroup, staff)

	audit.NewHandler(auditSvc).RegisterRoutes(staff.Group("/audit", auth.RequireRole("admin", "doctor")))
	analytics.NewHandler(analyticsSvc).RegisterRoutes(staff.Group("/analytics"))
	identityHandler.RegisterUserRoutes(staff.Group("/users"))

	// External order routes, authenticated by department API key.
	external := apiV1.Group("/external", auth.APIKeyMiddleware(departmentKeys))
	orders.NewHandler(ordersSvc).RegisterRoutes(external)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// resolveJWTSecret returns the configured signing key, or a random 32-byte
// key in development. The second return value is true when a random key was
// generated.
func resolveJWTSecret(cfg *config.Config) ([]byte, bool, error) {
	if cfg.JWTSecret != "" {
		return []byte(cfg.JWTSecret), false, nil
	}
	if !cfg.IsDev() {
		return nil, false, fmt.Errorf("JWT_SECRET is required when ENV is not development")
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate random JWT secret: %w", err)
	}
	return key, true, nil
}
