package cmd

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

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/audit"
	auditPostgres "github.com/frahmantamala/school-admin/internal/audit/postgres"
	"github.com/frahmantamala/school-admin/internal/auth"
	authPostgres "github.com/frahmantamala/school-admin/internal/auth/postgres"
	"github.com/frahmantamala/school-admin/internal/core/events"
	"github.com/frahmantamala/school-admin/internal/role"
	rolePostgres "github.com/frahmantamala/school-admin/internal/role/postgres"
	"github.com/frahmantamala/school-admin/internal/transport"
	"github.com/frahmantamala/school-admin/internal/transport/rest"
	"github.com/frahmantamala/school-admin/internal/transport/swagger"
	"github.com/frahmantamala/school-admin/internal/user"
	userPostgres "github.com/frahmantamala/school-admin/internal/user/postgres"
	"github.com/frahmantamala/school-admin/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// Dependencies is the object graph shared by the server and the operator commands.
type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Bus    *events.EventBus
	Logger *slog.Logger

	Users        *userPostgres.UserRepository
	AuthService  *auth.Service
	RoleService  *role.Service
	AuditService *audit.Service
	UserService  *user.Service
	Gate         *auth.Gate
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	router := setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) *chi.Mux {
	base := transport.NewBaseHandler(deps.Logger)

	spec, err := swagger.Load(context.Background(), deps.Config.Server.OpenAPIPath)
	if err != nil {
		// the API still serves without docs
		deps.Logger.Warn("openapi spec unavailable", "path", deps.Config.Server.OpenAPIPath, "error", err)
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, deps.DB.DB, deps.Config, rest.Handlers{
		Auth:  auth.NewHandler(base, deps.AuthService, deps.Config.Audit.DefaultRetentionDays),
		Gate:  deps.Gate,
		Users: user.NewHandler(base, deps.UserService),
		Roles: role.NewHandler(base, deps.RoleService),
		Audit: audit.NewHandler(base, deps.AuditService, deps.Config.Audit.DefaultRetentionDays),
		Spec:  spec,
	}, deps.Logger)
	return router
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps, err := wire(config, db, gdb, logger.LoggerWrapper())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return deps, nil
}

// wire builds every repository and service on top of one connection pool.
func wire(cfg *internal.Config, db *sqlx.DB, gdb *gorm.DB, lg *slog.Logger) (*Dependencies, error) {
	bus := events.NewEventBus(lg)

	auditRepo := auditPostgres.NewAuditRepository(gdb)
	audit.NewLogger(auditRepo, lg).Subscribe(bus)

	users := userPostgres.NewUserRepository(gdb)
	roles := rolePostgres.NewRoleRepository(gdb)

	verifier, err := auth.NewVerifier(users, cfg.Security.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to build credential verifier: %w", err)
	}
	sessions := auth.NewSessionStore(authPostgres.NewSessionRepository(gdb), cfg.Security.SessionDuration)
	signer := auth.NewJWTTokenSigner(cfg.Security.SessionSecret)

	return &Dependencies{
		Config:       cfg,
		DB:           db,
		Gorm:         gdb,
		Bus:          bus,
		Logger:       lg,
		Users:        users,
		AuthService:  auth.NewService(verifier, sessions, signer, users, bus, lg),
		RoleService:  role.NewService(roles, users, bus, cfg.Security.DefaultRole, lg),
		AuditService: audit.NewService(auditRepo, auditPostgres.NewStatsRepository(db), bus, cfg.Audit.ExportLimit, lg),
		UserService:  user.NewService(users, bus, lg),
		Gate:         auth.NewGate(roles, bus, lg),
	}, nil
}

func (d *Dependencies) Close() {
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers gorm over the sqlx pool so both share connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
}
