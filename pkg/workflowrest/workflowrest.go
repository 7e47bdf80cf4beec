// Package workflowrest boots the workflow REST API: database, services, routes and HTTP server.
package workflowrest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/bootstrap"
	"github.com/RealZimboGuy/workflowrest/internal/config"
	"github.com/RealZimboGuy/workflowrest/internal/controllers"
	"github.com/RealZimboGuy/workflowrest/internal/dictionary"
	"github.com/RealZimboGuy/workflowrest/internal/migrations"
	"github.com/RealZimboGuy/workflowrest/internal/modelbuilder"
	"github.com/RealZimboGuy/workflowrest/internal/people"
	"github.com/RealZimboGuy/workflowrest/internal/repository"
	"github.com/RealZimboGuy/workflowrest/internal/tracing"
	"github.com/RealZimboGuy/workflowrest/internal/workflow"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const serviceName = "workflowrest"

// Services is the wired service stack shared by the HTTP server and the CLI.
type Services struct {
	DB          *sql.DB
	Dictionary  *dictionary.Service
	Nodes       *people.NodeService
	People      *people.PersonService
	Authorities *people.AuthorityService
	Users       *repository.UserRepository
	Workflow    *workflow.Service
	Bootstrap   *bootstrap.Bootstrapper
	Builder     *modelbuilder.WorkflowModelBuilder

	personCache *people.RedisPersonCache
}

// databaseTarget returns the migration dialect, the golang-migrate URL and the database/sql
// driver name and DSN for the configured database.
func databaseTarget() (dialect, migrateURL, driver, dsn string, err error) {
	switch databaseType := config.GetSystemSettingString(config.DATABASE_TYPE); databaseType {
	case config.DATABASE_TYPE_POSTGRES:
		dbURL := config.GetSystemSettingString(config.DATABASE_URL)
		if dbURL == "" {
			return "", "", "", "", fmt.Errorf("%s must be set when using the POSTGRES database type", config.DATABASE_URL)
		}
		return migrations.DialectPostgres, dbURL, "postgres", dbURL, nil
	case config.DATABASE_TYPE_MYSQL:
		dbURL := config.GetSystemSettingString(config.DATABASE_URL)
		if !strings.HasPrefix(dbURL, "mysql://") {
			return "", "", "", "", fmt.Errorf("%s must start with 'mysql://' for MySQL", config.DATABASE_URL)
		}
		if !strings.Contains(dbURL, "parseTime=true") {
			return "", "", "", "", fmt.Errorf("%s must contain 'parseTime=true' for MySQL", config.DATABASE_URL)
		}
		return migrations.DialectMySQL, dbURL, "mysql", strings.TrimPrefix(dbURL, "mysql://"), nil
	case config.DATABASE_TYPE_SQLLITE:
		fileName := config.GetSystemSettingString(config.DATABASE_SQLLITE_FILE_NAME)
		if fileName == "" {
			return "", "", "", "", fmt.Errorf("%s must be set", config.DATABASE_SQLLITE_FILE_NAME)
		}
		return migrations.DialectSQLite, "sqlite3://" + fileName, "sqlite3", fileName + "?_busy_timeout=5000", nil
	default:
		return "", "", "", "", fmt.Errorf("%s must be set to one of the following values: POSTGRES, MYSQL, SQLLITE, got %q",
			config.DATABASE_TYPE, databaseType)
	}
}

// RunMigrations applies the embedded migrations to the configured database.
func RunMigrations() error {
	dialect, migrateURL, _, _, err := databaseTarget()
	if err != nil {
		return err
	}
	slog.Info("Running migrations", "dialect", dialect)
	return migrations.Up(dialect, migrateURL)
}

// RollbackMigrations reverts every migration of the configured database.
func RollbackMigrations() error {
	dialect, migrateURL, _, _, err := databaseTarget()
	if err != nil {
		return err
	}
	slog.Warn("Rolling back migrations", "dialect", dialect)
	return migrations.Down(dialect, migrateURL)
}

// OpenDatabase opens and pings the configured database. Migrations are not applied.
func OpenDatabase() (*sql.DB, error) {
	_, _, driver, dsn, err := databaseTarget()
	if err != nil {
		return nil, err
	}
	slog.Info("Opening database", "driver", driver)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	return db, nil
}

// NewServices wires repositories and services over db. When a Redis URL is configured people
// are cached there.
func NewServices(db *sql.DB) (*Services, error) {
	dict, err := dictionary.Load()
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	clock := core.NewRealClock()
	nodeRepo := repository.NewNodeRepository(db, clock)
	s := &Services{DB: db, Dictionary: dict}

	var persons *people.PersonService
	if redisURL := config.GetSystemSettingString(config.REDIS_URL); redisURL != "" {
		cache, err := people.NewRedisPersonCache(redisURL, config.GetSystemSettingDuration(config.PERSON_CACHE_TTL))
		if err != nil {
			return nil, err
		}
		slog.Info("Caching people in Redis")
		s.personCache = cache
		persons = people.NewPersonService(nodeRepo, cache)
	} else {
		persons = people.NewPersonService(nodeRepo, nil)
	}

	s.Nodes = people.NewNodeService(nodeRepo)
	s.People = persons
	s.Authorities = people.NewAuthorityService(repository.NewAuthorityRepository(db), nodeRepo,
		config.GetSystemSettingString(config.ADMIN_USERNAME))
	s.Users = repository.NewUserRepository(db, clock)
	s.Workflow = workflow.NewService(
		repository.NewDefinitionRepository(db),
		repository.NewInstanceRepository(db),
		repository.NewTaskRepository(db),
		s.People, s.Authorities, s.Nodes, dict, clock,
		repository.NewTransactor(db),
	)
	s.Bootstrap = bootstrap.NewBootstrapper(dict, s.Workflow, s.People, s.Authorities, s.Users)
	s.Builder = modelbuilder.NewWorkflowModelBuilder(dict, s.Workflow, s.People)
	return s, nil
}

// Close releases the person cache. The database is owned by the caller.
func (s *Services) Close() error {
	if s.personCache != nil {
		return s.personCache.Close()
	}
	return nil
}

// RegisterRoutes mounts every API controller on mux.
func (s *Services) RegisterRoutes(mux *http.ServeMux) {
	controllers.NewAuthController(s.Users).RegisterRoutes(mux)
	controllers.NewUsersController(s.Users, s.Authorities, s.Bootstrap).RegisterRoutes(mux)
	controllers.NewTaskInstancesController(s.Users, s.Workflow, s.Builder).RegisterRoutes(mux)
	controllers.NewWorkflowInstancesController(s.Users, s.Workflow, s.People, s.Nodes, s.Builder).RegisterRoutes(mux)
	controllers.NewWorkflowDefinitionsController(s.Users, s.Workflow, s.Builder).RegisterRoutes(mux)
}

// Start migrates the database, deploys the bundled definitions, ensures the admin account and
// serves the API until ctx is cancelled. A nil mux gets a fresh one.
func Start(ctx context.Context, mux *http.ServeMux) error {
	if err := tracing.Init(serviceName, config.GetSystemSettingBool(config.TRACING_ENABLED)); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to flush traces", "error", err)
		}
	}()

	if err := RunMigrations(); err != nil {
		return err
	}
	db, err := OpenDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	services, err := NewServices(db)
	if err != nil {
		return err
	}
	defer services.Close()

	err = services.Bootstrap.Run(ctx,
		config.GetSystemSettingString(config.ADMIN_USERNAME),
		config.GetSystemSettingString(config.ADMIN_PASSWORD))
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	if mux == nil {
		mux = http.NewServeMux()
	}
	services.RegisterRoutes(mux)

	addr := ":" + config.GetSystemSettingString(config.SERVER_WEB_PORT)
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		slog.Error("HTTP server failed", "error", err)
		return err
	case <-ctx.Done():
		slog.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
