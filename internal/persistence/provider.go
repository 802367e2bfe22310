// Package persistence provides the connection used by the SQL-backed state
// store (pkg/agentrt/statestore). It holds no domain knowledge of agents;
// it only opens and closes the
// underlying *sql.DB.
package persistence

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/kandev/agentgate/internal/common/config"
	"github.com/kandev/agentgate/internal/common/logger"
	"github.com/kandev/agentgate/internal/db"
)

// Provide opens the database configured by cfg.Database and returns a
// cleanup function that must be called once the caller is done with the
// connection.
func Provide(cfg *config.Config, log *logger.Logger) (*sql.DB, func() error, error) {
	driver := cfg.Database.Driver
	if driver == "" {
		driver = "sqlite"
	}

	switch driver {
	case "sqlite":
		dbPath := cfg.Database.Path
		if dbPath == "" {
			dbPath = "./agentgate.db"
		}
		dbConn, err := db.OpenSQLite(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if log != nil {
			log.Info("database initialized", zap.String("db_path", dbPath), zap.String("db_driver", driver))
		}
		cleanup := func() error {
			// Update query planner statistics before closing.
			_, _ = dbConn.Exec("PRAGMA optimize")
			return dbConn.Close()
		}
		return dbConn, cleanup, nil
	case "postgres":
		dbConn, err := db.OpenPostgres(cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres database: %w", err)
		}
		if log != nil {
			log.Info("database initialized", zap.String("db_driver", driver))
		}
		return dbConn, dbConn.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
