package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &SampleStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// InitStores opens the global sample store exactly once.
func InitStores(backend schema.DatabaseBackend, connStr string, table string) error {
	var initErr error

	initOnce.Do(func() {
		store, err := NewSampleStore(backend, connStr, table)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize sample store: %w", err)
			return
		}
		Manager.Lock()
		Manager.samples = store
		Manager.Unlock()
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.samples != nil {
			_ = Manager.samples.Close()
		}
	})
}

// ClearSamples removes stored samples and runs for the backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the tables.
// For NoneBackend, it does nothing.
func ClearSamples(backend schema.DatabaseBackend, connStr string, table string) error {
	if table == "" {
		table = schema.DefaultTableName
	}
	if err := contract.ValidateTableName(table); err != nil {
		return err
	}

	switch backend {
	case schema.SQLiteBackend:
		if connStr == "" {
			return fmt.Errorf("database path cannot be empty for SQLite backend")
		}
		// Remove the file; ignore if it doesn't exist
		if err := os.Remove(connStr); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", connStr, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		db, err := openDB(backend, connStr)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to ping %s database: %w", backend, err)
		}
		return dropTables(db, backend, table, schema.RunsTableName, migrationsTable)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

func dropTables(db *sql.DB, backend schema.DatabaseBackend, tables ...string) error {
	for _, table := range tables {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
