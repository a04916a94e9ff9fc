package iocache

import (
	"fmt"
	"strings"

	"github.com/joeshirey/JSRepoAnalysis/schema"
)

// sampleColumns is the insert and select order of the sample table.
var sampleColumns = []string{
	"github_link", "file_path", "github_owner", "github_repo",
	"product_category", "product_name", "language", "overall_compliance_score",
	"evaluation_data", "region_tags", "raw_code", "evaluation_date",
	"last_updated", "branch_name", "commit_history", "metadata",
	"validation_details", "is_generated",
}

// quoteTableName quotes an identifier for the backend. Names are validated before use.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return "`" + name + "`"
	default:
		return `"` + name + `"`
	}
}

// placeholders returns n bind markers starting at position start (1-based).
func placeholders(backend schema.DatabaseBackend, start, n int) []string {
	out := make([]string, n)
	for i := range out {
		if backend == schema.PostgreSQLBackend {
			out[i] = fmt.Sprintf("$%d", start+i)
		} else {
			out[i] = "?"
		}
	}
	return out
}

// bind returns the i-th (1-based) bind marker.
func bind(backend schema.DatabaseBackend, i int) string {
	return placeholders(backend, i, 1)[0]
}

// createSampleTableQuery returns the DDL for the sample table.
func createSampleTableQuery(table string, backend schema.DatabaseBackend) []string {
	quoted := quoteTableName(table, backend)
	switch backend {
	case schema.MySQLBackend:
		return []string{fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				github_link VARCHAR(1024) NOT NULL,
				file_path TEXT NOT NULL,
				github_owner VARCHAR(255),
				github_repo VARCHAR(255),
				product_category VARCHAR(255),
				product_name VARCHAR(255),
				language VARCHAR(64),
				overall_compliance_score DOUBLE,
				evaluation_data MEDIUMTEXT,
				region_tags TEXT,
				raw_code MEDIUMTEXT,
				evaluation_date DATETIME(6) NOT NULL,
				last_updated VARCHAR(10),
				branch_name VARCHAR(255),
				commit_history MEDIUMTEXT,
				metadata TEXT,
				validation_details MEDIUMTEXT,
				is_generated BOOLEAN NOT NULL DEFAULT FALSE,
				INDEX idx_%s_link (github_link(255), last_updated)
			);
		`, quoted, table)}

	case schema.PostgreSQLBackend:
		return []string{
			fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				github_link TEXT NOT NULL,
				file_path TEXT NOT NULL,
				github_owner TEXT,
				github_repo TEXT,
				product_category TEXT,
				product_name TEXT,
				language TEXT,
				overall_compliance_score DOUBLE PRECISION,
				evaluation_data TEXT,
				region_tags TEXT,
				raw_code TEXT,
				evaluation_date TIMESTAMPTZ NOT NULL,
				last_updated TEXT,
				branch_name TEXT,
				commit_history TEXT,
				metadata TEXT,
				validation_details TEXT,
				is_generated BOOLEAN NOT NULL DEFAULT FALSE
			);
		`, quoted),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (github_link, last_updated)`,
				quoteTableName("idx_"+table+"_link", backend), quoted),
		}

	default: // SQLite
		return []string{
			fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				github_link TEXT NOT NULL,
				file_path TEXT NOT NULL,
				github_owner TEXT,
				github_repo TEXT,
				product_category TEXT,
				product_name TEXT,
				language TEXT,
				overall_compliance_score REAL,
				evaluation_data TEXT,
				region_tags TEXT,
				raw_code TEXT,
				evaluation_date TEXT NOT NULL,
				last_updated TEXT,
				branch_name TEXT,
				commit_history TEXT,
				metadata TEXT,
				validation_details TEXT,
				is_generated INTEGER NOT NULL DEFAULT 0
			);
		`, quoted),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (github_link, last_updated)`,
				quoteTableName("idx_"+table+"_link", backend), quoted),
		}
	}
}

// createRunsTableQuery returns the DDL for the run tracking table.
func createRunsTableQuery(backend schema.DatabaseBackend) string {
	quoted := quoteTableName(schema.RunsTableName, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				run_uuid VARCHAR(36) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				files_processed INT NOT NULL DEFAULT 0,
				files_skipped INT NOT NULL DEFAULT 0,
				files_errored INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quoted)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				run_uuid TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				files_processed INT NOT NULL DEFAULT 0,
				files_skipped INT NOT NULL DEFAULT 0,
				files_errored INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quoted)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_uuid TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				files_processed INTEGER NOT NULL DEFAULT 0,
				files_skipped INTEGER NOT NULL DEFAULT 0,
				files_errored INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quoted)
	}
}

// insertSampleQuery returns the parameterized INSERT for the sample table.
func insertSampleQuery(table string, backend schema.DatabaseBackend) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteTableName(table, backend),
		strings.Join(sampleColumns, ", "),
		strings.Join(placeholders(backend, 1, len(sampleColumns)), ", "))
}
