package iocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	_ "modernc.org/sqlite" // SQLite driver
)

// sqliteTimeLayout is fixed-width so stored times sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SampleStoreImpl persists evaluated samples and batch runs in a SQL database.
type SampleStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	table   string
}

var _ contract.SampleStore = &SampleStoreImpl{} // Compile-time check

// NewSampleStore opens the backend and creates its tables when missing.
// NoneBackend returns a store that persists nothing.
func NewSampleStore(backend schema.DatabaseBackend, connStr string, table string) (*SampleStoreImpl, error) {
	if table == "" {
		table = schema.DefaultTableName
	}
	if err := contract.ValidateTableName(table); err != nil {
		return nil, err
	}
	if backend == schema.NoneBackend {
		return &SampleStoreImpl{backend: backend, table: table}, nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}

	// Ping to verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Verify the database file is writable."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}

	if err := createTables(db, backend, table); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sample tables: %w", err)
	}
	return newSampleStoreWithDB(db, backend, table), nil
}

// newSampleStoreWithDB wraps an already opened database.
func newSampleStoreWithDB(db *sql.DB, backend schema.DatabaseBackend, table string) *SampleStoreImpl {
	return &SampleStoreImpl{db: db, backend: backend, table: table}
}

// openDB opens a connection pool for the backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	switch backend {
	case schema.SQLiteBackend:
		db, err := sql.Open("sqlite", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", connStr, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
		return db, nil

	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse MySQL connection string: %w. Expected user:password@tcp(host:port)/dbname", err)
		}
		// DATETIME columns are scanned into time.Time
		cfg.ParseTime = true
		db, err := sql.Open("mysql", cfg.FormatDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL database: %w", err)
		}
		return db, nil

	case schema.PostgreSQLBackend:
		db, err := sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=... dbname=... user=...", err)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

func createTables(db *sql.DB, backend schema.DatabaseBackend, table string) error {
	for _, query := range createSampleTableQuery(table, backend) {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	if _, err := db.Exec(createRunsTableQuery(backend)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", schema.RunsTableName, err)
	}
	return nil
}

func (s *SampleStoreImpl) disabled() bool {
	return s.backend == schema.NoneBackend || s.db == nil
}

// formatTime converts a time.Time to the appropriate format for the backend.
func (s *SampleStoreImpl) formatTime(t time.Time) any {
	if s.backend == schema.SQLiteBackend {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t
}

// timeDest scans either native times or sqlite text times.
type timeDest struct {
	t     time.Time
	valid bool
}

// Scan implements sql.Scanner.
func (d *timeDest) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.valid = false
		return nil
	case time.Time:
		d.t, d.valid = v, true
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (d *timeDest) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	d.t, d.valid = t, true
	return nil
}

// versionClause matches a nullable last_updated.
func (s *SampleStoreImpl) versionClause(lastUpdated *string, pos int) (string, []any) {
	if lastUpdated == nil {
		return "last_updated IS NULL", nil
	}
	return "last_updated = " + bind(s.backend, pos), []any{*lastUpdated}
}

// RecordExists implements contract.SampleStore. A nil version never matches.
func (s *SampleStoreImpl) RecordExists(ctx context.Context, githubLink string, lastUpdated *string) (bool, error) {
	if s.disabled() || lastUpdated == nil {
		return false, nil
	}
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE github_link = %s AND last_updated = %s LIMIT 1",
		quoteTableName(s.table, s.backend), bind(s.backend, 1), bind(s.backend, 2))

	var one int
	err := s.db.QueryRowContext(ctx, query, githubLink, *lastUpdated).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &contract.RepositoryError{Op: "exists", Err: err}
	}
	return true, nil
}

// Create implements contract.SampleStore.
func (s *SampleStoreImpl) Create(ctx context.Context, row schema.Row) error {
	if s.disabled() {
		return nil
	}
	tags, err := json.Marshal(nonNilTags(row.RegionTags))
	if err != nil {
		return &contract.RepositoryError{Op: "create", Err: err}
	}
	var lastUpdated any
	if row.LastUpdated != nil {
		lastUpdated = *row.LastUpdated
	}
	var score any
	if row.OverallComplianceScore != nil {
		score = *row.OverallComplianceScore
	}

	result, err := s.db.ExecContext(ctx, insertSampleQuery(s.table, s.backend),
		row.GithubLink, row.FilePath, row.GithubOwner, row.GithubRepo,
		row.ProductCategory, row.ProductName, row.Language, score,
		row.EvaluationData, string(tags), row.RawCode, s.formatTime(row.EvaluationDate),
		lastUpdated, row.BranchName, row.CommitHistory, row.Metadata,
		row.ValidationDetails, row.Generated,
	)
	if err != nil {
		return &contract.RepositoryError{Op: "create", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &contract.RepositoryError{Op: "create", Err: err}
	}
	if affected == 0 {
		return &contract.RepositoryError{Op: "create", Err: errors.New("insert affected no rows")}
	}
	return nil
}

// Delete implements contract.SampleStore. A nil version deletes rows whose version is NULL.
func (s *SampleStoreImpl) Delete(ctx context.Context, githubLink string, lastUpdated *string) error {
	if s.disabled() {
		return nil
	}
	clause, args := s.versionClause(lastUpdated, 2)
	query := fmt.Sprintf("DELETE FROM %s WHERE github_link = %s AND %s",
		quoteTableName(s.table, s.backend), bind(s.backend, 1), clause)
	if _, err := s.db.ExecContext(ctx, query, append([]any{githubLink}, args...)...); err != nil {
		return &contract.RepositoryError{Op: "delete", Err: err}
	}
	return nil
}

// Read implements contract.SampleStore.
func (s *SampleStoreImpl) Read(ctx context.Context, githubLink string) (*schema.Row, error) {
	if s.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE github_link = %s ORDER BY evaluation_date DESC, id DESC LIMIT 1",
		strings.Join(sampleColumns, ", "), quoteTableName(s.table, s.backend), bind(s.backend, 1))

	rows, err := s.db.QueryContext(ctx, query, githubLink)
	if err != nil {
		return nil, &contract.RepositoryError{Op: "read", Err: err}
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &contract.RepositoryError{Op: "read", Err: err}
		}
		return nil, nil
	}
	row, err := scanRow(rows)
	if err != nil {
		return nil, &contract.RepositoryError{Op: "read", Err: err}
	}
	return &row, nil
}

// List implements contract.SampleStore.
func (s *SampleStoreImpl) List(ctx context.Context) ([]schema.Row, error) {
	if s.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id",
		strings.Join(sampleColumns, ", "), quoteTableName(s.table, s.backend))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &contract.RepositoryError{Op: "list", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var results []schema.Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, &contract.RepositoryError{Op: "list", Err: err}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &contract.RepositoryError{Op: "list", Err: err}
	}
	return results, nil
}

func scanRow(rows *sql.Rows) (schema.Row, error) {
	var (
		row          schema.Row
		owner, repo  sql.NullString
		category     sql.NullString
		product      sql.NullString
		language     sql.NullString
		evaluation   sql.NullString
		tags         sql.NullString
		code         sql.NullString
		branch       sql.NullString
		history      sql.NullString
		metadata     sql.NullString
		validation   sql.NullString
		evaluationAt timeDest
	)
	if err := rows.Scan(
		&row.GithubLink, &row.FilePath, &owner, &repo,
		&category, &product, &language, &row.OverallComplianceScore,
		&evaluation, &tags, &code, &evaluationAt,
		&row.LastUpdated, &branch, &history, &metadata,
		&validation, &row.Generated,
	); err != nil {
		return row, fmt.Errorf("failed to scan sample row: %w", err)
	}
	row.GithubOwner = owner.String
	row.GithubRepo = repo.String
	row.ProductCategory = category.String
	row.ProductName = product.String
	row.Language = language.String
	row.EvaluationData = evaluation.String
	row.RawCode = code.String
	row.BranchName = branch.String
	row.CommitHistory = history.String
	row.Metadata = metadata.String
	row.ValidationDetails = validation.String
	row.EvaluationDate = evaluationAt.t
	row.RegionTags = []string{}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &row.RegionTags); err != nil {
			return row, fmt.Errorf("failed to decode region_tags: %w", err)
		}
	}
	return row, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// BeginRun implements contract.SampleStore.
func (s *SampleStoreImpl) BeginRun(ctx context.Context, runUUID string, startTime time.Time, configParams map[string]any) (int64, error) {
	if s.disabled() {
		return 0, nil
	}
	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quoted := quoteTableName(schema.RunsTableName, s.backend)
	var runID int64
	switch s.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (run_uuid, start_time, config_params) VALUES ($1, $2, $3) RETURNING run_id`, quoted)
		err = s.db.QueryRowContext(ctx, query, runUUID, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (run_uuid, start_time, config_params) VALUES (?, ?, ?)`, quoted)
		var result sql.Result
		result, err = s.db.ExecContext(ctx, query, runUUID, s.formatTime(startTime), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, &contract.RepositoryError{Op: "begin run", Err: err}
	}
	return runID, nil
}

// EndRun implements contract.SampleStore.
func (s *SampleStoreImpl) EndRun(ctx context.Context, runID int64, endTime time.Time, summary schema.RunSummary) error {
	if s.disabled() || runID == 0 {
		return nil
	}
	totals := summary.Totals()
	query := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, files_processed = %s, files_skipped = %s, files_errored = %s WHERE run_id = %s`,
		quoteTableName(schema.RunsTableName, s.backend),
		bind(s.backend, 1), bind(s.backend, 2), bind(s.backend, 3), bind(s.backend, 4), bind(s.backend, 5), bind(s.backend, 6))

	_, err := s.db.ExecContext(ctx, query,
		s.formatTime(endTime), summary.Duration.Milliseconds(),
		totals.Processed, totals.Skipped, totals.Errored, runID)
	if err != nil {
		return &contract.RepositoryError{Op: "end run", Err: err}
	}
	return nil
}

// ListRuns implements contract.SampleStore.
func (s *SampleStoreImpl) ListRuns(ctx context.Context) ([]schema.RunRecord, error) {
	if s.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT run_id, run_uuid, start_time, end_time, run_duration_ms, files_processed, files_skipped, files_errored, config_params
		FROM %s ORDER BY run_id DESC`, quoteTableName(schema.RunsTableName, s.backend))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &contract.RepositoryError{Op: "list runs", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		var start, end timeDest
		if err := rows.Scan(&record.RunID, &record.RunUUID, &start, &end, &record.RunDurationMs,
			&record.FilesProcessed, &record.FilesSkipped, &record.FilesErrored, &record.ConfigParams); err != nil {
			return nil, &contract.RepositoryError{Op: "list runs", Err: err}
		}
		record.StartTime = start.t
		if end.valid {
			endTime := end.t
			record.EndTime = &endTime
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &contract.RepositoryError{Op: "list runs", Err: err}
	}
	return results, nil
}

// GetStatus implements contract.SampleStore.
func (s *SampleStoreImpl) GetStatus() (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		Table:      s.table,
		TableSizes: make(map[string]int64),
	}
	if s.disabled() {
		return status, nil
	}

	samples := quoteTableName(s.table, s.backend)
	if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*), COUNT(DISTINCT github_link) FROM %s", samples)).
		Scan(&status.TotalSamples, &status.DistinctLinks); err != nil {
		return status, fmt.Errorf("failed to count samples: %w", err)
	}
	if status.TotalSamples > 0 {
		var newest, oldest timeDest
		if err := s.db.QueryRow(fmt.Sprintf("SELECT MAX(evaluation_date), MIN(evaluation_date) FROM %s", samples)).
			Scan(&newest, &oldest); err != nil {
			return status, fmt.Errorf("failed to get evaluation dates: %w", err)
		}
		status.LastEvaluation = newest.t
		status.OldestEvaluation = oldest.t
	}

	runs := quoteTableName(schema.RunsTableName, s.backend)
	if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}
	if status.TotalRuns > 0 {
		var lastRun timeDest
		if err := s.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs)).
			Scan(&status.LastRunID, &lastRun); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		status.LastRunTime = lastRun.t
	}

	status.TableSizes[s.table] = int64(status.TotalSamples)
	status.TableSizes[schema.RunsTableName] = int64(status.TotalRuns)
	return status, nil
}

// Close implements contract.SampleStore.
func (s *SampleStoreImpl) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
