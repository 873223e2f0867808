package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os/user"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ridoystarlord/bookingsdb/config"
	"github.com/ridoystarlord/bookingsdb/database"
	"github.com/ridoystarlord/bookingsdb/generator"
	"github.com/ridoystarlord/bookingsdb/migrations"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ErrFailedMigrations is returned by Apply while failed records exist.
var ErrFailedMigrations = errors.New("failed migrations detected")

// MigrationRecord represents a migration execution record
type MigrationRecord struct {
	ID             int
	MigrationName  string
	ExecutedAt     time.Time
	ExecutionTime  time.Duration
	ExecutedBy     string
	Status         string
	ErrorMessage   string
	Checksum       string
	TablesAffected string
}

// MigrationLog represents a migration log entry
type MigrationLog struct {
	ID            int
	RunID         string
	Timestamp     time.Time
	Level         string
	Message       string
	User          string
	Details       string
	MigrationName string
}

// Runner applies and reverts registered migrations against one database,
// recording each outcome in the tracking tables.
type Runner struct {
	db         *sql.DB
	cfg        *config.Config
	logger     *zap.Logger
	migrations []migrations.Migration
	runID      string
	user       string
}

type Option func(*Runner)

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMigrations replaces the default registry contents.
func WithMigrations(ms []migrations.Migration) Option {
	return func(r *Runner) {
		sorted := append([]migrations.Migration(nil), ms...)
		migrations.Sort(sorted)
		r.migrations = sorted
	}
}

func WithUser(name string) Option {
	return func(r *Runner) { r.user = name }
}

func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

func New(db *sql.DB, cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		db:         db,
		cfg:        cfg,
		logger:     zap.NewNop(),
		migrations: migrations.All(),
		runID:      uuid.NewString(),
		user:       currentUser(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("run_id", r.runID))
	return r
}

func (r *Runner) RunID() string { return r.runID }

// DB returns the pool the runner works on.
func (r *Runner) DB() *sql.DB { return r.db }

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

func (r *Runner) migrationsTable() string { return generator.QuoteIdent(r.cfg.MigrationsTable) }
func (r *Runner) logsTable() string       { return generator.QuoteIdent(r.cfg.LogsTable) }

func (r *Runner) find(name string) (migrations.Migration, bool) {
	for _, m := range r.migrations {
		if m.FullName() == name || m.ID == name {
			return m, true
		}
	}
	return migrations.Migration{}, false
}

// session runs fn on a dedicated connection holding the advisory lock, after
// making sure the tracking tables exist.
func (r *Runner) session(ctx context.Context, fn func(conn *sql.Conn) error) (err error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	r.logger.Debug("acquiring migration lock", zap.Int64("lock_id", r.cfg.LockID))
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, r.cfg.LockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		// the caller's ctx may already be cancelled; the lock must still go
		if _, uerr := conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, r.cfg.LockID); uerr != nil {
			r.logger.Warn("release migration lock", zap.Error(uerr))
			if err == nil {
				err = fmt.Errorf("release migration lock: %w", uerr)
			}
		}
	}()

	if err := r.ensureTables(ctx, conn); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}
	return fn(conn)
}

func (r *Runner) ensureTables(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		applied_at TIMESTAMP DEFAULT now(),
		execution_ms BIGINT,
		executed_by TEXT,
		status TEXT DEFAULT 'success',
		error_message TEXT,
		checksum TEXT,
		tables_affected TEXT
	)`, r.migrationsTable()))
	if err != nil {
		return fmt.Errorf("failed to create %s table: %w", r.cfg.MigrationsTable, err)
	}

	_, err = conn.ExecContext(ctx, fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id SERIAL PRIMARY KEY,
		run_id TEXT,
		timestamp TIMESTAMP DEFAULT now(),
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		user_name TEXT,
		details TEXT,
		migration_name TEXT
	)`, r.logsTable()))
	if err != nil {
		return fmt.Errorf("failed to create %s table: %w", r.cfg.LogsTable, err)
	}
	r.logger.Debug("tracking tables ensured",
		zap.String("migrations_table", r.cfg.MigrationsTable),
		zap.String("logs_table", r.cfg.LogsTable))
	return nil
}

// logActivity writes an audit row. Failures are logged, not returned.
func (r *Runner) logActivity(ctx context.Context, ex migrations.Executor, level, message, migrationName, details string) {
	_, err := ex.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (run_id, level, message, user_name, migration_name, details)
		VALUES ($1, $2, $3, $4, $5, $6)`, r.logsTable()),
		r.runID, level, message, r.user, migrationName, details)
	if err != nil {
		r.logger.Warn("write migration log", zap.String("migration", migrationName), zap.Error(err))
	}
}

// appliedChecksums maps each successfully applied migration to its recorded checksum.
func (r *Runner) appliedChecksums(ctx context.Context, conn *sql.Conn) (map[string]string, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT name, COALESCE(checksum, '') FROM %s WHERE status = 'success'`, r.migrationsTable()))
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := map[string]string{}
	for rows.Next() {
		var name, sum string
		if err := rows.Scan(&name, &sum); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[name] = sum
	}
	return applied, rows.Err()
}

func (r *Runner) appliedNewestFirst(ctx context.Context, conn *sql.Conn) ([]string, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT name FROM %s WHERE status = 'success' ORDER BY id DESC`, r.migrationsTable()))
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied = append(applied, name)
	}
	return applied, rows.Err()
}

func (r *Runner) failedRecords(ctx context.Context, conn *sql.Conn) ([]MigrationRecord, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT name, COALESCE(error_message, '') FROM %s WHERE status = 'failed'`, r.migrationsTable()))
	if err != nil {
		return nil, fmt.Errorf("query failed migrations: %w", err)
	}
	defer rows.Close()

	var failed []MigrationRecord
	for rows.Next() {
		record := MigrationRecord{Status: StatusFailed}
		if err := rows.Scan(&record.MigrationName, &record.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan failed migration: %w", err)
		}
		failed = append(failed, record)
	}
	return failed, rows.Err()
}

func (r *Runner) pending(applied map[string]string) []migrations.Migration {
	var pending []migrations.Migration
	for _, m := range r.migrations {
		if _, ok := applied[m.FullName()]; !ok {
			pending = append(pending, m)
		}
	}
	return pending
}

// inUnit runs fn inside a transaction when the runner is configured for it,
// otherwise directly on conn.
func (r *Runner) inUnit(ctx context.Context, conn *sql.Conn, fn func(ex migrations.Executor) error) error {
	if !r.cfg.InTransaction() {
		return fn(conn)
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			r.logger.Warn("rollback transaction", zap.Error(rerr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Runner) applyMigration(ctx context.Context, conn *sql.Conn, m migrations.Migration) error {
	name := m.FullName()
	checksum, err := m.Checksum()
	if err != nil {
		return fmt.Errorf("render migration %s: %w", name, err)
	}
	tables := strings.Join(m.Tables(), ",")

	r.logActivity(ctx, conn, "INFO", fmt.Sprintf("Starting migration: %s", name), name, "Migration execution started")
	r.logger.Info("applying migration", zap.String("migration", name))

	start := time.Now()
	var executionTime time.Duration
	var applyErr error
	err = r.inUnit(ctx, conn, func(ex migrations.Executor) error {
		if applyErr = m.Apply(ctx, ex); applyErr != nil {
			return applyErr
		}
		executionTime = time.Since(start)
		_, err := ex.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (name, execution_ms, executed_by, status, checksum, tables_affected)
			VALUES ($1, $2, $3, $4, $5, $6)`, r.migrationsTable()),
			name, executionTime.Milliseconds(), r.user, StatusSuccess, checksum, tables)
		if err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		return nil
	})
	if err == nil {
		r.logActivity(ctx, conn, "SUCCESS", fmt.Sprintf("Migration completed: %s", name), name, fmt.Sprintf("Execution time: %v", executionTime))
		r.logger.Info("migration applied", zap.String("migration", name), zap.Duration("duration", executionTime))
		return nil
	}
	if applyErr == nil {
		return err
	}

	executionTime = time.Since(start)
	r.logActivity(ctx, conn, "ERROR", fmt.Sprintf("Migration failed: %s", name), name, err.Error())
	r.logger.Error("migration failed", zap.String("migration", name), zap.Error(err))

	_, insertErr := conn.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (name, execution_ms, executed_by, status, error_message, checksum, tables_affected)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, r.migrationsTable()),
		name, executionTime.Milliseconds(), r.user, StatusFailed, err.Error(), checksum, tables)
	if insertErr != nil {
		return fmt.Errorf("recording failed migration %s: %v (migration error: %w)", name, insertErr, err)
	}
	return fmt.Errorf("executing migration %s: %w", name, err)
}

func (r *Runner) rollbackMigration(ctx context.Context, conn *sql.Conn, m migrations.Migration) error {
	name := m.FullName()
	r.logActivity(ctx, conn, "INFO", fmt.Sprintf("Starting rollback: %s", name), name, "Rollback execution started")
	r.logger.Info("reverting migration", zap.String("migration", name))

	start := time.Now()
	err := r.inUnit(ctx, conn, func(ex migrations.Executor) error {
		if err := m.Revert(ctx, ex); err != nil {
			return err
		}
		if _, err := ex.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE name = $1`, r.migrationsTable()), name); err != nil {
			return fmt.Errorf("removing migration record for %s: %w", name, err)
		}
		return nil
	})
	executionTime := time.Since(start)
	if err != nil {
		r.logActivity(ctx, conn, "ERROR", fmt.Sprintf("Rollback failed: %s", name), name, err.Error())
		r.logger.Error("rollback failed", zap.String("migration", name), zap.Error(err))
		return fmt.Errorf("executing rollback for %s: %w", name, err)
	}

	r.logActivity(ctx, conn, "SUCCESS", fmt.Sprintf("Rollback completed: %s", name), name, fmt.Sprintf("Execution time: %v", executionTime))
	r.logger.Info("migration reverted", zap.String("migration", name), zap.Duration("duration", executionTime))
	return nil
}

// Apply runs every pending migration in ID order and returns the names it
// applied. It stops at the first failure.
func (r *Runner) Apply(ctx context.Context) ([]string, error) {
	var done []string
	err := r.session(ctx, func(conn *sql.Conn) error {
		failed, err := r.failedRecords(ctx, conn)
		if err != nil {
			return fmt.Errorf("check failed migrations: %w", err)
		}
		if len(failed) > 0 {
			names := make([]string, 0, len(failed))
			for _, f := range failed {
				names = append(names, f.MigrationName)
			}
			return fmt.Errorf("%w: %s", ErrFailedMigrations, strings.Join(names, ", "))
		}

		applied, err := r.appliedChecksums(ctx, conn)
		if err != nil {
			return err
		}

		pending := r.pending(applied)
		if len(pending) == 0 {
			r.logger.Info("no pending migrations")
			return nil
		}

		r.logger.Info("applying migrations", zap.Int("count", len(pending)))
		for _, m := range pending {
			if err := r.applyMigration(ctx, conn, m); err != nil {
				return err
			}
			done = append(done, m.FullName())
		}
		return nil
	})
	return done, err
}

// Rollback reverts up to steps of the most recently applied migrations,
// newest first, and returns the names it reverted.
func (r *Runner) Rollback(ctx context.Context, steps int) ([]string, error) {
	if steps < 1 {
		return nil, fmt.Errorf("steps must be at least 1, got %d", steps)
	}

	var done []string
	err := r.session(ctx, func(conn *sql.Conn) error {
		applied, err := r.appliedNewestFirst(ctx, conn)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			r.logger.Info("no migrations to rollback")
			return nil
		}
		if steps > len(applied) {
			r.logger.Warn("fewer migrations applied than requested steps",
				zap.Int("steps", steps), zap.Int("applied", len(applied)))
			steps = len(applied)
		}

		for _, name := range applied[:steps] {
			m, ok := r.find(name)
			if !ok {
				return fmt.Errorf("applied migration %s is not registered in this build", name)
			}
			if err := r.rollbackMigration(ctx, conn, m); err != nil {
				return err
			}
			done = append(done, name)
		}
		return nil
	})
	return done, err
}

// StatusReport is the state of the registry against the tracking table.
type StatusReport struct {
	Applied []string
	Pending []string
	Failed  []MigrationRecord
	// Drifted lists applied migrations whose registered SQL no longer matches
	// the checksum recorded when they ran.
	Drifted []string
	// Unknown lists applied migrations that this build does not register.
	Unknown []string
}

func (r *Runner) Status(ctx context.Context) (*StatusReport, error) {
	report := &StatusReport{}
	err := r.session(ctx, func(conn *sql.Conn) error {
		applied, err := r.appliedChecksums(ctx, conn)
		if err != nil {
			return err
		}
		for _, m := range r.migrations {
			name := m.FullName()
			recorded, ok := applied[name]
			if !ok {
				report.Pending = append(report.Pending, name)
				continue
			}
			report.Applied = append(report.Applied, name)
			sum, err := m.Checksum()
			if err != nil {
				return fmt.Errorf("render migration %s: %w", name, err)
			}
			if recorded != "" && recorded != sum {
				report.Drifted = append(report.Drifted, name)
			}
		}
		for name := range applied {
			if _, ok := r.find(name); !ok {
				report.Unknown = append(report.Unknown, name)
			}
		}
		sort.Strings(report.Unknown)

		report.Failed, err = r.failedRecords(ctx, conn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Resolve deletes the failed record of a migration so Apply can retry it.
func (r *Runner) Resolve(ctx context.Context, key string) error {
	name := key
	if m, ok := r.find(key); ok {
		name = m.FullName()
	}
	return r.session(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, fmt.Sprintf(
			`DELETE FROM %s WHERE name = $1 AND status = 'failed'`, r.migrationsTable()), name)
		if err != nil {
			return fmt.Errorf("clear failed migration %s: %w", name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("clear failed migration %s: %w", name, err)
		}
		if n == 0 {
			return fmt.Errorf("no failed record for %s", name)
		}
		r.logActivity(ctx, conn, "WARN", fmt.Sprintf("Failed record cleared: %s", name), name, "Resolved by operator")
		return nil
	})
}

// History retrieves migration history, newest first, optionally filtered by
// table name. It reads without taking the migration lock; a database that was
// never migrated has no history.
func (r *Runner) History(ctx context.Context, limit int, tableFilter string) ([]MigrationRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, name, applied_at, COALESCE(execution_ms, 0), COALESCE(executed_by, ''),
		       status, COALESCE(error_message, ''), COALESCE(checksum, ''), COALESCE(tables_affected, '')
		FROM %s`, r.migrationsTable())

	var args []any
	if tableFilter != "" {
		args = append(args, "%"+tableFilter+"%")
		query += fmt.Sprintf(" WHERE tables_affected ILIKE $%d", len(args))
	}
	query += " ORDER BY applied_at DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if database.IsUndefinedTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query migration history: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var record MigrationRecord
		var ms int64
		if err := rows.Scan(
			&record.ID,
			&record.MigrationName,
			&record.ExecutedAt,
			&ms,
			&record.ExecutedBy,
			&record.Status,
			&record.ErrorMessage,
			&record.Checksum,
			&record.TablesAffected,
		); err != nil {
			return nil, fmt.Errorf("scan migration record: %w", err)
		}
		record.ExecutionTime = time.Duration(ms) * time.Millisecond
		records = append(records, record)
	}
	return records, rows.Err()
}

// Logs retrieves migration log entries, newest first. A non-empty runID
// restricts them to that run.
func (r *Runner) Logs(ctx context.Context, limit int, runID string) ([]MigrationLog, error) {
	query := fmt.Sprintf(`
		SELECT id, COALESCE(run_id, ''), timestamp, level, message,
		       COALESCE(user_name, ''), COALESCE(details, ''), COALESCE(migration_name, '')
		FROM %s`, r.logsTable())

	var args []any
	if runID != "" {
		args = append(args, runID)
		query += fmt.Sprintf(" WHERE run_id = $%d", len(args))
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if database.IsUndefinedTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query migration logs: %w", err)
	}
	defer rows.Close()

	var logs []MigrationLog
	for rows.Next() {
		var l MigrationLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message, &l.User, &l.Details, &l.MigrationName); err != nil {
			return nil, fmt.Errorf("scan migration log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Preview writes the SQL of all pending migrations to w without applying them.
func (r *Runner) Preview(ctx context.Context, w io.Writer) error {
	return r.session(ctx, func(conn *sql.Conn) error {
		applied, err := r.appliedChecksums(ctx, conn)
		if err != nil {
			return err
		}
		return WritePlan(w, r.pending(applied))
	})
}

// WritePlan renders the up and down SQL of ms.
func WritePlan(w io.Writer, ms []migrations.Migration) error {
	if len(ms) == 0 {
		_, err := fmt.Fprintln(w, "✅ No pending migrations.")
		return err
	}

	fmt.Fprintln(w, "================ DRY RUN: Migration Preview ================")
	for _, m := range ms {
		up, err := m.Statements(migrations.Up)
		if err != nil {
			return fmt.Errorf("render migration %s: %w", m.FullName(), err)
		}
		down, err := m.Statements(migrations.Down)
		if err != nil {
			return fmt.Errorf("render migration %s: %w", m.FullName(), err)
		}
		fmt.Fprintf(w, "\n-- Migration: %s --\n", m.FullName())
		fmt.Fprintln(w, "-- Up Migration SQL --")
		for _, stmt := range up {
			fmt.Fprintln(w, stmt+";")
		}
		fmt.Fprintln(w, "\n-- Down Migration (Rollback) SQL --")
		for _, stmt := range down {
			fmt.Fprintln(w, stmt+";")
		}
	}
	fmt.Fprintln(w, "============================================================")
	_, err := fmt.Fprintln(w, "(Dry run only. No migrations were applied.)")
	return err
}
