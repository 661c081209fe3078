// Package sqlite implements the repository interfaces on SQLite through
// database/sql and the pure-Go modernc.org/sqlite driver.
//
// Every statement in this package binds its values with `?` placeholders.
// The only text spliced into SQL is fixed column names, fixed ORDER BY
// expressions, and runs of placeholders.
//
// The schema lives in migrations/*.sql, embedded into the binary and
// applied by goose on every New.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/repository"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

// querier is the subset of *sql.DB and *sql.Tx the repositories use, so
// the same code runs inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB owns the connection pool and implements repository.Store.
//
// A DB returned by New talks to the pool directly. The DB handed to a
// WithTx callback shares the pool but routes every statement through
// the open transaction.
type DB struct {
	conn   *sql.DB
	q      querier
	tx     *sql.Tx
	logger *slog.Logger
}

var _ repository.Store = (*DB)(nil)

// New opens (or creates) the database at dbPath and migrates it to the
// latest schema.
//
//   - "data/marketplace.db" → file database in WAL mode
//   - MemoryPath            → in-memory database, lost on Close
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to ":memory:" is a separate database, so the pool
	// must never grow past one.
	if dbPath == MemoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, q: conn, logger: logger}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn adds the per-connection pragmas. They go in the DSN rather than a
// one-off Exec so every pooled connection gets them.
func dsn(dbPath string) string {
	v := url.Values{}
	v.Add("_pragma", "foreign_keys(1)")
	v.Add("_pragma", "busy_timeout(5000)")
	v.Set("_time_format", "sqlite")
	if dbPath != MemoryPath {
		v.Add("_pragma", "journal_mode(WAL)")
		// Write transactions take the lock at BEGIN, so two requests can't
		// both pass a uniqueness check and then race on the insert.
		v.Set("_txlock", "immediate")
	}
	return dbPath + "?" + v.Encode()
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{db.logger})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db.conn, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// gooseLogger sends goose's progress lines to slog at debug level.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
}

func (db *DB) Users() repository.UserRepository     { return &UserDB{q: db.q} }
func (db *DB) Games() repository.GameRepository     { return &GameDB{q: db.q} }
func (db *DB) Actions() repository.ActionRepository { return &ActionDB{q: db.q} }
func (db *DB) Reviews() repository.ReviewRepository { return &ReviewDB{q: db.q} }

// WithTx runs fn inside a transaction. A DB that is already inside one
// passes itself straight through.
func (db *DB) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if db.tx != nil {
		return fn(db)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&DB{conn: db.conn, q: tx, tx: tx, logger: db.logger}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// placeholders returns "?, ?, ?" for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// int64Args converts ids into query arguments.
func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// requireAffected turns an UPDATE/DELETE that touched nothing into a
// NotFound for the given resource.
func requireAffected(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, fmt.Sprint(id))
	}
	return nil
}
