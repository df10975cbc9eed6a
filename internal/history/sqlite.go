package history

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/site-spider/pkg/fileutil"
	_ "modernc.org/sqlite" // SQLite driver
)

// DBFileName is the database file created inside the history directory.
const DBFileName = "spider-history.db"

// SQLiteStore persists history rows in a SQLite database so that non-GET
// requests are not replayed across runs of the same session.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	closed atomic.Bool
}

// OpenSQLiteStore opens or creates the history database inside dbDir.
func OpenSQLiteStore(ctx context.Context, dbDir string) (*SQLiteStore, error) {
	dbPath, ferr := fileutil.FileInDir(dbDir, DBFileName)
	if ferr != nil {
		return nil, &PersistenceError{Message: dbDir, Cause: ErrCauseOpenFailed, Err: ferr}
	}

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, &PersistenceError{Message: dbPath, Cause: ErrCauseOpenFailed, Err: err}
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, &PersistenceError{Message: "enable WAL", Cause: ErrCauseOpenFailed, Err: err}
	}

	store := &SQLiteStore{db: db, dbPath: dbPath}
	if err := store.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, &PersistenceError{Message: dbPath, Cause: ErrCauseSchemaFailed, Err: err}
	}
	return store, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		kind INTEGER NOT NULL,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		body_hash TEXT NOT NULL DEFAULT '',
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, kind, method, url, body_hash)
	);

	CREATE INDEX IF NOT EXISTS idx_history_lookup ON history(session_id, kind, url);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) ContainsURI(ctx context.Context, sessionID int64, kind Kind, method, url, bodyHash string) (bool, error) {
	if s.closed.Load() {
		return false, &PersistenceError{Message: "contains", Cause: ErrCauseClosed, Retryable: true}
	}

	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM history
		WHERE session_id = ? AND kind = ? AND method = ? AND url = ? AND body_hash = ?
		LIMIT 1`,
		sessionID, int(kind), method, url, bodyHash,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &PersistenceError{Message: url, Cause: ErrCauseQueryFailed, Retryable: true, Err: err}
	}
	return true, nil
}

func (s *SQLiteStore) Record(ctx context.Context, r Record) error {
	if s.closed.Load() {
		return &PersistenceError{Message: "record", Cause: ErrCauseClosed, Retryable: true}
	}

	recordedAt := r.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO history (session_id, kind, method, url, body_hash, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.SessionID, int(r.Kind), r.Method, r.URL, r.BodyHash, recordedAt.UTC(),
	)
	if err != nil {
		return &PersistenceError{Message: r.URL, Cause: ErrCauseWriteFailed, Retryable: true, Err: err}
	}
	return nil
}

// Count returns the number of rows of kind in session.
func (s *SQLiteStore) Count(ctx context.Context, sessionID int64, kind Kind) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM history WHERE session_id = ? AND kind = ?`,
		sessionID, int(kind),
	).Scan(&n)
	if err != nil {
		return 0, &PersistenceError{Message: "count", Cause: ErrCauseQueryFailed, Retryable: true, Err: err}
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
