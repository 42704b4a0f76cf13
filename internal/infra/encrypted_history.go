package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const historyDBName = "history.db"

// EncryptedHistory implements domain.HistoryStore using a SQLCipher
// encrypted SQLite database.
type EncryptedHistory struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedHistory opens (or creates) the history database in dataDir.
// The key is used as the SQLCipher passphrase.
func NewEncryptedHistory(dataDir string, key []byte) (*EncryptedHistory, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, historyDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// A wrong key only surfaces on first access.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	h := &EncryptedHistory{db: db, dbPath: dbPath}
	if err := h.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

func (h *EncryptedHistory) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		run_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		roots INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		timed_out INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		abandoned INTEGER NOT NULL,
		not_started INTEGER NOT NULL,
		global_timeout INTEGER NOT NULL,
		found INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS scans_started_at ON scans (started_at);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Append records one scan summary. Re-appending a run ID replaces it.
func (h *EncryptedHistory) Append(s domain.ScanSummary) error {
	_, err := h.db.Exec(`
		INSERT OR REPLACE INTO scans
			(run_id, kind, roots, completed, timed_out, failed, abandoned, not_started, global_timeout, found, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.RunID, string(s.Kind), s.Roots, s.Completed, s.TimedOut, s.Failed, s.Abandoned, s.NotStarted,
		boolToInt(s.GlobalTimeout), s.Found, s.StartedAt.UnixNano(), s.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record scan %s: %w", s.RunID, err)
	}
	return nil
}

// Recent returns up to limit summaries, newest first. limit <= 0 returns all.
func (h *EncryptedHistory) Recent(limit int) ([]domain.ScanSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := h.db.Query(`
		SELECT run_id, kind, roots, completed, timed_out, failed, abandoned, not_started, global_timeout, found, started_at, duration_ms
		FROM scans ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScanSummary
	for rows.Next() {
		var (
			s             domain.ScanSummary
			kind          string
			globalTimeout int
			startedAt     int64
			durationMs    int64
		)
		if err := rows.Scan(&s.RunID, &kind, &s.Roots, &s.Completed, &s.TimedOut, &s.Failed,
			&s.Abandoned, &s.NotStarted, &globalTimeout, &s.Found, &startedAt, &durationMs); err != nil {
			return nil, err
		}
		s.Kind = domain.SearchKind(kind)
		s.GlobalTimeout = globalTimeout != 0
		s.StartedAt = time.Unix(0, startedAt)
		s.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

// Path returns the database file path.
func (h *EncryptedHistory) Path() string {
	return h.dbPath
}

// Close releases the database connection.
func (h *EncryptedHistory) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure EncryptedHistory implements domain.HistoryStore.
var _ domain.HistoryStore = (*EncryptedHistory)(nil)
