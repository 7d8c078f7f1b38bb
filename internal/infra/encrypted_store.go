package infra

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const (
	storeDBName   = "browserguard.db"
	daemonRowName = "daemon"
)

// EncryptedStore implements domain.SecretStore and domain.DaemonRegistry
// on a SQLCipher encrypted SQLite database.
type EncryptedStore struct {
	db     *sql.DB
	dbPath string
}

// OpenEncryptedStore opens the store in dataDir, creating its key on first use.
func OpenEncryptedStore(dataDir string) (*EncryptedStore, error) {
	key, err := NewFileKeyProvider(dataDir).Ensure()
	if err != nil {
		return nil, err
	}
	return NewEncryptedStore(dataDir, key)
}

// NewEncryptedStore opens (or creates) the encrypted database with key as
// the SQLCipher passphrase.
func NewEncryptedStore(dataDir string, key []byte) (*EncryptedStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, storeDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// A wrong key only surfaces on first read.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &EncryptedStore{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *EncryptedStore) createTables() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS secrets (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daemon_state (
		name TEXT PRIMARY KEY,
		pid INTEGER NOT NULL,
		debug_port INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		app_version TEXT DEFAULT ''
	);
	`)
	return err
}

// Path returns the database file path.
func (s *EncryptedStore) Path() string {
	return s.dbPath
}

// --- domain.SecretStore implementation ---

// GetSecret retrieves a secret by key.
func (s *EncryptedStore) GetSecret(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM secrets WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", domain.ErrSecretNotFound, key)
	}
	return value, err
}

// SetSecret stores a secret, replacing any previous value.
func (s *EncryptedStore) SetSecret(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO secrets (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now().Unix())
	return err
}

// --- domain.DaemonRegistry implementation ---

// RecordDaemon saves the running daemon so CLI commands can find it.
func (s *EncryptedStore) RecordDaemon(rec domain.DaemonRecord) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO daemon_state (name, pid, debug_port, started_at, app_version)
		VALUES (?, ?, ?, ?, ?)`,
		daemonRowName, rec.PID, rec.DebugPort, rec.StartedAt.Unix(), rec.AppVersion,
	)
	return err
}

// GetDaemon returns the recorded daemon, or ErrDaemonNotRecorded.
func (s *EncryptedStore) GetDaemon() (*domain.DaemonRecord, error) {
	var rec domain.DaemonRecord
	var started int64
	err := s.db.QueryRow(`SELECT pid, debug_port, started_at, app_version FROM daemon_state WHERE name = ?`,
		daemonRowName).Scan(&rec.PID, &rec.DebugPort, &started, &rec.AppVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDaemonNotRecorded
	}
	if err != nil {
		return nil, err
	}
	rec.StartedAt = time.Unix(started, 0)
	return &rec, nil
}

// ClearDaemon forgets the recorded daemon.
func (s *EncryptedStore) ClearDaemon() error {
	_, err := s.db.Exec(`DELETE FROM daemon_state WHERE name = ?`, daemonRowName)
	return err
}

// Close releases the database connection.
func (s *EncryptedStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure EncryptedStore implements both interfaces.
var (
	_ domain.SecretStore    = (*EncryptedStore)(nil)
	_ domain.DaemonRegistry = (*EncryptedStore)(nil)
)
