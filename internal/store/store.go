// Package store keeps the user's settings (API keys, database id, resume
// text) in a local SQLite file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/abelaba/job-parser/internal/domain"
)

// Setting keys.
const (
	KeyProviderAPIKey = "provider_api_key"
	KeyDatabaseAPIKey = "database_api_key"
	KeyDatabaseID     = "database_id"
	KeyBaseURL        = "base_url"
	KeyResumeText     = "resume_text"
)

// Keys lists every setting key in display order.
var Keys = []string{KeyProviderAPIKey, KeyDatabaseAPIKey, KeyDatabaseID, KeyBaseURL, KeyResumeText}

// ErrUnknownKey is returned for a key outside Keys.
var ErrUnknownKey = errors.New("unknown setting key")

type Store struct {
	DB *sql.DB

	// Defaults fill keys that were never saved.
	Defaults domain.Settings
}

func New(db *sql.DB, defaults domain.Settings) *Store {
	return &Store{DB: db, Defaults: defaults}
}

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`)
	return err
}

func validKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the stored value for key and whether it was ever saved.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if !validKey(key) {
		return "", false, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	var value string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set saves one value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

// SetMany saves several values in one transaction.
func (s *Store) SetMany(ctx context.Context, values map[string]string) error {
	for k := range values {
		if !validKey(k) {
			return fmt.Errorf("%w: %q", ErrUnknownKey, k)
		}
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for k, v := range values {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			k, v, now,
		)
		if err != nil {
			return fmt.Errorf("write setting %s: %w", k, err)
		}
	}

	committed = true
	return tx.Commit()
}

// Settings implements domain.SettingsSource. Every call reads the table
// again; saved values win over Defaults.
func (s *Store) Settings(ctx context.Context) (domain.Settings, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	defer rows.Close()

	out := s.Defaults
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return domain.Settings{}, fmt.Errorf("scan setting: %w", err)
		}
		switch k {
		case KeyProviderAPIKey:
			out.ProviderAPIKey = v
		case KeyDatabaseAPIKey:
			out.DatabaseAPIKey = v
		case KeyDatabaseID:
			out.DatabaseID = v
		case KeyBaseURL:
			out.BaseURL = v
		case KeyResumeText:
			out.ResumeText = v
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return out, nil
}

// Values flattens settings into key/value pairs.
func Values(st domain.Settings) map[string]string {
	return map[string]string{
		KeyProviderAPIKey: st.ProviderAPIKey,
		KeyDatabaseAPIKey: st.DatabaseAPIKey,
		KeyDatabaseID:     st.DatabaseID,
		KeyBaseURL:        st.BaseURL,
		KeyResumeText:     st.ResumeText,
	}
}
