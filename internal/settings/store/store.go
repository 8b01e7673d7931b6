// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     store
// Description: SQLite-backed single-row store for runtime user settings
// ============================================================================

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nexus-finance/platform/pkg/core/logging"
)

// Settings is the single persisted settings row
type Settings struct {
	GeminiKeyEnc         string   `json:"gemini_api_key_enc"`
	OpenAIKeyEnc         string   `json:"openai_api_key_enc"`
	GeminiScopes         []string `json:"gemini_scopes"`
	OpenAIScopes         []string `json:"openai_scopes"`
	APIKeyVersion        int      `json:"api_key_version"`
	LastSecretRotationAt string   `json:"last_secret_rotation_at"`
	KeyRotationCount     int      `json:"key_rotation_count"`
	AutoBalance          bool     `json:"auto_balance"`
	Notifications        bool     `json:"notifications"`
	RiskTolerance        string   `json:"risk_tolerance"`
	AIProvider           string   `json:"ai_provider"`
	AIModel              string   `json:"ai_model"`
	WatchSymbols         []string `json:"watch_symbols"`
	UpdatedAt            string   `json:"updated_at"`
}

// Update carries a partial settings change. Nil fields are left untouched.
type Update struct {
	GeminiKeyEnc         *string
	OpenAIKeyEnc         *string
	GeminiScopes         []string
	OpenAIScopes         []string
	APIKeyVersion        *int
	LastSecretRotationAt *string
	KeyRotationCount     *int
	AutoBalance          *bool
	Notifications        *bool
	RiskTolerance        *string
	AIProvider           *string
	AIModel              *string
	WatchSymbols         []string
}

// defaultSettings mirrors the schema column defaults
func defaultSettings() Settings {
	return Settings{
		GeminiScopes:  []string{"chat", "advisor_analysis"},
		OpenAIScopes:  []string{"chat"},
		APIKeyVersion: 1,
		AutoBalance:   true,
		Notifications: true,
		RiskTolerance: "moderate",
		AIProvider:    "auto",
		AIModel:       "gemini-2.0-flash",
		WatchSymbols:  []string{"AAPL", "BTC", "VNM"},
	}
}

// Store persists the settings row in SQLite
type Store struct {
	db     *sql.DB
	path   string
	logger *logging.Logger
}

// Open creates the database file (and parent directories) and prepares
// the schema
func Open(databasePath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(databasePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", databasePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite handles one writer at a time
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		path:   databasePath,
		logger: logging.New("settings-store"),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle for health checks
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file location
func (s *Store) Path() string { return s.path }

// Close releases the database handle
func (s *Store) Close() error { return s.db.Close() }

// initialize creates the table, applies additive column migrations, and
// seeds the single row
func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS app_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			gemini_api_key_enc TEXT NOT NULL DEFAULT '',
			openai_api_key_enc TEXT NOT NULL DEFAULT '',
			gemini_scopes TEXT NOT NULL DEFAULT '["chat","advisor_analysis"]',
			openai_scopes TEXT NOT NULL DEFAULT '["chat"]',
			api_key_version INTEGER NOT NULL DEFAULT 1,
			last_secret_rotation_at TEXT NOT NULL DEFAULT '',
			key_rotation_count INTEGER NOT NULL DEFAULT 0,
			auto_balance INTEGER NOT NULL DEFAULT 1,
			notifications INTEGER NOT NULL DEFAULT 1,
			risk_tolerance TEXT NOT NULL DEFAULT 'moderate',
			ai_provider TEXT NOT NULL DEFAULT 'auto',
			ai_model TEXT NOT NULL DEFAULT 'gemini-2.0-flash',
			watch_symbols TEXT NOT NULL DEFAULT '["AAPL","BTC","VNM"]',
			updated_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}

	if err := s.migrate(); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.Exec(`
		INSERT INTO app_settings (
			id, gemini_api_key_enc, openai_api_key_enc,
			gemini_scopes, openai_scopes,
			api_key_version, last_secret_rotation_at, key_rotation_count,
			auto_balance, notifications, risk_tolerance,
			ai_provider, ai_model, watch_symbols, updated_at
		) VALUES (
			1, '', '',
			'["chat","advisor_analysis"]', '["chat"]',
			1, '', 0,
			1, 1, 'moderate',
			'auto', 'gemini-2.0-flash', '["AAPL","BTC","VNM"]', ?
		)
		ON CONFLICT(id) DO NOTHING`, now)
	if err != nil {
		return fmt.Errorf("failed to seed settings row: %w", err)
	}
	return nil
}

// migrate adds columns introduced after the initial schema. Rows written
// by older versions keep their data.
func (s *Store) migrate() error {
	rows, err := s.db.Query(`PRAGMA table_info(app_settings)`)
	if err != nil {
		return fmt.Errorf("failed to inspect settings schema: %w", err)
	}
	defer rows.Close()

	existing := map[string]bool{}
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return err
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	migrations := []struct {
		column string
		ddl    string
	}{
		{"openai_api_key_enc", `ALTER TABLE app_settings ADD COLUMN openai_api_key_enc TEXT NOT NULL DEFAULT ''`},
		{"ai_provider", `ALTER TABLE app_settings ADD COLUMN ai_provider TEXT NOT NULL DEFAULT 'auto'`},
		{"ai_model", `ALTER TABLE app_settings ADD COLUMN ai_model TEXT NOT NULL DEFAULT 'gemini-2.0-flash'`},
		{"gemini_scopes", `ALTER TABLE app_settings ADD COLUMN gemini_scopes TEXT NOT NULL DEFAULT '["chat","advisor_analysis"]'`},
		{"openai_scopes", `ALTER TABLE app_settings ADD COLUMN openai_scopes TEXT NOT NULL DEFAULT '["chat"]'`},
		{"api_key_version", `ALTER TABLE app_settings ADD COLUMN api_key_version INTEGER NOT NULL DEFAULT 1`},
		{"last_secret_rotation_at", `ALTER TABLE app_settings ADD COLUMN last_secret_rotation_at TEXT NOT NULL DEFAULT ''`},
		{"key_rotation_count", `ALTER TABLE app_settings ADD COLUMN key_rotation_count INTEGER NOT NULL DEFAULT 0`},
	}
	for _, m := range migrations {
		if existing[m.column] {
			continue
		}
		if _, err := s.db.Exec(m.ddl); err != nil {
			return fmt.Errorf("migration for %s failed: %w", m.column, err)
		}
		s.logger.Info("Applied settings migration", "column", m.column)
	}
	return nil
}

// Get reads the settings row. A missing row yields defaults.
func (s *Store) Get() (Settings, error) {
	row := s.db.QueryRow(`
		SELECT gemini_api_key_enc, openai_api_key_enc,
		       gemini_scopes, openai_scopes,
		       api_key_version, last_secret_rotation_at, key_rotation_count,
		       auto_balance, notifications, risk_tolerance,
		       ai_provider, ai_model, watch_symbols, updated_at
		FROM app_settings WHERE id = 1`)

	var (
		out          Settings
		geminiScopes string
		openaiScopes string
		watchSymbols string
		autoBalance  int
		notify       int
	)
	err := row.Scan(
		&out.GeminiKeyEnc, &out.OpenAIKeyEnc,
		&geminiScopes, &openaiScopes,
		&out.APIKeyVersion, &out.LastSecretRotationAt, &out.KeyRotationCount,
		&autoBalance, &notify, &out.RiskTolerance,
		&out.AIProvider, &out.AIModel, &watchSymbols, &out.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return defaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	defaults := defaultSettings()
	out.AutoBalance = autoBalance != 0
	out.Notifications = notify != 0
	out.GeminiScopes = decodeStringList(geminiScopes, defaults.GeminiScopes)
	out.OpenAIScopes = decodeStringList(openaiScopes, defaults.OpenAIScopes)
	out.WatchSymbols = decodeStringList(watchSymbols, defaults.WatchSymbols)
	if out.AIProvider != "auto" && out.AIProvider != "gemini" && out.AIProvider != "openai" {
		out.AIProvider = "auto"
	}
	return out, nil
}

// Apply merges a partial update into the row and returns the new state
func (s *Store) Apply(u Update) (Settings, error) {
	current, err := s.Get()
	if err != nil {
		return Settings{}, err
	}

	merged := current
	if u.GeminiKeyEnc != nil {
		merged.GeminiKeyEnc = *u.GeminiKeyEnc
	}
	if u.OpenAIKeyEnc != nil {
		merged.OpenAIKeyEnc = *u.OpenAIKeyEnc
	}
	if u.GeminiScopes != nil {
		merged.GeminiScopes = u.GeminiScopes
	}
	if u.OpenAIScopes != nil {
		merged.OpenAIScopes = u.OpenAIScopes
	}
	if u.APIKeyVersion != nil {
		merged.APIKeyVersion = *u.APIKeyVersion
	}
	if u.LastSecretRotationAt != nil {
		merged.LastSecretRotationAt = *u.LastSecretRotationAt
	}
	if u.KeyRotationCount != nil {
		merged.KeyRotationCount = *u.KeyRotationCount
	}
	if u.AutoBalance != nil {
		merged.AutoBalance = *u.AutoBalance
	}
	if u.Notifications != nil {
		merged.Notifications = *u.Notifications
	}
	if u.RiskTolerance != nil {
		merged.RiskTolerance = *u.RiskTolerance
	}
	if u.AIProvider != nil {
		provider := *u.AIProvider
		if provider != "auto" && provider != "gemini" && provider != "openai" {
			provider = "auto"
		}
		merged.AIProvider = provider
	}
	if u.AIModel != nil {
		merged.AIModel = *u.AIModel
	}
	if u.WatchSymbols != nil {
		merged.WatchSymbols = u.WatchSymbols
	}
	merged.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.Exec(`
		UPDATE app_settings
		SET gemini_api_key_enc = ?, openai_api_key_enc = ?,
		    gemini_scopes = ?, openai_scopes = ?,
		    api_key_version = ?, last_secret_rotation_at = ?, key_rotation_count = ?,
		    auto_balance = ?, notifications = ?, risk_tolerance = ?,
		    ai_provider = ?, ai_model = ?, watch_symbols = ?, updated_at = ?
		WHERE id = 1`,
		merged.GeminiKeyEnc, merged.OpenAIKeyEnc,
		encodeStringList(merged.GeminiScopes), encodeStringList(merged.OpenAIScopes),
		merged.APIKeyVersion, merged.LastSecretRotationAt, merged.KeyRotationCount,
		boolToInt(merged.AutoBalance), boolToInt(merged.Notifications), merged.RiskTolerance,
		merged.AIProvider, merged.AIModel, encodeStringList(merged.WatchSymbols), merged.UpdatedAt,
	)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to update settings: %w", err)
	}
	return merged, nil
}

func decodeStringList(raw string, fallback []string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return fallback
	}
	return out
}

func encodeStringList(list []string) string {
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
