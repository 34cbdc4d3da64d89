package store

import (
	"database/sql"
	"errors"
	"time"
)

// Setting is a persisted key/value tunable.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingsRepository provides CRUD operations for settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns a setting by key.
func (r *SettingsRepository) Get(key string) (*Setting, error) {
	st := &Setting{}
	err := r.db.QueryRow(
		`SELECT key, value, updated_at FROM settings WHERE key = ?`,
		key,
	).Scan(&st.Key, &st.Value, &st.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return st, nil
}

// Set inserts or replaces a setting.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	return err
}

// List returns all settings ordered by key.
func (r *SettingsRepository) List() ([]*Setting, error) {
	rows, err := r.db.Query(`SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []*Setting
	for rows.Next() {
		st := &Setting{}
		if err := rows.Scan(&st.Key, &st.Value, &st.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, st)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Map returns all settings as a key/value map.
func (r *SettingsRepository) Map() (map[string]string, error) {
	settings, err := r.List()
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(settings))
	for _, st := range settings {
		m[st.Key] = st.Value
	}
	return m, nil
}

// Delete removes a setting by key.
func (r *SettingsRepository) Delete(key string) error {
	result, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
