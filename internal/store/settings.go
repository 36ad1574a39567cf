package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Setting keys.
const (
	KeySnap            = "snap"
	KeyScaleMultiplier = "scale_multiplier"
	KeyRotationDegrees = "rotation_degrees"
	KeyActiveSticker   = "active_sticker"
)

// Preferences are the user controls restored on start. The sticker
// placement itself is never stored.
type Preferences struct {
	Snap            bool
	ScaleMultiplier float64
	RotationDegrees float64
	// ActiveSticker is the catalog ID of the sticker last put on screen.
	ActiveSticker string
}

// SettingsRepository reads and writes key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (r *SettingsRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// All returns every stored setting.
func (r *SettingsRepository) All() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// LoadPreferences returns the stored preferences, taking each missing value
// from def.
func (r *SettingsRepository) LoadPreferences(def Preferences) (Preferences, error) {
	all, err := r.All()
	if err != nil {
		return def, err
	}

	p := def
	if v, ok := all[KeySnap]; ok {
		if p.Snap, err = strconv.ParseBool(v); err != nil {
			return def, fmt.Errorf("setting %s: %w", KeySnap, err)
		}
	}
	if v, ok := all[KeyScaleMultiplier]; ok {
		if p.ScaleMultiplier, err = strconv.ParseFloat(v, 64); err != nil {
			return def, fmt.Errorf("setting %s: %w", KeyScaleMultiplier, err)
		}
	}
	if v, ok := all[KeyRotationDegrees]; ok {
		if p.RotationDegrees, err = strconv.ParseFloat(v, 64); err != nil {
			return def, fmt.Errorf("setting %s: %w", KeyRotationDegrees, err)
		}
	}
	if v, ok := all[KeyActiveSticker]; ok {
		p.ActiveSticker = v
	}
	return p, nil
}

// SavePreferences stores p in a single transaction.
func (r *SettingsRepository) SavePreferences(p Preferences) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	values := [][2]string{
		{KeySnap, strconv.FormatBool(p.Snap)},
		{KeyScaleMultiplier, strconv.FormatFloat(p.ScaleMultiplier, 'g', -1, 64)},
		{KeyRotationDegrees, strconv.FormatFloat(p.RotationDegrees, 'g', -1, 64)},
		{KeyActiveSticker, p.ActiveSticker},
	}
	for _, kv := range values {
		if _, err := stmt.Exec(kv[0], kv[1]); err != nil {
			return err
		}
	}

	return tx.Commit()
}
