package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrSettingNotFound = errors.New("setting not found")
)

// SettingRepository stores small key/value runtime settings, such as the
// active payment provider.
type SettingRepository interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

type settingRepository struct {
	db *sqlx.DB
}

func NewSettingRepository(db *sqlx.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(key string) (string, error) {
	var value string
	query := `SELECT value FROM settings WHERE key = $1`

	err := r.db.Get(&value, query, key)
	if err == sql.ErrNoRows {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", err
	}

	return value, nil
}

func (r *settingRepository) Set(key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3
	`

	_, err := r.db.Exec(query, key, value, time.Now())
	return err
}
