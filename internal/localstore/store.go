package localstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/charmbracelet/log"
)

// SQLStore keeps entries in the kv table created by the migrations.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an initialized database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Save(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Load(key string, dst any) bool {
	var raw string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		log.Warn("Failed to read local entry", "key", key, "error", err)
		return false
	}
	return decode(key, []byte(raw), dst)
}

func (s *SQLStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the database is owned by whoever opened it.
func (s *SQLStore) Close() error { return nil }

// decode unmarshals into a fresh value and only then copies it into dst, so
// a corrupt entry never leaves dst half-written.
func decode(key string, raw []byte, dst any) bool {
	target := reflect.ValueOf(dst)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		log.Error("Local entry destination must be a non-nil pointer", "key", key)
		return false
	}
	scratch := reflect.New(target.Elem().Type())
	if err := json.Unmarshal(raw, scratch.Interface()); err != nil {
		log.Warn("Discarding corrupt local entry", "key", key, "error", err)
		return false
	}
	target.Elem().Set(scratch.Elem())
	return true
}
