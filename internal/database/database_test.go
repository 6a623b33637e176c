package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_CreatesTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "league.db")

	db, teardown, err := InitDB(context.Background(), path, "", "")
	require.NoError(t, err, "InitDB should not return an error")
	defer teardown()

	var kvTableName string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv'").Scan(&kvTableName)
	require.NoError(t, err, "Querying for kv table should not produce an error")
	assert.Equal(t, "kv", kvTableName, "The 'kv' table should be created")
}

func TestInitDB_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "league.db")

	db, teardown, err := InitDB(context.Background(), path, "", "")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO kv (key, value, updated_at) VALUES ('k', '1', 0)")
	require.NoError(t, err)
	teardown()

	db, teardown, err = InitDB(context.Background(), path, "", "")
	require.NoError(t, err, "re-running migrations must not fail")
	defer teardown()

	var value string
	require.NoError(t, db.QueryRow("SELECT value FROM kv WHERE key = 'k'").Scan(&value))
	assert.Equal(t, "1", value, "existing rows survive a restart")
}
