package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mauv0809/catch-league/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pendingCatch struct {
	ID      string  `json:"id"`
	Species string  `json:"species"`
	Weight  float64 `json:"weight"`
}

// backend bundles a store with a way to plant an undecodable entry.
type backend struct {
	store   Store
	corrupt func(t *testing.T, key string)
}

func backends(t *testing.T) map[string]backend {
	t.Helper()

	db, teardown, err := database.InitDB(context.Background(), filepath.Join(t.TempDir(), "kv.db"), "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)
	sqlStore := NewSQLStore(db)

	badgerStore, err := NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { badgerStore.Close() })

	mem := NewMemory()

	return map[string]backend{
		BackendSQLite: {
			store: sqlStore,
			corrupt: func(t *testing.T, key string) {
				_, err := db.Exec("INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, 0)", key, "{not json")
				require.NoError(t, err)
			},
		},
		BackendBadger: {
			store: badgerStore,
			corrupt: func(t *testing.T, key string) {
				require.NoError(t, badgerStore.db.Update(func(txn *badger.Txn) error {
					return txn.Set([]byte(key), []byte("{not json"))
				}))
			},
		},
		BackendMemory: {
			store: mem,
			corrupt: func(t *testing.T, key string) {
				mem.SetRaw(key, []byte("{not json"))
			},
		},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			queue := []pendingCatch{{ID: "tmp-1", Species: "Pacu", Weight: 2.1}, {ID: "tmp-2", Species: "Dourado", Weight: 4.5}}
			require.NoError(t, b.store.Save(KeyPendingCatches, queue))

			var loaded []pendingCatch
			require.True(t, b.store.Load(KeyPendingCatches, &loaded))
			assert.Equal(t, queue, loaded)

			require.NoError(t, b.store.Save(KeyPendingCatches, queue[1:]))
			assert.Equal(t, queue[1:], LoadOr(b.store, KeyPendingCatches, []pendingCatch{}))
		})
	}
}

func TestStore_MissingKeyReturnsDefault(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var loaded []pendingCatch
			assert.False(t, b.store.Load("nothing_here", &loaded))
			assert.Nil(t, loaded)

			def := []pendingCatch{}
			assert.Equal(t, def, LoadOr(b.store, "nothing_here", def))
		})
	}
}

func TestStore_CorruptEntryReturnsDefault(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b.corrupt(t, KeyAllCatches)

			loaded := []pendingCatch{{ID: "keep"}}
			assert.False(t, b.store.Load(KeyAllCatches, &loaded))
			assert.Equal(t, []pendingCatch{{ID: "keep"}}, loaded, "destination must be untouched")
			assert.Empty(t, LoadOr(b.store, KeyAllCatches, []pendingCatch{}))
		})
	}
}

func TestStore_WrongShapeReturnsDefault(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.store.Save(KeyPendingTournaments, map[string]int{"a": 1}))

			loaded := []pendingCatch{{ID: "keep"}}
			assert.False(t, b.store.Load(KeyPendingTournaments, &loaded))
			assert.Equal(t, "keep", loaded[0].ID)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.store.Save(KeyAllPosts, []string{"p1"}))
			require.NoError(t, b.store.Delete(KeyAllPosts))
			var posts []string
			assert.False(t, b.store.Load(KeyAllPosts, &posts))
		})
	}
}

func TestSQLStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	db, teardown, err := database.InitDB(context.Background(), path, "", "")
	require.NoError(t, err)
	require.NoError(t, NewSQLStore(db).Save(KeyPendingParticipation, []string{"t1"}))
	teardown()

	db, teardown, err = database.InitDB(context.Background(), path, "", "")
	require.NoError(t, err)
	defer teardown()
	assert.Equal(t, []string{"t1"}, LoadOr(NewSQLStore(db), KeyPendingParticipation, []string(nil)))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "user_catches_u1", UserCatchesKey("u1"))
	assert.Equal(t, "user_tournaments_u1", UserTournamentsKey("u1"))
	assert.Equal(t, "pending_invites_u1", PendingInvitesKey("u1"))
}
