package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/wedding-rsvp/internal/apperror"
)

// newTestDB returns a fresh in-memory database that is closed when the test ends.
// t.Helper() makes failures point at the caller's line.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// =========================================================================
// GET / PUT
// =========================================================================

func TestGet_Missing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Get(context.Background(), "google_tokens")

	if err == nil {
		t.Fatal("Get() should have returned an error for a missing key")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestPutThenGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, "google_sheet_id", "sheet-abc"))

	got, err := db.Get(ctx, "google_sheet_id")
	require.NoError(t, err)
	assert.Equal(t, "sheet-abc", got)
}

func TestPut_LastWriteWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, "google_tokens", `{"access_token":"old"}`))
	require.NoError(t, db.Put(ctx, "google_tokens", `{"access_token":"new"}`))

	got, err := db.Get(ctx, "google_tokens")
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"new"}`, got, "upsert must overwrite, not merge")

	var rows int
	require.NoError(t, db.conn.QueryRow(`SELECT COUNT(*) FROM config WHERE key = ?`, "google_tokens").Scan(&rows))
	assert.Equal(t, 1, rows, "key must stay unique")
}

func TestPut_KeysAreIndependent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, "google_tokens", "tok"))
	require.NoError(t, db.Put(ctx, "google_sheet_id", "sheet"))

	tok, err := db.Get(ctx, "google_tokens")
	require.NoError(t, err)
	sheet, err := db.Get(ctx, "google_sheet_id")
	require.NoError(t, err)

	assert.Equal(t, "tok", tok)
	assert.Equal(t, "sheet", sheet)
}

func TestGet_CanceledContext(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.Get(ctx, "google_tokens")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrNotFound), "a storage failure is not 'absent'")
}

// =========================================================================
// PERSISTENCE & CONCURRENCY
// =========================================================================

func TestPut_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wedding.db")
	ctx := context.Background()

	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.Put(ctx, "google_sheet_id", "sheet-persisted"))
	require.NoError(t, db.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	got, err := reopened.Get(ctx, "google_sheet_id")
	require.NoError(t, err)
	assert.Equal(t, "sheet-persisted", got)
}

func TestConcurrentPutAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.db")
	db, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, db.Put(ctx, "google_tokens", fmt.Sprintf("tok-%d", i)))
			_, err := db.Get(ctx, "google_tokens")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := db.Get(ctx, "google_tokens")
	require.NoError(t, err)
	assert.Contains(t, got, "tok-")
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.migrate())
	require.NoError(t, db.migrate())
}
