package state

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/energy-sim/internal/config"
)

// document is a small typed value used to exercise Repository.
type document struct {
	// Name is a label.
	Name string `json:"name"`
	// Children is a list that must survive a round trip.
	Children []string `json:"children"`
}

// testStore runs the behaviour every backend must share.
func testStore(t *testing.T, store Store) {
	t.Helper()

	ctx := context.Background()

	// Missing key.
	_, err := store.Load(ctx, "entity/missing")
	require.ErrorIs(t, err, ErrNotFound)

	// Read your writes, then overwrite.
	require.NoError(t, store.Save(ctx, "entity/a", []byte(`{"v":1}`)))

	got, err := store.Load(ctx, "entity/a")
	require.NoError(t, err)
	require.JSONEq(t, `{"v":1}`, string(got))

	require.NoError(t, store.Save(ctx, "entity/a", []byte(`{"v":2}`)))

	got, err = store.Load(ctx, "entity/a")
	require.NoError(t, err)
	require.JSONEq(t, `{"v":2}`, string(got))

	// Keys are independent.
	_, err = store.Load(ctx, "region/a")
	require.ErrorIs(t, err, ErrNotFound)

	// Invalid keys.
	require.ErrorIs(t, store.Save(ctx, "", nil), errEmptyKey)
	require.ErrorIs(t, store.Save(ctx, "../escape", []byte("{}")), errInvalidKey)

	// Typed repository.
	repo := NewRepository[document](store, "region")
	want := &document{Name: "north", Children: []string{"e1", "e2"}}
	require.NoError(t, repo.Save(ctx, "r1", want))

	loaded, err := repo.Load(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, want, loaded)

	_, err = repo.Load(ctx, "r2")
	require.ErrorIs(t, err, ErrNotFound)

	// Concurrent writers to distinct keys.
	var (
		wg   sync.WaitGroup
		errs = make(chan error, 4)
	)

	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs <- repo.Save(ctx, id, &document{Name: id})
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		loaded, err = repo.Load(ctx, id)
		require.NoError(t, err)
		require.Equal(t, id, loaded.Name)
	}
}

// TestMemoryStore verifies the in-memory backend and that saved data is copied.
func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	testStore(t, store)

	data := []byte(`{"v":3}`)
	require.NoError(t, store.Save(context.Background(), "entity/copy", data))

	data[0] = 'x'

	got, err := store.Load(context.Background(), "entity/copy")
	require.NoError(t, err)
	require.JSONEq(t, `{"v":3}`, string(got))
}

// TestFileStore verifies the directory backend maps keys to nested JSON files.
func TestFileStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(dir)
	testStore(t, store)

	require.FileExists(t, filepath.Join(dir, "entity", "a.json"))
	require.NoFileExists(t, filepath.Join(dir, "entity", "a.json.tmp"))
}

// TestSQLiteStore verifies the SQLite backend and that data survives reopening.
func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	testStore(t, store)
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)

	defer func() {
		_ = reopened.Close()
	}()

	got, err := reopened.Load(ctx, "entity/a")
	require.NoError(t, err)
	require.JSONEq(t, `{"v":2}`, string(got))
}

// TestOpen selects the backend from configuration.
func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store, err := Open(ctx, config.StorageConfig{Driver: config.StorageMemory})
	require.NoError(t, err)
	require.IsType(t, new(MemoryStore), store)

	store, err = Open(ctx, config.StorageConfig{Driver: config.StorageFile, Dir: t.TempDir()})
	require.NoError(t, err)
	require.IsType(t, new(FileStore), store)

	store, err = Open(ctx, config.StorageConfig{Driver: config.StorageSQLite, DSN: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	require.IsType(t, new(SQLiteStore), store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, config.StorageConfig{Driver: "etcd"})
	require.Error(t, err)
}
