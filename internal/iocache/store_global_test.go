package iocache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetManager() {
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &SampleStoreManager{}
}

func TestInitStores(t *testing.T) {
	t.Cleanup(resetManager)

	t.Run("single setup", func(t *testing.T) {
		resetManager()
		dbPath := filepath.Join(t.TempDir(), "samples.db")

		require.NoError(t, InitStores(schema.SQLiteBackend, dbPath, ""))
		require.NotNil(t, Manager.GetSampleStore())
		CloseStores()

		_, err := os.Stat(dbPath)
		assert.NoError(t, err)
	})

	t.Run("idempotent setup", func(t *testing.T) {
		resetManager()
		dbPath := filepath.Join(t.TempDir(), "samples.db")

		var wg sync.WaitGroup
		errs := make([]error, 5)
		for i := range errs {
			wg.Go(func() { errs[i] = InitStores(schema.SQLiteBackend, dbPath, "") })
		}
		wg.Wait()
		for _, err := range errs {
			assert.NoError(t, err)
		}
		first := Manager.GetSampleStore()
		require.NoError(t, InitStores(schema.NoneBackend, "", ""))
		assert.Same(t, first, Manager.GetSampleStore())

		CloseStores()
		CloseStores()
	})

	t.Run("init error", func(t *testing.T) {
		resetManager()
		err := InitStores(schema.SQLiteBackend, ":memory:", "bad-name")
		assert.Error(t, err)
		assert.Nil(t, Manager.GetSampleStore())
	})
}

func TestClearSamples(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "samples.db")
	store, err := NewSampleStore(schema.SQLiteBackend, dbPath, "")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, ClearSamples(schema.SQLiteBackend, dbPath, ""))
	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))

	// clearing twice is fine
	assert.NoError(t, ClearSamples(schema.SQLiteBackend, dbPath, ""))
	assert.NoError(t, ClearSamples(schema.NoneBackend, "", ""))
	assert.Error(t, ClearSamples(schema.SQLiteBackend, "", ""))
	assert.Error(t, ClearSamples(schema.DatabaseBackend("oracle"), "x", ""))
}

func TestExportSamples(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, testRow(testLink, strPtr("2024-05-01"), time.Now())))
	_, err := store.BeginRun(ctx, "u", time.Now(), nil)
	require.NoError(t, err)

	base := filepath.Join(t.TempDir(), "export")
	var out bytes.Buffer
	require.NoError(t, ExportSamples(ctx, store, base, &out))

	for _, suffix := range []string{".samples.parquet", ".runs.parquet"} {
		info, err := os.Stat(base + suffix)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Contains(t, out.String(), "Exported 1 samples")
}

func TestExportSamples_Errors(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, ExportSamples(ctx, newMemoryStore(t), "", &bytes.Buffer{}))
	assert.Error(t, ExportSamples(ctx, newMemoryStore(t), "out", &bytes.Buffer{}), "empty store")

	failing := &contract.MockSampleStore{}
	failing.On("GetStatus").Return(schema.StoreStatus{}, errors.New("gone"))
	assert.Error(t, ExportSamples(ctx, failing, "out", &bytes.Buffer{}))
}

func TestPrintStoreStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintStoreStatus(&buf, schema.StoreStatus{
		Backend:      "sqlite",
		Connected:    true,
		Table:        schema.DefaultTableName,
		TotalSamples: 2,
		TableSizes:   map[string]int64{"b": 1, "a": 2},
	})

	out := buf.String()
	assert.Contains(t, out, "Store Backend: sqlite")
	assert.Contains(t, out, "Total Samples: 2")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("  a: 2")), bytes.Index(buf.Bytes(), []byte("  b: 1")))

	buf.Reset()
	PrintStoreStatus(&buf, schema.StoreStatus{Backend: "none"})
	assert.NotContains(t, buf.String(), "Total Samples")
}
