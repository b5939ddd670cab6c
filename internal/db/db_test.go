package db

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"park-permit-backend/config"
)

func TestHandle_ConcurrentFirstAccessOpensOnce(t *testing.T) {
	cfg := &config.DatabaseConfig{DSN: filepath.Join(t.TempDir(), "permits.db")}
	h := NewHandle(cfg)

	const callers = 32
	results := make([]*gorm.DB, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			gdb, err := h.Get(context.Background())
			assert.NoError(t, err)
			results[i] = gdb
		}(i)
	}
	wg.Wait()

	// Every caller sees the same underlying connection.
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestHandle_CancelledContextBeforeInit(t *testing.T) {
	cfg := &config.DatabaseConfig{DSN: filepath.Join(t.TempDir(), "permits.db")}
	h := NewHandle(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Get(ctx)
	assert.Error(t, err)
}

func TestHandle_FromDBReturnsWrappedConnection(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:handle_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	h := NewHandleFromDB(gdb)
	got, err := h.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, gdb, got)
}
