package db

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"park-permit-backend/config"
	"park-permit-backend/internal/model"
)

// Init opens the database connection and runs migrations. The driver is picked
// from the DSN: postgres URLs go through the postgres driver, anything else is
// treated as an SQLite file path (the default for on-device deployments).
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "host=") {
		dialector = postgres.Open(cfg.DSN)
	} else {
		dialector = sqlite.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Permit{},
		&model.AreaRefresh{},
		&model.PushSubscription{},
		&model.SubscriptionArea{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Handle lazily opens the database on first use and guarantees at most one
// underlying connection is created even under concurrent first access. The
// happy path after initialization is a single atomic load; only the first
// callers contend on the mutex.
type Handle struct {
	cfg *config.DatabaseConfig

	mu sync.Mutex
	db atomic.Pointer[gorm.DB]
}

// NewHandle returns a Handle that will open the database described by cfg on
// first Get.
func NewHandle(cfg *config.DatabaseConfig) *Handle {
	return &Handle{cfg: cfg}
}

// NewHandleFromDB wraps an already-open connection, for tests.
func NewHandleFromDB(gdb *gorm.DB) *Handle {
	h := &Handle{}
	h.db.Store(gdb)
	return h
}

// Get returns the shared connection, opening it on first call.
func (h *Handle) Get(ctx context.Context) (*gorm.DB, error) {
	if gdb := h.db.Load(); gdb != nil {
		return gdb, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if gdb := h.db.Load(); gdb != nil {
		return gdb, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gdb, err := Init(h.cfg)
	if err != nil {
		return nil, err
	}
	h.db.Store(gdb)
	return gdb, nil
}
