package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"park-permit-backend/internal/db"
	"park-permit-backend/internal/model"
)

// Store defines the interface for all database operations on permit data.
type Store interface {
	// ReplaceAreaPermits deletes every permit for the area and inserts the
	// given records in their place, recording refreshedAt as the area's last
	// successful update. All of it happens in one transaction so a crash can
	// never leave replaced data without its freshness marker.
	ReplaceAreaPermits(ctx context.Context, areaName string, permits []model.Permit, refreshedAt time.Time) error

	// PermitsByGroupAndRange returns the group's permits with start in the
	// half-open window [start, end), ordered by start ascending.
	PermitsByGroupAndRange(ctx context.Context, group string, start, end time.Time) ([]model.Permit, error)

	// PermitsByGroupOrgAndDate returns an organization's permits for the
	// group within [dayStart, dayEnd), ordered by start ascending.
	PermitsByGroupOrgAndDate(ctx context.Context, group, org string, dayStart, dayEnd time.Time) ([]model.Permit, error)

	// LastUpdate returns the area's last successful refresh instant, or nil
	// if the area has never been ingested.
	LastUpdate(ctx context.Context, areaName string) (*time.Time, error)

	// DB exposes the underlying handle for the subscription handlers.
	DB(ctx context.Context) (*gorm.DB, error)
}

// gormStore implements the Store interface using GORM over a lazy handle.
type gormStore struct {
	dbh *db.Handle
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(h *db.Handle) Store {
	return &gormStore{dbh: h}
}

const insertBatchSize = 200

func (s *gormStore) ReplaceAreaPermits(ctx context.Context, areaName string, permits []model.Permit, refreshedAt time.Time) error {
	gdb, err := s.dbh.Get(ctx)
	if err != nil {
		return err
	}

	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("area_name = ?", areaName).Delete(&model.Permit{}).Error; err != nil {
			return fmt.Errorf("failed to delete permits for area %s: %w", areaName, err)
		}

		if len(permits) > 0 {
			if err := tx.CreateInBatches(permits, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert permits for area %s: %w", areaName, err)
			}
		}

		refresh := model.AreaRefresh{AreaName: areaName, UpdatedAt: refreshedAt}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "area_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).Create(&refresh).Error; err != nil {
			return fmt.Errorf("failed to upsert refresh marker for area %s: %w", areaName, err)
		}
		return nil
	})
}

func (s *gormStore) PermitsByGroupAndRange(ctx context.Context, group string, start, end time.Time) ([]model.Permit, error) {
	gdb, err := s.dbh.Get(ctx)
	if err != nil {
		return nil, err
	}

	var permits []model.Permit
	err = gdb.WithContext(ctx).
		Where("group_name = ? AND start_time >= ? AND start_time < ?", group, start, end).
		Order("start_time ASC").
		Find(&permits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query permits for group %s: %w", group, err)
	}
	return permits, nil
}

func (s *gormStore) PermitsByGroupOrgAndDate(ctx context.Context, group, org string, dayStart, dayEnd time.Time) ([]model.Permit, error) {
	gdb, err := s.dbh.Get(ctx)
	if err != nil {
		return nil, err
	}

	var permits []model.Permit
	err = gdb.WithContext(ctx).
		Where("group_name = ? AND organization = ? AND start_time >= ? AND start_time < ?", group, org, dayStart, dayEnd).
		Order("start_time ASC").
		Find(&permits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query permits for org %s: %w", org, err)
	}
	return permits, nil
}

func (s *gormStore) LastUpdate(ctx context.Context, areaName string) (*time.Time, error) {
	gdb, err := s.dbh.Get(ctx)
	if err != nil {
		return nil, err
	}

	var refresh model.AreaRefresh
	err = gdb.WithContext(ctx).First(&refresh, "area_name = ?", areaName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh marker for area %s: %w", areaName, err)
	}
	return &refresh.UpdatedAt, nil
}

func (s *gormStore) DB(ctx context.Context) (*gorm.DB, error) {
	return s.dbh.Get(ctx)
}
