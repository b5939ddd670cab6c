// Package refresh coordinates the per-area permit ingestion pipeline: the
// staleness gates, the fetch-or-reuse decision, the delete-then-reinsert, and
// the last-update bookkeeping.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"park-permit-backend/config"
	"park-permit-backend/internal/cachefile"
	"park-permit-backend/internal/catalog"
	"park-permit-backend/internal/ingest"
	"park-permit-backend/internal/model"
	"park-permit-backend/internal/notification"
	"park-permit-backend/internal/store"
)

// Service orchestrates the refresh pipeline across all catalog areas.
type Service struct {
	cfg        *config.Config
	cache      *cachefile.Store
	store      store.Store
	workerPool *notification.WorkerPool
	areas      []catalog.Area
}

// NewService creates a refresh service. workerPool may be nil when push
// notifications are not configured.
func NewService(cfg *config.Config, cache *cachefile.Store, st store.Store, workerPool *notification.WorkerPool) *Service {
	return &Service{
		cfg:        cfg,
		cache:      cache,
		store:      st,
		workerPool: workerPool,
		areas:      catalog.Areas,
	}
}

// SetAreas overrides the catalog area list, for tests and partial refreshes.
func (s *Service) SetAreas(areas []catalog.Area) {
	s.areas = areas
}

// Summary is the informational result of one full populate pass. It has no
// control-flow effect.
type Summary struct {
	Areas    int        `json:"areas"`
	Fields   int        `json:"fields"` // distinct (field, area) pairs seen
	Permits  int        `json:"permits"`
	Earliest *time.Time `json:"earliest,omitempty"`
	Latest   *time.Time `json:"latest,omitempty"`
}

// PopulateDB runs the refresh state machine for every catalog area in stable
// order. Areas are processed sequentially and independently: one area's
// failure is captured and the remaining areas still run, with all failures
// joined into the returned error. onProgress may be nil.
func (s *Service) PopulateDB(ctx context.Context, forceRefresh bool, onProgress func(string)) (Summary, error) {
	progress := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		log.Print(msg)
		if onProgress != nil {
			onProgress(msg)
		}
	}

	var summary Summary
	fieldsSeen := make(map[string]struct{})
	var errs []error

	for _, area := range s.areas {
		summary.Areas++
		progress("Refreshing %s...", area.DisplayName)

		permits, refreshed, err := s.refreshArea(ctx, area, forceRefresh, progress)
		if err != nil {
			errs = append(errs, fmt.Errorf("area %s: %w", area.Name, err))
			continue
		}

		for _, p := range permits {
			fieldsSeen[p.AreaName+"/"+p.FieldName] = struct{}{}
			summary.Permits++
			if summary.Earliest == nil || p.StartTime.Before(*summary.Earliest) {
				start := p.StartTime
				summary.Earliest = &start
			}
			if summary.Latest == nil || p.EndTime.After(*summary.Latest) {
				end := p.EndTime
				summary.Latest = &end
			}
		}

		if refreshed && s.workerPool != nil {
			s.workerPool.Dispatch(area.Name)
		}
	}

	summary.Fields = len(fieldsSeen)
	progress("Refresh finished: %d areas, %d fields, %d permits", summary.Areas, summary.Fields, summary.Permits)
	return summary, errors.Join(errs...)
}

// refreshArea runs the state machine for one area. refreshed reports whether
// persisted records were actually replaced, as opposed to a freshness gate
// short-circuiting the pass.
func (s *Service) refreshArea(ctx context.Context, area catalog.Area, forceRefresh bool, progress func(string, ...any)) ([]model.Permit, bool, error) {
	// Database-level freshness gate.
	if !forceRefresh {
		last, err := s.store.LastUpdate(ctx, area.Name)
		if err != nil {
			return nil, false, err
		}
		if last != nil && time.Since(*last) < s.cfg.Refresh.Freshness {
			progress("%s is up to date (last refresh %s), skipping", area.Name, last.Format(time.RFC3339))
			return nil, false, nil
		}
	}

	// File-level freshness gate, layered on top of the database one.
	cached, path, err := s.cache.GetOrFetch(ctx, area, forceRefresh)
	if err != nil {
		return nil, false, err
	}
	if cached && !forceRefresh {
		progress("%s cache file is fresh, skipping re-ingest", area.Name)
		return nil, false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open cache file %s: %w", path, err)
	}
	defer f.Close()

	permits, err := ingest.ParseArea(f, area)
	if err != nil {
		return nil, false, err
	}

	if err := s.store.ReplaceAreaPermits(ctx, area.Name, permits, time.Now()); err != nil {
		return nil, false, err
	}

	progress("%s: ingested %d permits", area.Name, len(permits))
	return permits, true, nil
}

// Run starts the periodic refresh loop. It performs one pass immediately and
// then repeats on the configured interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Refresh.Enabled {
		log.Println("Background refresh is disabled. Not starting.")
		return
	}
	log.Println("Starting refresh service...")

	if _, err := s.PopulateDB(ctx, false, nil); err != nil {
		log.Printf("Refresh pass finished with errors: %v", err)
	}

	timer := time.NewTimer(s.cfg.Refresh.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Refresh service shutting down.")
			return
		case <-timer.C:
			if _, err := s.PopulateDB(ctx, false, nil); err != nil {
				log.Printf("Refresh pass finished with errors: %v", err)
			}
			timer.Reset(s.cfg.Refresh.Interval)
		}
	}
}
