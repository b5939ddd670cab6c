// Package cachefile manages the per-area CSV blobs cached on disk between
// refreshes. Each area gets one file named after its catalog key; freshness is
// judged purely by the file's mtime.
package cachefile

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"park-permit-backend/config"
	"park-permit-backend/internal/catalog"
)

// Store fetches and caches one CSV blob per area.
type Store struct {
	dir       string
	freshness time.Duration
	userAgent string
	client    *http.Client
}

// NewStore creates a cache store rooted at cfg.CacheDir. The directory is
// created on first use, not here.
func NewStore(cfg *config.RefreshConfig) *Store {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Fetches will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Store{
		dir:       cfg.CacheDir,
		freshness: cfg.Freshness,
		userAgent: cfg.UserAgent,
		client: &http.Client{
			Transport: transport,
			Timeout:   60 * time.Second,
		},
	}
}

// Path returns the cache file path for an area.
func (s *Store) Path(area catalog.Area) string {
	return filepath.Join(s.dir, area.Name+".csv")
}

// GetOrFetch returns the path of the area's CSV blob, downloading it when the
// cached copy is missing, empty, stale, or a refresh is forced. cached reports
// whether the existing file was reused without touching the network.
func (s *Store) GetOrFetch(ctx context.Context, area catalog.Area, forceRefresh bool) (cached bool, path string, err error) {
	path = s.Path(area)

	if !forceRefresh {
		if info, statErr := os.Stat(path); statErr == nil &&
			info.Size() > 0 && time.Since(info.ModTime()) < s.freshness {
			return true, path, nil
		}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false, "", fmt.Errorf("failed to create cache dir %s: %w", s.dir, err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return false, "", fmt.Errorf("failed to remove stale cache file %s: %w", path, err)
	}

	if err := s.fetchTo(ctx, area.URL, path); err != nil {
		return false, "", err
	}
	return false, path, nil
}

// fetchTo streams the feed at rawURL into a freshly created file at path.
func (s *Store) fetchTo(ctx context.Context, rawURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// The permit server returns 403 for non-browser user agents.
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/csv,*/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cache file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", path, err)
	}
	return nil
}
