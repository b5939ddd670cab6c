package refresh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"park-permit-backend/config"
	"park-permit-backend/internal/cachefile"
	"park-permit-backend/internal/catalog"
	"park-permit-backend/internal/model"
)

const erpCSV = `"Start","End","Field","Type","Name","Org","Status"
"9/18/2025 9:00 a.m.","9/18/2025 11:00 a.m.","Soccer-01A","Athletic Permit","Practice - Team X","Team X FC","Approved"
"9/18/2025 1:00 p.m.","9/18/2025 4:00 p.m.","Soccer-01A","Athletic Permit","Practice - Team Y","Team Y FC","Approved"
`

// fakeStore records mutations and serves canned freshness timestamps.
type fakeStore struct {
	mu          sync.Mutex
	lastUpdates map[string]time.Time
	replaced    map[string][]model.Permit
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lastUpdates: make(map[string]time.Time),
		replaced:    make(map[string][]model.Permit),
	}
}

func (f *fakeStore) ReplaceAreaPermits(ctx context.Context, areaName string, permits []model.Permit, refreshedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced[areaName] = permits
	f.lastUpdates[areaName] = refreshedAt
	return nil
}

func (f *fakeStore) PermitsByGroupAndRange(ctx context.Context, group string, start, end time.Time) ([]model.Permit, error) {
	return nil, nil
}

func (f *fakeStore) PermitsByGroupOrgAndDate(ctx context.Context, group, org string, dayStart, dayEnd time.Time) ([]model.Permit, error) {
	return nil, nil
}

func (f *fakeStore) LastUpdate(ctx context.Context, areaName string) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.lastUpdates[areaName]; ok {
		u := t
		return &u, nil
	}
	return nil, nil
}

func (f *fakeStore) DB(ctx context.Context) (*gorm.DB, error) {
	return nil, nil
}

func (f *fakeStore) replacedAreas() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for name := range f.replaced {
		names = append(names, name)
	}
	return names
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Refresh: config.RefreshConfig{
			CacheDir:  t.TempDir(),
			Freshness: 7 * 24 * time.Hour,
			UserAgent: "Mozilla/5.0 (test)",
		},
	}
}

func testArea(name, group, field, url string) catalog.Area {
	return catalog.Area{
		Name:        name,
		DisplayName: name,
		URL:         url,
		Groups: []catalog.FieldGroup{
			{Name: group, Fields: []catalog.Field{{Name: field, DisplayName: field}}},
		},
	}
}

func TestPopulateDB_IngestsAndCommits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(erpCSV))
	}))
	defer server.Close()

	cfg := testConfig(t)
	st := newFakeStore()
	svc := NewService(cfg, cachefile.NewStore(&cfg.Refresh), st, nil)
	svc.areas = []catalog.Area{testArea("ERP", "Track", "Soccer-01A", server.URL)}

	var progress []string
	summary, err := svc.PopulateDB(context.Background(), false, func(msg string) {
		progress = append(progress, msg)
	})
	require.NoError(t, err)

	require.Len(t, st.replaced["ERP"], 2)
	assert.Equal(t, 1, summary.Areas)
	assert.Equal(t, 1, summary.Fields)
	assert.Equal(t, 2, summary.Permits)
	require.NotNil(t, summary.Earliest)
	require.NotNil(t, summary.Latest)
	assert.True(t, summary.Earliest.Before(*summary.Latest))
	assert.NotEmpty(t, progress)
}

func TestPopulateDB_FreshnessGateSkipsNetwork(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(erpCSV))
	}))
	defer server.Close()

	cfg := testConfig(t)
	st := newFakeStore()
	st.lastUpdates["ERP"] = time.Now().Add(-time.Hour)

	svc := NewService(cfg, cachefile.NewStore(&cfg.Refresh), st, nil)
	svc.areas = []catalog.Area{testArea("ERP", "Track", "Soccer-01A", server.URL)}

	_, err := svc.PopulateDB(context.Background(), false, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, requests, "a fresh area must not be fetched")
	assert.Empty(t, st.replaced["ERP"])
}

func TestPopulateDB_ForceRefreshBypassesGates(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(erpCSV))
	}))
	defer server.Close()

	cfg := testConfig(t)
	st := newFakeStore()
	st.lastUpdates["ERP"] = time.Now().Add(-time.Hour)

	svc := NewService(cfg, cachefile.NewStore(&cfg.Refresh), st, nil)
	svc.areas = []catalog.Area{testArea("ERP", "Track", "Soccer-01A", server.URL)}

	// Two forced passes both fetch and both replace.
	_, err := svc.PopulateDB(context.Background(), true, nil)
	require.NoError(t, err)
	_, err = svc.PopulateDB(context.Background(), true, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, requests)
	assert.Len(t, st.replaced["ERP"], 2)
}

func TestPopulateDB_CachedFileSkipsReingest(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(erpCSV))
	}))
	defer server.Close()

	cfg := testConfig(t)
	cache := cachefile.NewStore(&cfg.Refresh)
	area := testArea("ERP", "Track", "Soccer-01A", server.URL)

	// Warm the file cache outside the orchestrator.
	_, _, err := cache.GetOrFetch(context.Background(), area, false)
	require.NoError(t, err)

	// No database freshness marker exists, but the file-level gate still
	// short-circuits the pass.
	st := newFakeStore()
	svc := NewService(cfg, cache, st, nil)
	svc.areas = []catalog.Area{area}

	_, err = svc.PopulateDB(context.Background(), false, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, requests)
	assert.Empty(t, st.replacedAreas())
}

func TestPopulateDB_PerAreaErrorIsolation(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(erpCSV))
	}))
	defer okServer.Close()
	brokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer brokenServer.Close()

	cfg := testConfig(t)
	st := newFakeStore()
	svc := NewService(cfg, cachefile.NewStore(&cfg.Refresh), st, nil)
	svc.areas = []catalog.Area{
		testArea("Broken", "Ballfields", "Baseball-01", brokenServer.URL),
		testArea("ERP", "Track", "Soccer-01A", okServer.URL),
	}

	summary, err := svc.PopulateDB(context.Background(), false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken")

	// The failing area does not block the one after it.
	assert.Equal(t, []string{"ERP"}, st.replacedAreas())
	assert.Equal(t, 2, summary.Areas)
	assert.Equal(t, 2, summary.Permits)
}
