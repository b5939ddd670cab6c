// Package ingest parses the upstream permit CSV feeds into persisted records.
package ingest

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"park-permit-backend/internal/catalog"
	"park-permit-backend/internal/model"
)

// The permit system publishes all times in US Eastern, DST included. This is
// the single source zone for the whole pipeline; hour-of-day bucketing in the
// occupancy reducer uses it too.
var eastern = mustLoadEastern()

func mustLoadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(fmt.Sprintf("failed to load America/New_York: %v", err))
	}
	return loc
}

// Zone returns the fixed source time zone of the permit feeds.
func Zone() *time.Location {
	return eastern
}

// columnCount is the fixed layout of the upstream CSV:
// start, end, field, type, name, org, status.
const columnCount = 7

// ParseArea reads one area's CSV stream and returns the normalized permit
// records for the fields the catalog tracks. The header line is discarded.
// Rows naming unknown fields are silently dropped. A malformed row (wrong
// column count, unparsable date) aborts the whole pass with an error.
func ParseArea(r io.Reader, area catalog.Area) ([]model.Permit, error) {
	fields := area.FieldMap()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = columnCount

	line := 0
	var permits []model.Permit
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("area %s line %d: %w", area.Name, line, err)
		}
		if line == 1 {
			continue // header
		}

		fieldName := strings.TrimSpace(row[2])
		group, ok := fields[fieldName]
		if !ok {
			continue // field outside the tracked subset, not an error
		}

		rawStart, rawEnd := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		start, err := ParseTime(rawStart)
		if err != nil {
			return nil, fmt.Errorf("area %s line %d: bad start time: %w", area.Name, line, err)
		}
		end, err := ParseTime(rawEnd)
		if err != nil {
			return nil, fmt.Errorf("area %s line %d: bad end time: %w", area.Name, line, err)
		}

		permits = append(permits, model.Permit{
			ID:           RecordID(area.Name, group, rawStart, rawEnd, fieldName),
			AreaName:     area.Name,
			GroupName:    group,
			StartTime:    start,
			EndTime:      end,
			FieldName:    fieldName,
			PermitType:   strings.TrimSpace(row[3]),
			Title:        strings.TrimSpace(row[4]),
			Organization: strings.TrimSpace(row[5]),
			Status:       strings.TrimSpace(row[6]),
		})
	}
	return permits, nil
}

// timeLayout matches the feed's "9/18/2025 9:00 a.m." style once the
// period-separated meridiem marker is normalized to AM/PM.
const timeLayout = "1/2/2006 3:04 PM"

// ParseTime parses a feed timestamp into an absolute instant in the fixed
// Eastern zone.
func ParseTime(raw string) (time.Time, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), ".", ""))
	t, err := time.ParseInLocation(timeLayout, s, eastern)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

// RecordID derives the stable identity for a permit row. Identical source rows
// hash to the same ID, making re-ingestion idempotent; it does not deduplicate
// differently formatted duplicates.
func RecordID(areaName, groupName, rawStart, rawEnd, fieldName string) string {
	h := sha256.New()
	for _, part := range []string{areaName, groupName, rawStart, rawEnd, fieldName} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// DayRange returns the half-open [midnight, next midnight) window for the
// civil date of t in the Eastern zone. AddDate keeps DST-shortened and
// DST-lengthened days correct.
func DayRange(t time.Time) (start, end time.Time) {
	local := t.In(eastern)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, eastern)
	return start, start.AddDate(0, 0, 1)
}
