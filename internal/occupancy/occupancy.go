// Package occupancy derives the per-field hourly timeline shown on the grid.
// Reduce is a pure function: permits in, 24 slots out, no I/O.
package occupancy

import (
	"fmt"
	"sort"
	"time"

	"park-permit-backend/internal/ingest"
	"park-permit-backend/internal/model"
)

// SlotState classifies one hour of a field's day.
type SlotState string

const (
	StateFree     SlotState = "free"
	StateReserved SlotState = "reserved"
	// StateOverlap marks hours claimed by more than one permit. Overlaps are
	// surfaced for rendering, never merged or dropped.
	StateOverlap SlotState = "overlap"
)

// SlotPermit is the rendering metadata of one permit occupying a slot.
type SlotPermit struct {
	StartHour    int    `json:"startHour"`
	EndHour      int    `json:"endHour"`
	TimeRange    string `json:"timeRange"`
	Title        string `json:"title"`
	Organization string `json:"organization"`
	Status       string `json:"status"`
	Description  string `json:"description"`
}

// Slot is one hour of the derived timeline. Reserved slots carry exactly one
// permit; overlap slots carry every permit claiming the hour, in start order.
type Slot struct {
	Hour    int          `json:"hour"`
	State   SlotState    `json:"state"`
	Permits []SlotPermit `json:"permits,omitempty"`
}

// HoursPerDay is the fixed size of the derived timeline.
const HoursPerDay = 24

// Reduce converts one field's permits for one day into a timeline of exactly
// 24 hourly slots. Permit bounds are bucketed to the Eastern-zone hour of
// their start; durations are floored to whole hours, with every permit
// consuming at least its start slot; anything extending past hour 23 is
// clipped at the day boundary.
func Reduce(permits []model.Permit) []Slot {
	slots := make([]Slot, HoursPerDay)
	for h := range slots {
		slots[h] = Slot{Hour: h, State: StateFree}
	}

	sorted := make([]model.Permit, len(permits))
	copy(sorted, permits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	for _, p := range sorted {
		start := p.StartTime.In(ingest.Zone()).Hour()
		hours := int(p.EndTime.Sub(p.StartTime) / time.Hour)
		if hours < 1 {
			hours = 1
		}
		end := start + hours
		if end > HoursPerDay {
			end = HoursPerDay // day boundary is a hard edge
		}

		meta := SlotPermit{
			StartHour:    start,
			EndHour:      end,
			TimeRange:    formatRange(p.StartTime, p.EndTime),
			Title:        p.Title,
			Organization: p.Organization,
			Status:       p.Status,
			Description:  p.PermitType,
		}

		for h := start; h < end; h++ {
			switch slots[h].State {
			case StateFree:
				slots[h].State = StateReserved
				slots[h].Permits = []SlotPermit{meta}
			default:
				slots[h].State = StateOverlap
				slots[h].Permits = append(slots[h].Permits, meta)
			}
		}
	}

	return slots
}

func formatRange(start, end time.Time) string {
	loc := ingest.Zone()
	return fmt.Sprintf("%s – %s",
		start.In(loc).Format("3:04 PM"),
		end.In(loc).Format("3:04 PM"))
}
