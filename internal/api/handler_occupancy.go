package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"park-permit-backend/internal/catalog"
	"park-permit-backend/internal/ingest"
	"park-permit-backend/internal/model"
	"park-permit-backend/internal/occupancy"
)

// FieldOccupancyResponse is one field's 24-slot timeline for the grid view.
type FieldOccupancyResponse struct {
	Field       string           `json:"field"`
	DisplayName string           `json:"displayName"`
	Slots       []occupancy.Slot `json:"slots"`
}

// GetOccupancy handles GET /api/groups/:group/occupancy. It loads the group's
// permits for one day and reduces them per field into hourly timelines.
func (h *Handler) GetOccupancy(c *gin.Context) {
	group := c.Param("group")
	area, fieldGroup, ok := catalog.GroupByName(group)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Unknown group"})
		return
	}

	date, ok := parseDate(c)
	if !ok {
		return
	}

	dayStart, dayEnd := ingest.DayRange(date)
	permits, err := h.store.PermitsByGroupAndRange(c.Request.Context(), group, dayStart, dayEnd)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve permits"})
		return
	}

	byField := make(map[string][]model.Permit)
	for _, p := range permits {
		byField[p.FieldName] = append(byField[p.FieldName], p)
	}

	responses := make([]FieldOccupancyResponse, 0, len(fieldGroup.Fields))
	for _, field := range fieldGroup.Fields {
		responses = append(responses, FieldOccupancyResponse{
			Field:       field.Name,
			DisplayName: area.FieldDisplayName(field.Name),
			Slots:       occupancy.Reduce(byField[field.Name]),
		})
	}
	c.JSON(http.StatusOK, responses)
}
