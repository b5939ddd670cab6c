package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"park-permit-backend/internal/catalog"
)

// AreaResponse represents the API response for a single catalog area.
type AreaResponse struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName"`
	Groups      []string   `json:"groups"`
	FieldCount  int        `json:"fieldCount"`
	LastUpdated *time.Time `json:"lastUpdated"`
}

// GetAreas handles the GET /api/areas request.
func (h *Handler) GetAreas(c *gin.Context) {
	responses := make([]AreaResponse, 0, len(catalog.Areas))
	for _, area := range catalog.Areas {
		groups := make([]string, 0, len(area.Groups))
		fieldCount := 0
		for _, g := range area.Groups {
			groups = append(groups, g.Name)
			fieldCount += len(g.Fields)
		}

		last, err := h.store.LastUpdate(c.Request.Context(), area.Name)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve refresh state"})
			return
		}

		responses = append(responses, AreaResponse{
			Name:        area.Name,
			DisplayName: area.DisplayName,
			Groups:      groups,
			FieldCount:  fieldCount,
			LastUpdated: last,
		})
	}
	c.JSON(http.StatusOK, responses)
}
