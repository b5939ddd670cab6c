package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"park-permit-backend/internal/catalog"
	"park-permit-backend/internal/ingest"
)

// parseDate reads the optional ?date=YYYY-MM-DD query parameter, defaulting to
// today in the feed's time zone.
func parseDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now().In(ingest.Zone()), true
	}
	t, err := time.ParseInLocation("2006-01-02", raw, ingest.Zone())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD."})
		return time.Time{}, false
	}
	return t, true
}

// GetPermits handles GET /api/groups/:group/permits. It returns the group's
// permits for one day, ordered by start time.
func (h *Handler) GetPermits(c *gin.Context) {
	group := c.Param("group")
	if _, _, ok := catalog.GroupByName(group); !ok {
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
	c.JSON(http.StatusOK, permits)
}

// GetPermitsByOrg handles GET /api/groups/:group/permits/by-org, the "other
// permits by this organization" detail view.
func (h *Handler) GetPermitsByOrg(c *gin.Context) {
	group := c.Param("group")
	if _, _, ok := catalog.GroupByName(group); !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Unknown group"})
		return
	}

	org := c.Query("org")
	if org == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "org is required"})
		return
	}

	date, ok := parseDate(c)
	if !ok {
		return
	}

	dayStart, dayEnd := ingest.DayRange(date)
	permits, err := h.store.PermitsByGroupOrgAndDate(c.Request.Context(), group, org, dayStart, dayEnd)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve permits"})
		return
	}
	c.JSON(http.StatusOK, permits)
}
