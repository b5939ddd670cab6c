package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PostRefresh handles POST /api/refresh. It runs one synchronous populate
// pass; ?force=true bypasses both freshness gates.
func (h *Handler) PostRefresh(c *gin.Context) {
	force := c.Query("force") == "true"

	summary, err := h.refresh.PopulateDB(c.Request.Context(), force, nil)
	if err != nil {
		// Some areas may still have refreshed; return the summary alongside.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "summary": summary})
		return
	}
	c.JSON(http.StatusOK, summary)
}
