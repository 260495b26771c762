package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/glamhair/patglam-agent/pkg/errors"
)

// HandleListBriefs returns recent archived briefs, newest first.
// GET /api/briefs?limit=N (JWT protected).
func (h *Handler) HandleListBriefs(c *gin.Context) {
	if h.archive == nil {
		errors.ErrorResponse(c, http.StatusServiceUnavailable,
			"Archive Unavailable", "Brief archive is not configured")
		return
	}

	limit := int64(20)
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			limit = n
		}
	}

	briefs, err := h.archive.RecentBriefs(c.Request.Context(), limit)
	if err != nil {
		errors.InternalError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"briefs": briefs,
		"count":  len(briefs),
	})
}

// HandleGetBrief returns the archived brief for one call.
// GET /api/briefs/:call_sid (JWT protected).
func (h *Handler) HandleGetBrief(c *gin.Context) {
	if h.archive == nil {
		errors.ErrorResponse(c, http.StatusServiceUnavailable,
			"Archive Unavailable", "Brief archive is not configured")
		return
	}

	callID := c.Param("call_sid")
	brief, err := h.archive.BriefByCallID(c.Request.Context(), callID)
	if err != nil {
		errors.InternalError(c, err, h.logger)
		return
	}
	if brief == nil {
		errors.NotFound(c, "No brief for this call")
		return
	}

	c.JSON(http.StatusOK, brief)
}
