package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/newsforge/accountguard/internal/events"
	"github.com/newsforge/accountguard/internal/models"
)

// EventHandler serves admin queries over the security event log.
type EventHandler struct {
	log *events.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(log *events.Logger) *EventHandler {
	return &EventHandler{log: log}
}

// List returns recent events, optionally filtered by user, type, or severity.
func (h *EventHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	ctx := c.Request.Context()

	var (
		rows    []models.SecurityEvent
		errList error
	)
	switch {
	case strings.TrimSpace(c.Query("type")) != "":
		rows, errList = h.log.ByType(ctx, strings.TrimSpace(c.Query("type")), limit)
	case strings.TrimSpace(c.Query("severity")) != "":
		rows, errList = h.log.BySeverity(ctx, strings.ToUpper(strings.TrimSpace(c.Query("severity"))), limit)
	case strings.TrimSpace(c.Query("user_id")) != "":
		userID, errParse := strconv.ParseUint(strings.TrimSpace(c.Query("user_id")), 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		rows, errList = h.log.Recent(ctx, &userID, limit)
	default:
		rows, errList = h.log.Recent(ctx, nil, limit)
	}
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query events failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": rows})
}

// Cleanup deletes events older than the requested retention period.
func (h *EventHandler) Cleanup(c *gin.Context) {
	var body struct {
		DaysToKeep int `json:"days_to_keep"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	deleted, errCleanup := h.log.CleanupOldEvents(c.Request.Context(), body.DaysToKeep)
	if errCleanup != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errCleanup.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
