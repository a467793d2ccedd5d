package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mcnotify/mcnotify/internal/status"
	"github.com/mcnotify/mcnotify/internal/util"
)

const maxHistoryLimit = 500

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "mcnotify",
		"version": s.version,
	})
}

// handleSystem returns information about the watcher host.
func (s *Server) handleSystem(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"system":     util.GetSystemInfo(),
		"uptime_sec": int64(time.Since(s.started).Seconds()),
	})
}

// handleStatus returns the last dispatched snapshot.
func (s *Server) handleStatus(c *gin.Context) {
	st, at := s.snapshot()
	if st == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  "no status observed yet",
			"target": s.target,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"target": s.target,
		"status": status.NewReport(st, at),
	})
}

// handleHistory returns recent status changes, newest first.
func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("history query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}
