package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Selection endpoints. Each admin session keeps one selection per screen;
// select-all is always evaluated against the caller's current filter state,
// so after narrowing a filter it re-derives from the new visible set instead
// of accumulating stale ids.

var selectableScreens = map[string]bool{
	"invoices":     true,
	"users":        true,
	"merchants":    true,
	"audit-logs":   true,
	"bot-activity": true,
}

func (s *Server) selectionFor(c *gin.Context) (screen string, ok bool) {
	screen = c.Param("screen")
	if !selectableScreens[screen] {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Unknown screen"})
		return "", false
	}
	return screen, true
}

func (s *Server) handleSelectionStatus(c *gin.Context) {
	screen, ok := s.selectionFor(c)
	if !ok {
		return
	}
	set := s.Selections.Get(c.GetString(ctxToken), screen)
	c.JSON(http.StatusOK, gin.H{"ids": set.IDs(), "count": set.Count()})
}

type toggleRequest struct {
	ID string `json:"id" binding:"required"`
}

func (s *Server) handleSelectionToggle(c *gin.Context) {
	screen, ok := s.selectionFor(c)
	if !ok {
		return
	}

	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "id is required"})
		return
	}

	set := s.Selections.Get(c.GetString(ctxToken), screen)
	set.Toggle(req.ID)
	c.JSON(http.StatusOK, gin.H{"count": set.Count(), "selected": set.Contains(req.ID)})
}

func (s *Server) handleSelectionSelectAll(c *gin.Context) {
	screen, ok := s.selectionFor(c)
	if !ok {
		return
	}

	ids, known := s.Registry.FilteredIDs(screen, parseFilterState(c))
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Unknown screen"})
		return
	}

	set := s.Selections.Get(c.GetString(ctxToken), screen)
	set.SelectAll(ids)
	c.JSON(http.StatusOK, gin.H{"count": set.Count()})
}

func (s *Server) handleSelectionClear(c *gin.Context) {
	screen, ok := s.selectionFor(c)
	if !ok {
		return
	}
	s.Selections.Get(c.GetString(ctxToken), screen).Clear()
	c.JSON(http.StatusOK, gin.H{"count": 0})
}
