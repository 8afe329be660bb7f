package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shopspring/decimal"

	"github.com/erazemk/shramba/internal/ledger"
	"github.com/erazemk/shramba/internal/model"
)

type itemsRequest struct {
	Items []model.LineItem `json:"items"`
}

func (s *Server) getInventory(c *gin.Context) {
	org, ok := s.organization(c)
	if !ok {
		return
	}
	s.writeLedger(c, model.MainScope(org))
}

func (s *Server) getOrganizationInventory(c *gin.Context) {
	s.writeLedger(c, model.MainScope(c.Param("id")))
}

func (s *Server) writeLedger(c *gin.Context, scope model.Scope) {
	l, err := s.Ledger.Get(c.Request.Context(), scope)
	if err != nil {
		s.respondError(c, err)
		return
	}
	l.Lines = orEmpty(l.Lines)
	c.JSON(http.StatusOK, l)
}

func (s *Server) findStock(c *gin.Context) {
	org, ok := s.organization(c)
	if !ok {
		return
	}
	line, err := s.Ledger.Find(c.Request.Context(), model.MainScope(org), c.Param("food"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

type stockFunc func(ctx context.Context, organizationID string, items []model.LineItem, actor string) error

func (s *Server) receiveStock(c *gin.Context) { s.changeStock(c, s.Ledger.Receive) }
func (s *Server) removeStock(c *gin.Context)  { s.changeStock(c, s.Ledger.Remove) }

func (s *Server) changeStock(c *gin.Context, fn stockFunc) {
	org, ok := s.organization(c)
	if !ok {
		return
	}
	var req itemsRequest
	if !s.bind(c, &req) {
		return
	}
	if err := fn(c.Request.Context(), org, req.Items, GetClaims(c).Subject); err != nil {
		s.respondError(c, err)
		return
	}
	s.writeLedger(c, model.MainScope(org))
}

type adjustRequest struct {
	Changes []struct {
		FoodName string          `json:"food_name"`
		Delta    decimal.Decimal `json:"delta"`
	} `json:"changes"`
}

// adjustStock applies signed corrections to the caller's main ledger.
func (s *Server) adjustStock(c *gin.Context) {
	org, ok := s.organization(c)
	if !ok {
		return
	}
	var req adjustRequest
	if !s.bind(c, &req) {
		return
	}
	deltas := make([]ledger.Delta, 0, len(req.Changes))
	for _, ch := range req.Changes {
		deltas = append(deltas, ledger.Delta{FoodName: ch.FoodName, Quantity: ch.Delta})
	}
	if err := s.Ledger.Apply(c.Request.Context(), model.MainScope(org), deltas); err != nil {
		s.respondError(c, err)
		return
	}
	s.writeLedger(c, model.MainScope(org))
}

// listMovements returns the movement history of the caller's main ledger, or
// of one of its events with ?event_id=.
func (s *Server) listMovements(c *gin.Context) {
	org, ok := s.organization(c)
	if !ok {
		return
	}
	scope := model.MainScope(org)
	if eventID := c.Query("event_id"); eventID != "" {
		if _, ok := s.ownEvent(c, org, eventID); !ok {
			return
		}
		scope = model.EventScope(eventID)
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(c, model.InvalidInputf("limit must be a positive integer"))
			return
		}
		limit = n
	}

	moves, err := s.Ledger.Movements(c.Request.Context(), scope, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(moves))
}
