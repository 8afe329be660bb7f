package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erazemk/shramba/internal/events"
	"github.com/erazemk/shramba/internal/model"
)

type createEventRequest struct {
	Name        string    `json:"event_name" binding:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Start       time.Time `json:"start_time"`
	End         time.Time `json:"end_time"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) createEvent(c *gin.Context) {
	org, ok := s.organization(c)
	if !ok {
		return
	}
	var req createEventRequest
	if !s.bind(c, &req) {
		return
	}
	e, err := s.Events.Create(c.Request.Context(), events.CreateRequest{
		OrganizationID: org,
		Name:           req.Name,
		Description:    req.Description,
		Location:       req.Location,
		Window:         model.TimeWindow{Start: req.Start, End: req.End},
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (s *Server) listEvents(c *gin.Context) {
	list, err := s.Events.List(c.Request.Context(), c.Query("organization_id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (s *Server) getEvent(c *gin.Context) {
	e, err := s.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// ownEvent loads an event of org. Another organization's event is reported
// as not found.
func (s *Server) ownEvent(c *gin.Context, org, eventID string) (*model.Event, bool) {
	e, err := s.Events.Get(c.Request.Context(), eventID)
	if err == nil && e.OrganizationID != org {
		err = model.NotFoundf("event %s not found", eventID)
	}
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return e, true
}

func (s *Server) setEventStatus(c *gin.Context) {
	org, ok := s.organization(c)
	if !ok {
		return
	}
	var req statusRequest
	if !s.bind(c, &req) {
		return
	}
	if _, ok := s.ownEvent(c, org, c.Param("id")); !ok {
		return
	}
	e, err := s.Events.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) updateEvent(c *gin.Context) {
	org, ok := s.organization(c)
	if !ok {
		return
	}
	var req createEventRequest
	if !s.bind(c, &req) {
		return
	}
	if _, ok := s.ownEvent(c, org, c.Param("id")); !ok {
		return
	}
	e, err := s.Events.Update(c.Request.Context(), c.Param("id"), events.UpdateRequest{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Window:      model.TimeWindow{Start: req.Start, End: req.End},
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) getEventInventory(c *gin.Context) {
	s.writeLedger(c, model.EventScope(c.Param("id")))
}

func (s *Server) moveToEvent(c *gin.Context) {
	org, ok := s.organization(c)
	if !ok {
		return
	}
	var req itemsRequest
	if !s.bind(c, &req) {
		return
	}
	eventID := c.Param("id")
	if err := s.Ledger.MoveToEvent(c.Request.Context(), org, eventID, req.Items, GetClaims(c).Subject); err != nil {
		s.respondError(c, err)
		return
	}
	s.writeLedger(c, model.EventScope(eventID))
}

func (s *Server) consumeEventStock(c *gin.Context) {
	org, ok := s.organization(c)
	if !ok {
		return
	}
	var req itemsRequest
	if !s.bind(c, &req) {
		return
	}
	eventID := c.Param("id")
	if _, ok := s.ownEvent(c, org, eventID); !ok {
		return
	}
	if err := s.Ledger.ConsumeEvent(c.Request.Context(), eventID, req.Items, GetClaims(c).Subject); err != nil {
		s.respondError(c, err)
		return
	}
	s.writeLedger(c, model.EventScope(eventID))
}

func (s *Server) returnEventStock(c *gin.Context) {
	org, ok := s.organization(c)
	if !ok {
		return
	}
	moved, err := s.Ledger.MoveToMain(c.Request.Context(), org, c.Param("id"), GetClaims(c).Subject)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"returned": moved})
}
