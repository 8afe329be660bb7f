package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erazemk/shramba/internal/jobs"
)

type createJobRequest struct {
	EventID     string    `json:"event_id"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Category    string    `json:"category" binding:"required"`
	Deadline    time.Time `json:"deadline"`
}

func (s *Server) createJob(c *gin.Context) {
	org, ok := s.organization(c)
	if !ok {
		return
	}
	var req createJobRequest
	if !s.bind(c, &req) {
		return
	}
	job, err := s.Jobs.Create(c.Request.Context(), jobs.CreateRequest{
		OrganizationID: org,
		EventID:        req.EventID,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		Category:       req.Category,
		Deadline:       req.Deadline,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// listJobs filters by ?organization_id=, ?event_id= and ?available=true.
func (s *Server) listJobs(c *gin.Context) {
	list, err := s.Jobs.List(c.Request.Context(), jobs.Filter{
		OrganizationID: c.Query("organization_id"),
		EventID:        c.Query("event_id"),
		AvailableOnly:  c.Query("available") == "true",
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (s *Server) getJob(c *gin.Context) {
	job, err := s.Jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
