package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/volunteer"
)

type applyRequest struct {
	JobID string `json:"job_id" binding:"required"`
}

type activityRequest struct {
	DateWorked       time.Time `json:"date_worked"`
	OrganizationName string    `json:"organization_name"`
	Start            time.Time `json:"start_time"`
	End              time.Time `json:"end_time"`
}

func (s *Server) apply(c *gin.Context) {
	var req applyRequest
	if !s.bind(c, &req) {
		return
	}
	app, err := s.Volunteer.Apply(c.Request.Context(), GetClaims(c).Subject, req.JobID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// listApplications returns a volunteer's own applications, or for a foodbank
// those filed with it (or with one of its events via ?event_id=).
func (s *Server) listApplications(c *gin.Context) {
	claims := GetClaims(c)
	f := volunteer.Filter{Status: c.Query("status"), JobID: c.Query("job_id")}

	if claims.Role == model.RoleVolunteer {
		f.VolunteerID = claims.Subject
	} else {
		org, ok := s.organization(c)
		if !ok {
			return
		}
		if eventID := c.Query("event_id"); eventID != "" {
			if _, ok := s.ownEvent(c, org, eventID); !ok {
				return
			}
			f.EventID = eventID
		} else {
			f.OrganizationID = org
		}
	}

	list, err := s.Volunteer.List(c.Request.Context(), f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

// ownApplication loads an application filed with the caller's organization.
func (s *Server) ownApplication(c *gin.Context) (*model.Application, bool) {
	org, ok := s.organization(c)
	if !ok {
		return nil, false
	}
	id := c.Param("id")
	ctx := c.Request.Context()

	app, err := s.Volunteer.Get(ctx, id)
	if err == nil {
		var owned bool
		owned, err = s.Volunteer.OwnedBy(ctx, app, org)
		if err == nil && !owned {
			err = model.NotFoundf("application %s not found", id)
		}
	}
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return app, true
}

func (s *Server) decideApplication(c *gin.Context) {
	var req statusRequest
	if !s.bind(c, &req) {
		return
	}
	app, ok := s.ownApplication(c)
	if !ok {
		return
	}
	app, err := s.Volunteer.Decide(c.Request.Context(), app.ID, req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *Server) withdrawApplication(c *gin.Context) {
	if err := s.Volunteer.Withdraw(c.Request.Context(), GetClaims(c).Subject, c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) logActivity(c *gin.Context) {
	var req activityRequest
	if !s.bind(c, &req) {
		return
	}
	app, ok := s.ownApplication(c)
	if !ok {
		return
	}
	rec, err := s.Volunteer.LogActivity(c.Request.Context(), app.ID, volunteer.Activity{
		DateWorked:       req.DateWorked,
		OrganizationName: req.OrganizationName,
		WorkingHours:     model.TimeWindow{Start: req.Start, End: req.End},
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) listActivities(c *gin.Context) {
	list, err := s.Volunteer.ListActivities(c.Request.Context(), GetClaims(c).Subject)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}
