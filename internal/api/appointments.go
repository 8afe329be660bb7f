package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erazemk/shramba/internal/auth"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/schedule"
)

type createAppointmentRequest struct {
	OrganizationID string           `json:"organization_id" binding:"required"`
	Start          time.Time        `json:"start_time"`
	End            time.Time        `json:"end_time"`
	Items          []model.LineItem `json:"items"`
	Description    string           `json:"description"`
}

type windowRequest struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

func (s *Server) createAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if !s.bind(c, &req) {
		return
	}
	appt, err := s.Schedule.Create(c.Request.Context(), schedule.CreateRequest{
		RequesterID:    GetClaims(c).Subject,
		OrganizationID: req.OrganizationID,
		Window:         model.TimeWindow{Start: req.Start, End: req.End},
		Items:          req.Items,
		Description:    req.Description,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

// listAppointments lists the caller's organization's appointments (with an
// optional ?status=) for a foodbank, or the caller's own bookings otherwise.
func (s *Server) listAppointments(c *gin.Context) {
	claims := GetClaims(c)
	var (
		list []model.Appointment
		err  error
	)
	if claims.Role == model.RoleIndividual {
		list, err = s.Schedule.ListByRequester(c.Request.Context(), claims.Subject)
	} else {
		org, ok := s.organization(c)
		if !ok {
			return
		}
		list, err = s.Schedule.ListByOrganization(c.Request.Context(), org, c.Query("status"))
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

// visibleAppointment loads an appointment the caller is party to. Anything
// else is reported as not found.
func (s *Server) visibleAppointment(c *gin.Context) (*model.Appointment, bool) {
	id := c.Param("id")
	appt, err := s.Schedule.Get(c.Request.Context(), id)
	if err == nil && !partyTo(GetClaims(c), appt) {
		err = model.NotFoundf("appointment %s not found", id)
	}
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return appt, true
}

func partyTo(claims *auth.Claims, appt *model.Appointment) bool {
	switch claims.Role {
	case model.RoleAdmin:
		return true
	case model.RoleFoodbank:
		return claims.Subject == appt.OrganizationID
	case model.RoleIndividual:
		return claims.Subject == appt.RequesterID
	}
	return false
}

func (s *Server) getAppointment(c *gin.Context) {
	appt, ok := s.visibleAppointment(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (s *Server) rescheduleAppointment(c *gin.Context) {
	var req windowRequest
	if !s.bind(c, &req) {
		return
	}
	appt, ok := s.visibleAppointment(c)
	if !ok {
		return
	}
	appt, err := s.Schedule.Reschedule(c.Request.Context(), appt.ID, model.TimeWindow{Start: req.Start, End: req.End})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (s *Server) setAppointmentStatus(c *gin.Context) {
	var req statusRequest
	if !s.bind(c, &req) {
		return
	}
	appt, ok := s.visibleAppointment(c)
	if !ok {
		return
	}
	appt, err := s.Schedule.SetStatus(c.Request.Context(), appt.ID, req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}
