// Package api exposes the stock ledger, scheduling and volunteer workflows
// over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erazemk/shramba/internal/catalog"
	"github.com/erazemk/shramba/internal/events"
	"github.com/erazemk/shramba/internal/jobs"
	"github.com/erazemk/shramba/internal/ledger"
	"github.com/erazemk/shramba/internal/metrics"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/schedule"
	"github.com/erazemk/shramba/internal/volunteer"
)

// Services are the domain services the handlers call into.
type Services struct {
	Catalog   *catalog.Service
	Ledger    *ledger.Service
	Events    *events.Service
	Schedule  *schedule.Service
	Jobs      *jobs.Service
	Volunteer *volunteer.Service
}

// Server holds the handler dependencies.
type Server struct {
	Services
	logger *zap.Logger
}

// NewRouter creates the gin engine with all endpoints registered.
func NewRouter(svc Services, jwtSecret string, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{Services: svc, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger, m))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	foodbank := RequireRole(model.RoleFoodbank)
	individual := RequireRole(model.RoleIndividual)
	volunteerOnly := RequireRole(model.RoleVolunteer)
	either := RequireRole(model.RoleFoodbank, model.RoleIndividual)
	anyRole := RequireRole(model.RoleFoodbank, model.RoleIndividual, model.RoleVolunteer)

	a := r.Group("/api", AuthMiddleware(jwtSecret))

	// Catalog.
	a.POST("/catalog", foodbank, s.createFood)
	a.GET("/catalog", anyRole, s.listFood)
	a.GET("/catalog/:name", anyRole, s.getFood)

	// Main inventory of the calling organization.
	a.GET("/inventory", foodbank, s.getInventory)
	a.GET("/inventory/:food", foodbank, s.findStock)
	a.POST("/inventory/receive", foodbank, s.receiveStock)
	a.POST("/inventory/remove", foodbank, s.removeStock)
	a.POST("/inventory/adjust", foodbank, s.adjustStock)
	a.GET("/movements", foodbank, s.listMovements)
	a.GET("/organizations/:id/inventory", anyRole, s.getOrganizationInventory)

	// Events and their ledgers.
	a.POST("/events", foodbank, s.createEvent)
	a.GET("/events", anyRole, s.listEvents)
	a.GET("/events/:id", anyRole, s.getEvent)
	a.PUT("/events/:id", foodbank, s.updateEvent)
	a.PUT("/events/:id/status", foodbank, s.setEventStatus)
	a.GET("/events/:id/inventory", anyRole, s.getEventInventory)
	a.POST("/events/:id/inventory", foodbank, s.moveToEvent)
	a.POST("/events/:id/inventory/consume", foodbank, s.consumeEventStock)
	a.POST("/events/:id/inventory/return", foodbank, s.returnEventStock)

	// Appointments.
	a.POST("/appointments", individual, s.createAppointment)
	a.GET("/appointments", either, s.listAppointments)
	a.GET("/appointments/:id", anyRole, s.getAppointment)
	a.PUT("/appointments/:id/reschedule", either, s.rescheduleAppointment)
	a.PUT("/appointments/:id/status", foodbank, s.setAppointmentStatus)

	// Volunteering.
	a.POST("/jobs", foodbank, s.createJob)
	a.GET("/jobs", anyRole, s.listJobs)
	a.GET("/jobs/:id", anyRole, s.getJob)
	a.POST("/applications", volunteerOnly, s.apply)
	a.GET("/applications", RequireRole(model.RoleFoodbank, model.RoleVolunteer), s.listApplications)
	a.PUT("/applications/:id/decision", foodbank, s.decideApplication)
	a.DELETE("/applications/:id", volunteerOnly, s.withdrawApplication)
	a.POST("/applications/:id/activities", foodbank, s.logActivity)
	a.GET("/activities", volunteerOnly, s.listActivities)

	logger.Info("router initialized")
	return r
}

// organization returns the organization the caller acts for: a foodbank's
// own id, or for admins the organization_id query parameter.
func (s *Server) organization(c *gin.Context) (string, bool) {
	claims := GetClaims(c)
	if claims.Role == model.RoleAdmin {
		if org := c.Query("organization_id"); org != "" {
			return org, true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id required", "kind": model.KindInvalidInput})
		return "", false
	}
	return claims.Subject, true
}
