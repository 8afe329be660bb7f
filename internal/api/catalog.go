package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erazemk/shramba/internal/model"
)

type createFoodRequest struct {
	Name           string    `json:"food_name" binding:"required"`
	Category       string    `json:"category" binding:"required"`
	Unit           string    `json:"unit" binding:"required"`
	Description    string    `json:"description"`
	ExpirationDate time.Time `json:"expiration_date"`
}

func (s *Server) createFood(c *gin.Context) {
	var req createFoodRequest
	if !s.bind(c, &req) {
		return
	}
	item, err := s.Catalog.Create(c.Request.Context(), model.FoodItem{
		Name:           req.Name,
		Category:       req.Category,
		Unit:           req.Unit,
		Description:    req.Description,
		ExpirationDate: req.ExpirationDate,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) listFood(c *gin.Context) {
	items, err := s.Catalog.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(items))
}

func (s *Server) getFood(c *gin.Context) {
	item, err := s.Catalog.Lookup(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
