package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erazemk/shramba/internal/model"
)

func init() {
	// Quantities are rendered as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// statusFor maps a domain error kind to an HTTP status.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindInsufficientStock, model.KindSlotUnavailable, model.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error", "kind"}. Errors without a domain kind
// are logged and reported as a generic internal error.
func (s *Server) respondError(c *gin.Context, err error) {
	var derr *model.Error
	if errors.As(err, &derr) {
		c.JSON(statusFor(derr.Kind), gin.H{"error": derr.Error(), "kind": derr.Kind})
		return
	}
	s.logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// bind decodes the JSON body into target, writing a 400 on failure.
func (s *Server) bind(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		s.logger.Debug("invalid request body", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "kind": model.KindInvalidInput})
		return false
	}
	return true
}

// orEmpty keeps empty lists from encoding as null.
func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
