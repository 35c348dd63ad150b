package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reservation-service/internal/models"
)

// RequestIDMiddleware assigns a request id, honoring one supplied by the caller
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggingMiddleware logs each request with latency and status
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request completed")
	}
}

// CORSMiddleware handles cross-origin requests
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// respondError maps a service error onto an RFC 7807 problem response
func respondError(c *gin.Context, err error) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		conflictErr   *models.ConflictError
		transientErr  *models.TransientError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, models.NewValidationProblem(validationErr.Field, validationErr.Message))
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, models.NewNotFoundProblem(notFoundErr.Error()))
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, models.NewConflictProblem(conflictErr.Reason))
	case errors.As(err, &transientErr):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, models.NewTransientProblem("storage temporarily unavailable, retry the request"))
	default:
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Unhandled error")
		c.JSON(http.StatusInternalServerError, models.NewInternalErrorProblem())
	}
}

// respondBindError maps a request binding failure onto a 400 problem,
// surfacing the first failed field when the validator reports one
func respondBindError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		c.JSON(http.StatusBadRequest, models.NewValidationProblem(fe.Field(), "failed validation on '"+fe.Tag()+"'"))
		return
	}
	c.JSON(http.StatusBadRequest, models.NewValidationProblem("", "invalid request body: "+err.Error()))
}
