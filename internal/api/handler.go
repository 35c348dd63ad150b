package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reservation-service/internal/interfaces"
	"reservation-service/internal/models"
)

// Handler wires the HTTP surface to the reservation, return and read services
type Handler struct {
	reservations interfaces.ReservationManager
	returns      interfaces.ReturnProcessor
	items        interfaces.ItemReader
}

// NewHandler creates a new API handler
func NewHandler(reservations interfaces.ReservationManager, returns interfaces.ReturnProcessor, items interfaces.ItemReader) *Handler {
	return &Handler{
		reservations: reservations,
		returns:      returns,
		items:        items,
	}
}

// SetupRouter configures the gin router with all routes and middleware
func (h *Handler) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware())
	router.Use(CORSMiddleware())

	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/reservations", h.CreateReservation)
		v1.GET("/reservations/:id", h.GetReservation)
		v1.POST("/reservations/:id/cancel", h.CancelReservation)
		v1.POST("/reservations/:id/return", h.ReturnReservation)

		v1.GET("/items/:code", h.GetItemAvailability)
		v1.GET("/items/:code/transactions", h.ListItemTransactions)
	}

	return router
}

// Health returns service health status
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// CreateReservation handles POST /api/v1/reservations.
// Returns 201 with created=true on first creation, 200 with created=false
// when an identical active reservation already held the slot.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req models.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.reservations.Reserve(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

// GetReservation handles GET /api/v1/reservations/:id
func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := parseReservationID(c)
	if !ok {
		return
	}

	reservation, err := h.reservations.GetReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// CancelReservation handles POST /api/v1/reservations/:id/cancel
func (h *Handler) CancelReservation(c *gin.Context) {
	id, ok := parseReservationID(c)
	if !ok {
		return
	}

	if err := h.reservations.Cancel(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ReturnReservation handles POST /api/v1/reservations/:id/return
func (h *Handler) ReturnReservation(c *gin.Context) {
	id, ok := parseReservationID(c)
	if !ok {
		return
	}

	var req models.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	outcome, err := h.returns.Return(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ReturnEnvelope{Success: true, Data: outcome})
}

// GetItemAvailability handles GET /api/v1/items/:code
func (h *Handler) GetItemAvailability(c *gin.Context) {
	availability, err := h.items.GetAvailability(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, availability)
}

// ListItemTransactions handles GET /api/v1/items/:code/transactions
func (h *Handler) ListItemTransactions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, models.NewValidationProblem("limit", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	transactions, err := h.items.ListTransactions(c.Request.Context(), c.Param("code"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item_code":    c.Param("code"),
		"transactions": transactions,
		"count":        len(transactions),
	})
}

func parseReservationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationProblem("id", "reservation id must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}
