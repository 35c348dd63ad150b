package test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"reservation-service/internal/api"
	"reservation-service/internal/models"
)

// MockReservationManager implements the reservation manager interface for testing
type MockReservationManager struct {
	mock.Mock
}

func (m *MockReservationManager) Reserve(ctx context.Context, req *models.ReserveRequest) (*models.ReserveResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReserveResponse), args.Error(1)
}

func (m *MockReservationManager) Cancel(ctx context.Context, reservationID uuid.UUID) error {
	args := m.Called(ctx, reservationID)
	return args.Error(0)
}

func (m *MockReservationManager) GetReservation(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

// MockReturnProcessor implements the return processor interface for testing
type MockReturnProcessor struct {
	mock.Mock
}

func (m *MockReturnProcessor) Return(ctx context.Context, reservationID uuid.UUID, req *models.ReturnRequest) (*models.ReturnOutcome, error) {
	args := m.Called(ctx, reservationID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReturnOutcome), args.Error(1)
}

// MockItemReader implements the item reader interface for testing
type MockItemReader struct {
	mock.Mock
}

func (m *MockItemReader) GetAvailability(ctx context.Context, itemCode string) (*models.ItemAvailability, error) {
	args := m.Called(ctx, itemCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ItemAvailability), args.Error(1)
}

func (m *MockItemReader) ListTransactions(ctx context.Context, itemCode string, limit int) ([]models.StockTransaction, error) {
	args := m.Called(ctx, itemCode, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StockTransaction), args.Error(1)
}

type apiFixture struct {
	reservations *MockReservationManager
	returns      *MockReturnProcessor
	items        *MockItemReader
	router       *gin.Engine
}

func newAPIFixture() *apiFixture {
	gin.SetMode(gin.TestMode)
	f := &apiFixture{
		reservations: new(MockReservationManager),
		returns:      new(MockReturnProcessor),
		items:        new(MockItemReader),
	}
	f.router = api.NewHandler(f.reservations, f.returns, f.items).SetupRouter()
	return f
}

func (f *apiFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAPI_CreateReservation_New(t *testing.T) {
	// Arrange
	f := newAPIFixture()
	reservationID := uuid.New()

	f.reservations.On("Reserve", mock.Anything, mock.MatchedBy(func(r *models.ReserveRequest) bool {
		return r.ItemCode == "FILTER-2025" && r.TaskID == "TASK-88" && r.Quantity == 3
	})).Return(&models.ReserveResponse{ReservationID: reservationID, Created: true}, nil)

	// Act
	w := f.do(http.MethodPost, "/api/v1/reservations", gin.H{
		"item_code":   "FILTER-2025",
		"task_id":     "TASK-88",
		"quantity":    3,
		"reserved_by": "tech-julia",
	})

	// Assert
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.ReserveResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, reservationID, resp.ReservationID)
	assert.True(t, resp.Created)

	f.reservations.AssertExpectations(t)
}

func TestAPI_CreateReservation_Duplicate(t *testing.T) {
	// Arrange
	f := newAPIFixture()
	reservationID := uuid.New()

	f.reservations.On("Reserve", mock.Anything, mock.Anything).
		Return(&models.ReserveResponse{ReservationID: reservationID, Created: false}, nil)

	// Act
	w := f.do(http.MethodPost, "/api/v1/reservations", gin.H{
		"item_code":   "FILTER-2025",
		"task_id":     "TASK-88",
		"quantity":    3,
		"reserved_by": "tech-julia",
	})

	// Assert: a duplicate is absorbed, not created
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ReserveResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, reservationID, resp.ReservationID)
	assert.False(t, resp.Created)
}

func TestAPI_CreateReservation_MissingFields(t *testing.T) {
	f := newAPIFixture()

	w := f.do(http.MethodPost, "/api/v1/reservations", gin.H{"item_code": "FILTER-2025"})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.ProblemDetails
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeValidationError, problem.Type)

	f.reservations.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
}

func TestAPI_CreateReservation_UnknownItem(t *testing.T) {
	f := newAPIFixture()

	f.reservations.On("Reserve", mock.Anything, mock.Anything).
		Return(nil, &models.NotFoundError{Resource: "inventory item", ID: "GHOST-1"})

	w := f.do(http.MethodPost, "/api/v1/reservations", gin.H{
		"item_code":   "GHOST-1",
		"task_id":     "TASK-1",
		"quantity":    1,
		"reserved_by": "tech-julia",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_CreateReservation_TransientFailure(t *testing.T) {
	f := newAPIFixture()

	f.reservations.On("Reserve", mock.Anything, mock.Anything).
		Return(nil, &models.TransientError{Op: "find or create reservation"})

	w := f.do(http.MethodPost, "/api/v1/reservations", gin.H{
		"item_code":   "FILTER-2025",
		"task_id":     "TASK-88",
		"quantity":    3,
		"reserved_by": "tech-julia",
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestAPI_CancelReservation(t *testing.T) {
	f := newAPIFixture()
	id := uuid.New()

	f.reservations.On("Cancel", mock.Anything, id).Return(nil)

	w := f.do(http.MethodPost, "/api/v1/reservations/"+id.String()+"/cancel", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	f.reservations.AssertExpectations(t)
}

func TestAPI_CancelReservation_InvalidID(t *testing.T) {
	f := newAPIFixture()

	w := f.do(http.MethodPost, "/api/v1/reservations/not-a-uuid/cancel", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.reservations.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestAPI_ReturnReservation_Good(t *testing.T) {
	// Arrange
	f := newAPIFixture()
	id := uuid.New()
	newStock := 15

	f.returns.On("Return", mock.Anything, id, mock.MatchedBy(func(r *models.ReturnRequest) bool {
		return r.ItemCondition == "good" && r.QuantityReturned == 3
	})).Return(&models.ReturnOutcome{
		ReturnID:         uuid.New(),
		ReservationID:    id,
		ItemCode:         "FILTER-2025",
		QuantityReturned: 3,
		ItemCondition:    models.ItemConditionGood,
		Status:           models.ReturnStatusAvailable,
		NewStock:         &newStock,
	}, nil)

	// Act
	w := f.do(http.MethodPost, "/api/v1/reservations/"+id.String()+"/return", gin.H{
		"item_condition":    "good",
		"quantity_returned": 3,
		"returned_by":       "tech-julia",
	})

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)

	var envelope models.ReturnEnvelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, models.ReturnStatusAvailable, envelope.Data.Status)
	assert.NotNil(t, envelope.Data.NewStock)
	assert.Equal(t, 15, *envelope.Data.NewStock)

	f.returns.AssertExpectations(t)
}

func TestAPI_ReturnReservation_AlreadyReturned(t *testing.T) {
	f := newAPIFixture()
	id := uuid.New()

	f.returns.On("Return", mock.Anything, id, mock.Anything).
		Return(nil, &models.ConflictError{Resource: "reservation", Reason: "reservation already left the RESERVED state"})

	w := f.do(http.MethodPost, "/api/v1/reservations/"+id.String()+"/return", gin.H{
		"item_condition":    "good",
		"quantity_returned": 1,
		"returned_by":       "tech-julia",
	})

	assert.Equal(t, http.StatusConflict, w.Code)

	var problem models.ProblemDetails
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeBusinessError, problem.Type)
}

func TestAPI_GetItemAvailability(t *testing.T) {
	f := newAPIFixture()

	f.items.On("GetAvailability", mock.Anything, "FILTER-2025").Return(&models.ItemAvailability{
		ItemCode:     "FILTER-2025",
		ItemName:     "HVAC Filter 20x25",
		CurrentStock: 12,
		ReorderLevel: 5,
		Status:       models.ItemStatusAvailable,
		IsActive:     true,
		CacheHit:     true,
	}, nil)

	w := f.do(http.MethodGet, "/api/v1/items/FILTER-2025", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ItemAvailability
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp.CurrentStock)
	assert.True(t, resp.CacheHit)
}

func TestAPI_ListItemTransactions_BadLimit(t *testing.T) {
	f := newAPIFixture()

	w := f.do(http.MethodGet, "/api/v1/items/FILTER-2025/transactions?limit=zero", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.items.AssertNotCalled(t, "ListTransactions", mock.Anything, mock.Anything, mock.Anything)
}

func TestAPI_Health(t *testing.T) {
	f := newAPIFixture()

	w := f.do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
