package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"reservation-service/internal/models"
	"reservation-service/internal/service"
)

func TestItemQueryService_GetAvailability_CacheHit(t *testing.T) {
	// Arrange
	mockItems := new(MockItemRepository)
	mockCache := new(MockItemCache)
	svc := service.NewItemQueryService(mockItems, mockCache)

	mockCache.On("GetItem", mock.Anything, "FILTER-2025").Return(activeItem("FILTER-2025"), nil)

	// Act
	result, err := svc.GetAvailability(context.Background(), "FILTER-2025")

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "FILTER-2025", result.ItemCode)
	assert.Equal(t, 12, result.CurrentStock)
	assert.True(t, result.CacheHit)

	mockCache.AssertExpectations(t)
	mockItems.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)
}

func TestItemQueryService_GetAvailability_CacheMiss(t *testing.T) {
	// Arrange
	mockItems := new(MockItemRepository)
	mockCache := new(MockItemCache)
	svc := service.NewItemQueryService(mockItems, mockCache)

	mockCache.On("GetItem", mock.Anything, "FILTER-2025").Return(nil, nil)
	mockItems.On("GetItem", mock.Anything, "FILTER-2025").Return(activeItem("FILTER-2025"), nil)
	// The cache fill happens asynchronously in a goroutine, so we make it optional
	mockCache.On("SetItem", mock.Anything, mock.Anything).Return(nil).Maybe()

	// Act
	result, err := svc.GetAvailability(context.Background(), "FILTER-2025")

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.False(t, result.CacheHit)
	assert.Equal(t, 12, result.CurrentStock)

	mockCache.AssertExpectations(t)
	mockItems.AssertExpectations(t)
}

func TestItemQueryService_GetAvailability_CacheErrorFallsBack(t *testing.T) {
	// Arrange
	mockItems := new(MockItemRepository)
	mockCache := new(MockItemCache)
	svc := service.NewItemQueryService(mockItems, mockCache)

	mockCache.On("GetItem", mock.Anything, "FILTER-2025").Return(nil, assert.AnError)
	mockItems.On("GetItem", mock.Anything, "FILTER-2025").Return(activeItem("FILTER-2025"), nil)
	mockCache.On("SetItem", mock.Anything, mock.Anything).Return(nil).Maybe()

	// Act
	result, err := svc.GetAvailability(context.Background(), "FILTER-2025")

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.False(t, result.CacheHit)
}

func TestItemQueryService_GetAvailability_NotFound(t *testing.T) {
	// Arrange
	mockItems := new(MockItemRepository)
	mockCache := new(MockItemCache)
	svc := service.NewItemQueryService(mockItems, mockCache)

	mockCache.On("GetItem", mock.Anything, "GHOST-1").Return(nil, nil)
	mockItems.On("GetItem", mock.Anything, "GHOST-1").Return(nil, nil)

	// Act
	result, err := svc.GetAvailability(context.Background(), "GHOST-1")

	// Assert
	assert.Nil(t, result)
	assert.True(t, models.IsNotFoundError(err))
}

func TestItemQueryService_ListTransactions_DefaultLimit(t *testing.T) {
	// Arrange
	mockItems := new(MockItemRepository)
	mockCache := new(MockItemCache)
	svc := service.NewItemQueryService(mockItems, mockCache)

	mockItems.On("GetItem", mock.Anything, "FILTER-2025").Return(activeItem("FILTER-2025"), nil)
	mockItems.On("ListTransactions", mock.Anything, "FILTER-2025", 50).Return([]models.StockTransaction{
		{ItemCode: "FILTER-2025", TransactionType: models.TransactionTypeIn, Quantity: 3},
	}, nil)

	// Act
	transactions, err := svc.ListTransactions(context.Background(), "FILTER-2025", 0)

	// Assert
	assert.NoError(t, err)
	assert.Len(t, transactions, 1)
	mockItems.AssertExpectations(t)
}

func TestItemQueryService_ListTransactions_UnknownItem(t *testing.T) {
	// Arrange
	mockItems := new(MockItemRepository)
	mockCache := new(MockItemCache)
	svc := service.NewItemQueryService(mockItems, mockCache)

	mockItems.On("GetItem", mock.Anything, "GHOST-1").Return(nil, nil)

	// Act
	transactions, err := svc.ListTransactions(context.Background(), "GHOST-1", 10)

	// Assert
	assert.Nil(t, transactions)
	assert.True(t, models.IsNotFoundError(err))
	mockItems.AssertNotCalled(t, "ListTransactions", mock.Anything, mock.Anything, mock.Anything)
}
