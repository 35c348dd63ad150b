package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"reservation-service/internal/interfaces"
	"reservation-service/internal/models"
)

const defaultTransactionLimit = 50

// ItemQueryService serves the read path of the item ledger, cache first
type ItemQueryService struct {
	items interfaces.ItemRepository
	cache interfaces.ItemCache
}

// NewItemQueryService creates a new item query service
func NewItemQueryService(items interfaces.ItemRepository, cache interfaces.ItemCache) *ItemQueryService {
	return &ItemQueryService{items: items, cache: cache}
}

// GetAvailability returns an item's ledger view, checking the cache first
func (s *ItemQueryService) GetAvailability(ctx context.Context, itemCode string) (*models.ItemAvailability, error) {
	item, err := s.cache.GetItem(ctx, itemCode)
	if err != nil {
		log.Error().Err(err).Str("item_code", itemCode).Msg("Cache error, falling back to database")
	}

	if item != nil {
		return buildAvailability(item, true), nil
	}

	item, err = s.items.GetItem(ctx, itemCode)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &models.NotFoundError{Resource: "inventory item", ID: itemCode}
	}

	// Fill the cache off the request path
	cached := *item
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.cache.SetItem(ctx, &cached); err != nil {
			log.Error().Err(err).Str("item_code", itemCode).Msg("Failed to update item cache")
		}
	}()

	return buildAvailability(item, false), nil
}

// ListTransactions returns the most recent ledger mutations for an item
func (s *ItemQueryService) ListTransactions(ctx context.Context, itemCode string, limit int) ([]models.StockTransaction, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}

	item, err := s.items.GetItem(ctx, itemCode)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &models.NotFoundError{Resource: "inventory item", ID: itemCode}
	}

	return s.items.ListTransactions(ctx, itemCode, limit)
}

func buildAvailability(item *models.InventoryItem, cacheHit bool) *models.ItemAvailability {
	return &models.ItemAvailability{
		ItemCode:     item.ItemCode,
		ItemName:     item.ItemName,
		CurrentStock: item.CurrentStock,
		ReorderLevel: item.ReorderLevel,
		Status:       item.Status,
		IsActive:     item.IsActive,
		CacheHit:     cacheHit,
		LastUpdated:  item.UpdatedAt,
	}
}
