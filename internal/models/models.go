package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReservationStatus represents the lifecycle state of a reservation
type ReservationStatus string

const (
	ReservationStatusReserved  ReservationStatus = "RESERVED"
	ReservationStatusReturned  ReservationStatus = "RETURNED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// ItemStatus represents the ledger state of an inventory item
type ItemStatus string

const (
	ItemStatusAvailable   ItemStatus = "available"
	ItemStatusNeedsRepair ItemStatus = "needs_repair"
)

// ItemCondition is the condition an item is returned in. The set is closed;
// unrecognized values are rejected at the boundary instead of defaulting.
type ItemCondition string

const (
	ItemConditionGood      ItemCondition = "good"
	ItemConditionDefective ItemCondition = "defective"
)

// ParseItemCondition validates a wire-level condition value
func ParseItemCondition(s string) (ItemCondition, error) {
	switch ItemCondition(s) {
	case ItemConditionGood:
		return ItemConditionGood, nil
	case ItemConditionDefective:
		return ItemConditionDefective, nil
	default:
		return "", &ValidationError{Field: "item_condition", Message: fmt.Sprintf("unknown item condition %q, expected \"good\" or \"defective\"", s), Value: s}
	}
}

// Return outcome statuses reported to callers
const (
	ReturnStatusAvailable   = "available"
	ReturnStatusQuarantined = "quarantined"
)

// Stock transaction types
const (
	TransactionTypeIn         = "in"
	TransactionTypeOut        = "out"
	TransactionTypeAdjustment = "adjustment"
)

// Notification event types published through the outbox
const (
	EventTypeItemQuarantined      = "item_quarantined"
	EventTypeReplacementRequested = "replacement_requested"
	EventTypeLowStock             = "low_stock"
)

// Notification audiences
const (
	AudienceAdmin = "admin"
)

// Low stock alert levels, in increasing severity
const (
	AlertLevelLow        = "low"
	AlertLevelCritical   = "critical"
	AlertLevelOutOfStock = "out_of_stock"
)

// LowStockLevel classifies a stock level against its reorder threshold.
// Returns "" when stock is above the reorder level and no alert applies.
func LowStockLevel(currentStock, reorderLevel int) string {
	switch {
	case currentStock > reorderLevel:
		return ""
	case currentStock == 0:
		return AlertLevelOutOfStock
	case currentStock*2 <= reorderLevel:
		return AlertLevelCritical
	default:
		return AlertLevelLow
	}
}

// Domain Models

// InventoryItem is an entry in the item ledger. current_stock is mutated only
// through the return processor's increment path and future issuance flows,
// never directly by callers.
type InventoryItem struct {
	ItemCode        string     `db:"item_code" json:"item_code"`
	ItemName        string     `db:"item_name" json:"item_name"`
	BuildingID      string     `db:"building_id" json:"building_id"`
	CurrentStock    int        `db:"current_stock" json:"current_stock"`
	ReorderLevel    int        `db:"reorder_level" json:"reorder_level"`
	Status          ItemStatus `db:"status" json:"status"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	ConditionNotes  string     `db:"condition_notes" json:"condition_notes,omitempty"`
	LastRestockedAt *time.Time `db:"last_restocked_at" json:"last_restocked_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Reservation is a claim on a quantity of an inventory item for a maintenance
// task. At most one RESERVED reservation exists per (item_code, task_id); the
// partial unique index in the store enforces it.
type Reservation struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	ItemCode         string            `db:"item_code" json:"item_code"`
	TaskID           string            `db:"task_id" json:"task_id"`
	QuantityReserved int               `db:"quantity_reserved" json:"quantity_reserved"`
	Status           ReservationStatus `db:"status" json:"status"`
	ReservedBy       string            `db:"reserved_by" json:"reserved_by"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// ReturnRecord documents the terminal return of a reservation (1:1)
type ReturnRecord struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	ReservationID    uuid.UUID     `db:"reservation_id" json:"reservation_id"`
	ItemCondition    ItemCondition `db:"item_condition" json:"item_condition"`
	QuantityReturned int           `db:"quantity_returned" json:"quantity_returned"`
	NeedsReplacement bool          `db:"needs_replacement" json:"needs_replacement"`
	ReturnedBy       string        `db:"returned_by" json:"returned_by"`
	ReturnedAt       time.Time     `db:"returned_at" json:"returned_at"`
	Notes            string        `db:"notes" json:"notes,omitempty"`
}

// ReplacementRequest is a priority procurement request generated for a
// defective return whose consumer still needs the item. ReplacementFor points
// back at the originating reservation; its fulfillment lifecycle is owned by
// the procurement collaborator.
type ReplacementRequest struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ItemCode       string    `db:"item_code" json:"item_code"`
	Quantity       int       `db:"quantity" json:"quantity"`
	ReplacementFor uuid.UUID `db:"replacement_for" json:"replacement_for"`
	IsPriority     bool      `db:"is_priority" json:"is_priority"`
	Status         string    `db:"status" json:"status"`
	RequestedBy    string    `db:"requested_by" json:"requested_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// StockTransaction is an audit row for every ledger mutation
type StockTransaction struct {
	ID              int64     `db:"id" json:"id"`
	ItemCode        string    `db:"item_code" json:"item_code"`
	TransactionType string    `db:"transaction_type" json:"transaction_type"`
	Quantity        int       `db:"quantity" json:"quantity"`
	PreviousStock   int       `db:"previous_stock" json:"previous_stock"`
	NewStock        int       `db:"new_stock" json:"new_stock"`
	ReferenceType   string    `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID     string    `db:"reference_id" json:"reference_id,omitempty"`
	Reason          string    `db:"reason" json:"reason,omitempty"`
	PerformedBy     string    `db:"performed_by" json:"performed_by"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// NotificationEvent is the payload staged in the outbox and delivered to the
// notification dispatcher after the owning transaction commits.
type NotificationEvent struct {
	EventID       string     `json:"event_id"`
	EventType     string     `json:"event_type"`
	Audience      string     `json:"audience"`
	ItemCode      string     `json:"item_code"`
	ItemName      string     `json:"item_name,omitempty"`
	ReservationID *uuid.UUID `json:"reservation_id,omitempty"`
	Quantity      int        `json:"quantity,omitempty"`
	StockLevel    *int       `json:"stock_level,omitempty"`
	ReorderLevel  *int       `json:"reorder_level,omitempty"`
	AlertLevel    string     `json:"alert_level,omitempty"`
	Message       string     `json:"message,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}
