package models

import "time"

// Change operations
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// Tables observed on the change channel
const (
	TableSales     = "sales"
	TableSaleItems = "sale_items"
	TableInventory = "inventory"
	TablePayments  = "payments"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ChangeEvent is a row-level change notification, filtered downstream by owner
type ChangeEvent struct {
	BaseEvent
	Table    string   `json:"table"`
	Op       string   `json:"op"`
	OwnerID  string   `json:"owner_id"`
	RowIDs   []string `json:"row_ids"`
	SourceID string   `json:"source_id,omitempty"`
}

// EventTypeRowChange is the event type of every ChangeEvent
const EventTypeRowChange = "ROW_CHANGE"
