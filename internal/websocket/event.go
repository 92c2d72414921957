package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event (created, updated, deleted)
type EventType string

const (
	EventTypeCreated EventType = "created"
	EventTypeUpdated EventType = "updated"
	EventTypeDeleted EventType = "deleted"
	EventTypeSettled EventType = "settled"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeFinancing        EntityType = "financing"
	EntityTypeFinancingPayment EntityType = "financing_payment"
	EntityTypeAccount          EntityType = "account"
	EntityTypeReceipt          EntityType = "payment_receipt"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, financingId, payload, timestamp }
type Event struct {
	Type        string      `json:"type"`                  // Combined type e.g. "financing_payment.created"
	Entity      EntityType  `json:"entity"`                // Entity type e.g. "financing_payment"
	FinancingID int32       `json:"financingId,omitempty"` // Zero for workspace-wide events
	Payload     interface{} `json:"payload"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ForFinancing scopes the event to one financing so filtered subscribers can select it
func (e Event) ForFinancing(financingID int32) Event {
	e.FinancingID = financingID
	return e
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FinancingCreated creates a financing.created event
func FinancingCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeFinancing, payload)
}

// FinancingUpdated creates a financing.updated event
func FinancingUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeFinancing, payload)
}

// FinancingSettled creates a financing.settled event
func FinancingSettled(payload interface{}) Event {
	return NewEvent(EventTypeSettled, EntityTypeFinancing, payload)
}

// FinancingPaymentCreated creates a financing_payment.created event
func FinancingPaymentCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeFinancingPayment, payload)
}

// FinancingPaymentDeleted creates a financing_payment.deleted event
func FinancingPaymentDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeFinancingPayment, payload)
}

// AccountUpdated creates an account.updated event
func AccountUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeAccount, payload)
}

// ReceiptCreated creates a payment_receipt.created event
func ReceiptCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeReceipt, payload)
}
