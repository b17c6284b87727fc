// Package orderagg implements the event-sourced Order aggregate: a pure
// in-memory object exposing commands that produce pending domain events.
// It never touches I/O; persistence is the event log's job.
package orderagg

import (
	"time"

	"github.com/konozy/ordersync/decomposer"
	"github.com/konozy/ordersync/money"
)

// EventType tags the kind of a domain event. The event hierarchy is a
// tagged variant over this string, not a type switch over concrete Go
// types — handlers dispatch on the tag and an unknown tag is skipped on
// read, never a crash.
type EventType string

const (
	EventOrderCreated       EventType = "OrderCreated"
	EventOrderUpdated       EventType = "OrderUpdated"
	EventOrderStatusChanged EventType = "OrderStatusChanged"
	EventFinancialsExtracted EventType = "FinancialsExtracted"
	EventOrderValidated     EventType = "OrderValidated"
	EventOrderSaved         EventType = "OrderSaved"
	EventInvoiceCreated     EventType = "InvoiceCreated"
	EventOrderSynced        EventType = "OrderSynced"
	EventOrderFailed        EventType = "OrderFailed"
	EventNotificationSent   EventType = "NotificationSent"
	EventSyncStarted        EventType = "SyncStarted"
	EventSyncCompleted      EventType = "SyncCompleted"
)

const AggregateTypeOrder = "order"
const AggregateTypeSyncRun = "sync_run"

// Event is the base record shared by every domain event. Events are
// immutable once constructed; nothing in this package mutates one after
// it is appended to a pending list.
type Event struct {
	EventID       string
	EventType     EventType
	EventVersion  int
	AggregateID   string
	AggregateType string
	ExecutionID   money.ExecutionID
	OccurredAt    time.Time
	Payload       map[string]interface{}
}

// OrderCreatedPayload seeds aggregate identity.
type OrderCreatedPayload struct {
	OrderID      string
	PurchaseDate time.Time
	BuyerEmail   string
	Marketplace  string
}

// OrderUpdatedPayload carries an item-list change (add_item).
type OrderUpdatedPayload struct {
	Items      []OrderItem
	OrderTotal money.Money
}

// OrderStatusChangedPayload carries a lifecycle transition.
type OrderStatusChangedPayload struct {
	From         Status
	To           Status
	ErrorMessage string
}

// FinancialsExtractedPayload attaches a computed breakdown.
type FinancialsExtractedPayload struct {
	Breakdown decomposer.FinancialBreakdown
}

// OrderValidatedPayload records the outcome of the Balance check.
type OrderValidatedPayload struct {
	Passed bool
	Detail string
}

// OrderSavedPayload marks that events were durably appended.
type OrderSavedPayload struct {
	SequenceNumber int64
}

// OrderFailedPayload records a failure at a named pipeline step.
type OrderFailedPayload struct {
	Step      string
	ErrorKind string
	Message   string
}

// InvoiceCreatedPayload records the ERP projector's posting outcome.
type InvoiceCreatedPayload struct {
	InvoiceID string
	Total     money.Money
}

// OrderSyncedPayload marks that ERP posting completed for this order.
type OrderSyncedPayload struct {
	InvoiceID string
}

// NotificationSentPayload records a notifier dispatch.
type NotificationSentPayload struct {
	Severity int
	Message  string
}

// SyncStartedPayload / SyncCompletedPayload scope a run, not an order.
type SyncStartedPayload struct {
	OrderID string
	DryRun  bool
}

type SyncCompletedPayload struct {
	OrderID string
	Success bool
}
