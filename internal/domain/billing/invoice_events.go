package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared"
)

// InvoiceCreatedEvent is raised when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	PatientID     uuid.UUID       `json:"patient_id"`
	TotalDue      decimal.Decimal `json:"total_due"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return "InvoiceCreated"
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCreated", "Invoice", inv.ID, inv.ClinicID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PatientID:       inv.PatientID,
		TotalDue:        inv.TotalDue,
	}
}

// InvoiceSentEvent is raised when a draft invoice is issued to the patient
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	PatientID     uuid.UUID `json:"patient_id"`
}

// EventType returns the event type name
func (e *InvoiceSentEvent) EventType() string {
	return "InvoiceSent"
}

// NewInvoiceSentEvent creates a new InvoiceSentEvent
func NewInvoiceSentEvent(inv *Invoice) *InvoiceSentEvent {
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceSent", "Invoice", inv.ID, inv.ClinicID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PatientID:       inv.PatientID,
	}
}

// InvoicePaidEvent is raised when an invoice's balance reaches zero
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	PatientID     uuid.UUID       `json:"patient_id"`
	TotalDue      decimal.Decimal `json:"total_due"`
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return "InvoicePaid"
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaid", "Invoice", inv.ID, inv.ClinicID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PatientID:       inv.PatientID,
		TotalDue:        inv.TotalDue,
	}
}

// InvoiceReopenedEvent is raised when a voided payment takes a paid invoice
// back to outstanding
type InvoiceReopenedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	PatientID     uuid.UUID       `json:"patient_id"`
	Balance       decimal.Decimal `json:"balance"`
}

// EventType returns the event type name
func (e *InvoiceReopenedEvent) EventType() string {
	return "InvoiceReopened"
}

// NewInvoiceReopenedEvent creates a new InvoiceReopenedEvent
func NewInvoiceReopenedEvent(inv *Invoice) *InvoiceReopenedEvent {
	return &InvoiceReopenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceReopened", "Invoice", inv.ID, inv.ClinicID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PatientID:       inv.PatientID,
		Balance:         inv.Balance(),
	}
}

// InvoiceOverdueEvent is raised when an invoice is flagged as past due
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	PatientID     uuid.UUID       `json:"patient_id"`
	Balance       decimal.Decimal `json:"balance"`
}

// EventType returns the event type name
func (e *InvoiceOverdueEvent) EventType() string {
	return "InvoiceOverdue"
}

// NewInvoiceOverdueEvent creates a new InvoiceOverdueEvent
func NewInvoiceOverdueEvent(inv *Invoice) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceOverdue", "Invoice", inv.ID, inv.ClinicID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PatientID:       inv.PatientID,
		Balance:         inv.Balance(),
	}
}

// InvoiceCancelledEvent is raised when an invoice is withdrawn
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	PatientID     uuid.UUID `json:"patient_id"`
	Reason        string    `json:"reason"`
}

// EventType returns the event type name
func (e *InvoiceCancelledEvent) EventType() string {
	return "InvoiceCancelled"
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice, reason string) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCancelled", "Invoice", inv.ID, inv.ClinicID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PatientID:       inv.PatientID,
		Reason:          reason,
	}
}
