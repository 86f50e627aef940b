package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"     // Created, not yet issued to the patient
	InvoiceStatusSent      InvoiceStatus = "SENT"      // Issued, awaiting payment
	InvoiceStatusPaid      InvoiceStatus = "PAID"      // Fully settled
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"   // Past due date with an outstanding balance
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED" // Withdrawn, excluded from balances
)

// IsValid checks if the status is a valid invoice status
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// IsTerminal checks if the status is a terminal state
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusCancelled
}

// AcceptsPayment checks if payments can be allocated against an invoice
// in this status. A paid invoice still "accepts" allocation attempts; they
// are rejected by the balance check instead.
func (s InvoiceStatus) AcceptsPayment() bool {
	return s != InvoiceStatusCancelled
}

// Invoice is the aggregate root for a patient invoice's monetary ledger.
// TotalDue is fixed at issue time; AmountPaid is always recomputed from the
// full set of active payment allocations, never adjusted incrementally.
type Invoice struct {
	shared.ClinicAggregateRoot
	InvoiceNumber string
	PatientID     uuid.UUID
	ProviderID    *uuid.UUID // Treating dentist, used by revenue reporting
	Status        InvoiceStatus
	TotalDue      decimal.Decimal
	AmountPaid    decimal.Decimal
	IssueDate     time.Time
	DueDate       *time.Time
	Notes         string
}

// NewInvoice creates a new draft invoice
func NewInvoice(
	clinicID uuid.UUID,
	patientID uuid.UUID,
	invoiceNumber string,
	totalDue valueobject.Money,
	issueDate time.Time,
	dueDate *time.Time,
) (*Invoice, error) {
	if clinicID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLINIC", "clinic ID is required")
	}
	if patientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PATIENT", "patient ID is required")
	}
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "invoice number is required")
	}
	if !totalDue.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "invoice total must be positive")
	}
	if dueDate != nil && dueDate.Before(issueDate) {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "due date cannot be before issue date")
	}

	invoice := &Invoice{
		ClinicAggregateRoot: shared.NewClinicAggregateRoot(clinicID),
		InvoiceNumber:       invoiceNumber,
		PatientID:           patientID,
		Status:              InvoiceStatusDraft,
		TotalDue:            totalDue.Amount(),
		AmountPaid:          decimal.Zero,
		IssueDate:           issueDate,
		DueDate:             dueDate,
	}

	invoice.AddDomainEvent(NewInvoiceCreatedEvent(invoice))
	return invoice, nil
}

// Balance returns the outstanding amount (total due minus amount paid)
func (i *Invoice) Balance() decimal.Decimal {
	return i.TotalDue.Sub(i.AmountPaid)
}

// IsSettled returns true when nothing remains outstanding
func (i *Invoice) IsSettled() bool {
	return i.Balance().IsZero()
}

// SetProvider associates the treating dentist with the invoice
func (i *Invoice) SetProvider(providerID uuid.UUID) {
	i.ProviderID = &providerID
	i.UpdatedAt = time.Now()
}

// Send issues a draft invoice to the patient
func (i *Invoice) Send() error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION",
			"only draft invoices can be sent")
	}
	i.Status = InvoiceStatusSent
	i.UpdatedAt = time.Now()
	i.AddDomainEvent(NewInvoiceSentEvent(i))
	return nil
}

// MarkOverdue flags a sent invoice whose due date has passed. The transition
// is driven by an external scheduler, never by the payment path.
func (i *Invoice) MarkOverdue(now time.Time) error {
	if i.Status != InvoiceStatusSent {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION",
			"only sent invoices can be marked overdue")
	}
	if i.DueDate == nil || !now.After(*i.DueDate) {
		return shared.NewDomainError("NOT_PAST_DUE",
			"invoice is not past its due date")
	}
	i.Status = InvoiceStatusOverdue
	i.UpdatedAt = time.Now()
	i.AddDomainEvent(NewInvoiceOverdueEvent(i))
	return nil
}

// Cancel withdraws the invoice. Invoices that have received payments cannot
// be cancelled; the payments must be voided first.
func (i *Invoice) Cancel(reason string) error {
	if i.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("ALREADY_CANCELLED", "invoice is already cancelled")
	}
	if i.AmountPaid.IsPositive() {
		return shared.NewDomainError("HAS_PAYMENTS",
			"cannot cancel an invoice with recorded payments")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "cancellation reason is required")
	}
	i.Status = InvoiceStatusCancelled
	i.Notes = appendNote(i.Notes, "Cancelled: "+reason)
	i.UpdatedAt = time.Now()
	i.AddDomainEvent(NewInvoiceCancelledEvent(i, reason))
	return nil
}

// RecalculateLedger replaces AmountPaid with a total freshly derived from
// the active allocation set and re-derives the status:
//
//   - cancelled invoices reject ledger changes outright
//   - zero balance -> paid
//   - partial payment -> sent (a payment clears the overdue flag)
//   - no remaining payments -> a previously paid invoice reverts to sent,
//     any other status is left untouched
//
// Version bumping is owned by the persistence layer so that several invoices
// can be updated atomically inside one transaction.
func (i *Invoice) RecalculateLedger(amountPaid decimal.Decimal) error {
	if i.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVOICE_CANCELLED",
			"cannot apply payments to a cancelled invoice")
	}
	if amountPaid.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "amount paid cannot be negative")
	}
	if amountPaid.GreaterThan(i.TotalDue) {
		return shared.NewDomainError("EXCEEDS_INVOICE_TOTAL",
			"amount paid cannot exceed the invoice total")
	}

	previous := i.Status
	i.AmountPaid = amountPaid
	i.UpdatedAt = time.Now()

	switch {
	case i.Balance().IsZero():
		i.Status = InvoiceStatusPaid
	case amountPaid.IsPositive():
		i.Status = InvoiceStatusSent
	case previous == InvoiceStatusPaid:
		// All payments voided; the invoice is outstanding again.
		i.Status = InvoiceStatusSent
	}

	if previous != InvoiceStatusPaid && i.Status == InvoiceStatusPaid {
		i.AddDomainEvent(NewInvoicePaidEvent(i))
	}
	if previous == InvoiceStatusPaid && i.Status != InvoiceStatusPaid {
		i.AddDomainEvent(NewInvoiceReopenedEvent(i))
	}
	return nil
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
