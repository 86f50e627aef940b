package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	PatientID  *uuid.UUID       // Filter by patient
	ProviderID *uuid.UUID       // Filter by treating dentist
	Status     *InvoiceStatus   // Filter by status
	IssuedFrom *time.Time       // Filter by issue date range start
	IssuedTo   *time.Time       // Filter by issue date range end
	DueFrom    *time.Time       // Filter by due date range start
	DueTo      *time.Time       // Filter by due date range end
	Overdue    *bool            // Filter only overdue invoices
	MinBalance *decimal.Decimal // Filter by minimum outstanding balance
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	PatientID     *uuid.UUID     // Filter by patient
	Method        *PaymentMethod // Filter by payment method
	PaidFrom      *time.Time     // Filter by payment date range start
	PaidTo        *time.Time     // Filter by payment date range end
	IncludeVoided bool           // Include voided payments (excluded by default)
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForClinic finds an invoice by ID for a specific clinic
	FindByIDForClinic(ctx context.Context, clinicID, id uuid.UUID) (*Invoice, error)

	// FindByIDs loads a set of invoices for a clinic in one query
	FindByIDs(ctx context.Context, clinicID uuid.UUID, ids []uuid.UUID) ([]Invoice, error)

	// FindByInvoiceNumber finds by invoice number for a clinic
	FindByInvoiceNumber(ctx context.Context, clinicID uuid.UUID, invoiceNumber string) (*Invoice, error)

	// FindAllForClinic finds all invoices for a clinic with filtering
	FindAllForClinic(ctx context.Context, clinicID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// FindOutstandingByPatient finds non-cancelled invoices with a positive
	// balance for a patient
	FindOutstandingByPatient(ctx context.Context, clinicID, patientID uuid.UUID) ([]Invoice, error)

	// SumOutstandingByPatient computes the patient's balance from invoice
	// rows, the authoritative source
	SumOutstandingByPatient(ctx context.Context, clinicID, patientID uuid.UUID) (decimal.Decimal, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking; the invoice's loaded
	// version must still match the stored row
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// CountForClinic counts invoices for a clinic with optional filters
	CountForClinic(ctx context.Context, clinicID uuid.UUID, filter InvoiceFilter) (int64, error)

	// GenerateInvoiceNumber produces the next invoice number for a clinic
	GenerateInvoiceNumber(ctx context.Context, clinicID uuid.UUID) (string, error)
}

// PaymentRepository defines the interface for payment persistence. The two
// ledger methods are the only write paths that touch invoices and payments
// together; each runs as a single database transaction and fails whole.
type PaymentRepository interface {
	// FindByID finds a payment by ID, allocations included
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByIDForClinic finds a payment by ID for a specific clinic
	FindByIDForClinic(ctx context.Context, clinicID, id uuid.UUID) (*Payment, error)

	// FindByPaymentNumber finds by payment number for a clinic
	FindByPaymentNumber(ctx context.Context, clinicID uuid.UUID, paymentNumber string) (*Payment, error)

	// FindAllForClinic finds all payments for a clinic with filtering
	FindAllForClinic(ctx context.Context, clinicID uuid.UUID, filter PaymentFilter) ([]Payment, error)

	// CountForClinic counts payments for a clinic with optional filters
	CountForClinic(ctx context.Context, clinicID uuid.UUID, filter PaymentFilter) (int64, error)

	// SumActiveAllocations returns, per invoice, the total of active
	// allocations across all payments. When excludePaymentID is set, that
	// payment's allocations are left out of the sums.
	SumActiveAllocations(ctx context.Context, invoiceIDs []uuid.UUID, excludePaymentID *uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// SumCollectedByPatient returns the total of the patient's non-voided
	// payments.
	SumCollectedByPatient(ctx context.Context, clinicID, patientID uuid.UUID) (decimal.Decimal, error)

	// RecordWithLedger persists a new payment with its allocations and the
	// recalculated invoices in one transaction. The payment number is drawn
	// from the clinic's monthly sequence inside the same transaction and
	// set on the aggregate before insert. Any invoice version mismatch
	// rolls the whole write back with shared.ErrConcurrencyConflict.
	RecordWithLedger(ctx context.Context, payment *Payment, invoices []*Invoice) error

	// VoidWithLedger persists a voided payment, its voided allocations and
	// the recalculated invoices in one transaction, with the same version
	// semantics as RecordWithLedger.
	VoidWithLedger(ctx context.Context, payment *Payment, invoices []*Invoice) error
}
