package billing

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared/valueobject"
)

// PaymentStatus represents the lifecycle state of a payment record
type PaymentStatus string

const (
	PaymentStatusActive PaymentStatus = "ACTIVE" // Counted in ledgers and reports
	PaymentStatusVoided PaymentStatus = "VOIDED" // Reversed, kept for audit
)

// IsValid checks if the status is a valid payment status
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusActive || s == PaymentStatusVoided
}

// PaymentMethod represents how the patient paid at the front desk
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD" // Manually keyed card terminal
	PaymentMethodGCash        PaymentMethod = "GCASH"
	PaymentMethodMaya         PaymentMethod = "MAYA"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCheck, PaymentMethodBankTransfer,
		PaymentMethodCard, PaymentMethodGCash, PaymentMethodMaya, PaymentMethodOther:
		return true
	}
	return false
}

// MethodDetails carries optional method-specific metadata. Which fields are
// filled depends on the method: check number and bank for checks, reference
// number for transfers and e-wallets.
type MethodDetails struct {
	CheckNumber     string `json:"check_number,omitempty"`
	BankName        string `json:"bank_name,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`
}

// IsEmpty returns true when no metadata was captured
func (d MethodDetails) IsEmpty() bool {
	return d == MethodDetails{}
}

// Value implements driver.Valuer for JSONB storage
func (d MethodDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSONB retrieval
func (d *MethodDetails) Scan(value any) error {
	if value == nil {
		*d = MethodDetails{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into MethodDetails", value)
	}
	return json.Unmarshal(data, d)
}

// AllocationStatus represents the state of a single allocation line
type AllocationStatus string

const (
	AllocationStatusActive AllocationStatus = "ACTIVE"
	AllocationStatusVoided AllocationStatus = "VOIDED"
)

// Allocation applies a portion of a payment against one invoice. Allocations
// are immutable once written; voiding the payment flips their status but the
// rows are never deleted.
type Allocation struct {
	ID         uuid.UUID
	InvoiceID  uuid.UUID
	Amount     decimal.Decimal
	ProviderID *uuid.UUID // Treating dentist credited with this line
	Status     AllocationStatus
	CreatedAt  time.Time
}

// IsActive returns true when the allocation counts toward invoice ledgers
func (a *Allocation) IsActive() bool {
	return a.Status == AllocationStatusActive
}

// Payment is the aggregate root for one sum of money received from a
// patient. The human-facing PaymentNumber (PAY-YYYY-MM-NNNN) is assigned by
// the persistence layer from a per-clinic monthly sequence at the moment the
// record is committed.
type Payment struct {
	shared.ClinicAggregateRoot
	PaymentNumber string
	PatientID     uuid.UUID
	Amount        decimal.Decimal
	Method        PaymentMethod
	MethodDetails MethodDetails
	PaymentDate   time.Time
	Status        PaymentStatus
	Notes         string
	RecordedBy    uuid.UUID
	VoidReason    string
	VoidedAt      *time.Time
	VoidedBy      *uuid.UUID
	Allocations   []Allocation
}

// NewPayment creates a new active payment with no allocations yet
func NewPayment(
	clinicID uuid.UUID,
	patientID uuid.UUID,
	recordedBy uuid.UUID,
	amount valueobject.Money,
	method PaymentMethod,
	details MethodDetails,
	paymentDate time.Time,
	notes string,
) (*Payment, error) {
	if clinicID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLINIC", "clinic ID is required")
	}
	if patientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PATIENT", "patient ID is required")
	}
	if recordedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STAFF", "recording staff ID is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD",
			fmt.Sprintf("unknown payment method: %s", method))
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "payment date is required")
	}

	payment := &Payment{
		ClinicAggregateRoot: shared.NewClinicAggregateRootWithCreator(clinicID, recordedBy),
		PatientID:           patientID,
		Amount:              amount.Amount(),
		Method:              method,
		MethodDetails:       details,
		PaymentDate:         paymentDate,
		Status:              PaymentStatusActive,
		Notes:               notes,
		RecordedBy:          recordedBy,
		Allocations:         make([]Allocation, 0),
	}
	return payment, nil
}

// IsVoided returns true when the payment has been reversed
func (p *Payment) IsVoided() bool {
	return p.Status == PaymentStatusVoided
}

// AllocatedTotal returns the sum of all active allocations
func (p *Payment) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Allocations {
		if p.Allocations[i].IsActive() {
			total = total.Add(p.Allocations[i].Amount)
		}
	}
	return total
}

// UnallocatedAmount returns the remainder held as patient credit
func (p *Payment) UnallocatedAmount() decimal.Decimal {
	return p.Amount.Sub(p.AllocatedTotal())
}

// AddAllocation applies part of the payment to an invoice, crediting the
// given provider (nil when the work is not attributed to a dentist). The
// invoice-side balance check lives in the allocation engine, which sees the
// live invoice; here only payment-side invariants are enforced.
func (p *Payment) AddAllocation(invoiceID uuid.UUID, amount decimal.Decimal, providerID *uuid.UUID) error {
	if p.IsVoided() {
		return shared.NewDomainError("PAYMENT_VOIDED", "cannot allocate a voided payment")
	}
	if invoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVOICE", "invoice ID is required")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "allocation amount must be positive")
	}
	for i := range p.Allocations {
		if p.Allocations[i].InvoiceID == invoiceID && p.Allocations[i].IsActive() {
			return shared.NewDomainError("DUPLICATE_ALLOCATION",
				fmt.Sprintf("payment already allocated to invoice %s", invoiceID))
		}
	}
	if p.AllocatedTotal().Add(amount).GreaterThan(p.Amount) {
		return shared.NewDomainError("OVER_ALLOCATED",
			"allocations cannot exceed the payment amount")
	}

	p.Allocations = append(p.Allocations, Allocation{
		ID:         uuid.New(),
		InvoiceID:  invoiceID,
		Amount:     amount,
		ProviderID: providerID,
		Status:     AllocationStatusActive,
		CreatedAt:  time.Now(),
	})
	p.UpdatedAt = time.Now()
	return nil
}

// ActiveInvoiceIDs returns the invoices touched by active allocations
func (p *Payment) ActiveInvoiceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Allocations))
	for i := range p.Allocations {
		if p.Allocations[i].IsActive() {
			ids = append(ids, p.Allocations[i].InvoiceID)
		}
	}
	return ids
}

// Void reverses the payment and all of its allocations. The record stays in
// place with full audit fields; the amounts simply stop counting.
func (p *Payment) Void(voidedBy uuid.UUID, reason string) error {
	if p.IsVoided() {
		return shared.NewDomainError("ALREADY_VOIDED",
			fmt.Sprintf("payment %s is already voided", p.PaymentNumber))
	}
	if voidedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_STAFF", "voiding staff ID is required")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "void reason is required")
	}

	now := time.Now()
	p.Status = PaymentStatusVoided
	p.VoidReason = reason
	p.VoidedAt = &now
	p.VoidedBy = &voidedBy
	for i := range p.Allocations {
		if p.Allocations[i].Status == AllocationStatusActive {
			p.Allocations[i].Status = AllocationStatusVoided
		}
	}
	p.UpdatedAt = now

	p.AddDomainEvent(NewPaymentVoidedEvent(p, reason))
	return nil
}

// FormatPaymentNumber renders the human-facing identifier for a payment:
// PAY-YYYY-MM-NNNN, where NNNN restarts at 0001 each clinic-month.
func FormatPaymentNumber(year int, month time.Month, sequence int) string {
	return fmt.Sprintf("PAY-%04d-%02d-%04d", year, int(month), sequence)
}
