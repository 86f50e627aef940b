package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/billing"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared/valueobject"
)

// PaymentService is the single entry point for money movements. Nothing else
// writes invoice ledger fields or allocation rows.
type PaymentService struct {
	paymentRepo    billing.PaymentRepository
	invoiceRepo    billing.InvoiceRepository
	balanceService *PatientBalanceService
	logger         *zap.Logger
	maxAllocations int
}

// NewPaymentService creates a new PaymentService. maxAllocations caps the
// allocation lines accepted per payment; zero means no cap.
func NewPaymentService(
	paymentRepo billing.PaymentRepository,
	invoiceRepo billing.InvoiceRepository,
	balanceService *PatientBalanceService,
	logger *zap.Logger,
	maxAllocations int,
) *PaymentService {
	return &PaymentService{
		paymentRepo:    paymentRepo,
		invoiceRepo:    invoiceRepo,
		balanceService: balanceService,
		logger:         logger,
		maxAllocations: maxAllocations,
	}
}

// AllocationRequest is one allocation line of a payment. ProviderID credits
// a specific dentist with the collected amount; when nil the invoice's
// provider is credited.
type AllocationRequest struct {
	InvoiceID  uuid.UUID
	Amount     decimal.Decimal
	ProviderID *uuid.UUID
}

// RecordPaymentRequest represents a request to record a received payment
type RecordPaymentRequest struct {
	ClinicID    uuid.UUID
	PatientID   uuid.UUID
	Amount      decimal.Decimal
	Method      billing.PaymentMethod
	Details     billing.MethodDetails
	PaymentDate time.Time
	Notes       string
	RecordedBy  uuid.UUID
	Allocations []AllocationRequest
}

// InvoiceLedgerResult summarizes one invoice after a ledger write
type InvoiceLedgerResult struct {
	InvoiceID     uuid.UUID             `json:"invoice_id"`
	InvoiceNumber string                `json:"invoice_number"`
	Allocated     decimal.Decimal       `json:"allocated"`
	AmountPaid    decimal.Decimal       `json:"amount_paid"`
	Balance       decimal.Decimal       `json:"balance"`
	Status        billing.InvoiceStatus `json:"status"`
}

// RecordPaymentResult represents the outcome of recording a payment
type RecordPaymentResult struct {
	PaymentID      uuid.UUID             `json:"payment_id"`
	PaymentNumber  string                `json:"payment_number"`
	Amount         decimal.Decimal       `json:"amount"`
	AllocatedTotal decimal.Decimal       `json:"allocated_total"`
	Unallocated    decimal.Decimal       `json:"unallocated"`
	Invoices       []InvoiceLedgerResult `json:"invoices"`
	PatientBalance decimal.Decimal       `json:"patient_balance"`
}

// VoidPaymentRequest represents a request to void a recorded payment
type VoidPaymentRequest struct {
	ClinicID  uuid.UUID
	PaymentID uuid.UUID
	Reason    string
	VoidedBy  uuid.UUID
}

// VoidPaymentResult represents the outcome of voiding a payment
type VoidPaymentResult struct {
	PaymentID      uuid.UUID             `json:"payment_id"`
	PaymentNumber  string                `json:"payment_number"`
	Invoices       []InvoiceLedgerResult `json:"invoices"`
	PatientBalance decimal.Decimal       `json:"patient_balance"`
}

// RecordPayment validates, persists and allocates a payment in one atomic
// write. Each touched invoice's AmountPaid is recomputed from the complete
// active allocation set, never by adding a delta to the stored value.
func (s *PaymentService) RecordPayment(
	ctx context.Context,
	req RecordPaymentRequest,
) (*RecordPaymentResult, error) {
	if len(req.Allocations) == 0 {
		return nil, shared.NewDomainError("NO_ALLOCATIONS",
			"a payment must allocate to at least one invoice")
	}
	if s.maxAllocations > 0 && len(req.Allocations) > s.maxAllocations {
		return nil, shared.NewDomainError("TOO_MANY_ALLOCATIONS",
			fmt.Sprintf("a payment can allocate to at most %d invoices", s.maxAllocations))
	}

	invoiceIDs := make([]uuid.UUID, 0, len(req.Allocations))
	seen := make(map[uuid.UUID]struct{}, len(req.Allocations))
	for _, alloc := range req.Allocations {
		if _, dup := seen[alloc.InvoiceID]; dup {
			return nil, shared.NewDomainError("DUPLICATE_ALLOCATION",
				fmt.Sprintf("invoice %s appears more than once", alloc.InvoiceID))
		}
		seen[alloc.InvoiceID] = struct{}{}
		invoiceIDs = append(invoiceIDs, alloc.InvoiceID)
	}

	amount, err := valueobject.NewMoney(req.Amount, valueobject.DefaultCurrency)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}

	payment, err := billing.NewPayment(
		req.ClinicID, req.PatientID, req.RecordedBy,
		amount, req.Method, req.Details, req.PaymentDate, req.Notes,
	)
	if err != nil {
		return nil, err
	}

	invoices, err := s.loadInvoicesForPatient(ctx, req.ClinicID, req.PatientID, invoiceIDs)
	if err != nil {
		return nil, err
	}

	for _, alloc := range req.Allocations {
		invoice := invoices[alloc.InvoiceID]
		if alloc.Amount.GreaterThan(invoice.Balance()) {
			return nil, shared.NewDomainError("EXCEEDS_INVOICE_BALANCE",
				fmt.Sprintf("allocation of %s exceeds the %s balance of invoice %s",
					alloc.Amount.StringFixed(2), invoice.Balance().StringFixed(2), invoice.InvoiceNumber))
		}
		providerID := alloc.ProviderID
		if providerID == nil {
			providerID = invoice.ProviderID
		}
		if err := payment.AddAllocation(alloc.InvoiceID, alloc.Amount, providerID); err != nil {
			return nil, err
		}
	}

	// Recompute each touched invoice from its full active allocation set
	// plus the line being added now.
	activeSums, err := s.paymentRepo.SumActiveAllocations(ctx, invoiceIDs, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to sum active allocations: %w", err)
	}
	ordered := make([]*billing.Invoice, 0, len(req.Allocations))
	for _, alloc := range req.Allocations {
		invoice := invoices[alloc.InvoiceID]
		total := activeSums[alloc.InvoiceID].Add(alloc.Amount)
		if err := invoice.RecalculateLedger(total); err != nil {
			return nil, err
		}
		ordered = append(ordered, invoice)
	}

	payment.AddDomainEvent(billing.NewPaymentRecordedEvent(payment))

	if err := s.paymentRepo.RecordWithLedger(ctx, payment, ordered); err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("patient_id", req.PatientID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("method", string(payment.Method)),
		zap.Int("allocations", len(payment.Allocations)))

	balance := s.refreshPatientBalance(ctx, req.ClinicID, req.PatientID)

	return &RecordPaymentResult{
		PaymentID:      payment.ID,
		PaymentNumber:  payment.PaymentNumber,
		Amount:         payment.Amount,
		AllocatedTotal: payment.AllocatedTotal(),
		Unallocated:    payment.UnallocatedAmount(),
		Invoices:       ledgerResults(payment, ordered),
		PatientBalance: balance,
	}, nil
}

// VoidPayment reverses a payment. The allocations flip to voided and every
// touched invoice is recomputed from the allocations that remain, so voiding
// is the exact inverse of recording.
func (s *PaymentService) VoidPayment(
	ctx context.Context,
	req VoidPaymentRequest,
) (*VoidPaymentResult, error) {
	payment, err := s.paymentRepo.FindByIDForClinic(ctx, req.ClinicID, req.PaymentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", "payment not found")
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}

	// Capture the touched invoices before Void flips the allocation rows.
	invoiceIDs := payment.ActiveInvoiceIDs()

	if err := payment.Void(req.VoidedBy, req.Reason); err != nil {
		return nil, err
	}

	ordered := make([]*billing.Invoice, 0, len(invoiceIDs))
	if len(invoiceIDs) > 0 {
		invoices, err := s.loadInvoicesForPatient(ctx, req.ClinicID, payment.PatientID, invoiceIDs)
		if err != nil {
			return nil, err
		}

		remaining, err := s.paymentRepo.SumActiveAllocations(ctx, invoiceIDs, &payment.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to sum remaining allocations: %w", err)
		}
		for _, id := range invoiceIDs {
			invoice := invoices[id]
			if err := invoice.RecalculateLedger(remaining[id]); err != nil {
				return nil, err
			}
			ordered = append(ordered, invoice)
		}
	}

	if err := s.paymentRepo.VoidWithLedger(ctx, payment, ordered); err != nil {
		return nil, err
	}

	s.logger.Info("payment voided",
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("reason", req.Reason),
		zap.Int("invoices_reopened", len(ordered)))

	balance := s.refreshPatientBalance(ctx, req.ClinicID, payment.PatientID)

	return &VoidPaymentResult{
		PaymentID:      payment.ID,
		PaymentNumber:  payment.PaymentNumber,
		Invoices:       ledgerResults(payment, ordered),
		PatientBalance: balance,
	}, nil
}

// GetPayment returns a payment with its allocations
func (s *PaymentService) GetPayment(ctx context.Context, clinicID, paymentID uuid.UUID) (*billing.Payment, error) {
	payment, err := s.paymentRepo.FindByIDForClinic(ctx, clinicID, paymentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", "payment not found")
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return payment, nil
}

// ListPayments returns payments for a clinic with filtering and pagination
func (s *PaymentService) ListPayments(
	ctx context.Context,
	clinicID uuid.UUID,
	filter billing.PaymentFilter,
) (*shared.Paginated[billing.Payment], error) {
	payments, err := s.paymentRepo.FindAllForClinic(ctx, clinicID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	total, err := s.paymentRepo.CountForClinic(ctx, clinicID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}
	result := shared.NewPaginated(payments, total, filter.Page, filter.PageSize)
	return &result, nil
}

// PatientPaymentSummary pairs lifetime collections with the current
// outstanding balance for one patient.
type PatientPaymentSummary struct {
	PatientID      uuid.UUID       `json:"patient_id"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	Outstanding    decimal.Decimal `json:"outstanding"`
}

// GetPatientPaymentSummary returns the patient's total non-voided collections
// alongside their outstanding balance.
func (s *PaymentService) GetPatientPaymentSummary(
	ctx context.Context,
	clinicID, patientID uuid.UUID,
) (*PatientPaymentSummary, error) {
	collected, err := s.paymentRepo.SumCollectedByPatient(ctx, clinicID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum collected payments: %w", err)
	}
	balance, err := s.balanceService.GetBalance(ctx, clinicID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get outstanding balance: %w", err)
	}
	return &PatientPaymentSummary{
		PatientID:      patientID,
		TotalCollected: collected,
		Outstanding:    balance.Outstanding,
	}, nil
}

// loadInvoicesForPatient fetches the invoices and runs the checks every
// money movement shares: the invoices exist in this clinic, accept payments
// and belong to the expected patient.
func (s *PaymentService) loadInvoicesForPatient(
	ctx context.Context,
	clinicID, patientID uuid.UUID,
	invoiceIDs []uuid.UUID,
) (map[uuid.UUID]*billing.Invoice, error) {
	found, err := s.invoiceRepo.FindByIDs(ctx, clinicID, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}

	invoices := make(map[uuid.UUID]*billing.Invoice, len(found))
	for i := range found {
		invoices[found[i].ID] = &found[i]
	}
	for _, id := range invoiceIDs {
		invoice, ok := invoices[id]
		if !ok {
			return nil, shared.NewDomainError("INVOICE_NOT_FOUND",
				fmt.Sprintf("invoice %s not found", id))
		}
		if !invoice.Status.AcceptsPayment() {
			return nil, shared.NewDomainError("INVOICE_CANCELLED",
				fmt.Sprintf("invoice %s is cancelled", invoice.InvoiceNumber))
		}
		if invoice.PatientID != patientID {
			return nil, shared.NewDomainError("PATIENT_MISMATCH",
				fmt.Sprintf("invoice %s belongs to a different patient", invoice.InvoiceNumber))
		}
	}
	return invoices, nil
}

// refreshPatientBalance recomputes the cached patient balance after a ledger
// write. The invoice rows are already committed; a cache failure is logged
// and the authoritative sum is still returned when possible.
func (s *PaymentService) refreshPatientBalance(ctx context.Context, clinicID, patientID uuid.UUID) decimal.Decimal {
	balance, err := s.balanceService.Refresh(ctx, clinicID, patientID)
	if err != nil {
		s.logger.Warn("failed to refresh patient balance",
			zap.String("patient_id", patientID.String()),
			zap.Error(err))
		return decimal.Zero
	}
	return balance
}

func ledgerResults(payment *billing.Payment, invoices []*billing.Invoice) []InvoiceLedgerResult {
	allocated := make(map[uuid.UUID]decimal.Decimal, len(payment.Allocations))
	for i := range payment.Allocations {
		allocated[payment.Allocations[i].InvoiceID] = payment.Allocations[i].Amount
	}
	results := make([]InvoiceLedgerResult, 0, len(invoices))
	for _, invoice := range invoices {
		results = append(results, InvoiceLedgerResult{
			InvoiceID:     invoice.ID,
			InvoiceNumber: invoice.InvoiceNumber,
			Allocated:     allocated[invoice.ID],
			AmountPaid:    invoice.AmountPaid,
			Balance:       invoice.Balance(),
			Status:        invoice.Status,
		})
	}
	return results
}
