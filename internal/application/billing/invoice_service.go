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

// InvoiceService handles the invoice lifecycle around the payment path.
// Ledger fields (AmountPaid, paid/sent derivation) are written exclusively
// by the PaymentService.
type InvoiceService struct {
	invoiceRepo    billing.InvoiceRepository
	balanceService *PatientBalanceService
	logger         *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	balanceService *PatientBalanceService,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:    invoiceRepo,
		balanceService: balanceService,
		logger:         logger,
	}
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	ClinicID   uuid.UUID
	PatientID  uuid.UUID
	ProviderID *uuid.UUID
	TotalDue   decimal.Decimal
	IssueDate  time.Time
	DueDate    *time.Time
	Notes      string
	CreatedBy  uuid.UUID
	Send       bool // Issue immediately instead of keeping a draft
}

// CreateInvoice creates a new invoice with a generated invoice number
func (s *InvoiceService) CreateInvoice(
	ctx context.Context,
	req CreateInvoiceRequest,
) (*billing.Invoice, error) {
	amount, err := valueobject.NewMoney(req.TotalDue, valueobject.DefaultCurrency)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}

	number, err := s.invoiceRepo.GenerateInvoiceNumber(ctx, req.ClinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	invoice, err := billing.NewInvoice(
		req.ClinicID, req.PatientID, number, amount, req.IssueDate, req.DueDate,
	)
	if err != nil {
		return nil, err
	}
	if req.ProviderID != nil {
		invoice.SetProvider(*req.ProviderID)
	}
	invoice.Notes = req.Notes
	invoice.SetCreatedBy(req.CreatedBy)

	if req.Send {
		if err := invoice.Send(); err != nil {
			return nil, err
		}
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.logger.Info("invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("patient_id", req.PatientID.String()),
		zap.String("total_due", invoice.TotalDue.StringFixed(2)))

	s.refreshBalance(ctx, req.ClinicID, req.PatientID)
	return invoice, nil
}

// SendInvoice issues a draft invoice to the patient
func (s *InvoiceService) SendInvoice(ctx context.Context, clinicID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.mustLoad(ctx, clinicID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := invoice.Send(); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// CancelInvoice withdraws an invoice that has no recorded payments
func (s *InvoiceService) CancelInvoice(ctx context.Context, clinicID, invoiceID uuid.UUID, reason string) (*billing.Invoice, error) {
	invoice, err := s.mustLoad(ctx, clinicID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := invoice.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("invoice cancelled",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("reason", reason))

	s.refreshBalance(ctx, clinicID, invoice.PatientID)
	return invoice, nil
}

// MarkOverdue flags a sent invoice past its due date. Driven by a scheduled
// job or an explicit front-desk action, never by the payment path.
func (s *InvoiceService) MarkOverdue(ctx context.Context, clinicID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.mustLoad(ctx, clinicID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := invoice.MarkOverdue(time.Now()); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// GetInvoice returns a single invoice
func (s *InvoiceService) GetInvoice(ctx context.Context, clinicID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	return s.mustLoad(ctx, clinicID, invoiceID)
}

// ListInvoices returns invoices for a clinic with filtering and pagination
func (s *InvoiceService) ListInvoices(
	ctx context.Context,
	clinicID uuid.UUID,
	filter billing.InvoiceFilter,
) (*shared.Paginated[billing.Invoice], error) {
	invoices, err := s.invoiceRepo.FindAllForClinic(ctx, clinicID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	total, err := s.invoiceRepo.CountForClinic(ctx, clinicID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}
	result := shared.NewPaginated(invoices, total, filter.Page, filter.PageSize)
	return &result, nil
}

func (s *InvoiceService) mustLoad(ctx context.Context, clinicID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDForClinic(ctx, clinicID, invoiceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "invoice not found")
		}
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	return invoice, nil
}

func (s *InvoiceService) refreshBalance(ctx context.Context, clinicID, patientID uuid.UUID) {
	if _, err := s.balanceService.Refresh(ctx, clinicID, patientID); err != nil {
		s.logger.Warn("failed to refresh patient balance",
			zap.String("patient_id", patientID.String()),
			zap.Error(err))
	}
}
