package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/billing"
)

// BalanceCache stores derived patient balances. Implementations may lose or
// evict entries at any time; invoice rows remain the source of truth.
type BalanceCache interface {
	Get(ctx context.Context, clinicID, patientID uuid.UUID) (decimal.Decimal, bool, error)
	Set(ctx context.Context, clinicID, patientID uuid.UUID, balance decimal.Decimal) error
	Invalidate(ctx context.Context, clinicID, patientID uuid.UUID) error
}

// PatientBalanceService answers "how much does this patient owe". The figure
// is the sum of balances over the patient's non-cancelled invoices.
type PatientBalanceService struct {
	invoiceRepo billing.InvoiceRepository
	cache       BalanceCache
	logger      *zap.Logger
}

// NewPatientBalanceService creates a new PatientBalanceService
func NewPatientBalanceService(
	invoiceRepo billing.InvoiceRepository,
	cache BalanceCache,
	logger *zap.Logger,
) *PatientBalanceService {
	return &PatientBalanceService{
		invoiceRepo: invoiceRepo,
		cache:       cache,
		logger:      logger,
	}
}

// PatientBalanceResult represents a patient's outstanding balance
type PatientBalanceResult struct {
	ClinicID    uuid.UUID       `json:"clinic_id"`
	PatientID   uuid.UUID       `json:"patient_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
	FromCache   bool            `json:"from_cache"`
	ComputedAt  time.Time       `json:"computed_at"`
}

// GetBalance returns the patient's outstanding balance, served from cache
// when available
func (s *PatientBalanceService) GetBalance(
	ctx context.Context,
	clinicID, patientID uuid.UUID,
) (*PatientBalanceResult, error) {
	if cached, ok, err := s.cache.Get(ctx, clinicID, patientID); err != nil {
		s.logger.Warn("balance cache read failed, falling back to invoices",
			zap.String("patient_id", patientID.String()),
			zap.Error(err))
	} else if ok {
		return &PatientBalanceResult{
			ClinicID:    clinicID,
			PatientID:   patientID,
			Outstanding: cached,
			FromCache:   true,
			ComputedAt:  time.Now(),
		}, nil
	}

	balance, err := s.Refresh(ctx, clinicID, patientID)
	if err != nil {
		return nil, err
	}
	return &PatientBalanceResult{
		ClinicID:    clinicID,
		PatientID:   patientID,
		Outstanding: balance,
		ComputedAt:  time.Now(),
	}, nil
}

// Refresh recomputes the balance from invoice rows and updates the cache
func (s *PatientBalanceService) Refresh(
	ctx context.Context,
	clinicID, patientID uuid.UUID,
) (decimal.Decimal, error) {
	balance, err := s.invoiceRepo.SumOutstandingByPatient(ctx, clinicID, patientID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum outstanding invoices: %w", err)
	}
	if err := s.cache.Set(ctx, clinicID, patientID, balance); err != nil {
		s.logger.Warn("failed to update balance cache",
			zap.String("patient_id", patientID.String()),
			zap.Error(err))
	}
	return balance, nil
}

// OutstandingInvoices lists the non-cancelled invoices carrying a balance,
// the rows behind the aggregate figure
func (s *PatientBalanceService) OutstandingInvoices(
	ctx context.Context,
	clinicID, patientID uuid.UUID,
) ([]billing.Invoice, error) {
	invoices, err := s.invoiceRepo.FindOutstandingByPatient(ctx, clinicID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load outstanding invoices: %w", err)
	}
	return invoices, nil
}
