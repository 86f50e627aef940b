package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/billing"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/infrastructure/persistence/models"
)

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID, allocations included
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForClinic finds a payment by ID for a specific clinic
func (r *GormPaymentRepository) FindByIDForClinic(ctx context.Context, clinicID, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("clinic_id = ? AND id = ?", clinicID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPaymentNumber finds by payment number for a clinic
func (r *GormPaymentRepository) FindByPaymentNumber(ctx context.Context, clinicID uuid.UUID, paymentNumber string) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("clinic_id = ? AND payment_number = ?", clinicID, paymentNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForClinic finds all payments for a clinic with filtering
func (r *GormPaymentRepository) FindAllForClinic(ctx context.Context, clinicID uuid.UUID, filter billing.PaymentFilter) ([]billing.Payment, error) {
	var paymentModels []models.PaymentModel
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Preload("Allocations").
		Where("clinic_id = ?", clinicID)
	query = r.applyPaymentFilter(query, filter)

	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]billing.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments, nil
}

// CountForClinic counts payments for a clinic with optional filters
func (r *GormPaymentRepository) CountForClinic(ctx context.Context, clinicID uuid.UUID, filter billing.PaymentFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("clinic_id = ?", clinicID)
	query = r.applyPaymentFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumActiveAllocations returns, per invoice, the total of active allocations
// across all payments. When excludePaymentID is set, that payment's
// allocations are left out of the sums. Invoices with no active allocations
// are absent from the map.
func (r *GormPaymentRepository) SumActiveAllocations(ctx context.Context, invoiceIDs []uuid.UUID, excludePaymentID *uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	sums := make(map[uuid.UUID]decimal.Decimal, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return sums, nil
	}

	query := r.db.WithContext(ctx).
		Model(&models.PaymentAllocationModel{}).
		Select("invoice_id, COALESCE(SUM(amount), 0) as total").
		Where("invoice_id IN ? AND status = ?", invoiceIDs, billing.AllocationStatusActive).
		Group("invoice_id")
	if excludePaymentID != nil {
		query = query.Where("payment_id <> ?", *excludePaymentID)
	}

	var rows []struct {
		InvoiceID uuid.UUID
		Total     decimal.Decimal
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		sums[row.InvoiceID] = row.Total
	}
	return sums, nil
}

// SumCollectedByPatient returns the total of the patient's non-voided
// payments.
func (r *GormPaymentRepository) SumCollectedByPatient(ctx context.Context, clinicID, patientID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("clinic_id = ? AND patient_id = ? AND status <> ?",
			clinicID, patientID, billing.PaymentStatusVoided).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// RecordWithLedger persists a new payment with its allocations and the
// recalculated invoices in one transaction. The payment number is drawn from
// the clinic's monthly sequence inside the same transaction, so a rollback
// returns the number to the pool. Any invoice version mismatch rolls the
// whole write back with shared.ErrConcurrencyConflict.
func (r *GormPaymentRepository) RecordWithLedger(ctx context.Context, payment *billing.Payment, invoices []*billing.Invoice) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextPaymentNumber(tx, payment.ClinicID)
		if err != nil {
			return err
		}
		payment.PaymentNumber = number

		model := models.PaymentModelFromDomain(payment)
		if err := tx.Create(model).Error; err != nil {
			return err
		}

		for _, invoice := range invoices {
			if err := saveInvoiceWithLock(tx, invoice); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	clearLedgerEvents(payment, invoices)
	return nil
}

// VoidWithLedger persists a voided payment, flips its allocation rows and
// saves the recalculated invoices in one transaction, with the same version
// semantics as RecordWithLedger.
func (r *GormPaymentRepository) VoidWithLedger(ctx context.Context, payment *billing.Payment, invoices []*billing.Invoice) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PaymentModel{}).
			Where("id = ? AND version = ?", payment.ID, payment.Version).
			Updates(map[string]interface{}{
				"status":      payment.Status,
				"void_reason": payment.VoidReason,
				"voided_at":   payment.VoidedAt,
				"voided_by":   payment.VoidedBy,
				"version":     payment.Version + 1,
				"updated_at":  time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		payment.Version++

		if err := tx.Model(&models.PaymentAllocationModel{}).
			Where("payment_id = ?", payment.ID).
			Update("status", billing.AllocationStatusVoided).Error; err != nil {
			return err
		}

		for _, invoice := range invoices {
			if err := saveInvoiceWithLock(tx, invoice); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	clearLedgerEvents(payment, invoices)
	return nil
}

// clearLedgerEvents drops pending domain events once a ledger write has
// committed. There is no event bus; aggregates must not accumulate events
// across saves.
func clearLedgerEvents(payment *billing.Payment, invoices []*billing.Invoice) {
	payment.ClearDomainEvents()
	for _, invoice := range invoices {
		invoice.ClearDomainEvents()
	}
}

// nextPaymentNumber draws the next value from the clinic's monthly sequence
// row, locking it FOR UPDATE so concurrent recordings serialize on it
func nextPaymentNumber(tx *gorm.DB, clinicID uuid.UUID) (string, error) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	var seq models.PaymentSequenceModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("clinic_id = ? AND year = ? AND month = ?", clinicID, year, month).
		First(&seq).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		seq = models.PaymentSequenceModel{
			ClinicID:  clinicID,
			Year:      year,
			Month:     month,
			NextValue: 1,
			UpdatedAt: now,
		}
		if err := tx.Create(&seq).Error; err != nil {
			// A concurrent recording created the month's row between our
			// empty read and this insert. Retryable by the caller.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return "", shared.ErrConcurrencyConflict
			}
			return "", err
		}
	case err != nil:
		return "", err
	}

	number := billing.FormatPaymentNumber(seq.Year, time.Month(seq.Month), seq.NextValue)

	if err := tx.Model(&models.PaymentSequenceModel{}).
		Where("clinic_id = ? AND year = ? AND month = ?", clinicID, year, month).
		Updates(map[string]interface{}{
			"next_value": seq.NextValue + 1,
			"updated_at": now,
		}).Error; err != nil {
		return "", err
	}
	return number, nil
}

// applyPaymentFilter applies filter options to the query
func (r *GormPaymentRepository) applyPaymentFilter(query *gorm.DB, filter billing.PaymentFilter) *gorm.DB {
	query = r.applyPaymentFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("payment_date DESC")
	}

	return query
}

// applyPaymentFilterWithoutPagination applies filter options without pagination
func (r *GormPaymentRepository) applyPaymentFilterWithoutPagination(query *gorm.DB, filter billing.PaymentFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("payment_number ILIKE ?", searchPattern)
	}

	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.PaidFrom != nil {
		query = query.Where("payment_date >= ?", *filter.PaidFrom)
	}
	if filter.PaidTo != nil {
		query = query.Where("payment_date <= ?", *filter.PaidTo)
	}
	if !filter.IncludeVoided {
		query = query.Where("status <> ?", billing.PaymentStatusVoided)
	}

	return query
}
