package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/billing"
)

// MockInvoiceRepository is a testify mock of billing.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForClinic(ctx context.Context, clinicID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, clinicID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDs(ctx context.Context, clinicID uuid.UUID, ids []uuid.UUID) ([]billing.Invoice, error) {
	args := m.Called(ctx, clinicID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByInvoiceNumber(ctx context.Context, clinicID uuid.UUID, invoiceNumber string) (*billing.Invoice, error) {
	args := m.Called(ctx, clinicID, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForClinic(ctx context.Context, clinicID uuid.UUID, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	args := m.Called(ctx, clinicID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindOutstandingByPatient(ctx context.Context, clinicID, patientID uuid.UUID) ([]billing.Invoice, error) {
	args := m.Called(ctx, clinicID, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) SumOutstandingByPatient(ctx context.Context, clinicID, patientID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, clinicID, patientID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) CountForClinic(ctx context.Context, clinicID uuid.UUID, filter billing.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, clinicID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) GenerateInvoiceNumber(ctx context.Context, clinicID uuid.UUID) (string, error) {
	args := m.Called(ctx, clinicID)
	return args.String(0), args.Error(1)
}

// MockPaymentRepository is a testify mock of billing.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByIDForClinic(ctx context.Context, clinicID, id uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, clinicID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByPaymentNumber(ctx context.Context, clinicID uuid.UUID, paymentNumber string) (*billing.Payment, error) {
	args := m.Called(ctx, clinicID, paymentNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindAllForClinic(ctx context.Context, clinicID uuid.UUID, filter billing.PaymentFilter) ([]billing.Payment, error) {
	args := m.Called(ctx, clinicID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) CountForClinic(ctx context.Context, clinicID uuid.UUID, filter billing.PaymentFilter) (int64, error) {
	args := m.Called(ctx, clinicID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) SumActiveAllocations(ctx context.Context, invoiceIDs []uuid.UUID, excludePaymentID *uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	args := m.Called(ctx, invoiceIDs, excludePaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) SumCollectedByPatient(ctx context.Context, clinicID, patientID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, clinicID, patientID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) RecordWithLedger(ctx context.Context, payment *billing.Payment, invoices []*billing.Invoice) error {
	args := m.Called(ctx, payment, invoices)
	return args.Error(0)
}

func (m *MockPaymentRepository) VoidWithLedger(ctx context.Context, payment *billing.Payment, invoices []*billing.Invoice) error {
	args := m.Called(ctx, payment, invoices)
	return args.Error(0)
}

// MockBalanceCache is a testify mock of BalanceCache
type MockBalanceCache struct {
	mock.Mock
}

func (m *MockBalanceCache) Get(ctx context.Context, clinicID, patientID uuid.UUID) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, clinicID, patientID)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func (m *MockBalanceCache) Set(ctx context.Context, clinicID, patientID uuid.UUID, balance decimal.Decimal) error {
	args := m.Called(ctx, clinicID, patientID, balance)
	return args.Error(0)
}

func (m *MockBalanceCache) Invalidate(ctx context.Context, clinicID, patientID uuid.UUID) error {
	args := m.Called(ctx, clinicID, patientID)
	return args.Error(0)
}
