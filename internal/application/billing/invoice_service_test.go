package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/billing"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared/valueobject"
)

type invoiceServiceFixture struct {
	service     *InvoiceService
	invoiceRepo *MockInvoiceRepository
	cache       *MockBalanceCache
	clinicID    uuid.UUID
	patientID   uuid.UUID
	staffID     uuid.UUID
}

func newInvoiceServiceFixture(t *testing.T) *invoiceServiceFixture {
	t.Helper()
	invoiceRepo := new(MockInvoiceRepository)
	cache := new(MockBalanceCache)
	logger := zap.NewNop()
	balanceService := NewPatientBalanceService(invoiceRepo, cache, logger)

	return &invoiceServiceFixture{
		service:     NewInvoiceService(invoiceRepo, balanceService, logger),
		invoiceRepo: invoiceRepo,
		cache:       cache,
		clinicID:    uuid.New(),
		patientID:   uuid.New(),
		staffID:     uuid.New(),
	}
}

func (f *invoiceServiceFixture) newDraftInvoice(t *testing.T, number, total string) *billing.Invoice {
	t.Helper()
	amount, err := valueobject.NewMoneyPHPFromString(total)
	require.NoError(t, err)
	invoice, err := billing.NewInvoice(f.clinicID, f.patientID, number, amount, time.Now(), nil)
	require.NoError(t, err)
	return invoice
}

// expectBalanceRefresh wires the mocks the post-write balance refresh needs
func (f *invoiceServiceFixture) expectBalanceRefresh(balance string) {
	f.invoiceRepo.On("SumOutstandingByPatient", mock.Anything, f.clinicID, f.patientID).
		Return(decimal.RequireFromString(balance), nil)
	f.cache.On("Set", mock.Anything, f.clinicID, f.patientID, mock.Anything).Return(nil)
}

func TestInvoiceService_CreateInvoice(t *testing.T) {
	t.Run("creates a draft invoice with a generated number", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)

		f.invoiceRepo.On("GenerateInvoiceNumber", mock.Anything, f.clinicID).
			Return("INV-20260301-00007", nil)
		f.invoiceRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.expectBalanceRefresh("2500.00")

		invoice, err := f.service.CreateInvoice(context.Background(), CreateInvoiceRequest{
			ClinicID:  f.clinicID,
			PatientID: f.patientID,
			TotalDue:  decimal.RequireFromString("2500.00"),
			IssueDate: time.Now(),
			CreatedBy: f.staffID,
		})

		require.NoError(t, err)
		assert.Equal(t, "INV-20260301-00007", invoice.InvoiceNumber)
		assert.Equal(t, billing.InvoiceStatusDraft, invoice.Status)
		assert.True(t, invoice.AmountPaid.IsZero())
		require.NotNil(t, invoice.CreatedBy)
		assert.Equal(t, f.staffID, *invoice.CreatedBy)
		f.invoiceRepo.AssertExpectations(t)
	})

	t.Run("send flag issues the invoice immediately", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)

		f.invoiceRepo.On("GenerateInvoiceNumber", mock.Anything, f.clinicID).
			Return("INV-20260301-00008", nil)
		f.invoiceRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.expectBalanceRefresh("1000.00")

		invoice, err := f.service.CreateInvoice(context.Background(), CreateInvoiceRequest{
			ClinicID:  f.clinicID,
			PatientID: f.patientID,
			TotalDue:  decimal.RequireFromString("1000.00"),
			IssueDate: time.Now(),
			CreatedBy: f.staffID,
			Send:      true,
		})

		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusSent, invoice.Status)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)

		f.invoiceRepo.On("GenerateInvoiceNumber", mock.Anything, f.clinicID).
			Return("INV-20260301-00009", nil)

		_, err := f.service.CreateInvoice(context.Background(), CreateInvoiceRequest{
			ClinicID:  f.clinicID,
			PatientID: f.patientID,
			TotalDue:  decimal.Zero,
			IssueDate: time.Now(),
			CreatedBy: f.staffID,
		})

		require.Error(t, err)
		f.invoiceRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestInvoiceService_SendInvoice(t *testing.T) {
	t.Run("issues a draft", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		invoice := f.newDraftInvoice(t, "INV-20260301-00001", "750.00")

		f.invoiceRepo.On("FindByIDForClinic", mock.Anything, f.clinicID, invoice.ID).
			Return(invoice, nil)
		f.invoiceRepo.On("SaveWithLock", mock.Anything, invoice).Return(nil)

		result, err := f.service.SendInvoice(context.Background(), f.clinicID, invoice.ID)

		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusSent, result.Status)
		f.invoiceRepo.AssertExpectations(t)
	})

	t.Run("sending twice fails", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		invoice := f.newDraftInvoice(t, "INV-20260301-00001", "750.00")
		require.NoError(t, invoice.Send())

		f.invoiceRepo.On("FindByIDForClinic", mock.Anything, f.clinicID, invoice.ID).
			Return(invoice, nil)

		_, err := f.service.SendInvoice(context.Background(), f.clinicID, invoice.ID)

		require.Error(t, err)
		f.invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("missing invoice surfaces not found", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		invoiceID := uuid.New()

		f.invoiceRepo.On("FindByIDForClinic", mock.Anything, f.clinicID, invoiceID).
			Return(nil, shared.ErrNotFound)

		_, err := f.service.SendInvoice(context.Background(), f.clinicID, invoiceID)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVOICE_NOT_FOUND", domainErr.Code)
	})
}

func TestInvoiceService_CancelInvoice(t *testing.T) {
	t.Run("cancels an unpaid invoice and refreshes the balance", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		invoice := f.newDraftInvoice(t, "INV-20260301-00002", "500.00")

		f.invoiceRepo.On("FindByIDForClinic", mock.Anything, f.clinicID, invoice.ID).
			Return(invoice, nil)
		f.invoiceRepo.On("SaveWithLock", mock.Anything, invoice).Return(nil)
		f.expectBalanceRefresh("0.00")

		result, err := f.service.CancelInvoice(context.Background(), f.clinicID, invoice.ID, "treatment postponed")

		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusCancelled, result.Status)
		f.invoiceRepo.AssertExpectations(t)
	})

	t.Run("invoice with payments cannot be cancelled", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		invoice := f.newDraftInvoice(t, "INV-20260301-00003", "500.00")
		require.NoError(t, invoice.Send())
		require.NoError(t, invoice.RecalculateLedger(decimal.RequireFromString("100.00")))

		f.invoiceRepo.On("FindByIDForClinic", mock.Anything, f.clinicID, invoice.ID).
			Return(invoice, nil)

		_, err := f.service.CancelInvoice(context.Background(), f.clinicID, invoice.ID, "typo")

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "HAS_PAYMENTS", domainErr.Code)
		f.invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestInvoiceService_MarkOverdue(t *testing.T) {
	t.Run("flags a sent invoice past due", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		due := time.Now().Add(-48 * time.Hour)
		amount, err := valueobject.NewMoneyPHPFromString("900.00")
		require.NoError(t, err)
		invoice, err := billing.NewInvoice(f.clinicID, f.patientID, "INV-20260301-00004", amount, time.Now().Add(-30*24*time.Hour), &due)
		require.NoError(t, err)
		require.NoError(t, invoice.Send())

		f.invoiceRepo.On("FindByIDForClinic", mock.Anything, f.clinicID, invoice.ID).
			Return(invoice, nil)
		f.invoiceRepo.On("SaveWithLock", mock.Anything, invoice).Return(nil)

		result, err := f.service.MarkOverdue(context.Background(), f.clinicID, invoice.ID)

		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusOverdue, result.Status)
	})

	t.Run("invoice not yet due stays sent", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		due := time.Now().Add(72 * time.Hour)
		amount, err := valueobject.NewMoneyPHPFromString("900.00")
		require.NoError(t, err)
		invoice, err := billing.NewInvoice(f.clinicID, f.patientID, "INV-20260301-00005", amount, time.Now(), &due)
		require.NoError(t, err)
		require.NoError(t, invoice.Send())

		f.invoiceRepo.On("FindByIDForClinic", mock.Anything, f.clinicID, invoice.ID).
			Return(invoice, nil)

		_, err = f.service.MarkOverdue(context.Background(), f.clinicID, invoice.ID)

		require.Error(t, err)
		assert.Equal(t, billing.InvoiceStatusSent, invoice.Status)
	})
}

func TestInvoiceService_ListInvoices(t *testing.T) {
	f := newInvoiceServiceFixture(t)
	invoice := f.newDraftInvoice(t, "INV-20260301-00006", "300.00")
	filter := billing.InvoiceFilter{Filter: shared.Filter{Page: 1, PageSize: 20}}

	f.invoiceRepo.On("FindAllForClinic", mock.Anything, f.clinicID, filter).
		Return([]billing.Invoice{*invoice}, nil)
	f.invoiceRepo.On("CountForClinic", mock.Anything, f.clinicID, filter).
		Return(int64(1), nil)

	result, err := f.service.ListInvoices(context.Background(), f.clinicID, filter)

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Items, 1)
	assert.Equal(t, invoice.InvoiceNumber, result.Items[0].InvoiceNumber)
}
