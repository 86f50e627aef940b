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

type paymentServiceFixture struct {
	service     *PaymentService
	paymentRepo *MockPaymentRepository
	invoiceRepo *MockInvoiceRepository
	cache       *MockBalanceCache
	clinicID    uuid.UUID
	patientID   uuid.UUID
	staffID     uuid.UUID
}

func newPaymentServiceFixture(t *testing.T) *paymentServiceFixture {
	t.Helper()
	paymentRepo := new(MockPaymentRepository)
	invoiceRepo := new(MockInvoiceRepository)
	cache := new(MockBalanceCache)
	logger := zap.NewNop()
	balanceService := NewPatientBalanceService(invoiceRepo, cache, logger)

	return &paymentServiceFixture{
		service:     NewPaymentService(paymentRepo, invoiceRepo, balanceService, logger, 10),
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		cache:       cache,
		clinicID:    uuid.New(),
		patientID:   uuid.New(),
		staffID:     uuid.New(),
	}
}

func (f *paymentServiceFixture) newSentInvoice(t *testing.T, number, total string) *billing.Invoice {
	t.Helper()
	amount, err := valueobject.NewMoneyPHPFromString(total)
	require.NoError(t, err)
	invoice, err := billing.NewInvoice(f.clinicID, f.patientID, number, amount, time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, invoice.Send())
	return invoice
}

// expectLedgerWrite wires the mocks a successful record path needs
func (f *paymentServiceFixture) expectLedgerWrite(existingSums map[uuid.UUID]decimal.Decimal, balanceAfter string) {
	f.paymentRepo.On("SumActiveAllocations", mock.Anything, mock.Anything, mock.Anything).
		Return(existingSums, nil)
	f.paymentRepo.On("RecordWithLedger", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			payment := args.Get(1).(*billing.Payment)
			payment.PaymentNumber = "PAY-2026-09-0001"
		}).
		Return(nil)
	f.invoiceRepo.On("SumOutstandingByPatient", mock.Anything, f.clinicID, f.patientID).
		Return(decimal.RequireFromString(balanceAfter), nil)
	f.cache.On("Set", mock.Anything, f.clinicID, f.patientID, mock.Anything).Return(nil)
}

func recordRequest(f *paymentServiceFixture, amount string, allocs ...AllocationRequest) RecordPaymentRequest {
	return RecordPaymentRequest{
		ClinicID:    f.clinicID,
		PatientID:   f.patientID,
		Amount:      decimal.RequireFromString(amount),
		Method:      billing.PaymentMethodCash,
		PaymentDate: time.Now(),
		RecordedBy:  f.staffID,
		Allocations: allocs,
	}
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func TestPaymentService_RecordPayment(t *testing.T) {
	t.Run("full payment settles a single invoice", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		invoice := f.newSentInvoice(t, "INV-0001", "1000.00")
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, []uuid.UUID{invoice.ID}).
			Return([]billing.Invoice{*invoice}, nil)
		f.expectLedgerWrite(map[uuid.UUID]decimal.Decimal{}, "0.00")

		result, err := f.service.RecordPayment(context.Background(), recordRequest(f, "1000.00",
			AllocationRequest{InvoiceID: invoice.ID, Amount: decimal.RequireFromString("1000.00")}))
		require.NoError(t, err)

		assert.Equal(t, "PAY-2026-09-0001", result.PaymentNumber)
		assert.True(t, result.AllocatedTotal.Equal(decimal.RequireFromString("1000.00")))
		assert.True(t, result.Unallocated.IsZero())
		require.Len(t, result.Invoices, 1)
		assert.Equal(t, billing.InvoiceStatusPaid, result.Invoices[0].Status)
		assert.True(t, result.Invoices[0].Balance.IsZero())
		assert.True(t, result.PatientBalance.IsZero())
		f.paymentRepo.AssertExpectations(t)
	})

	t.Run("split payment across two invoices", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		inv1 := f.newSentInvoice(t, "INV-0001", "600.00")
		inv2 := f.newSentInvoice(t, "INV-0002", "900.00")
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, mock.Anything).
			Return([]billing.Invoice{*inv1, *inv2}, nil)
		f.expectLedgerWrite(map[uuid.UUID]decimal.Decimal{}, "500.00")

		result, err := f.service.RecordPayment(context.Background(), recordRequest(f, "1000.00",
			AllocationRequest{InvoiceID: inv1.ID, Amount: decimal.RequireFromString("600.00")},
			AllocationRequest{InvoiceID: inv2.ID, Amount: decimal.RequireFromString("400.00")}))
		require.NoError(t, err)

		require.Len(t, result.Invoices, 2)
		assert.Equal(t, billing.InvoiceStatusPaid, result.Invoices[0].Status)
		assert.Equal(t, billing.InvoiceStatusSent, result.Invoices[1].Status)
		assert.True(t, result.Invoices[1].Balance.Equal(decimal.RequireFromString("500.00")))
	})

	t.Run("credits the invoice provider unless the line names one", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		invoiceProvider := uuid.New()
		lineProvider := uuid.New()
		inv1 := f.newSentInvoice(t, "INV-0001", "600.00")
		inv1.SetProvider(invoiceProvider)
		inv2 := f.newSentInvoice(t, "INV-0002", "900.00")
		inv2.SetProvider(invoiceProvider)
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, mock.Anything).
			Return([]billing.Invoice{*inv1, *inv2}, nil)
		f.paymentRepo.On("SumActiveAllocations", mock.Anything, mock.Anything, mock.Anything).
			Return(map[uuid.UUID]decimal.Decimal{}, nil)
		f.invoiceRepo.On("SumOutstandingByPatient", mock.Anything, f.clinicID, f.patientID).
			Return(decimal.RequireFromString("500.00"), nil)
		f.cache.On("Set", mock.Anything, f.clinicID, f.patientID, mock.Anything).Return(nil)

		var recorded *billing.Payment
		f.paymentRepo.On("RecordWithLedger", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				recorded = args.Get(1).(*billing.Payment)
				recorded.PaymentNumber = "PAY-2026-09-0002"
			}).
			Return(nil)

		_, err := f.service.RecordPayment(context.Background(), recordRequest(f, "1000.00",
			AllocationRequest{InvoiceID: inv1.ID, Amount: decimal.RequireFromString("600.00")},
			AllocationRequest{InvoiceID: inv2.ID, Amount: decimal.RequireFromString("400.00"), ProviderID: &lineProvider}))
		require.NoError(t, err)

		require.NotNil(t, recorded)
		require.Len(t, recorded.Allocations, 2)
		require.NotNil(t, recorded.Allocations[0].ProviderID)
		assert.Equal(t, invoiceProvider, *recorded.Allocations[0].ProviderID)
		require.NotNil(t, recorded.Allocations[1].ProviderID)
		assert.Equal(t, lineProvider, *recorded.Allocations[1].ProviderID)
	})

	t.Run("under allocation keeps the remainder as credit", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		invoice := f.newSentInvoice(t, "INV-0001", "1000.00")
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, mock.Anything).
			Return([]billing.Invoice{*invoice}, nil)
		f.expectLedgerWrite(map[uuid.UUID]decimal.Decimal{}, "250.00")

		result, err := f.service.RecordPayment(context.Background(), recordRequest(f, "1000.00",
			AllocationRequest{InvoiceID: invoice.ID, Amount: decimal.RequireFromString("750.00")}))
		require.NoError(t, err)

		assert.True(t, result.Unallocated.Equal(decimal.RequireFromString("250.00")))
	})

	t.Run("builds on prior allocations when recomputing", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		invoice := f.newSentInvoice(t, "INV-0001", "1000.00")
		// 400 already paid by an earlier payment
		require.NoError(t, invoice.RecalculateLedger(decimal.RequireFromString("400.00")))
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, mock.Anything).
			Return([]billing.Invoice{*invoice}, nil)
		f.expectLedgerWrite(map[uuid.UUID]decimal.Decimal{
			invoice.ID: decimal.RequireFromString("400.00"),
		}, "0.00")

		result, err := f.service.RecordPayment(context.Background(), recordRequest(f, "600.00",
			AllocationRequest{InvoiceID: invoice.ID, Amount: decimal.RequireFromString("600.00")}))
		require.NoError(t, err)

		assert.Equal(t, billing.InvoiceStatusPaid, result.Invoices[0].Status)
		assert.True(t, result.Invoices[0].AmountPaid.Equal(decimal.RequireFromString("1000.00")))
	})

	t.Run("rejects allocation above the invoice balance", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		invoice := f.newSentInvoice(t, "INV-0001", "100.00")
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, mock.Anything).
			Return([]billing.Invoice{*invoice}, nil)

		_, err := f.service.RecordPayment(context.Background(), recordRequest(f, "200.00",
			AllocationRequest{InvoiceID: invoice.ID, Amount: decimal.RequireFromString("100.01")}))
		require.Error(t, err)
		assert.Equal(t, "EXCEEDS_INVOICE_BALANCE", domainCode(t, err))
		f.paymentRepo.AssertNotCalled(t, "RecordWithLedger", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects allocations that exceed the payment amount", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		inv1 := f.newSentInvoice(t, "INV-0001", "5000.00")
		inv2 := f.newSentInvoice(t, "INV-0002", "5000.00")
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, mock.Anything).
			Return([]billing.Invoice{*inv1, *inv2}, nil)

		_, err := f.service.RecordPayment(context.Background(), recordRequest(f, "1000.00",
			AllocationRequest{InvoiceID: inv1.ID, Amount: decimal.RequireFromString("800.00")},
			AllocationRequest{InvoiceID: inv2.ID, Amount: decimal.RequireFromString("300.00")}))
		require.Error(t, err)
		assert.Equal(t, "OVER_ALLOCATED", domainCode(t, err))
		f.paymentRepo.AssertNotCalled(t, "RecordWithLedger", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects an invoice belonging to another patient", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		invoice := f.newSentInvoice(t, "INV-0001", "1000.00")
		invoice.PatientID = uuid.New()
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, mock.Anything).
			Return([]billing.Invoice{*invoice}, nil)

		_, err := f.service.RecordPayment(context.Background(), recordRequest(f, "100.00",
			AllocationRequest{InvoiceID: invoice.ID, Amount: decimal.RequireFromString("100.00")}))
		require.Error(t, err)
		assert.Equal(t, "PATIENT_MISMATCH", domainCode(t, err))
	})

	t.Run("rejects a cancelled invoice", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		amount, err := valueobject.NewMoneyPHPFromString("1000.00")
		require.NoError(t, err)
		invoice, err := billing.NewInvoice(f.clinicID, f.patientID, "INV-0001", amount, time.Now(), nil)
		require.NoError(t, err)
		require.NoError(t, invoice.Cancel("duplicate"))
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, mock.Anything).
			Return([]billing.Invoice{*invoice}, nil)

		_, err = f.service.RecordPayment(context.Background(), recordRequest(f, "100.00",
			AllocationRequest{InvoiceID: invoice.ID, Amount: decimal.RequireFromString("100.00")}))
		require.Error(t, err)
		assert.Equal(t, "INVOICE_CANCELLED", domainCode(t, err))
	})

	t.Run("rejects a missing invoice", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, mock.Anything).
			Return([]billing.Invoice{}, nil)

		_, err := f.service.RecordPayment(context.Background(), recordRequest(f, "100.00",
			AllocationRequest{InvoiceID: uuid.New(), Amount: decimal.RequireFromString("100.00")}))
		require.Error(t, err)
		assert.Equal(t, "INVOICE_NOT_FOUND", domainCode(t, err))
	})

	t.Run("rejects duplicate invoices in one request", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		invoiceID := uuid.New()

		_, err := f.service.RecordPayment(context.Background(), recordRequest(f, "100.00",
			AllocationRequest{InvoiceID: invoiceID, Amount: decimal.RequireFromString("50.00")},
			AllocationRequest{InvoiceID: invoiceID, Amount: decimal.RequireFromString("50.00")}))
		require.Error(t, err)
		assert.Equal(t, "DUPLICATE_ALLOCATION", domainCode(t, err))
	})

	t.Run("rejects an empty allocation list", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		_, err := f.service.RecordPayment(context.Background(), recordRequest(f, "100.00"))
		require.Error(t, err)
		assert.Equal(t, "NO_ALLOCATIONS", domainCode(t, err))
	})

	t.Run("surfaces a version conflict from the ledger write", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		invoice := f.newSentInvoice(t, "INV-0001", "1000.00")
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, mock.Anything).
			Return([]billing.Invoice{*invoice}, nil)
		f.paymentRepo.On("SumActiveAllocations", mock.Anything, mock.Anything, mock.Anything).
			Return(map[uuid.UUID]decimal.Decimal{}, nil)
		f.paymentRepo.On("RecordWithLedger", mock.Anything, mock.Anything, mock.Anything).
			Return(shared.ErrConcurrencyConflict)

		_, err := f.service.RecordPayment(context.Background(), recordRequest(f, "100.00",
			AllocationRequest{InvoiceID: invoice.ID, Amount: decimal.RequireFromString("100.00")}))
		require.Error(t, err)
		assert.Equal(t, "CONCURRENCY_CONFLICT", domainCode(t, err))
	})
}

func TestPaymentService_VoidPayment(t *testing.T) {
	newRecordedPayment := func(t *testing.T, f *paymentServiceFixture, invoiceID uuid.UUID, amount string) *billing.Payment {
		t.Helper()
		money, err := valueobject.NewMoneyPHPFromString(amount)
		require.NoError(t, err)
		payment, err := billing.NewPayment(f.clinicID, f.patientID, f.staffID,
			money, billing.PaymentMethodGCash,
			billing.MethodDetails{ReferenceNumber: "REF-123"}, time.Now(), "")
		require.NoError(t, err)
		require.NoError(t, payment.AddAllocation(invoiceID, decimal.RequireFromString(amount), nil))
		payment.PaymentNumber = "PAY-2026-09-0007"
		return payment
	}

	t.Run("void reverts a fully paid invoice to sent", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		invoice := f.newSentInvoice(t, "INV-0001", "1000.00")
		require.NoError(t, invoice.RecalculateLedger(decimal.RequireFromString("1000.00")))
		require.Equal(t, billing.InvoiceStatusPaid, invoice.Status)

		payment := newRecordedPayment(t, f, invoice.ID, "1000.00")

		f.paymentRepo.On("FindByIDForClinic", mock.Anything, f.clinicID, payment.ID).
			Return(payment, nil)
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, []uuid.UUID{invoice.ID}).
			Return([]billing.Invoice{*invoice}, nil)
		f.paymentRepo.On("SumActiveAllocations", mock.Anything, []uuid.UUID{invoice.ID}, &payment.ID).
			Return(map[uuid.UUID]decimal.Decimal{}, nil)
		f.paymentRepo.On("VoidWithLedger", mock.Anything, payment, mock.Anything).Return(nil)
		f.invoiceRepo.On("SumOutstandingByPatient", mock.Anything, f.clinicID, f.patientID).
			Return(decimal.RequireFromString("1000.00"), nil)
		f.cache.On("Set", mock.Anything, f.clinicID, f.patientID, mock.Anything).Return(nil)

		result, err := f.service.VoidPayment(context.Background(), VoidPaymentRequest{
			ClinicID:  f.clinicID,
			PaymentID: payment.ID,
			Reason:    "posted to the wrong patient",
			VoidedBy:  f.staffID,
		})
		require.NoError(t, err)

		assert.True(t, payment.IsVoided())
		require.Len(t, result.Invoices, 1)
		assert.Equal(t, billing.InvoiceStatusSent, result.Invoices[0].Status)
		assert.True(t, result.Invoices[0].Balance.Equal(decimal.RequireFromString("1000.00")))
		assert.True(t, result.PatientBalance.Equal(decimal.RequireFromString("1000.00")))
	})

	t.Run("void keeps other payments on the invoice", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		invoice := f.newSentInvoice(t, "INV-0001", "1000.00")
		require.NoError(t, invoice.RecalculateLedger(decimal.RequireFromString("1000.00")))

		payment := newRecordedPayment(t, f, invoice.ID, "600.00")

		f.paymentRepo.On("FindByIDForClinic", mock.Anything, f.clinicID, payment.ID).
			Return(payment, nil)
		f.invoiceRepo.On("FindByIDs", mock.Anything, f.clinicID, mock.Anything).
			Return([]billing.Invoice{*invoice}, nil)
		// another payment still covers 400
		f.paymentRepo.On("SumActiveAllocations", mock.Anything, mock.Anything, &payment.ID).
			Return(map[uuid.UUID]decimal.Decimal{invoice.ID: decimal.RequireFromString("400.00")}, nil)
		f.paymentRepo.On("VoidWithLedger", mock.Anything, payment, mock.Anything).Return(nil)
		f.invoiceRepo.On("SumOutstandingByPatient", mock.Anything, f.clinicID, f.patientID).
			Return(decimal.RequireFromString("600.00"), nil)
		f.cache.On("Set", mock.Anything, f.clinicID, f.patientID, mock.Anything).Return(nil)

		result, err := f.service.VoidPayment(context.Background(), VoidPaymentRequest{
			ClinicID:  f.clinicID,
			PaymentID: payment.ID,
			Reason:    "check bounced",
			VoidedBy:  f.staffID,
		})
		require.NoError(t, err)

		require.Len(t, result.Invoices, 1)
		assert.Equal(t, billing.InvoiceStatusSent, result.Invoices[0].Status)
		assert.True(t, result.Invoices[0].AmountPaid.Equal(decimal.RequireFromString("400.00")))
	})

	t.Run("rejects voiding a voided payment", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		payment := newRecordedPayment(t, f, uuid.New(), "500.00")
		require.NoError(t, payment.Void(f.staffID, "entry error"))

		f.paymentRepo.On("FindByIDForClinic", mock.Anything, f.clinicID, payment.ID).
			Return(payment, nil)

		_, err := f.service.VoidPayment(context.Background(), VoidPaymentRequest{
			ClinicID:  f.clinicID,
			PaymentID: payment.ID,
			Reason:    "again",
			VoidedBy:  f.staffID,
		})
		require.Error(t, err)
		assert.Equal(t, "ALREADY_VOIDED", domainCode(t, err))
		f.paymentRepo.AssertNotCalled(t, "VoidWithLedger", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects an unknown payment", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		f.paymentRepo.On("FindByIDForClinic", mock.Anything, f.clinicID, mock.Anything).
			Return(nil, shared.ErrNotFound)

		_, err := f.service.VoidPayment(context.Background(), VoidPaymentRequest{
			ClinicID:  f.clinicID,
			PaymentID: uuid.New(),
			Reason:    "cleanup",
			VoidedBy:  f.staffID,
		})
		require.Error(t, err)
		assert.Equal(t, "PAYMENT_NOT_FOUND", domainCode(t, err))
	})
}

func TestPaymentService_GetPatientPaymentSummary(t *testing.T) {
	t.Run("combines collected total with outstanding balance", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		f.paymentRepo.On("SumCollectedByPatient", mock.Anything, f.clinicID, f.patientID).
			Return(decimal.RequireFromString("7500.00"), nil)
		f.cache.On("Get", mock.Anything, f.clinicID, f.patientID).
			Return(decimal.RequireFromString("1200.00"), true, nil)

		summary, err := f.service.GetPatientPaymentSummary(context.Background(), f.clinicID, f.patientID)
		require.NoError(t, err)
		assert.Equal(t, f.patientID, summary.PatientID)
		assert.True(t, summary.TotalCollected.Equal(decimal.RequireFromString("7500.00")))
		assert.True(t, summary.Outstanding.Equal(decimal.RequireFromString("1200.00")))
	})

	t.Run("recomputes the balance on a cache miss", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		f.paymentRepo.On("SumCollectedByPatient", mock.Anything, f.clinicID, f.patientID).
			Return(decimal.Zero, nil)
		f.cache.On("Get", mock.Anything, f.clinicID, f.patientID).
			Return(decimal.Zero, false, nil)
		f.invoiceRepo.On("SumOutstandingByPatient", mock.Anything, f.clinicID, f.patientID).
			Return(decimal.RequireFromString("300.00"), nil)
		f.cache.On("Set", mock.Anything, f.clinicID, f.patientID, mock.Anything).Return(nil)

		summary, err := f.service.GetPatientPaymentSummary(context.Background(), f.clinicID, f.patientID)
		require.NoError(t, err)
		assert.True(t, summary.TotalCollected.IsZero())
		assert.True(t, summary.Outstanding.Equal(decimal.RequireFromString("300.00")))
	})
}

func TestPaymentService_GetPayment(t *testing.T) {
	t.Run("translates a missing payment to a domain error", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		f.paymentRepo.On("FindByIDForClinic", mock.Anything, f.clinicID, mock.Anything).
			Return(nil, shared.ErrNotFound)

		_, err := f.service.GetPayment(context.Background(), f.clinicID, uuid.New())
		require.Error(t, err)
		assert.Equal(t, "PAYMENT_NOT_FOUND", domainCode(t, err))
	})
}
