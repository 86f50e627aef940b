package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPatientBalanceService_GetBalance(t *testing.T) {
	clinicID, patientID := uuid.New(), uuid.New()

	t.Run("serves a cached balance", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		cache := new(MockBalanceCache)
		service := NewPatientBalanceService(invoiceRepo, cache, zap.NewNop())

		cache.On("Get", mock.Anything, clinicID, patientID).
			Return(decimal.RequireFromString("750.00"), true, nil)

		result, err := service.GetBalance(context.Background(), clinicID, patientID)
		require.NoError(t, err)

		assert.True(t, result.FromCache)
		assert.True(t, result.Outstanding.Equal(decimal.RequireFromString("750.00")))
		invoiceRepo.AssertNotCalled(t, "SumOutstandingByPatient", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("recomputes on cache miss and stores the result", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		cache := new(MockBalanceCache)
		service := NewPatientBalanceService(invoiceRepo, cache, zap.NewNop())

		cache.On("Get", mock.Anything, clinicID, patientID).
			Return(decimal.Zero, false, nil)
		invoiceRepo.On("SumOutstandingByPatient", mock.Anything, clinicID, patientID).
			Return(decimal.RequireFromString("1200.00"), nil)
		cache.On("Set", mock.Anything, clinicID, patientID, decimal.RequireFromString("1200.00")).
			Return(nil)

		result, err := service.GetBalance(context.Background(), clinicID, patientID)
		require.NoError(t, err)

		assert.False(t, result.FromCache)
		assert.True(t, result.Outstanding.Equal(decimal.RequireFromString("1200.00")))
		cache.AssertExpectations(t)
	})

	t.Run("falls back to invoice rows when the cache fails", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		cache := new(MockBalanceCache)
		service := NewPatientBalanceService(invoiceRepo, cache, zap.NewNop())

		cache.On("Get", mock.Anything, clinicID, patientID).
			Return(decimal.Zero, false, errors.New("redis: connection refused"))
		invoiceRepo.On("SumOutstandingByPatient", mock.Anything, clinicID, patientID).
			Return(decimal.RequireFromString("300.00"), nil)
		cache.On("Set", mock.Anything, clinicID, patientID, mock.Anything).
			Return(errors.New("redis: connection refused"))

		result, err := service.GetBalance(context.Background(), clinicID, patientID)
		require.NoError(t, err)
		assert.True(t, result.Outstanding.Equal(decimal.RequireFromString("300.00")))
	})
}

func TestPatientBalanceService_Refresh(t *testing.T) {
	clinicID, patientID := uuid.New(), uuid.New()

	invoiceRepo := new(MockInvoiceRepository)
	cache := new(MockBalanceCache)
	service := NewPatientBalanceService(invoiceRepo, cache, zap.NewNop())

	invoiceRepo.On("SumOutstandingByPatient", mock.Anything, clinicID, patientID).
		Return(decimal.RequireFromString("480.50"), nil)
	cache.On("Set", mock.Anything, clinicID, patientID, decimal.RequireFromString("480.50")).
		Return(nil)

	balance, err := service.Refresh(context.Background(), clinicID, patientID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("480.50")))
	cache.AssertExpectations(t)
}
