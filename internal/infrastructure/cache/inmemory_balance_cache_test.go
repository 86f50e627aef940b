package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBalanceCache_GetSet(t *testing.T) {
	cache := NewInMemoryBalanceCache(time.Minute)

	ctx := context.Background()
	clinicID := uuid.New()
	patientID := uuid.New()

	// Miss before anything is stored
	_, ok, err := cache.Get(ctx, clinicID, patientID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = cache.Set(ctx, clinicID, patientID, decimal.NewFromInt(2500))
	require.NoError(t, err)

	balance, ok, err := cache.Get(ctx, clinicID, patientID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(2500).Equal(balance))

	// Another patient in the same clinic is a separate entry
	_, ok, err = cache.Get(ctx, clinicID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryBalanceCache_Expiry(t *testing.T) {
	cache := NewInMemoryBalanceCache(10 * time.Millisecond)

	ctx := context.Background()
	clinicID := uuid.New()
	patientID := uuid.New()

	require.NoError(t, cache.Set(ctx, clinicID, patientID, decimal.NewFromInt(100)))

	time.Sleep(20 * time.Millisecond)

	_, ok, err := cache.Get(ctx, clinicID, patientID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestInMemoryBalanceCache_Invalidate(t *testing.T) {
	cache := NewInMemoryBalanceCache(time.Minute)

	ctx := context.Background()
	clinicID := uuid.New()
	patientID := uuid.New()

	require.NoError(t, cache.Set(ctx, clinicID, patientID, decimal.NewFromInt(900)))
	require.NoError(t, cache.Invalidate(ctx, clinicID, patientID))

	_, ok, err := cache.Get(ctx, clinicID, patientID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Invalidating an absent entry is a no-op
	require.NoError(t, cache.Invalidate(ctx, clinicID, uuid.New()))
}
