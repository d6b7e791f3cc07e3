package inventory

import (
	"testing"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMedicineBatch(t *testing.T) {
	expiry := testToday.AddDate(1, 0, 0)

	t.Run("creates active batch with nothing on hand", func(t *testing.T) {
		b, err := NewMedicineBatch(7, " LOT-1 ", 100, expiry, decimal.NewFromInt(2), decimal.NewFromInt(3), testToday)
		require.NoError(t, err)
		assert.Equal(t, "LOT-1", b.BatchNumber)
		assert.Equal(t, int64(100), b.TotalQuantity)
		assert.Equal(t, int64(0), b.RemainingQuantity)
		assert.Equal(t, BatchStatusActive, b.Status)
		assert.Equal(t, shared.Day(expiry), b.ExpiryDate)
		assert.True(t, b.IsNew())
	})

	t.Run("validates input", func(t *testing.T) {
		cases := []struct {
			name     string
			medicine int64
			number   string
			qty      int64
			cost     decimal.Decimal
		}{
			{"missing medicine", 0, "L", 1, decimal.Zero},
			{"empty batch number", 7, "  ", 1, decimal.Zero},
			{"zero quantity", 7, "L", 0, decimal.Zero},
			{"negative cost", 7, "L", 1, decimal.NewFromInt(-1)},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewMedicineBatch(tc.medicine, tc.number, tc.qty, expiry, tc.cost, decimal.Zero, testToday)
				assert.ErrorIs(t, err, shared.ErrValidation)
			})
		}
	})
}

func TestMedicineBatch_ApplyMovement(t *testing.T) {
	t.Run("sale to zero flips to sold out and back", func(t *testing.T) {
		b := newTestBatch(1, 7, 10, 30)

		require.NoError(t, b.ApplyMovement(MovementKindSale, -10, testToday))
		assert.Equal(t, int64(0), b.RemainingQuantity)
		assert.Equal(t, int64(10), b.SoldQuantity)
		assert.Equal(t, BatchStatusSoldOut, b.Status)

		require.NoError(t, b.ApplyMovement(MovementKindSalesReturn, 4, testToday))
		assert.Equal(t, int64(4), b.RemainingQuantity)
		assert.Equal(t, int64(6), b.SoldQuantity)
		assert.Equal(t, BatchStatusActive, b.Status)
	})

	t.Run("underflow is insufficient stock and leaves batch untouched", func(t *testing.T) {
		b := newTestBatch(1, 7, 3, 30)
		version := b.Version

		err := b.ApplyMovement(MovementKindSale, -4, testToday)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, int64(3), b.RemainingQuantity)
		assert.Equal(t, version, b.Version)
	})

	t.Run("restoring more than sold is a cancellation conflict", func(t *testing.T) {
		b := newTestBatch(1, 7, 3, 30)
		b.SoldQuantity = 2

		err := b.ApplyMovement(MovementKindSale, 5, testToday)
		assert.ErrorIs(t, err, shared.ErrCancellationConflict)
	})

	t.Run("written off batch cannot receive stock", func(t *testing.T) {
		b := newTestBatch(1, 7, 0, 30)
		b.Status = BatchStatusExpired

		err := b.ApplyMovement(MovementKindPurchaseReturn, 5, testToday)
		assert.ErrorIs(t, err, shared.ErrCancellationConflict)
	})

	t.Run("quarantined batch keeps status at zero", func(t *testing.T) {
		b := newTestBatch(1, 7, 5, 30)
		b.Status = BatchStatusQuarantined

		require.NoError(t, b.ApplyMovement(MovementKindAdjustment, -5, testToday))
		assert.Equal(t, BatchStatusQuarantined, b.Status)
	})
}

func TestMedicineBatch_StatusTransitions(t *testing.T) {
	t.Run("mark expired requires zero remainder", func(t *testing.T) {
		b := newTestBatch(1, 7, 5, -1)
		assert.ErrorIs(t, b.MarkExpired(testToday), shared.ErrInvalidTransition)

		require.NoError(t, b.ApplyMovement(MovementKindExpiry, -5, testToday))
		require.NoError(t, b.MarkExpired(testToday))
		assert.Equal(t, BatchStatusExpired, b.Status)
		assert.ErrorIs(t, b.MarkExpired(testToday), shared.ErrInvalidTransition)
	})

	t.Run("quarantine and release", func(t *testing.T) {
		b := newTestBatch(1, 7, 5, 30)
		require.NoError(t, b.Quarantine(testToday))
		assert.False(t, b.IsSellableOn(testToday))
		assert.ErrorIs(t, b.Quarantine(testToday), shared.ErrInvalidTransition)

		require.NoError(t, b.Release(testToday))
		assert.Equal(t, BatchStatusActive, b.Status)
		assert.True(t, b.IsSellableOn(testToday))
	})

	t.Run("expiry is whole-day", func(t *testing.T) {
		b := newTestBatch(1, 7, 5, 1)
		assert.False(t, b.IsExpiredOn(testToday))
		assert.Equal(t, 1, b.DaysUntilExpiry(testToday))
		assert.True(t, b.IsExpiredOn(testToday.AddDate(0, 0, 1)))
	})
}
