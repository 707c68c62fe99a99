package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/smm-panel/internal/model"
)

func testService() model.Service {
	return model.Service{
		ID:        1,
		DirtyRate: decimal.NewFromInt(10),
		ClearRate: decimal.NewFromInt(6),
		Min:       10,
		Max:       1000,
		Cancel:    true,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		quantity int64
		balance  decimal.Decimal
		wantErr  error
		wantCost string
	}{
		{
			name:     "valid order",
			quantity: 100,
			balance:  decimal.NewFromInt(100),
			wantCost: "1",
		},
		{
			name:     "exact balance",
			quantity: 100,
			balance:  decimal.NewFromInt(1),
			wantCost: "1",
		},
		{
			name:     "quantity at max",
			quantity: 1000,
			balance:  decimal.NewFromInt(100),
			wantCost: "10",
		},
		{
			name:     "quantity below min",
			quantity: 5,
			balance:  decimal.NewFromInt(100),
			wantErr:  ErrQuantityTooLow,
		},
		{
			name:     "quantity above max",
			quantity: 1001,
			balance:  decimal.NewFromInt(100),
			wantErr:  ErrQuantityTooHigh,
		},
		{
			name:     "balance too low",
			quantity: 100,
			balance:  decimal.RequireFromString("0.99"),
			wantErr:  ErrInsufficientBalance,
		},
		{
			name:     "bounds checked before balance",
			quantity: 5,
			balance:  decimal.Zero,
			wantErr:  ErrQuantityTooLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Evaluate(testService(), tt.quantity, tt.balance)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, q.Cost.Equal(decimal.RequireFromString(tt.wantCost)), "cost = %s, want %s", q.Cost, tt.wantCost)
		})
	}
}

func TestQuoteProfitAndReferralSplit(t *testing.T) {
	q, err := Evaluate(testService(), 100, decimal.NewFromInt(100))
	require.NoError(t, err)

	profit := q.Profit()
	assert.True(t, profit.Equal(decimal.RequireFromString("0.4")), "profit = %s", profit)

	commission, retained := SplitReferral(profit)
	assert.True(t, commission.Equal(decimal.RequireFromString("0.04")), "commission = %s", commission)
	assert.True(t, retained.Equal(decimal.RequireFromString("0.36")), "retained = %s", retained)
}

func TestRefund(t *testing.T) {
	cost := decimal.NewFromInt(1)
	rate := decimal.NewFromInt(10)

	assert.True(t, Refund(cost, rate, 50).Equal(decimal.RequireFromString("0.5")))
	assert.True(t, Refund(cost, rate, 0).Equal(cost))
	assert.True(t, Refund(cost, rate, 500).IsZero(), "refund must not go negative")
}

func TestCancelProfit(t *testing.T) {
	got := CancelProfit(decimal.RequireFromString("0.5"))
	assert.True(t, got.Equal(decimal.RequireFromString("0.015")), "got %s", got)
}

func TestPerThousandFractional(t *testing.T) {
	got := PerThousand(decimal.RequireFromString("0.75"), 15)
	assert.Equal(t, "0.01125", got.String())
}
