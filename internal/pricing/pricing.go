// Package pricing рассчитывает стоимость заказа и проверяет допустимость покупки.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/smm-panel/internal/model"
)

// Scale задаёт число знаков после запятой для денежных сумм.
const Scale = 6

var (
	// ErrQuantityTooLow возвращается, если количество меньше минимума услуги.
	ErrQuantityTooLow = errors.New("quantity is too low")
	// ErrQuantityTooHigh возвращается, если количество больше максимума услуги.
	ErrQuantityTooHigh = errors.New("quantity is too high")
	// ErrInsufficientBalance возвращается, если баланса не хватает на заказ.
	ErrInsufficientBalance = errors.New("balance is too low")
)

var (
	perUnits        = decimal.NewFromInt(1000)
	referralPercent = decimal.NewFromInt(10)
	cancelPercent   = decimal.NewFromInt(3)
	hundred         = decimal.NewFromInt(100)
)

// Quote содержит результат расчёта стоимости заказа.
type Quote struct {
	Cost         decimal.Decimal
	ProviderCost decimal.Decimal
}

// Profit возвращает маржу панели до распределения реферальной комиссии.
func (q Quote) Profit() decimal.Decimal {
	return q.Cost.Sub(q.ProviderCost)
}

// Evaluate проверяет границы количества и достаточность баланса и возвращает расчёт стоимости.
func Evaluate(svc model.Service, quantity int64, balance decimal.Decimal) (Quote, error) {
	if quantity < svc.Min {
		return Quote{}, ErrQuantityTooLow
	}
	if quantity > svc.Max {
		return Quote{}, ErrQuantityTooHigh
	}

	cost := PerThousand(svc.DirtyRate, quantity)
	if balance.LessThan(cost) {
		return Quote{}, ErrInsufficientBalance
	}

	return Quote{
		Cost:         cost,
		ProviderCost: PerThousand(svc.ClearRate, quantity),
	}, nil
}

// PerThousand возвращает rate * quantity / 1000.
func PerThousand(rate decimal.Decimal, quantity int64) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(quantity)).Div(perUnits).Round(Scale)
}

// SplitReferral делит прибыль на комиссию пригласившего (10%) и остаток панели.
func SplitReferral(profit decimal.Decimal) (commission, retained decimal.Decimal) {
	commission = profit.Mul(referralPercent).Div(hundred).Round(Scale)
	return commission, profit.Sub(commission)
}

// Refund возвращает сумму к возврату за невыполненный остаток заказа.
func Refund(cost, dirtyRate decimal.Decimal, remains int64) decimal.Decimal {
	refund := cost.Sub(PerThousand(dirtyRate, remains))
	if refund.IsNegative() {
		return decimal.Zero
	}
	return refund
}

// CancelProfit возвращает прибыль по отменённому заказу: 3% от списания поставщика.
func CancelProfit(charge decimal.Decimal) decimal.Decimal {
	return charge.Mul(cancelPercent).Div(hundred).Round(Scale)
}
