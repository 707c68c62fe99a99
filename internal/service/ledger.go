package service

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ledger выполняет атомарные изменения основного и реферального балансов.
// Внутри WithTx операции выполняются в открытой транзакции.
type Ledger struct {
	store LedgerStore
}

// NewLedger создаёт Ledger поверх хранилища балансов.
func NewLedger(store LedgerStore) *Ledger {
	return &Ledger{store: store}
}

// Debit списывает сумму с основного баланса или возвращает ErrInsufficientBalance.
func (l *Ledger) Debit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return l.store.Debit(ctx, userID, amount)
}

// DebitReferral списывает сумму с реферального баланса или возвращает ErrInsufficientBalance.
func (l *Ledger) DebitReferral(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return l.store.DebitReferral(ctx, userID, amount)
}

// Credit зачисляет сумму на основной баланс.
func (l *Ledger) Credit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return l.store.Credit(ctx, userID, amount)
}

// CreditReferral зачисляет сумму на реферальный баланс.
func (l *Ledger) CreditReferral(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return l.store.CreditReferral(ctx, userID, amount)
}
