package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/smm-panel/internal/model"
)

// CreateDeposit сохраняет заявку на пополнение.
func (r *PostgresRepository) CreateDeposit(ctx context.Context, d *model.Deposit) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO deposits (hash, user_id, amount, payment_method, status)
		 VALUES ($1, $2, $3::numeric, $4, $5)
		 RETURNING id, created_at`,
		d.Hash, d.UserID, d.Amount.String(), d.PaymentMethod, string(d.Status),
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}
	return nil
}

// CompleteDeposit переводит ожидающее пополнение в статус Success и возвращает его.
// Уже обработанное или несуществующее пополнение даёт ErrDepositNotFound.
func (r *PostgresRepository) CompleteDeposit(ctx context.Context, hash string) (*model.Deposit, error) {
	var (
		d      model.Deposit
		amount string
		status string
	)

	err := r.conn(ctx).QueryRow(ctx,
		`UPDATE deposits SET status = $2
		 WHERE hash = $1::uuid AND status = $3
		 RETURNING id, hash::text, user_id, amount::text, payment_method, status, created_at`,
		hash, string(model.DepositStatusSuccess), string(model.DepositStatusPending),
	).Scan(&d.ID, &d.Hash, &d.UserID, &amount, &d.PaymentMethod, &status, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDepositNotFound
		}
		return nil, fmt.Errorf("complete deposit: %w", err)
	}

	if d.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	d.Status = model.DepositStatus(status)

	return &d, nil
}

// CreateWithdrawal сохраняет запись о выводе средств.
func (r *PostgresRepository) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO withdrawals (user_id, amount, payment_method, wallet, status)
		 VALUES ($1, $2::numeric, $3, $4, $5)
		 RETURNING id, created_at`,
		w.UserID, w.Amount.String(), w.PaymentMethod, w.Wallet, string(w.Status),
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}
