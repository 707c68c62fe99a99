package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/smm-panel/internal/model"
)

// GetUser возвращает пользователя с актуальными балансами.
func (r *PostgresRepository) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	var (
		u               model.User
		balance         string
		referralBalance string
	)

	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, email, role, balance::text, referral_balance::text, created_at
		 FROM users
		 WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.Email, &u.Role, &balance, &referralBalance, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if u.Balance, err = parseAmount(balance); err != nil {
		return nil, err
	}
	if u.ReferralBalance, err = parseAmount(referralBalance); err != nil {
		return nil, err
	}

	return &u, nil
}

// Debit списывает сумму с основного баланса, только если её хватает.
func (r *PostgresRepository) Debit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return r.conditionalDecrement(ctx, "balance", userID, amount)
}

// DebitReferral списывает сумму с реферального баланса, только если её хватает.
func (r *PostgresRepository) DebitReferral(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return r.conditionalDecrement(ctx, "referral_balance", userID, amount)
}

// Credit зачисляет сумму на основной баланс.
func (r *PostgresRepository) Credit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return r.increment(ctx, "balance", userID, amount)
}

// CreditReferral зачисляет сумму на реферальный баланс.
func (r *PostgresRepository) CreditReferral(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return r.increment(ctx, "referral_balance", userID, amount)
}

// column приходит только из констант этого файла.
func (r *PostgresRepository) conditionalDecrement(ctx context.Context, column string, userID int64, amount decimal.Decimal) error {
	query := fmt.Sprintf(
		`UPDATE users SET %[1]s = %[1]s - $2::numeric WHERE id = $1 AND %[1]s >= $2::numeric`,
		column,
	)

	tag, err := r.conn(ctx).Exec(ctx, query, userID, amount.String())
	if err != nil {
		return fmt.Errorf("debit %s: %w", column, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	exists, err := r.userExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}

	return ErrInsufficientBalance
}

func (r *PostgresRepository) increment(ctx context.Context, column string, userID int64, amount decimal.Decimal) error {
	query := fmt.Sprintf(`UPDATE users SET %[1]s = %[1]s + $2::numeric WHERE id = $1`, column)

	tag, err := r.conn(ctx).Exec(ctx, query, userID, amount.String())
	if err != nil {
		return fmt.Errorf("credit %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepository) userExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

// GetService возвращает услугу каталога по идентификатору поставщика.
func (r *PostgresRepository) GetService(ctx context.Context, serviceID int64) (*model.Service, error) {
	var (
		s         model.Service
		clearRate string
		dirtyRate string
	)

	err := r.conn(ctx).QueryRow(ctx,
		`SELECT service_id, category_id, name, description, refill,
		        clear_rate::text, dirty_rate::text, min_quantity, max_quantity, cancel
		 FROM services
		 WHERE service_id = $1`,
		serviceID,
	).Scan(&s.ID, &s.CategoryID, &s.Name, &s.Description, &s.Refill,
		&clearRate, &dirtyRate, &s.Min, &s.Max, &s.Cancel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}

	if s.ClearRate, err = parseAmount(clearRate); err != nil {
		return nil, err
	}
	if s.DirtyRate, err = parseAmount(dirtyRate); err != nil {
		return nil, err
	}

	return &s, nil
}
