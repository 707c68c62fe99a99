package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/smm-panel/internal/model"
)

// FindReferrer возвращает пригласившего пользователя, если он есть.
func (r *PostgresRepository) FindReferrer(ctx context.Context, userID int64) (int64, bool, error) {
	var referrerID int64
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT user_id FROM referrals WHERE referral_id = $1`,
		userID,
	).Scan(&referrerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("find referrer: %w", err)
	}
	return referrerID, true, nil
}

// CreateReferral сохраняет связь пригласившего и приглашённого. Повторная привязка приглашённого запрещена.
func (r *PostgresRepository) CreateReferral(ctx context.Context, referrerID, referredID int64) (*model.Referral, error) {
	ref := model.Referral{ReferrerID: referrerID, ReferredID: referredID}

	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO referrals (user_id, referral_id) VALUES ($1, $2) RETURNING id, created_at`,
		referrerID, referredID,
	).Scan(&ref.ID, &ref.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrReferralExists
		}
		return nil, fmt.Errorf("insert referral: %w", err)
	}

	return &ref, nil
}

// CountReferrals возвращает число пользователей, приглашённых пользователем.
func (r *PostgresRepository) CountReferrals(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM referrals WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count referrals: %w", err)
	}
	return n, nil
}
