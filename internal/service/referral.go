package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/smm-panel/internal/model"
	"github.com/mmeshcher/smm-panel/internal/pricing"
)

// ReferralStore описывает хранилище реферальных связей.
type ReferralStore interface {
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	FindReferrer(ctx context.Context, userID int64) (int64, bool, error)
	CreateReferral(ctx context.Context, referrerID, referredID int64) (*model.Referral, error)
	CountReferrals(ctx context.Context, userID int64) (int64, error)
}

// Referrals определяет пригласивших пользователей и их комиссию.
type Referrals struct {
	store ReferralStore
}

// NewReferrals создаёт Referrals поверх хранилища.
func NewReferrals(store ReferralStore) *Referrals {
	return &Referrals{store: store}
}

// FindReferrer возвращает пригласившего пользователя, если он есть.
func (r *Referrals) FindReferrer(ctx context.Context, userID int64) (int64, bool, error) {
	return r.store.FindReferrer(ctx, userID)
}

// Commission возвращает комиссию пригласившего и остаток прибыли панели.
func (r *Referrals) Commission(profit decimal.Decimal) (commission, retained decimal.Decimal) {
	return pricing.SplitReferral(profit)
}

// Link привязывает приглашённого к пригласившему. Действует только первая привязка.
func (r *Referrals) Link(ctx context.Context, referrerID, referredID int64) (*model.Referral, error) {
	if referrerID == referredID {
		return nil, ErrSelfReferral
	}
	if _, err := r.store.GetUser(ctx, referrerID); err != nil {
		return nil, err
	}
	if _, err := r.store.GetUser(ctx, referredID); err != nil {
		return nil, err
	}
	return r.store.CreateReferral(ctx, referrerID, referredID)
}

// Stats возвращает число приглашённых и реферальный баланс пользователя.
func (r *Referrals) Stats(ctx context.Context, userID int64) (*model.ReferralStats, error) {
	u, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	n, err := r.store.CountReferrals(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.ReferralStats{Referrals: n, Balance: u.ReferralBalance}, nil
}

// LinkReferral привязывает пользователя к пригласившему. Доступно администраторам.
func (s *Service) LinkReferral(ctx context.Context, adminID, referrerID, referredID int64) (*model.Referral, error) {
	admin, err := s.repo.GetUser(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}

	return s.referrals.Link(ctx, referrerID, referredID)
}

// ReferralStats возвращает статистику приглашений пользователя.
func (s *Service) ReferralStats(ctx context.Context, userID int64) (*model.ReferralStats, error) {
	return s.referrals.Stats(ctx, userID)
}
