// Package service реализует бизнес-логику панели: заказы, балансы, рефералов и сверку с поставщиком.
package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/smm-panel/internal/model"
	"github.com/mmeshcher/smm-panel/internal/provider"
)

// LedgerStore описывает атомарные операции с балансами пользователей.
type LedgerStore interface {
	Debit(ctx context.Context, userID int64, amount decimal.Decimal) error
	DebitReferral(ctx context.Context, userID int64, amount decimal.Decimal) error
	Credit(ctx context.Context, userID int64, amount decimal.Decimal) error
	CreditReferral(ctx context.Context, userID int64, amount decimal.Decimal) error
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	LedgerStore

	Close() error
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetUser(ctx context.Context, userID int64) (*model.User, error)
	GetService(ctx context.Context, serviceID int64) (*model.Service, error)

	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, orderID int64) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrdersByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	UpdateOrderProgress(ctx context.Context, orderID, version int64, status model.OrderStatus, startCount, remains int64) (bool, error)
	MarkOrderCanceled(ctx context.Context, orderID, remains int64, profit decimal.Decimal) (bool, error)

	FindReferrer(ctx context.Context, userID int64) (int64, bool, error)
	CreateReferral(ctx context.Context, referrerID, referredID int64) (*model.Referral, error)
	CountReferrals(ctx context.Context, userID int64) (int64, error)

	CreateDeposit(ctx context.Context, d *model.Deposit) error
	CompleteDeposit(ctx context.Context, hash string) (*model.Deposit, error)
	CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error
}

// Provider описывает API сети-поставщика, используемое сервисом.
type Provider interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
	CreateOrder(ctx context.Context, req provider.OrderRequest) (string, error)
	Status(ctx context.Context, orderID string) (provider.OrderStatus, error)
	Statuses(ctx context.Context, orderIDs []string) (map[string]provider.OrderStatus, error)
	Cancel(ctx context.Context, orderID string) (provider.CancelResult, error)
}

// Notifier отправляет служебные сообщения администраторам. Отправка не блокирует вызывающего.
type Notifier interface {
	Notify(text string)
}

// Service содержит бизнес-логику панели.
type Service struct {
	repo      Repository
	provider  Provider
	notifier  Notifier
	logger    *zap.Logger
	ledger    *Ledger
	referrals *Referrals
}

// NewService создаёт сервис с указанными хранилищем, поставщиком и уведомлениями.
func NewService(repo Repository, prov Provider, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		provider:  prov,
		notifier:  notifier,
		logger:    logger,
		ledger:    NewLedger(repo),
		referrals: NewReferrals(repo),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) notify(text string) {
	if s.notifier != nil {
		s.notifier.Notify(text)
	}
}
