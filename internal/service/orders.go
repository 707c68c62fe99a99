package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/smm-panel/internal/metrics"
	"github.com/mmeshcher/smm-panel/internal/model"
	"github.com/mmeshcher/smm-panel/internal/pricing"
	"github.com/mmeshcher/smm-panel/internal/provider"
)

// CreateOrderInput описывает параметры нового заказа.
type CreateOrderInput struct {
	ServiceID       int64
	Link            string
	Quantity        int64
	AdditionalField string
}

// CreateOrder проверяет возможность покупки, передаёт заказ поставщику и списывает стоимость с баланса.
// Списание, реферальное начисление и запись заказа выполняются в одной транзакции.
func (s *Service) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (*model.Order, error) {
	order, err := s.createOrder(ctx, userID, in)
	metrics.OrderEvent("create", outcome(err))
	return order, err
}

func (s *Service) createOrder(ctx context.Context, userID int64, in CreateOrderInput) (*model.Order, error) {
	in.Link = strings.TrimSpace(in.Link)
	if in.ServiceID <= 0 || in.Link == "" || in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: service_id, link and quantity are required", ErrInvalidInput)
	}

	svc, err := s.repo.GetService(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.Evaluate(*svc, in.Quantity, user.Balance)
	if err != nil {
		return nil, err
	}

	networkBalance, err := s.provider.Balance(ctx)
	if err != nil {
		return nil, err
	}
	if !networkBalance.IsPositive() || networkBalance.LessThan(quote.Cost) {
		s.logger.Warn("provider balance is too low",
			zap.String("network_balance", networkBalance.String()),
			zap.String("cost", quote.Cost.String()),
		)
		s.notify(fmt.Sprintf("Баланс у поставщика %s меньше стоимости заказа %s", networkBalance, quote.Cost))
		return nil, ErrNetworkBalanceInsufficient
	}

	providerOrderID, err := s.provider.CreateOrder(ctx, provider.OrderRequest{
		Service:  svc.ID,
		Link:     in.Link,
		Quantity: in.Quantity,
		Comments: in.AdditionalField,
	})
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		UserID:          userID,
		ServiceID:       svc.ID,
		ProviderOrderID: providerOrderID,
		Link:            in.Link,
		AdditionalField: in.AdditionalField,
		Quantity:        in.Quantity,
		Cost:            quote.Cost,
		Profit:          quote.Profit(),
		Remains:         in.Quantity,
		Status:          model.OrderStatusInProgress,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.Debit(ctx, userID, quote.Cost); err != nil {
			return err
		}

		referrerID, ok, err := s.referrals.FindReferrer(ctx, userID)
		if err != nil {
			return err
		}
		if ok {
			commission, retained := s.referrals.Commission(order.Profit)
			if commission.IsPositive() {
				if err := s.ledger.CreditReferral(ctx, referrerID, commission); err != nil {
					return err
				}
			}
			order.Profit = retained
		}

		return s.repo.CreateOrder(ctx, order)
	})
	if err != nil {
		s.compensateCreate(ctx, userID, providerOrderID, err)
		return nil, err
	}

	return order, nil
}

// compensateCreate пытается отменить у поставщика заказ, который не удалось записать.
func (s *Service) compensateCreate(ctx context.Context, userID int64, providerOrderID string, cause error) {
	log := s.logger.With(zap.Int64("user_id", userID), zap.String("provider_order_id", providerOrderID))
	log.Error("failed to persist accepted order", zap.Error(cause))

	if errors.Is(cause, ErrCommitUnknown) || errors.Is(cause, ErrDuplicateOrder) {
		s.notify(fmt.Sprintf("Заказ %s мог быть сохранён, требуется ручная проверка (пользователь %d)", providerOrderID, userID))
		return
	}

	res, err := s.provider.Cancel(context.WithoutCancel(ctx), providerOrderID)
	if err != nil || !res.Success {
		log.Error("failed to cancel unpersisted order at provider", zap.Error(err))
		s.notify(fmt.Sprintf("Заказ %s принят поставщиком, но не сохранён (пользователь %d)", providerOrderID, userID))
	}
}

// CancelOrder отменяет выполняющийся заказ пользователя и возвращает стоимость невыполненного остатка.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	order, err := s.cancelOrder(ctx, userID, orderID)
	metrics.OrderEvent("cancel", outcome(err))
	return order, err
}

func (s *Service) cancelOrder(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if order.Status != model.OrderStatusInProgress {
		return nil, ErrOrderNotInProgress
	}

	svc, err := s.repo.GetService(ctx, order.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.Cancel {
		return nil, ErrCancelNotSupported
	}

	remote, err := s.provider.Status(ctx, order.ProviderOrderID)
	if err != nil {
		return nil, err
	}
	if st, ok := remote.ModelStatus(); !ok || st != model.OrderStatusInProgress {
		return nil, ErrOrderNotInProgress
	}

	res, err := s.provider.Cancel(ctx, order.ProviderOrderID)
	if err != nil {
		var perr *provider.ProviderError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("%w: %s", ErrCancelRejected, perr.Message)
		}
		return nil, err
	}
	if !res.Success {
		return nil, ErrCancelRejected
	}

	refund := pricing.Refund(order.Cost, svc.DirtyRate, remote.Remains)
	profit := pricing.CancelProfit(res.Charge)

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		applied, err := s.repo.MarkOrderCanceled(ctx, order.ID, remote.Remains, profit)
		if err != nil {
			return err
		}
		if !applied {
			return ErrOrderNotInProgress
		}
		if refund.IsPositive() {
			return s.ledger.Credit(ctx, userID, refund)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotInProgress) {
			s.logger.Warn("order finished before cancel was applied", zap.Int64("order_id", order.ID))
		} else {
			s.logger.Error("failed to finalize canceled order",
				zap.Int64("order_id", order.ID),
				zap.String("refund", refund.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	order.Status = model.OrderStatusCanceled
	order.Remains = remote.Remains
	order.Profit = profit

	return order, nil
}

// ListOrders возвращает заказы пользователя, начиная с последних.
func (s *Service) ListOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

// GetBalance возвращает основной и реферальный балансы пользователя.
func (s *Service) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.Balance{Balance: u.Balance, ReferralBalance: u.ReferralBalance}, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return Classify(err).String()
}
