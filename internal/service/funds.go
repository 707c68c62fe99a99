package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/smm-panel/internal/model"
)

// Способы вывода реферальных средств.
const (
	WithdrawalMethodDebit   = "debit"
	WithdrawalMethodUSDT    = "usdt"
	WithdrawalMethodBalance = "balance"
)

// CreateDeposit создаёт заявку на пополнение и сообщает о ней администраторам.
func (s *Service) CreateDeposit(ctx context.Context, userID int64, amount decimal.Decimal, method string) (*model.Deposit, error) {
	method = strings.TrimSpace(method)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if method == "" {
		return nil, fmt.Errorf("%w: payment_method is required", ErrInvalidInput)
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := &model.Deposit{
		Hash:          uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		PaymentMethod: method,
		Status:        model.DepositStatusPending,
	}
	if err := s.repo.CreateDeposit(ctx, d); err != nil {
		return nil, err
	}

	s.notify(fmt.Sprintf("Новая заявка на пополнение\n\nПользователь: %s (#%d)\nСумма: %s $\nСпособ оплаты: %s\nHash: %s",
		user.Email, user.ID, d.Amount, d.PaymentMethod, d.Hash))

	return d, nil
}

// ConfirmDeposit подтверждает ожидающее пополнение и зачисляет сумму на баланс пользователя.
// Доступно только администратору.
func (s *Service) ConfirmDeposit(ctx context.Context, adminID int64, hash string) (*model.Deposit, error) {
	admin, err := s.repo.GetUser(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}

	if err := uuid.Validate(hash); err != nil {
		return nil, ErrDepositNotFound
	}

	var d *model.Deposit
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if d, err = s.repo.CompleteDeposit(ctx, hash); err != nil {
			return err
		}
		return s.ledger.Credit(ctx, d.UserID, d.Amount)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("deposit confirmed",
		zap.Int64("deposit_id", d.ID),
		zap.Int64("user_id", d.UserID),
		zap.Int64("admin_id", adminID),
		zap.String("amount", d.Amount.String()),
	)

	return d, nil
}

// CreateWithdrawal выводит средства с реферального баланса.
// Для debit и usdt создаётся ожидающая заявка, для balance сумма сразу переводится на основной баланс.
func (s *Service) CreateWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, method, wallet string) (*model.Withdrawal, error) {
	method = strings.TrimSpace(method)
	wallet = strings.TrimSpace(wallet)

	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	w := &model.Withdrawal{
		UserID:        userID,
		Amount:        amount,
		PaymentMethod: method,
		Wallet:        wallet,
	}

	switch method {
	case WithdrawalMethodDebit, WithdrawalMethodUSDT:
		if wallet == "" {
			return nil, ErrWalletRequired
		}
		w.Status = model.WithdrawalStatusPending
	case WithdrawalMethodBalance:
		w.Status = model.WithdrawalStatusSuccess
	default:
		return nil, ErrUnknownPaymentMethod
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.DebitReferral(ctx, userID, amount); err != nil {
			return err
		}
		if w.Status == model.WithdrawalStatusSuccess {
			if err := s.ledger.Credit(ctx, userID, amount); err != nil {
				return err
			}
		}
		return s.repo.CreateWithdrawal(ctx, w)
	})
	if err != nil {
		return nil, err
	}

	s.notify(fmt.Sprintf("Заявка на вывод средств\n\nПользователь: %s (#%d)\nСумма: %s $\nСпособ: %s\nКошелёк: %s",
		user.Email, user.ID, w.Amount, w.PaymentMethod, w.Wallet))

	return w, nil
}
