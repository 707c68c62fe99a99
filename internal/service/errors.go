package service

import (
	"errors"

	"github.com/mmeshcher/smm-panel/internal/pricing"
	"github.com/mmeshcher/smm-panel/internal/provider"
	"github.com/mmeshcher/smm-panel/internal/repository"
)

var (
	// ErrInvalidAmount возвращается для неположительной суммы операции с балансом.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidInput возвращается при некорректных входных данных.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOrderNotInProgress возвращается, если заказ уже не выполняется.
	ErrOrderNotInProgress = errors.New("order is not in progress")
	// ErrCancelNotSupported возвращается, если услуга не поддерживает отмену.
	ErrCancelNotSupported = errors.New("service does not support cancel")
	// ErrCancelRejected возвращается, если поставщик отклонил отмену.
	ErrCancelRejected = errors.New("provider rejected cancel")
	// ErrNetworkBalanceInsufficient возвращается, если у панели не хватает средств у поставщика.
	ErrNetworkBalanceInsufficient = errors.New("provider balance is insufficient")
	// ErrSelfReferral возвращается при попытке пригласить самого себя.
	ErrSelfReferral = errors.New("user cannot refer himself")
	// ErrForbidden возвращается, если операция требует прав администратора.
	ErrForbidden = errors.New("forbidden")
	// ErrWalletRequired возвращается, если для способа вывода не указан кошелёк.
	ErrWalletRequired = errors.New("wallet is required")
	// ErrUnknownPaymentMethod возвращается для неподдерживаемого способа оплаты или вывода.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")

	// Ошибки хранилища, которые сервис возвращает без изменений.
	ErrUserNotFound        = repository.ErrUserNotFound
	ErrServiceNotFound     = repository.ErrServiceNotFound
	ErrOrderNotFound       = repository.ErrOrderNotFound
	ErrReferralExists      = repository.ErrReferralExists
	ErrDepositNotFound     = repository.ErrDepositNotFound
	ErrInsufficientBalance = repository.ErrInsufficientBalance
	ErrDuplicateOrder      = repository.ErrDuplicateOrder
	ErrCommitUnknown       = repository.ErrCommitUnknown
)

// ErrorKind классифицирует ошибки операций для вызывающей стороны.
type ErrorKind int

const (
	// KindInternal: непредвиденная ошибка хранилища или кода.
	KindInternal ErrorKind = iota
	// KindValidation: некорректные входные данные.
	KindValidation
	// KindRejection: нарушено бизнес-правило.
	KindRejection
	// KindNotFound: сущность не найдена или недоступна пользователю.
	KindNotFound
	// KindProvider: поставщик вернул бизнес-ошибку.
	KindProvider
	// KindTransport: сбой сети или таймаут при обращении к поставщику.
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRejection:
		return "rejection"
	case KindNotFound:
		return "not_found"
	case KindProvider:
		return "provider"
	case KindTransport:
		return "transport"
	default:
		return "internal"
	}
}

// Classify относит ошибку к одному из видов ErrorKind.
func Classify(err error) ErrorKind {
	var perr *provider.ProviderError

	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrWalletRequired),
		errors.Is(err, ErrUnknownPaymentMethod):
		return KindValidation
	case errors.Is(err, pricing.ErrQuantityTooLow),
		errors.Is(err, pricing.ErrQuantityTooHigh),
		errors.Is(err, pricing.ErrInsufficientBalance),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrOrderNotInProgress),
		errors.Is(err, ErrCancelNotSupported),
		errors.Is(err, ErrCancelRejected),
		errors.Is(err, ErrNetworkBalanceInsufficient),
		errors.Is(err, ErrSelfReferral),
		errors.Is(err, ErrReferralExists),
		errors.Is(err, ErrForbidden):
		return KindRejection
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrServiceNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrDepositNotFound):
		return KindNotFound
	case errors.As(err, &perr), errors.Is(err, provider.ErrOrderMissing):
		return KindProvider
	case errors.Is(err, provider.ErrTransport):
		return KindTransport
	default:
		return KindInternal
	}
}

// IsInsufficientFunds сообщает, что операция отклонена из-за нехватки средств пользователя.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, pricing.ErrInsufficientBalance) || errors.Is(err, ErrInsufficientBalance)
}
