// Package model содержит доменные сущности панели накрутки.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoleAdmin обозначает администратора панели.
const RoleAdmin = "admin"

// User представляет пользователя панели и его балансы.
type User struct {
	ID              int64
	Email           string
	Role            string
	Balance         decimal.Decimal
	ReferralBalance decimal.Decimal
	CreatedAt       time.Time
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Service описывает услугу каталога. ID совпадает с идентификатором услуги у поставщика.
type Service struct {
	ID          int64
	CategoryID  int64
	Name        string
	Description string
	Refill      bool
	// DirtyRate задаёт цену для пользователя за 1000 единиц.
	DirtyRate decimal.Decimal
	// ClearRate задаёт себестоимость у поставщика за 1000 единиц.
	ClearRate decimal.Decimal
	Min       int64
	Max       int64
	Cancel    bool
}

// OrderStatus описывает статус выполнения заказа.
type OrderStatus string

const (
	OrderStatusInProgress OrderStatus = "In progress"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCanceled   OrderStatus = "Canceled"
)

// IsTerminal сообщает, что из статуса больше нет переходов.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}

// Order описывает заказ пользователя, переданный поставщику.
type Order struct {
	ID              int64
	UserID          int64
	ServiceID       int64
	ProviderOrderID string
	Link            string
	AdditionalField string
	Quantity        int64
	Cost            decimal.Decimal
	Profit          decimal.Decimal
	StartCount      int64
	Remains         int64
	Status          OrderStatus
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Referral описывает связь пригласившего и приглашённого пользователя.
type Referral struct {
	ID         int64
	ReferrerID int64
	ReferredID int64
	CreatedAt  time.Time
}

// DepositStatus описывает статус пополнения.
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "Pending"
	DepositStatusSuccess   DepositStatus = "Success"
	DepositStatusCancelled DepositStatus = "Cancelled"
)

// Deposit описывает заявку на пополнение основного баланса.
type Deposit struct {
	ID            int64
	Hash          string
	UserID        int64
	Amount        decimal.Decimal
	PaymentMethod string
	Status        DepositStatus
	CreatedAt     time.Time
}

// WithdrawalStatus описывает статус вывода реферальных средств.
type WithdrawalStatus string

const (
	WithdrawalStatusPending WithdrawalStatus = "Pending"
	WithdrawalStatusSuccess WithdrawalStatus = "Success"
)

// Withdrawal описывает вывод средств с реферального баланса.
type Withdrawal struct {
	ID            int64
	UserID        int64
	Amount        decimal.Decimal
	PaymentMethod string
	Wallet        string
	Status        WithdrawalStatus
	CreatedAt     time.Time
}

// Balance содержит основной и реферальный балансы пользователя.
type Balance struct {
	Balance         decimal.Decimal `json:"balance"`
	ReferralBalance decimal.Decimal `json:"referral_balance"`
}

// ReferralStats содержит число приглашённых и реферальный баланс.
type ReferralStats struct {
	Referrals int64           `json:"referrals"`
	Balance   decimal.Decimal `json:"balance"`
}
