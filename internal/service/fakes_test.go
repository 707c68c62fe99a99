package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/smm-panel/internal/model"
	"github.com/mmeshcher/smm-panel/internal/provider"
)

// fakeRepo хранит данные в памяти и откатывает изменения при ошибке внутри WithTx.
type fakeRepo struct {
	mu sync.Mutex

	users       map[int64]model.User
	services    map[int64]model.Service
	orders      map[int64]model.Order
	referrals   map[int64]int64
	deposits    map[string]model.Deposit
	withdrawals []model.Withdrawal

	nextID         int64
	createOrderErr error
	staleOrders    map[int64]bool
	updates        int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:       map[int64]model.User{},
		services:    map[int64]model.Service{},
		orders:      map[int64]model.Order{},
		referrals:   map[int64]int64{},
		deposits:    map[string]model.Deposit{},
		staleOrders: map[int64]bool{},
	}
}

func (f *fakeRepo) addUser(id int64, balance string) {
	f.users[id] = model.User{ID: id, Email: "user@example.com", Balance: decimal.RequireFromString(balance)}
}

func (f *fakeRepo) user(id int64) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *fakeRepo) Close() error { return nil }

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	users := cloneMap(f.users)
	orders := cloneMap(f.orders)
	deposits := cloneMap(f.deposits)
	withdrawals := append([]model.Withdrawal(nil), f.withdrawals...)
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.users, f.orders, f.deposits, f.withdrawals = users, orders, deposits, withdrawals
		f.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeRepo) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (f *fakeRepo) Debit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return f.change(userID, func(u *model.User) error {
		if u.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}
		u.Balance = u.Balance.Sub(amount)
		return nil
	})
}

func (f *fakeRepo) DebitReferral(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return f.change(userID, func(u *model.User) error {
		if u.ReferralBalance.LessThan(amount) {
			return ErrInsufficientBalance
		}
		u.ReferralBalance = u.ReferralBalance.Sub(amount)
		return nil
	})
}

func (f *fakeRepo) Credit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return f.change(userID, func(u *model.User) error {
		u.Balance = u.Balance.Add(amount)
		return nil
	})
}

func (f *fakeRepo) CreditReferral(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return f.change(userID, func(u *model.User) error {
		u.ReferralBalance = u.ReferralBalance.Add(amount)
		return nil
	})
}

func (f *fakeRepo) change(userID int64, fn func(u *model.User) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	f.users[userID] = u
	return nil
}

func (f *fakeRepo) GetService(ctx context.Context, serviceID int64) (*model.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[serviceID]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return &s, nil
}

func (f *fakeRepo) CreateOrder(ctx context.Context, o *model.Order) error {
	if f.createOrderErr != nil {
		return f.createOrderErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o.ID = f.nextID
	o.Version = 1
	f.orders[o.ID] = *o
	return nil
}

func (f *fakeRepo) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (f *fakeRepo) order(id int64) model.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id]
}

func (f *fakeRepo) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Order
	for id := f.nextID; id > 0; id-- {
		if o, ok := f.orders[id]; ok && o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetOrdersByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Order
	for id := int64(1); id <= f.nextID; id++ {
		if o, ok := f.orders[id]; ok && o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateOrderProgress(ctx context.Context, orderID, version int64, status model.OrderStatus, startCount, remains int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || f.staleOrders[orderID] || o.Version != version || o.Status != model.OrderStatusInProgress {
		return false, nil
	}
	o.Status, o.StartCount, o.Remains = status, startCount, remains
	o.Version++
	f.orders[orderID] = o
	f.updates++
	return true, nil
}

func (f *fakeRepo) MarkOrderCanceled(ctx context.Context, orderID, remains int64, profit decimal.Decimal) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.Status != model.OrderStatusInProgress {
		return false, nil
	}
	o.Status, o.Remains, o.Profit = model.OrderStatusCanceled, remains, profit
	o.Version++
	f.orders[orderID] = o
	return true, nil
}

func (f *fakeRepo) FindReferrer(ctx context.Context, userID int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	referrer, ok := f.referrals[userID]
	return referrer, ok, nil
}

func (f *fakeRepo) CreateReferral(ctx context.Context, referrerID, referredID int64) (*model.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.referrals[referredID]; ok {
		return nil, ErrReferralExists
	}
	f.referrals[referredID] = referrerID
	return &model.Referral{ID: int64(len(f.referrals)), ReferrerID: referrerID, ReferredID: referredID}, nil
}

func (f *fakeRepo) CountReferrals(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, referrer := range f.referrals {
		if referrer == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CreateDeposit(ctx context.Context, d *model.Deposit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	d.ID = f.nextID
	f.deposits[d.Hash] = *d
	return nil
}

func (f *fakeRepo) CompleteDeposit(ctx context.Context, hash string) (*model.Deposit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deposits[hash]
	if !ok || d.Status != model.DepositStatusPending {
		return nil, ErrDepositNotFound
	}
	d.Status = model.DepositStatusSuccess
	f.deposits[hash] = d
	return &d, nil
}

func (f *fakeRepo) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.ID = int64(len(f.withdrawals) + 1)
	f.withdrawals = append(f.withdrawals, *w)
	return nil
}

// fakeProvider записывает вызовы и возвращает заранее заданные ответы.
type fakeProvider struct {
	mu    sync.Mutex
	calls []string

	balance    decimal.Decimal
	balanceErr error

	createID  string
	createErr error

	status    provider.OrderStatus
	statusErr error

	statuses      map[string]provider.OrderStatus
	statusesErr   map[string]error
	statusesCalls [][]string

	cancelRes provider.CancelResult
	cancelErr error
	onCancel  func()
}

func (p *fakeProvider) record(action string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, action)
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *fakeProvider) Balance(ctx context.Context) (decimal.Decimal, error) {
	p.record("balance")
	return p.balance, p.balanceErr
}

func (p *fakeProvider) CreateOrder(ctx context.Context, req provider.OrderRequest) (string, error) {
	p.record("create")
	return p.createID, p.createErr
}

func (p *fakeProvider) Status(ctx context.Context, orderID string) (provider.OrderStatus, error) {
	p.record("status")
	return p.status, p.statusErr
}

func (p *fakeProvider) Statuses(ctx context.Context, orderIDs []string) (map[string]provider.OrderStatus, error) {
	p.record("statuses")
	p.mu.Lock()
	p.statusesCalls = append(p.statusesCalls, orderIDs)
	p.mu.Unlock()

	for _, id := range orderIDs {
		if err := p.statusesErr[id]; err != nil {
			return nil, err
		}
	}

	out := map[string]provider.OrderStatus{}
	for _, id := range orderIDs {
		if st, ok := p.statuses[id]; ok {
			out[id] = st
		}
	}
	return out, nil
}

func (p *fakeProvider) Cancel(ctx context.Context, orderID string) (provider.CancelResult, error) {
	p.record("cancel")
	if p.onCancel != nil {
		p.onCancel()
	}
	return p.cancelRes, p.cancelErr
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}
