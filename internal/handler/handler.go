// Package handler содержит HTTP-обработчики API панели.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/smm-panel/internal/middleware"
	"github.com/mmeshcher/smm-panel/internal/model"
	"github.com/mmeshcher/smm-panel/internal/provider"
	"github.com/mmeshcher/smm-panel/internal/service"
	"github.com/mmeshcher/smm-panel/internal/validation"
)

const maxBodySize = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateOrder(ctx context.Context, userID int64, in service.CreateOrderInput) (*model.Order, error)
	CancelOrder(ctx context.Context, userID, orderID int64) (*model.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]model.Order, error)
	GetBalance(ctx context.Context, userID int64) (*model.Balance, error)
	ReferralStats(ctx context.Context, userID int64) (*model.ReferralStats, error)
	CreateDeposit(ctx context.Context, userID int64, amount decimal.Decimal, method string) (*model.Deposit, error)
	ConfirmDeposit(ctx context.Context, adminID int64, hash string) (*model.Deposit, error)
	LinkReferral(ctx context.Context, adminID, referrerID, referredID int64) (*model.Referral, error)
	CreateWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, method, wallet string) (*model.Withdrawal, error)
}

// Handler реализует HTTP-обработчики API панели.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type createOrderRequest struct {
	ServiceID       int64  `json:"service_id"`
	Link            string `json:"link"`
	Quantity        int64  `json:"quantity"`
	AdditionalField string `json:"additional_field"`
}

type orderResponse struct {
	ID              int64           `json:"id"`
	ServiceID       int64           `json:"service_id"`
	Link            string          `json:"link"`
	AdditionalField string          `json:"additional_field,omitempty"`
	Quantity        int64           `json:"quantity"`
	Cost            decimal.Decimal `json:"cost"`
	StartCount      int64           `json:"start_count"`
	Remains         int64           `json:"remains"`
	Status          string          `json:"status"`
	CreatedAt       string          `json:"created_at"`
}

func newOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		ServiceID:       o.ServiceID,
		Link:            o.Link,
		AdditionalField: o.AdditionalField,
		Quantity:        o.Quantity,
		Cost:            o.Cost,
		StartCount:      o.StartCount,
		Remains:         o.Remains,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
}

// CreateOrder создаёт заказ текущего пользователя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	errs := validation.Errors{}
	in := service.CreateOrderInput{
		ServiceID:       validation.PositiveID(errs, "service_id", req.ServiceID),
		Link:            validation.Link(errs, "link", req.Link),
		Quantity:        validation.PositiveID(errs, "quantity", req.Quantity),
		AdditionalField: validation.Text(errs, "additional_field", req.AdditionalField),
	}
	if err := errs.Err(); err != nil {
		h.writeValidation(w, errs)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), userID, in)
	if err != nil {
		h.writeServiceError(w, err, "create order", zap.Int64("userID", userID), zap.Int64("serviceID", in.ServiceID))
		return
	}

	writeJSON(w, http.StatusCreated, newOrderResponse(order))
}

// CancelOrder отменяет заказ текущего пользователя.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	errs := validation.Errors{}
	orderID := validation.ParseID(errs, "id", chi.URLParam(r, "id"))
	if errs.Err() != nil {
		h.writeValidation(w, errs)
		return
	}

	order, err := h.service.CancelOrder(r.Context(), userID, orderID)
	if err != nil {
		h.writeServiceError(w, err, "cancel order", zap.Int64("userID", userID), zap.Int64("orderID", orderID))
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

// GetOrders возвращает список заказов текущего пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "get orders", zap.Int64("userID", userID))
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetBalance возвращает основной и реферальный балансы текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "get balance", zap.Int64("userID", userID))
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

// GetReferrals возвращает число приглашённых и реферальный баланс текущего пользователя.
func (h *Handler) GetReferrals(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	stats, err := h.service.ReferralStats(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "get referrals", zap.Int64("userID", userID))
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

type depositRequest struct {
	Amount        json.Number `json:"amount"`
	PaymentMethod string      `json:"payment_method"`
}

type depositResponse struct {
	ID            int64           `json:"id"`
	Hash          string          `json:"hash"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at"`
}

func newDepositResponse(d *model.Deposit) depositResponse {
	return depositResponse{
		ID:            d.ID,
		Hash:          d.Hash,
		Amount:        d.Amount,
		PaymentMethod: d.PaymentMethod,
		Status:        string(d.Status),
		CreatedAt:     d.CreatedAt.Format(time.RFC3339),
	}
}

// CreateDeposit создаёт заявку на пополнение баланса.
func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req depositRequest
	if !h.decode(w, r, &req) {
		return
	}

	errs := validation.Errors{}
	amount := validation.Amount(errs, "amount", req.Amount.String())
	method := validation.PaymentMethod(errs, "payment_method", req.PaymentMethod)
	if errs.Err() != nil {
		h.writeValidation(w, errs)
		return
	}

	deposit, err := h.service.CreateDeposit(r.Context(), userID, amount, method)
	if err != nil {
		h.writeServiceError(w, err, "create deposit", zap.Int64("userID", userID))
		return
	}

	writeJSON(w, http.StatusCreated, newDepositResponse(deposit))
}

// ConfirmDeposit подтверждает пополнение. Доступно администраторам.
func (h *Handler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	hash := chi.URLParam(r, "hash")

	deposit, err := h.service.ConfirmDeposit(r.Context(), adminID, hash)
	if err != nil {
		h.writeServiceError(w, err, "confirm deposit", zap.Int64("adminID", adminID), zap.String("hash", hash))
		return
	}

	writeJSON(w, http.StatusOK, newDepositResponse(deposit))
}

type referralRequest struct {
	ReferrerID int64 `json:"referrer_id"`
	ReferredID int64 `json:"referred_id"`
}

type referralResponse struct {
	ID         int64  `json:"id"`
	ReferrerID int64  `json:"referrer_id"`
	ReferredID int64  `json:"referred_id"`
	CreatedAt  string `json:"created_at"`
}

// LinkReferral привязывает пользователя к пригласившему. Доступно администраторам.
func (h *Handler) LinkReferral(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req referralRequest
	if !h.decode(w, r, &req) {
		return
	}

	errs := validation.Errors{}
	validation.PositiveID(errs, "referrer_id", req.ReferrerID)
	validation.PositiveID(errs, "referred_id", req.ReferredID)
	if errs.Err() != nil {
		h.writeValidation(w, errs)
		return
	}

	ref, err := h.service.LinkReferral(r.Context(), adminID, req.ReferrerID, req.ReferredID)
	if err != nil {
		h.writeServiceError(w, err, "link referral", zap.Int64("adminID", adminID))
		return
	}

	writeJSON(w, http.StatusCreated, referralResponse{
		ID:         ref.ID,
		ReferrerID: ref.ReferrerID,
		ReferredID: ref.ReferredID,
		CreatedAt:  ref.CreatedAt.Format(time.RFC3339),
	})
}

type withdrawRequest struct {
	Amount        json.Number `json:"amount"`
	PaymentMethod string      `json:"payment_method"`
	Wallet        string      `json:"wallet"`
}

type withdrawalResponse struct {
	ID            int64           `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Wallet        string          `json:"wallet,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at"`
}

// Withdraw выводит средства с реферального баланса текущего пользователя.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req withdrawRequest
	if !h.decode(w, r, &req) {
		return
	}

	errs := validation.Errors{}
	amount := validation.Amount(errs, "amount", req.Amount.String())
	method := validation.PaymentMethod(errs, "payment_method", req.PaymentMethod)
	wallet := validation.Wallet(errs, "wallet", req.Wallet)
	if errs.Err() != nil {
		h.writeValidation(w, errs)
		return
	}

	wth, err := h.service.CreateWithdrawal(r.Context(), userID, amount, method, wallet)
	if err != nil {
		h.writeServiceError(w, err, "withdraw", zap.Int64("userID", userID))
		return
	}

	writeJSON(w, http.StatusCreated, withdrawalResponse{
		ID:            wth.ID,
		Amount:        wth.Amount,
		PaymentMethod: wth.PaymentMethod,
		Wallet:        wth.Wallet,
		Status:        string(wth.Status),
		CreatedAt:     wth.CreatedAt.Format(time.RFC3339),
	})
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func (h *Handler) writeValidation(w http.ResponseWriter, errs validation.Errors) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: errs})
}

// statusFor сопоставляет ошибку сервиса HTTP-статусу.
func statusFor(err error) int {
	switch service.Classify(err) {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindRejection:
		switch {
		case service.IsInsufficientFunds(err):
			return http.StatusPaymentRequired
		case errors.Is(err, service.ErrForbidden):
			return http.StatusForbidden
		case errors.Is(err, service.ErrReferralExists):
			return http.StatusConflict
		}
		return http.StatusUnprocessableEntity
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindProvider:
		return http.StatusBadGateway
	case service.KindTransport:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, op string, fields ...zap.Field) {
	status := statusFor(err)

	msg := err.Error()
	var perr *provider.ProviderError
	switch {
	case errors.As(err, &perr):
		msg = perr.Message
	case status >= http.StatusInternalServerError:
		h.logger.Error(op+" error", append(fields, zap.Error(err))...)
		msg = http.StatusText(status)
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
