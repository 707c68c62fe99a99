// Package validation содержит функции валидации входных данных.
package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const (
	maxLinkLength   = 500
	maxFieldLength  = 1000
	maxMethodLength = 50
	maxWalletLength = 255
	amountScale     = 6
)

var maxAmount = decimal.New(1, 12)

// Errors собирает ошибки валидации по именам полей.
type Errors map[string]string

// Add запоминает первую ошибку для поля.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Err возвращает nil, если ошибок нет.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Link проверяет ссылку на продвигаемый объект.
func Link(errs Errors, field, link string) string {
	link = strings.TrimSpace(link)
	switch {
	case link == "":
		errs.Add(field, "is required")
	case len(link) > maxLinkLength:
		errs.Add(field, fmt.Sprintf("must be at most %d characters", maxLinkLength))
	case strings.IndexFunc(link, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0:
		errs.Add(field, "must not contain spaces")
	}
	return link
}

// Text проверяет необязательное текстовое поле.
func Text(errs Errors, field, text string) string {
	if len(text) > maxFieldLength {
		errs.Add(field, fmt.Sprintf("must be at most %d characters", maxFieldLength))
	}
	return text
}

// PositiveID проверяет обязательный положительный идентификатор.
func PositiveID(errs Errors, field string, id int64) int64 {
	if id <= 0 {
		errs.Add(field, "must be a positive integer")
	}
	return id
}

// ParseID разбирает положительный идентификатор из строки, например из пути запроса.
func ParseID(errs Errors, field, raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		errs.Add(field, "must be a positive integer")
		return 0
	}
	return id
}

// Amount разбирает положительную денежную сумму не более чем с шестью знаками после запятой.
func Amount(errs Errors, field, raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		errs.Add(field, "is required")
		return decimal.Zero
	}

	d, err := decimal.NewFromString(raw)
	switch {
	case err != nil:
		errs.Add(field, "must be a number")
		return decimal.Zero
	case !d.IsPositive():
		errs.Add(field, "must be positive")
	case d.Exponent() < -amountScale:
		errs.Add(field, fmt.Sprintf("must have at most %d decimal places", amountScale))
	case d.GreaterThanOrEqual(maxAmount):
		errs.Add(field, "is too large")
	}
	return d
}

// PaymentMethod проверяет идентификатор способа оплаты.
func PaymentMethod(errs Errors, field, method string) string {
	method = strings.ToLower(strings.TrimSpace(method))
	switch {
	case method == "":
		errs.Add(field, "is required")
	case len(method) > maxMethodLength:
		errs.Add(field, fmt.Sprintf("must be at most %d characters", maxMethodLength))
	case strings.IndexFunc(method, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-')
	}) >= 0:
		errs.Add(field, "must contain only latin letters, digits, '-' and '_'")
	}
	return method
}

// Wallet проверяет необязательный адрес кошелька.
func Wallet(errs Errors, field, wallet string) string {
	wallet = strings.TrimSpace(wallet)
	if len(wallet) > maxWalletLength {
		errs.Add(field, fmt.Sprintf("must be at most %d characters", maxWalletLength))
	}
	return wallet
}
