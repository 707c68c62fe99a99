package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr string
	}{
		{name: "integer", raw: "25", want: "25"},
		{name: "fraction", raw: " 0.000001 ", want: "0.000001"},
		{name: "empty", raw: "", wantErr: "is required"},
		{name: "not a number", raw: "ten", wantErr: "must be a number"},
		{name: "zero", raw: "0", wantErr: "must be positive"},
		{name: "negative", raw: "-1", wantErr: "must be positive"},
		{name: "too precise", raw: "0.0000001", wantErr: "must have at most 6 decimal places"},
		{name: "too large", raw: "1000000000000", wantErr: "is too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Errors{}
			got := Amount(errs, "amount", tt.raw)

			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errs["amount"])
				return
			}
			require.NoError(t, errs.Err())
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestLink(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		wantErr string
	}{
		{name: "url", link: "https://instagram.com/p/abc"},
		{name: "username", link: "@channel"},
		{name: "empty", link: "   ", wantErr: "is required"},
		{name: "with spaces", link: "https://x.com/a b", wantErr: "must not contain spaces"},
		{name: "too long", link: "https://x.com/" + strings.Repeat("a", 500), wantErr: "must be at most 500 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Errors{}
			Link(errs, "link", tt.link)
			assert.Equal(t, tt.wantErr, errs["link"])
		})
	}
}

func TestPaymentMethod(t *testing.T) {
	errs := Errors{}
	assert.Equal(t, "usdt", PaymentMethod(errs, "payment_method", " USDT "))
	require.NoError(t, errs.Err())

	PaymentMethod(errs, "payment_method", "pay pal")
	assert.Contains(t, errs["payment_method"], "latin letters")
}

func TestParseID(t *testing.T) {
	errs := Errors{}
	assert.Equal(t, int64(15), ParseID(errs, "id", "15"))
	require.NoError(t, errs.Err())

	assert.Zero(t, ParseID(errs, "id", "-3"))
	assert.Equal(t, "must be a positive integer", errs["id"])
}

func TestErrorsCollectsFirstMessagePerField(t *testing.T) {
	errs := Errors{}
	PositiveID(errs, "service_id", 0)
	PositiveID(errs, "quantity", -1)
	errs.Add("quantity", "second")
	Wallet(errs, "wallet", strings.Repeat("w", 256))
	Text(errs, "additional_field", "fine")

	err := errs.Err()
	require.Error(t, err)
	assert.Equal(t,
		"validation failed: quantity: must be a positive integer; service_id: must be a positive integer; wallet: must be at most 255 characters",
		err.Error(),
	)
}
