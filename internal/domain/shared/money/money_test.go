package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kloset/internal/domain/shared/money"
)

func TestNewValidatesCurrency(t *testing.T) {
	_, err := money.New(100, "")
	assert.ErrorIs(t, err, money.ErrInvalidCurrency)

	m, err := money.New(100, "cad")
	require.NoError(t, err)
	assert.Equal(t, "CAD", m.Currency)
}

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	cad := money.Must(100, "CAD")
	usd := money.Must(100, "USD")

	_, err := cad.Add(usd)
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)

	sum, err := cad.Add(money.Must(50, "CAD"))
	require.NoError(t, err)
	assert.Equal(t, int64(150), sum.Cents)
}

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct {
		cents int64
		pct   int64
		want  int64
	}{
		{6000, 5, 300},  // exact
		{1010, 5, 51},   // 50.5 rounds up
		{1009, 5, 50},   // 50.45 truncates within the cent
		{10, 5, 1},      // 0.5 rounds up
		{9, 5, 0},       // 0.45 rounds down
		{12345, 5, 617}, // 617.25 rounds down
	}
	for _, tc := range cases {
		got := money.Cents(tc.cents).Percent(tc.pct)
		assert.Equal(t, tc.want, got.Cents, "%d cents at %d%%", tc.cents, tc.pct)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "128.00 CAD", money.Cents(12800).String())
	assert.Equal(t, "0.05 CAD", money.Cents(5).String())
	assert.Equal(t, "-1.50 CAD", money.Cents(-150).String())
}
