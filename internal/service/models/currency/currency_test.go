package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency("EUR")
	require.NoError(t, err)
	assert.Equal(t, CurrencyEUR, c)

	_, err = ParseCurrency("eur")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
	_, err = ParseCurrency("RUB")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestValue(t *testing.T) {
	v, err := CurrencyEUR.Value()
	require.NoError(t, err)
	assert.Equal(t, "EUR", v)
}
