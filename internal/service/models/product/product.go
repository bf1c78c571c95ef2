package product

import (
	"github.com/corray333/pedidos-svc/internal/service/models/apperr"
	"github.com/corray333/pedidos-svc/internal/service/models/currency"
)

// Price bounds in cents: 0.01 .. 99,999,999.99.
const (
	MinPriceCents int64 = 1
	MaxPriceCents int64 = 9_999_999_999
)

// Product represents a sellable item. Inactive products stay referenced by old
// order lines but are excluded from totals and new lines.
type Product struct {
	ID            int64             `json:"id"`
	Name          string            `json:"nombre"`
	PriceCents    int64             `json:"precioCents"`
	PriceCurrency currency.Currency `json:"precioCurrency"`
	Active        bool              `json:"activo"`
}

// ValidatePriceCents checks the allowed price range.
func ValidatePriceCents(priceCents int64) error {
	if priceCents < MinPriceCents || priceCents > MaxPriceCents {
		return apperr.New(apperr.KindInvalid, "El precio esta fuera de rango.")
	}

	return nil
}
