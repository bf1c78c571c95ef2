package orderline

import (
	"github.com/corray333/pedidos-svc/internal/service/models/apperr"
	"github.com/corray333/pedidos-svc/internal/service/models/currency"
)

// Quantity bounds per line.
const (
	MinQuantity = 1
	MaxQuantity = 1000
)

// Line represents one product entry attached to an order header. Line numbers
// are 1-based and unique within their header.
type Line struct {
	ID         int64 `json:"id"`
	LineNumber int   `json:"numeroDetalle"`
	Quantity   int   `json:"cantidad"`
	HeaderID   int64 `json:"cabeceraId"`
	ProductID  int64 `json:"productoId"`
}

// View is the line projection returned to callers.
type View struct {
	LineNumber       int               `json:"numeroDetalle"`
	ProductName      string            `json:"producto"`
	Quantity         int               `json:"cantidad"`
	UnitPriceCents   int64             `json:"precioUnitarioCents"`
	SubtotalCents    int64             `json:"subtotalCents"`
	SubtotalCurrency currency.Currency `json:"subtotalCurrency"`
}

// ValidateQuantity checks the allowed quantity range.
func ValidateQuantity(quantity int) error {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return apperr.New(apperr.KindInvalid, "La cantidad debe estar entre 1 y 1000.")
	}

	return nil
}
