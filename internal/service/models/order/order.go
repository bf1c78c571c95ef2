package order

import (
	"database/sql/driver"
	"time"

	"github.com/corray333/pedidos-svc/internal/service/models/apperr"
	"github.com/corray333/pedidos-svc/internal/service/models/currency"
)

// Status is the lifecycle state of an order header. Cancelled and Completed
// are terminal: no transition leaves them, not even to the same value.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// ParseStatus validates a status string coming from a caller.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusCompleted, StatusCancelled:
		return Status(s), nil
	default:
		return "", apperr.Newf(apperr.KindInvalid, "Estado de pedido no valido: %s", s)
	}
}

// Header represents an order header. The total is never stored: it is derived
// from the active-product lines at read time.
type Header struct {
	ID          int64     `json:"id"`
	OrderNumber string    `json:"numeroPedido"`
	OrderedAt   time.Time `json:"fecha"`
	Status      Status    `json:"estado"`
	CustomerID  int64     `json:"clienteId"`
}

// HeaderView is the header projection returned to callers, with the derived
// total computed over lines whose product is still active.
type HeaderView struct {
	OrderNumber   string            `json:"numeroPedido"`
	CustomerName  string            `json:"nombreCliente"`
	CustomerEmail string            `json:"emailCliente"`
	OrderedAt     time.Time         `json:"fecha"`
	Status        Status            `json:"estado"`
	TotalCents    int64             `json:"totalCents"`
	TotalCurrency currency.Currency `json:"totalCurrency"`
}
