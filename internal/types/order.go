package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
)

type Side string

type OrderType string

type OrderStatus string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

const (
	OrderTypeLimit OrderType = "limit"
)

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a limit order tracked by the order book.
// IDs are formatted as ORD_NNNNNN, strictly increasing per account, and
// never reused: order history is replayed into status displays keyed by ID.
type Order struct {
	ID       string  `json:"id" yaml:"id"`
	Symbol   string  `json:"symbol" yaml:"symbol" validate:"required"`
	Side     Side    `json:"action" yaml:"action" validate:"required,oneof=buy sell"`
	Quantity int64   `json:"quantity" yaml:"quantity" validate:"required,gt=0"`
	// Price is the limit price.
	Price     float64     `json:"price" yaml:"price" validate:"required,gt=0"`
	Type      OrderType   `json:"order_type" yaml:"order_type"`
	Status    OrderStatus `json:"status" yaml:"status"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" yaml:"updated_at"`
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	return nil
}

// IsPending reports whether the order is still eligible to fill.
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}
