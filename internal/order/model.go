package order

import (
	"time"

	"github.com/gofrs/uuid"
)

// Order — подтверждённая покупка пользователя. После создания не меняется.
type Order struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	UserID        uuid.UUID   `json:"user_id" db:"user_id"`
	OrderDateTime time.Time   `json:"order_date_time" db:"order_date_time"`
	TotalAmount   float64     `json:"total_amount" db:"total_amount"` // Используем float64 для денег, или специальный тип decimal
	OrderItems    []OrderItem `json:"order_items" db:"-"`             // Не хранится напрямую в таблице orders
}

// OrderItem captures quantity and price at purchase time. The product
// reference is a weak link into the catalog, nothing cascades through it.
type OrderItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Amount    float64   `json:"amount" db:"amount"`
}

// Line is one submitted position of the checkout form: the three parallel
// arrays productId[]/quantity[]/price[] collapse into a slice of these.
type Line struct {
	ProductID uuid.UUID `validate:"required"`
	Quantity  int       `validate:"gte=0"`
	Price     float64   `validate:"gte=0"`
}
