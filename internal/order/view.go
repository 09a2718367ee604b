package order

import "github.com/gofrs/uuid"

// View models returned to the front end. The shape mirrors what the
// checkout and history pages render.

type CheckoutItem struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Amount      float64   `json:"amount"`
}

type CheckoutView struct {
	Order Order          `json:"order"`
	Items []CheckoutItem `json:"items"`
}

type HistoryItem struct {
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	TotalPrice  float64 `json:"total_price"` // зафиксированная сумма позиции, не quantity * текущая цена
}

type HistoryOrder struct {
	Order Order         `json:"order"`
	Items []HistoryItem `json:"items"`
}
