package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/ecommerce-microservices/checkout-service/internal/order"
)

var errMismatchedArrays = errors.New("productId[], quantity[] and price[] must have the same length")

// parseOrderForm reads the three parallel form arrays submitted by the
// checkout page and collapses them into typed lines. Index i of each array
// describes the same position.
func parseOrderForm(r *http.Request) ([]order.Line, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form data: %w", err)
	}

	productIDs := r.PostForm["productId[]"]
	quantities := r.PostForm["quantity[]"]
	prices := r.PostForm["price[]"]

	if len(productIDs) != len(quantities) || len(quantities) != len(prices) {
		return nil, errMismatchedArrays
	}

	lines := make([]order.Line, 0, len(productIDs))
	for i := range productIDs {
		productID, err := uuid.FromString(productIDs[i])
		if err != nil {
			return nil, fmt.Errorf("productId[%d] is not a valid id: %w", i, err)
		}

		quantity, err := strconv.Atoi(quantities[i])
		if err != nil {
			return nil, fmt.Errorf("quantity[%d] is not a whole number: %w", i, err)
		}

		price, err := strconv.ParseFloat(prices[i], 64)
		if err != nil {
			return nil, fmt.Errorf("price[%d] is not a number: %w", i, err)
		}

		lines = append(lines, order.Line{
			ProductID: productID,
			Quantity:  quantity,
			Price:     price,
		})
	}

	return lines, nil
}
