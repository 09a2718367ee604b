package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/checkout-service/internal/product"
)

// ErrNotOwner is returned when a user asks for the completion view of an
// order that belongs to someone else.
var ErrNotOwner = errors.New("order belongs to another user")

type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, lines []Line) (*Order, error)
	GetCheckout(ctx context.Context, orderID uuid.UUID) (*CheckoutView, error)
	GetHistory(ctx context.Context, userID uuid.UUID) ([]HistoryOrder, error)
	GetCompletion(ctx context.Context, orderID, userID uuid.UUID) (*Order, error)
}

type service struct {
	orders   Repository
	products product.Repository
}

func NewService(orders Repository, products product.Repository) Service {
	return &service{
		orders:   orders,
		products: products,
	}
}

// PlaceOrder aggregates the submitted lines into an order and persists it
// together with its items. The total is summed over every submitted line,
// zero-quantity lines included, but only lines with quantity > 0 become
// order items.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, lines []Line) (*Order, error) {
	totalAmount := 0.0
	items := make([]OrderItem, 0, len(lines))

	for _, line := range lines {
		totalAmount += line.Price * float64(line.Quantity)

		if line.Quantity > 0 {
			items = append(items, OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Amount:    line.Price * float64(line.Quantity),
			})
		}
	}

	ord := &Order{
		UserID:      userID,
		TotalAmount: totalAmount,
		OrderItems:  items,
	}

	if err := s.orders.Create(ctx, ord); err != nil {
		if errors.Is(err, ErrUnknownProduct) {
			log.Warn().Err(err).Stringer("user_id", userID).Msg("service: order references unknown product")
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", ord.ID).Stringer("user_id", userID).Int("items", len(items)).Msg("service: order placed")

	return ord, nil
}

// GetCheckout returns the post-purchase confirmation view for one order.
// Note: по наблюдаемому поведению владелец здесь не проверяется —
// страница показывается сразу после оформления. Проверка есть только
// в GetCompletion.
func (s *service) GetCheckout(ctx context.Context, orderID uuid.UUID) (*CheckoutView, error) {
	ord, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", orderID).Msg("service: order not found for checkout view")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to fetch order for checkout view")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}

	products, err := s.lookupProducts(ctx, ord.OrderItems)
	if err != nil {
		return nil, err
	}

	view := &CheckoutView{
		Order: *ord,
		Items: make([]CheckoutItem, 0, len(ord.OrderItems)),
	}
	for _, item := range ord.OrderItems {
		p := products[item.ProductID]
		view.Items = append(view.Items, CheckoutItem{
			ProductID:   item.ProductID,
			ProductName: p.Name,
			Price:       p.Price,
			Quantity:    item.Quantity,
			Amount:      item.Amount,
		})
	}

	return view, nil
}

// GetHistory returns all orders of the user, newest first, with item rows
// resolved against the catalog. Products are looked up with a single
// batched query over all collected product ids.
func (s *service) GetHistory(ctx context.Context, userID uuid.UUID) ([]HistoryOrder, error) {
	orders, err := s.orders.GetByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}

	var allItems []OrderItem
	for _, ord := range orders {
		allItems = append(allItems, ord.OrderItems...)
	}

	products, err := s.lookupProducts(ctx, allItems)
	if err != nil {
		return nil, err
	}

	history := make([]HistoryOrder, 0, len(orders))
	for _, ord := range orders {
		entry := HistoryOrder{
			Order: ord,
			Items: make([]HistoryItem, 0, len(ord.OrderItems)),
		}
		for _, item := range ord.OrderItems {
			p := products[item.ProductID]
			entry.Items = append(entry.Items, HistoryItem{
				ProductName: p.Name,
				Price:       p.Price,
				Quantity:    item.Quantity,
				TotalPrice:  item.Amount,
			})
		}
		history = append(history, entry)
	}

	return history, nil
}

// GetCompletion returns the order for the completion page, but only to its
// owner.
func (s *service) GetCompletion(ctx context.Context, orderID, userID uuid.UUID) (*Order, error) {
	ord, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", orderID).Msg("service: order not found for completion view")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to fetch order for completion view")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}

	if ord.UserID != userID {
		log.Warn().Stringer("order_id", orderID).Stringer("user_id", userID).Msg("service: completion view requested by non-owner")
		return nil, ErrNotOwner
	}

	return ord, nil
}

func (s *service) lookupProducts(ctx context.Context, items []OrderItem) (map[uuid.UUID]product.Product, error) {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch products for order items")
		return nil, fmt.Errorf("service: failed to fetch products: %w", err)
	}

	return products, nil
}
