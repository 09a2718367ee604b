package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/ecommerce-microservices/checkout-service/internal/order"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestRepository_Create_CommitsOrderAndItemsTogether(t *testing.T) {
	mock := newMockPool(t)
	repo := order.NewRepository(mock)

	ord := &order.Order{
		UserID:      userID,
		TotalAmount: 23.50,
		OrderItems: []order.OrderItem{
			{ProductID: product1, Quantity: 2, Amount: 20.00},
			{ProductID: product2, Quantity: 1, Amount: 3.50},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(pgxmock.AnyArg(), userID, pgxmock.AnyArg(), 23.50).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), product1, 2, 20.00).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), product2, 1, 3.50).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), ord)
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ord.ID)
	for _, item := range ord.OrderItems {
		assert.Equal(t, ord.ID, item.OrderID)
		assert.NotEqual(t, uuid.Nil, item.ID)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create_RollsBackWhenItemInsertFails(t *testing.T) {
	mock := newMockPool(t)
	repo := order.NewRepository(mock)

	ord := &order.Order{
		UserID:      userID,
		TotalAmount: 20.00,
		OrderItems: []order.OrderItem{
			{ProductID: product1, Quantity: 2, Amount: 20.00},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), ord)
	assert.Error(t, err)

	// Порядок не должен остаться видимым: только rollback, никакого commit
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create_MapsForeignKeyViolationToUnknownProduct(t *testing.T) {
	mock := newMockPool(t)
	repo := order.NewRepository(mock)

	ord := &order.Order{
		UserID:      userID,
		TotalAmount: 5.00,
		OrderItems: []order.OrderItem{
			{ProductID: product3, Quantity: 1, Amount: 5.00},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), ord)
	assert.True(t, errors.Is(err, order.ErrUnknownProduct))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID(t *testing.T) {
	orderID := uuid.Must(uuid.FromString("650e8400-e29b-41d4-a716-446655440000"))
	itemID := uuid.Must(uuid.FromString("750e8400-e29b-41d4-a716-446655440000"))
	placedAt := time.Date(2025, 4, 16, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		mock := newMockPool(t)
		repo := order.NewRepository(mock)

		mock.ExpectQuery("SELECT id, user_id, order_date_time, total_amount FROM orders").
			WithArgs(orderID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "order_date_time", "total_amount"}).
				AddRow(orderID, userID, placedAt, 20.00))
		mock.ExpectQuery("SELECT id, order_id, product_id, quantity, amount FROM order_items").
			WithArgs(orderID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "amount"}).
				AddRow(itemID, orderID, product1, 2, 20.00))

		ord, err := repo.GetByID(context.Background(), orderID)
		assert.NoError(t, err)
		assert.Equal(t, orderID, ord.ID)
		assert.Equal(t, userID, ord.UserID)
		assert.Equal(t, 20.00, ord.TotalAmount)
		if assert.Len(t, ord.OrderItems, 1) {
			assert.Equal(t, product1, ord.OrderItems[0].ProductID)
			assert.Equal(t, 2, ord.OrderItems[0].Quantity)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not_found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := order.NewRepository(mock)

		mock.ExpectQuery("SELECT id, user_id, order_date_time, total_amount FROM orders").
			WithArgs(orderID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(context.Background(), orderID)
		assert.True(t, errors.Is(err, order.ErrOrderNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_GetByUserID(t *testing.T) {
	firstOrder := uuid.Must(uuid.FromString("650e8400-e29b-41d4-a716-446655440001"))
	secondOrder := uuid.Must(uuid.FromString("650e8400-e29b-41d4-a716-446655440002"))
	placedAt := time.Date(2025, 4, 16, 12, 0, 0, 0, time.UTC)

	t.Run("groups_items_by_order_with_one_batched_query", func(t *testing.T) {
		mock := newMockPool(t)
		repo := order.NewRepository(mock)

		mock.ExpectQuery("SELECT id, user_id, order_date_time, total_amount FROM orders").
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "order_date_time", "total_amount"}).
				AddRow(firstOrder, userID, placedAt.Add(time.Hour), 9.00).
				AddRow(secondOrder, userID, placedAt, 23.50))
		mock.ExpectQuery("SELECT id, order_id, product_id, quantity, amount FROM order_items").
			WillReturnRows(pgxmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "amount"}).
				AddRow(uuid.Must(uuid.NewV4()), secondOrder, product1, 2, 20.00).
				AddRow(uuid.Must(uuid.NewV4()), secondOrder, product2, 1, 3.50).
				AddRow(uuid.Must(uuid.NewV4()), firstOrder, product2, 4, 9.00))

		orders, err := repo.GetByUserID(context.Background(), userID)
		assert.NoError(t, err)

		if assert.Len(t, orders, 2) {
			assert.Equal(t, firstOrder, orders[0].ID)
			assert.Len(t, orders[0].OrderItems, 1)
			assert.Equal(t, secondOrder, orders[1].ID)
			assert.Len(t, orders[1].OrderItems, 2)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no_orders", func(t *testing.T) {
		mock := newMockPool(t)
		repo := order.NewRepository(mock)

		mock.ExpectQuery("SELECT id, user_id, order_date_time, total_amount FROM orders").
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "order_date_time", "total_amount"}))

		orders, err := repo.GetByUserID(context.Background(), userID)
		assert.NoError(t, err)
		assert.Empty(t, orders)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
