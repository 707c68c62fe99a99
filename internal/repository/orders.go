package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/smm-panel/internal/model"
)

const orderColumns = `id, user_id, service_id, provider_order_id, link, additional_field, quantity,
	cost::text, profit::text, start_count, remains, status, version, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*model.Order, error) {
	var (
		o      model.Order
		cost   string
		profit string
		status string
	)

	if err := row.Scan(&o.ID, &o.UserID, &o.ServiceID, &o.ProviderOrderID, &o.Link, &o.AdditionalField,
		&o.Quantity, &cost, &profit, &o.StartCount, &o.Remains, &status, &o.Version,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if o.Cost, err = parseAmount(cost); err != nil {
		return nil, err
	}
	if o.Profit, err = parseAmount(profit); err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)

	return &o, nil
}

// CreateOrder сохраняет новый заказ и заполняет его идентификатор, версию и отметки времени.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO orders (user_id, service_id, provider_order_id, link, additional_field,
		                     quantity, cost, profit, start_count, remains, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $10, $11)
		 RETURNING id, version, created_at, updated_at`,
		o.UserID, o.ServiceID, o.ProviderOrderID, o.Link, o.AdditionalField,
		o.Quantity, o.Cost.String(), o.Profit.String(), o.StartCount, o.Remains, string(o.Status),
	).Scan(&o.ID, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		orderID,
	)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetOrdersByUser возвращает заказы пользователя, начиная с последних.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY id DESC`,
		userID,
	)
}

// GetOrdersByStatus возвращает все заказы в указанном статусе.
func (r *PostgresRepository) GetOrdersByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	var orders []model.Order
	err := r.withRetry(ctx, func() error {
		var err error
		orders, err = r.queryOrders(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY id`,
			string(status),
		)
		return err
	})
	return orders, err
}

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// UpdateOrderProgress записывает состояние заказа от поставщика.
// Запись выполняется только для заказа в работе с неизменившейся версией; false означает, что заказ изменился параллельно.
func (r *PostgresRepository) UpdateOrderProgress(ctx context.Context, orderID, version int64, status model.OrderStatus, startCount, remains int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE orders
		 SET status = $3, start_count = $4, remains = $5, version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2 AND status = $6`,
		orderID, version, string(status), startCount, remains, string(model.OrderStatusInProgress),
	)
	if err != nil {
		return false, fmt.Errorf("update order progress: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkOrderCanceled переводит выполняющийся заказ в статус Canceled с новой прибылью и остатком.
// Возвращает false, если заказ уже отменён или завершён, что исключает повторный возврат средств.
func (r *PostgresRepository) MarkOrderCanceled(ctx context.Context, orderID, remains int64, profit decimal.Decimal) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE orders
		 SET status = $2, profit = $3::numeric, remains = $4, version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND status = $5`,
		orderID, string(model.OrderStatusCanceled), profit.String(), remains, string(model.OrderStatusInProgress),
	)
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
