package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NukeThemAII/p2p/internal/application/errs"
	"github.com/NukeThemAII/p2p/internal/domain/entities"
	"github.com/NukeThemAII/p2p/internal/domain/repositories"
	"github.com/NukeThemAII/p2p/pkg/logger"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const orderColumns = `id, user_telegram_id, lang, credits_thb, commission_rate,
		fx_usdt_per_thb, pay_amount, status, payment_id, pay_address,
		expires_at, created_at`

type OrderRepository struct {
	db     *sql.DB
	getter *trmsql.CtxGetter
	logger logger.Logger
}

func NewOrderRepository(db *sql.DB, getter *trmsql.CtxGetter, logger logger.Logger) (*OrderRepository, error) {
	if db == nil {
		return nil, errors.New("nil dependency: database")
	}
	if getter == nil {
		return nil, errors.New("nil dependency: transaction getter")
	}

	return &OrderRepository{db: db, getter: getter, logger: logger}, nil
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) CreateOrder(ctx context.Context, order *entities.Order) error {
	const query = `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`

	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query,
		order.ID,
		order.UserTelegramID,
		order.Lang,
		order.CreditsTHB,
		order.CommissionRate,
		order.FxUsdtPerThb,
		order.PayAmount,
		order.Status,
		order.PaymentID,
		order.PayAddress,
		order.ExpiresAt,
		order.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: order %s", errs.ErrAlreadyExists, order.ID)
		}
		return err
	}

	return nil
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, id string) (*entities.Order, error) {
	const query = "SELECT " + orderColumns + " FROM orders WHERE id = $1;"

	return r.scanOrder(r.db.QueryRowContext(ctx, query, id))
}

func (r *OrderRepository) GetOrderByPaymentID(ctx context.Context, paymentID string) (*entities.Order, error) {
	const query = "SELECT " + orderColumns + " FROM orders WHERE payment_id = $1;"

	return r.scanOrder(r.db.QueryRowContext(ctx, query, paymentID))
}

func (r *OrderRepository) GetOrdersByUserID(ctx context.Context, userTelegramID string) ([]*entities.Order, error) {
	const query = "SELECT " + orderColumns +
		" FROM orders WHERE user_telegram_id = $1 ORDER BY created_at DESC;"

	rows, err := r.db.QueryContext(ctx, query, userTelegramID)
	if err != nil {
		return nil, err
	}

	return r.collectOrders(rows)
}

func (r *OrderRepository) UpdateOrderInvoice(
	ctx context.Context, id, paymentID, payAddress string, status entities.OrderStatus,
) error {
	const query = `
		UPDATE orders
		SET payment_id = $2, pay_address = NULLIF($3, ''), status = $4
		WHERE id = $1 AND status = $5;
	`

	res, err := r.getter.DefaultTrOrDB(ctx, r.db).
		ExecContext(ctx, query, id, paymentID, payAddress, status, entities.DRAFT)
	if err != nil {
		return err
	}

	return r.checkAffected(ctx, res, id)
}

// UpdateOrderStatus is the one and only status write. It is
// conditional on the status the caller last observed; zero affected
// rows with an existing order means a concurrent writer won.
func (r *OrderRepository) UpdateOrderStatus(
	ctx context.Context, id string, from, to entities.OrderStatus,
) error {
	const query = "UPDATE orders SET status = $3 WHERE id = $1 AND status = $2;"

	res, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query, id, from, to)
	if err != nil {
		return err
	}

	return r.checkAffected(ctx, res, id)
}

func (r *OrderRepository) GetExpiredOrders(ctx context.Context, now time.Time) ([]*entities.Order, error) {
	placeholders := make([]string, len(entities.ExpirableStatuses))
	args := make([]any, 0, len(entities.ExpirableStatuses)+1)
	args = append(args, now)
	for i, status := range entities.ExpirableStatuses {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, status)
	}

	query := "SELECT " + orderColumns + " FROM orders WHERE expires_at < $1 AND status IN (" +
		strings.Join(placeholders, ", ") + ");"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return r.collectOrders(rows)
}

func (r *OrderRepository) checkAffected(ctx context.Context, res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a lost race from a missing row.
	var one int
	err = r.db.QueryRowContext(ctx, "SELECT 1 FROM orders WHERE id = $1;", id).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: order %s", errs.ErrNotFound, id)
	case err != nil:
		return err
	}

	return fmt.Errorf("%w: order %s", errs.ErrDataConflict, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *OrderRepository) scanOrder(row scanner) (*entities.Order, error) {
	order := new(entities.Order)

	var paymentID, payAddress sql.NullString

	err := row.Scan(
		&order.ID,
		&order.UserTelegramID,
		&order.Lang,
		&order.CreditsTHB,
		&order.CommissionRate,
		&order.FxUsdtPerThb,
		&order.PayAmount,
		&order.Status,
		&paymentID,
		&payAddress,
		&order.ExpiresAt,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}

	if paymentID.Valid {
		order.PaymentID = &paymentID.String
	}
	if payAddress.Valid {
		order.PayAddress = &payAddress.String
	}

	return order, nil
}

func (r *OrderRepository) collectOrders(rows *sql.Rows) ([]*entities.Order, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Errorf("close rows: %s", err)
		}
	}()

	orders := make([]*entities.Order, 0)

	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	// Rows.Err will report the last error encountered by Rows.Scan.
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
