package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NukeThemAII/p2p/internal/application/errs"
	"github.com/NukeThemAII/p2p/internal/domain/entities"
	"github.com/NukeThemAII/p2p/internal/domain/repositories"
	"github.com/NukeThemAII/p2p/pkg/logger"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

type PaymentEventRepository struct {
	db     *sql.DB
	getter *trmsql.CtxGetter
	logger logger.Logger
}

func NewPaymentEventRepository(db *sql.DB, getter *trmsql.CtxGetter, logger logger.Logger) (*PaymentEventRepository, error) {
	if db == nil {
		return nil, errors.New("nil dependency: database")
	}
	if getter == nil {
		return nil, errors.New("nil dependency: transaction getter")
	}

	return &PaymentEventRepository{db: db, getter: getter, logger: logger}, nil
}

var _ repositories.PaymentEventRepository = (*PaymentEventRepository)(nil)

// AppendEvent inserts one audit record. The table is insert only;
// concurrent writers need no ordering.
func (r *PaymentEventRepository) AppendEvent(
	ctx context.Context,
	orderID string,
	source entities.PaymentEventSource,
	rawPayload string,
) error {
	const query = `
		INSERT INTO payment_events (order_id, source, raw_payload)
		VALUES ($1, $2, $3);
	`

	_, err := r.getter.DefaultTrOrDB(ctx, r.db).
		ExecContext(ctx, query, orderID, source, rawPayload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%w: order %s", errs.ErrNotFound, orderID)
		}
		return err
	}

	return nil
}
