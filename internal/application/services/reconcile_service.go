package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/NukeThemAII/p2p/internal/application/errs"
	"github.com/NukeThemAII/p2p/internal/application/interfaces"
	"github.com/NukeThemAII/p2p/internal/domain/entities"
	"github.com/NukeThemAII/p2p/internal/domain/repositories"
	"github.com/NukeThemAII/p2p/pkg/logger"
)

// How many times a losing writer re-reads and re-evaluates before
// giving up on a contended order.
const maxApplyRetries = 3

// ReconcileService is the order status state machine. Every inbound
// report is appended to the event ledger first; the transition gates
// run after that, and the status write is conditional on the status
// the gates saw, so two racing callers cannot both win.
type ReconcileService struct {
	orderRepo repositories.OrderRepository
	eventRepo repositories.PaymentEventRepository
	notifier  interfaces.Notifier
	logger    logger.Logger
}

func NewReconcileService(
	orderRepo repositories.OrderRepository,
	eventRepo repositories.PaymentEventRepository,
	notifier interfaces.Notifier,
	logger logger.Logger,
) (*ReconcileService, error) {
	if orderRepo == nil {
		return nil, errors.New("nil dependency: order repository")
	}
	if eventRepo == nil {
		return nil, errors.New("nil dependency: payment event repository")
	}
	if notifier == nil {
		return nil, errors.New("nil dependency: notifier")
	}

	return &ReconcileService{
		orderRepo: orderRepo,
		eventRepo: eventRepo,
		notifier:  notifier,
		logger:    logger,
	}, nil
}

var _ interfaces.Reconciler = (*ReconcileService)(nil)

// Apply records the inbound report and advances the order when the
// gates allow it. Gates, in order: no candidate, terminal sink,
// FINISHED lock, duplicate status. The first gate that fires stops
// further processing and the call is a no-op.
func (s *ReconcileService) Apply(
	ctx context.Context,
	order *entities.Order,
	candidate entities.OrderStatus,
	source entities.PaymentEventSource,
	rawPayload string,
) (*entities.Order, error) {
	// Audit before decide. The ledger is written even when no
	// transition follows.
	if err := s.eventRepo.AppendEvent(ctx, order.ID, source, rawPayload); err != nil {
		return nil, fmt.Errorf("append payment event: %w", err)
	}

	if candidate == "" {
		return order, nil
	}

	current := order

	for attempt := 0; ; attempt++ {
		switch {
		case current.Status.IsTerminal():
			return current, nil
		case current.Status == entities.FINISHED && candidate != entities.FINISHED:
			// Payment is final once the gateway reported finished; a
			// stale out-of-order report must not regress it.
			return current, nil
		case current.Status == candidate:
			return current, nil
		}

		err := s.orderRepo.UpdateOrderStatus(ctx, current.ID, current.Status, candidate)
		if err == nil {
			// The conditional write succeeded, so current.Status is
			// exactly the status this transition superseded.
			s.notifier.OnTransition(ctx, current, candidate)

			updated := *current
			updated.Status = candidate
			return &updated, nil
		}

		if !errors.Is(err, errs.ErrDataConflict) {
			return nil, fmt.Errorf("update order %s status: %w", current.ID, err)
		}

		if attempt+1 >= maxApplyRetries {
			// The report is already in the ledger and the writers this
			// caller keeps losing to are advancing the same order, so
			// resolve as a no-op rather than failing the delivery.
			s.logger.Errorf("order %s: %d conflicting status writes, giving up", current.ID, maxApplyRetries)
			return current, nil
		}

		// Lost the race. Re-read and run the gates against fresh state.
		s.logger.Infof("order %s: concurrent status write, retrying", current.ID)

		current, err = s.orderRepo.GetOrderByID(ctx, current.ID)
		if err != nil {
			return nil, fmt.Errorf("reread order after conflict: %w", err)
		}
	}
}
