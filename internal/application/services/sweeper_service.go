package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NukeThemAII/p2p/internal/application/interfaces"
	"github.com/NukeThemAII/p2p/internal/config"
	"github.com/NukeThemAII/p2p/internal/domain/entities"
	"github.com/NukeThemAII/p2p/internal/domain/repositories"
	"github.com/NukeThemAII/p2p/pkg/logger"
)

// Payload recorded in the event ledger for sweep-forced transitions.
const sweepPayload = `{"reason":"deadline exceeded"}`

// SweeperService periodically forces stale unpaid orders into EXPIRED
// through the reconciliation engine. The engine gates still apply, so
// an order that advanced to a paid or terminal status between the
// query and the write is left alone.
type SweeperService struct {
	orderRepo  repositories.OrderRepository
	reconciler interfaces.Reconciler
	config     *config.Config
	logger     logger.Logger
	wg         *sync.WaitGroup
	done       chan struct{}
	stopOnce   sync.Once
}

func NewSweeperService(
	orderRepo repositories.OrderRepository,
	reconciler interfaces.Reconciler,
	config *config.Config,
	logger logger.Logger,
) (*SweeperService, error) {
	if orderRepo == nil {
		return nil, errors.New("nil dependency: order repository")
	}
	if reconciler == nil {
		return nil, errors.New("nil dependency: reconciler")
	}
	if config == nil {
		return nil, errors.New("nil dependency: config")
	}

	return &SweeperService{
		orderRepo:  orderRepo,
		reconciler: reconciler,
		config:     config,
		logger:     logger,
		wg:         &sync.WaitGroup{},
		done:       make(chan struct{}),
	}, nil
}

func (s *SweeperService) Run() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
}

// Stop signals the loop and waits for an in-flight tick to finish,
// bounded by the server shutdown timeout.
func (s *SweeperService) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})

	ready := make(chan struct{})
	go func() {
		defer close(ready)
		s.wg.Wait()
	}()

	select {
	case <-time.After(s.config.HTTPServer.ShutdownTimeout):
		s.logger.Error("sweeper service stop: shutdown timeout exceeded")
	case <-ready:
		return
	}
}

// run serializes ticks: a new sweep never starts before the previous
// one returned, and never after Stop was signaled.
func (s *SweeperService) run() {
	ticker := time.NewTicker(s.config.Sweeper.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// Sweep runs one expiry pass. Per-order failures are isolated: they
// are logged and the pass continues with the next order.
func (s *SweeperService) Sweep(ctx context.Context) {
	orders, err := s.orderRepo.GetExpiredOrders(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Errorf("sweep: query expired orders: %s", err)
		return
	}

	for _, order := range orders {
		_, err = s.reconciler.Apply(ctx, order,
			entities.EXPIRED, entities.SourceSweep, sweepPayload)
		if err != nil {
			s.logger.Errorf("sweep: expire order %s: %s", order.ID, err)
		}
	}
}
