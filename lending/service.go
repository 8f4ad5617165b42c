package lending

import (
	"context"
	"log/slog"
	"time"

	"rfid_locker_lending/logger"
	"rfid_locker_lending/metrics"
	"rfid_locker_lending/models"
)

// Identity is the verified requester handed over by the identity provider.
type Identity struct {
	UserID string
	Role   models.Role
}

func (i Identity) IsStaff() bool { return i.Role == models.RoleStaff }

// Options tune the engine. The zero value is usable.
type Options struct {
	// DefaultLoanPeriod sets due_date on borrows that do not carry one.
	// Zero leaves due_date empty.
	DefaultLoanPeriod time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service is the transaction and locker allocation engine.
type Service struct {
	log     *slog.Logger
	store   Store
	metrics *metrics.Metrics
	opts    Options
}

func New(log *slog.Logger, store Store, m *metrics.Metrics, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{log: log, store: store, metrics: m, opts: opts}
}

func (s *Service) now() time.Time { return s.opts.Now() }

// unit runs fn in one unit of work and classifies whatever comes out of it.
func (s *Service) unit(ctx context.Context, op string, fn func(tx Tx) error) error {
	err := StoreFailure(s.store.InTx(ctx, fn))
	if err != nil {
		s.metrics.Failure(op, string(KindOf(err)))
	}
	return err
}

// logResult logs err at a level matching its kind.
func (s *Service) logResult(log *slog.Logger, msg string, err error) {
	if KindOf(err) == KindTransient {
		log.Error(msg, logger.Err(err))
		return
	}
	log.Warn(msg, logger.Err(err))
}

func (s *Service) transitioned(to models.TxStatus) {
	s.metrics.Transition(string(to))
}
