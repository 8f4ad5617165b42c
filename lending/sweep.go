package lending

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rfid_locker_lending/logger"
)

type SweepOptions struct {
	// Interval between sweeps. Zero disables Start.
	Interval time.Duration
	// Timeout bounds a single sweep.
	Timeout time.Duration
	// PickupWindow expires reservations not collected within it. Zero leaves
	// only the due date.
	PickupWindow time.Duration
	// Batch caps the candidates handled per sweep.
	Batch int
}

// Sweeper periodically expires reservations that were never picked up.
type Sweeper struct {
	svc  *Service
	opts SweepOptions
}

func NewSweeper(svc *Service, opts SweepOptions) *Sweeper {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Batch <= 0 {
		opts.Batch = 100
	}
	return &Sweeper{svc: svc, opts: opts}
}

// Start runs the sweep on a ticker until ctx is done.
func (w *Sweeper) Start(ctx context.Context) {
	log := w.svc.log.With(slog.String("op", "lending.Sweeper"))
	if w.opts.Interval <= 0 {
		log.Info("expiry sweeper disabled")
		return
	}

	ticker := time.NewTicker(w.opts.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
				n, err := w.SweepOnce(tickCtx, w.svc.now())
				cancel()
				if err != nil {
					log.Error("sweep failed", logger.Err(err))
					continue
				}
				if n > 0 {
					log.Info("sweep expired reservations", slog.Int("count", n))
				}
			}
		}
	}()
}

// SweepOnce expires every eligible reservation as of now, each in its own
// unit of work, and returns how many it expired. Candidates that a pickup or
// cancel got to first are skipped.
func (w *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	var createdBefore time.Time
	if w.opts.PickupWindow > 0 {
		createdBefore = now.Add(-w.opts.PickupWindow)
	}

	ids, err := w.svc.store.ExpiredPickups(ctx, now, createdBefore, w.opts.Batch)
	if err != nil {
		return 0, StoreFailure(err)
	}

	expired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		err := w.svc.Expire(ctx, id, now, w.opts.PickupWindow)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, ErrNotExpirable), errors.Is(err, ErrTransactionNotFound):
		case KindOf(err) == KindTransient:
			return expired, err
		}
	}
	return expired, nil
}
