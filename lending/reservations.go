package lending

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rfid_locker_lending/models"
)

type BorrowRequest struct {
	EquipmentID string
	DueDate     *time.Time
}

// Borrow reserves one unit of equipment and allocates a locker for pickup.
// Debit, locker allocation and the pending_pickup insert commit together.
func (s *Service) Borrow(ctx context.Context, who Identity, req BorrowRequest) (*models.TransactionView, error) {
	const op = "lending.Borrow"
	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", who.UserID),
		slog.String("equipment_id", req.EquipmentID),
	)

	equipmentID := strings.TrimSpace(req.EquipmentID)
	if who.UserID == "" {
		return nil, validation("missing_requester", "requester identity is required")
	}
	if equipmentID == "" {
		return nil, validation("missing_equipment_id", "missing required field: equipment_id")
	}

	now := s.now()
	due := req.DueDate
	if due != nil && !due.After(now) {
		return nil, validation("invalid_due_date", "due date must be in the future")
	}
	if due == nil && s.opts.DefaultLoanPeriod > 0 {
		d := now.Add(s.opts.DefaultLoanPeriod)
		due = &d
	}

	var view models.TransactionView
	err := s.unit(ctx, op, func(tx Tx) error {
		if _, err := tx.UserByID(ctx, who.UserID); err != nil {
			return orNotFound(err, ErrUserNotFound)
		}
		eq, err := debit(ctx, tx, equipmentID)
		if err != nil {
			return err
		}
		locker, err := occupy(ctx, tx, eq.ID)
		if err != nil {
			return err
		}

		t := &models.Transaction{
			ID:          uuid.NewString(),
			UserID:      who.UserID,
			EquipmentID: eq.ID,
			LockerID:    &locker.ID,
			Status:      models.StatusPendingPickup,
			DueDate:     due,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return err
		}

		compartment := locker.CompartmentNumber
		view = models.TransactionView{
			Transaction:       *t,
			EquipmentName:     eq.Name,
			CompartmentNumber: &compartment,
		}
		return nil
	})
	if err != nil {
		s.logResult(log, "borrow rejected", err)
		return nil, err
	}

	s.transitioned(models.StatusPendingPickup)
	log.Info("reservation created",
		slog.String("transaction_id", view.ID),
		slog.Int("compartment", *view.CompartmentNumber),
	)
	return &view, nil
}

// RequestReturn marks an active loan as awaiting physical return. The unit and
// the locker stay as they are until the locker confirms the return.
func (s *Service) RequestReturn(ctx context.Context, who Identity, transactionID string) (*models.TransactionView, error) {
	const op = "lending.RequestReturn"
	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", who.UserID),
		slog.String("transaction_id", transactionID),
	)

	if strings.TrimSpace(transactionID) == "" {
		return nil, validation("missing_transaction_id", "missing required field: transaction_id")
	}

	now := s.now()
	var view models.TransactionView
	err := s.unit(ctx, op, func(tx Tx) error {
		t, err := s.lockOwned(ctx, tx, who, transactionID)
		if err != nil {
			return err
		}
		switch t.Status {
		case models.StatusActive:
		case models.StatusPendingPickup:
			return ErrNotYetPickedUp
		case models.StatusPendingReturn:
			return ErrReturnAlreadyRequested
		default:
			return ErrNotReturnable
		}

		from, err := advance(t, models.StatusPendingReturn, now)
		if err != nil {
			return err
		}
		if err := tx.AdvanceTransaction(ctx, t, from); err != nil {
			return err
		}
		view, err = describe(ctx, tx, t)
		return err
	})
	if err != nil {
		s.logResult(log, "return request rejected", err)
		return nil, err
	}

	s.transitioned(models.StatusPendingReturn)
	log.Info("return requested")
	return &view, nil
}

// Cancel withdraws a reservation that was never picked up and gives the unit
// and the locker back. A second cancel fails; nothing is credited twice.
func (s *Service) Cancel(ctx context.Context, who Identity, transactionID string) (*models.TransactionView, error) {
	const op = "lending.Cancel"
	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", who.UserID),
		slog.String("transaction_id", transactionID),
	)

	if strings.TrimSpace(transactionID) == "" {
		return nil, validation("missing_transaction_id", "missing required field: transaction_id")
	}

	now := s.now()
	var view models.TransactionView
	err := s.unit(ctx, op, func(tx Tx) error {
		t, err := s.lockOwned(ctx, tx, who, transactionID)
		if err != nil {
			return err
		}
		if t.Status != models.StatusPendingPickup {
			return ErrNotCancellable
		}
		view, err = release(ctx, tx, t, models.StatusCancelled, now)
		return err
	})
	if err != nil {
		s.logResult(log, "cancel rejected", err)
		return nil, err
	}

	s.transitioned(models.StatusCancelled)
	log.Info("reservation cancelled")
	return &view, nil
}

// Expire retires a reservation that was never collected. Status and deadline
// are checked again under the row lock, so a pickup that won the race is left
// alone.
func (s *Service) Expire(ctx context.Context, transactionID string, now time.Time, pickupWindow time.Duration) error {
	const op = "lending.Expire"
	log := s.log.With(slog.String("op", op), slog.String("transaction_id", transactionID))

	err := s.unit(ctx, op, func(tx Tx) error {
		t, err := tx.LockTransaction(ctx, transactionID)
		if err != nil {
			return orNotFound(err, ErrTransactionNotFound)
		}
		if t.Status != models.StatusPendingPickup || !pickupLapsed(t, now, pickupWindow) {
			return ErrNotExpirable
		}
		_, err = release(ctx, tx, t, models.StatusExpired, now)
		return err
	})
	if err != nil {
		s.logResult(log, "expiry skipped", err)
		return err
	}

	s.transitioned(models.StatusExpired)
	s.metrics.ExpiredInc()
	log.Info("reservation expired")
	return nil
}

func pickupLapsed(t *models.Transaction, now time.Time, window time.Duration) bool {
	if t.Overdue(now) {
		return true
	}
	return window > 0 && t.CreatedAt.Before(now.Add(-window))
}

// confirmPickup is the pending_pickup -> active edge driven by a tap.
func confirmPickup(ctx context.Context, tx Tx, t *models.Transaction, now time.Time) error {
	from, err := advance(t, models.StatusActive, now)
	if err != nil {
		return err
	}
	return tx.AdvanceTransaction(ctx, t, from)
}

// confirmReturn is the pending_return -> completed edge driven by a tap.
func confirmReturn(ctx context.Context, tx Tx, t *models.Transaction, now time.Time) (models.TransactionView, error) {
	return release(ctx, tx, t, models.StatusCompleted, now)
}

// release ends a holding transaction: it advances t to the terminal status,
// credits the unit and frees the locker.
func release(ctx context.Context, tx Tx, t *models.Transaction, to models.TxStatus, now time.Time) (models.TransactionView, error) {
	from, err := advance(t, to, now)
	if err != nil {
		return models.TransactionView{}, err
	}
	if err := tx.AdvanceTransaction(ctx, t, from); err != nil {
		return models.TransactionView{}, err
	}
	eq, err := credit(ctx, tx, t.EquipmentID)
	if err != nil {
		return models.TransactionView{}, err
	}

	view := models.TransactionView{Transaction: *t, EquipmentName: eq.Name}
	if t.LockerID != nil {
		l, err := free(ctx, tx, *t.LockerID)
		if err != nil {
			return models.TransactionView{}, err
		}
		compartment := l.CompartmentNumber
		view.CompartmentNumber = &compartment
	}
	return view, nil
}

// lockOwned locks the transaction and hides it from anyone but its owner or staff.
func (s *Service) lockOwned(ctx context.Context, tx Tx, who Identity, transactionID string) (*models.Transaction, error) {
	t, err := tx.LockTransaction(ctx, transactionID)
	if err != nil {
		return nil, orNotFound(err, ErrTransactionNotFound)
	}
	if t.UserID != who.UserID && !who.IsStaff() {
		return nil, ErrTransactionNotFound
	}
	return t, nil
}

// describe joins a transaction with its equipment name and compartment.
func describe(ctx context.Context, tx Tx, t *models.Transaction) (models.TransactionView, error) {
	view := models.TransactionView{Transaction: *t}
	eq, err := tx.EquipmentByID(ctx, t.EquipmentID)
	if err != nil {
		return view, orNotFound(err, ErrEquipmentNotFound)
	}
	view.EquipmentName = eq.Name
	if t.LockerID != nil {
		l, err := tx.LockerByID(ctx, *t.LockerID)
		if err != nil {
			return view, orNotFound(err, ErrLockerNotFound)
		}
		compartment := l.CompartmentNumber
		view.CompartmentNumber = &compartment
	}
	return view, nil
}
