package lending

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"rfid_locker_lending/logger"
	"rfid_locker_lending/models"
)

type Action string

const (
	ActionPickup Action = "pickup"
	ActionReturn Action = "return"
	ActionDeny   Action = "deny"
)

// Tap is one raw event from a locker reader.
type Tap struct {
	CardID   string
	LockerID string
}

// Decision is the outcome of a tap. Reason is set only for denials, Details
// only for grants.
type Decision struct {
	Action  Action
	Reason  *Error
	Details *models.TransactionView
}

func (d Decision) Granted() bool {
	return d.Action == ActionPickup || d.Action == ActionReturn
}

func deny(err error) Decision {
	var e *Error
	if !errors.As(err, &e) {
		e = ErrStoreUnavailable.wrap(err)
	}
	return Decision{Action: ActionDeny, Reason: e}
}

// Tap interprets a card tap at a locker. The first matching rule wins: an
// unknown card is denied, a reservation awaiting pickup is handed out, a
// requested return is completed, anything else is denied. Tap never fails;
// every error becomes a denial.
func (s *Service) Tap(ctx context.Context, tap Tap) Decision {
	const op = "lending.Tap"
	tap.CardID = strings.TrimSpace(tap.CardID)
	tap.LockerID = strings.TrimSpace(tap.LockerID)
	log := s.log.With(
		slog.String("op", op),
		logger.Card(tap.CardID),
		slog.String("locker_id", tap.LockerID),
	)

	var d Decision
	var userID, transactionID *string

	switch {
	case tap.CardID == "":
		d = deny(validation("missing_card_id", "missing required field: card_id"))
	case tap.LockerID == "":
		d = deny(validation("missing_locker_id", "missing required field: locker_id"))
	default:
		now := s.now()
		var view models.TransactionView
		var action Action

		// denials are outcomes, not failures
		err := StoreFailure(s.store.InTx(ctx, func(tx Tx) error {
			u, err := tx.UserByCard(ctx, tap.CardID)
			if err != nil {
				return orNotFound(err, ErrUnauthorizedCard)
			}
			userID = &u.ID

			t, err := tx.LockTransactionAt(ctx, u.ID, tap.LockerID, models.StatusPendingPickup)
			if err == nil {
				transactionID = &t.ID
				if err := confirmPickup(ctx, tx, t, now); err != nil {
					return err
				}
				action = ActionPickup
				view, err = describe(ctx, tx, t)
				return err
			}
			if !errors.Is(err, ErrNoRows) {
				return err
			}

			t, err = tx.LockTransactionAt(ctx, u.ID, tap.LockerID, models.StatusPendingReturn)
			if err != nil {
				return orNotFound(err, ErrNoAuthorizedTx)
			}
			transactionID = &t.ID
			action = ActionReturn
			view, err = confirmReturn(ctx, tx, t, now)
			return err
		}))
		if err != nil {
			if KindOf(err) == KindTransient {
				s.metrics.Failure(op, string(KindTransient))
			}
			d = deny(err)
			break
		}

		d = Decision{Action: action, Details: &view}
		switch action {
		case ActionPickup:
			s.transitioned(models.StatusActive)
		case ActionReturn:
			s.transitioned(models.StatusCompleted)
		}
	}

	reason := ""
	if d.Reason != nil {
		reason = d.Reason.Code
	}
	s.metrics.Decision(string(d.Action), reason)
	s.audit(ctx, log, tap, d, userID, transactionID)

	if d.Granted() {
		log.Info("tap granted", slog.String("action", string(d.Action)), slog.String("transaction_id", d.Details.ID))
	} else {
		s.logResult(log, "tap denied", d.Reason)
	}
	return d
}

// audit appends the decision to the access log. A failed write is logged and
// does not change the decision.
func (s *Service) audit(ctx context.Context, log *slog.Logger, tap Tap, d Decision, userID, transactionID *string) {
	entry := &models.AccessLog{
		ID:            uuid.NewString(),
		CardID:        tap.CardID,
		LockerID:      tap.LockerID,
		UserID:        userID,
		TransactionID: transactionID,
		Decision:      string(d.Action),
		CreatedAt:     s.now(),
	}
	if d.Reason != nil {
		code := d.Reason.Code
		entry.Reason = &code
	}
	if err := s.store.LogAccess(ctx, entry); err != nil {
		log.Error("failed to write access log", logger.Err(err))
	}
}

// StatusByCard lists the non-terminal transactions of the card's owner, most
// recent first. It never changes anything.
func (s *Service) StatusByCard(ctx context.Context, cardID string) ([]models.TransactionView, error) {
	const op = "lending.StatusByCard"
	cardID = strings.TrimSpace(cardID)
	log := s.log.With(slog.String("op", op), logger.Card(cardID))
	if cardID == "" {
		return nil, validation("missing_card_id", "missing required field: card_id")
	}

	u, err := s.store.UserByCard(ctx, cardID)
	if err != nil {
		err = StoreFailure(orNotFound(err, ErrCardNotRegistered))
		s.logResult(log, "status lookup failed", err)
		return nil, err
	}

	list, err := s.store.ListTransactions(ctx, models.TransactionFilter{
		UserID:   u.ID,
		Statuses: models.HoldingStatuses(),
	})
	if err != nil {
		err = StoreFailure(err)
		s.logResult(log, "status lookup failed", err)
		return nil, err
	}
	return list, nil
}

// History lists a user's transactions, most recent first, optionally narrowed
// to the given statuses.
func (s *Service) History(ctx context.Context, userID string, statuses []models.TxStatus) ([]models.TransactionView, error) {
	list, err := s.store.ListTransactions(ctx, models.TransactionFilter{UserID: userID, Statuses: statuses})
	if err != nil {
		return nil, StoreFailure(err)
	}
	return list, nil
}
