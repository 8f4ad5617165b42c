package lending

import (
	"time"

	"rfid_locker_lending/models"
)

// transitions lists every legal edge of the reservation lifecycle.
// Terminal statuses have no entry.
var transitions = map[models.TxStatus][]models.TxStatus{
	models.StatusPendingPickup: {models.StatusActive, models.StatusCancelled, models.StatusExpired},
	models.StatusActive:        {models.StatusPendingReturn, models.StatusExpired},
	models.StatusPendingReturn: {models.StatusCompleted},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to models.TxStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// advance moves t to the next status in memory and stamps the timestamps that
// belong to that edge. The caller persists it with Tx.AdvanceTransaction.
func advance(t *models.Transaction, to models.TxStatus, now time.Time) (models.TxStatus, error) {
	from := t.Status
	if !CanTransition(from, to) {
		return from, ErrIllegalTransition
	}
	switch to {
	case models.StatusActive:
		t.BorrowTime = &now
	case models.StatusCompleted:
		t.ReturnTime = &now
	}
	t.Status = to
	t.UpdatedAt = now
	return from, nil
}
