package lending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid_locker_lending/models"
)

func TestCanTransition(t *testing.T) {
	all := []models.TxStatus{
		models.StatusPendingPickup,
		models.StatusActive,
		models.StatusPendingReturn,
		models.StatusCompleted,
		models.StatusCancelled,
		models.StatusExpired,
	}
	legal := map[[2]models.TxStatus]bool{
		{models.StatusPendingPickup, models.StatusActive}:    true,
		{models.StatusPendingPickup, models.StatusCancelled}: true,
		{models.StatusPendingPickup, models.StatusExpired}:   true,
		{models.StatusActive, models.StatusPendingReturn}:    true,
		{models.StatusActive, models.StatusExpired}:          true,
		{models.StatusPendingReturn, models.StatusCompleted}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[[2]models.TxStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesHaveNoEdges(t *testing.T) {
	for _, s := range []models.TxStatus{models.StatusCompleted, models.StatusCancelled, models.StatusExpired} {
		assert.True(t, s.Terminal())
		assert.Empty(t, transitions[s])
	}
}

func TestAdvanceStampsTimes(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	tx := &models.Transaction{Status: models.StatusPendingPickup}

	from, err := advance(tx, models.StatusActive, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingPickup, from)
	require.NotNil(t, tx.BorrowTime)
	assert.Equal(t, now, *tx.BorrowTime)
	assert.Nil(t, tx.ReturnTime)

	later := now.Add(time.Hour)
	_, err = advance(tx, models.StatusPendingReturn, later)
	require.NoError(t, err)
	assert.Equal(t, now, *tx.BorrowTime, "borrow time is kept")
	assert.Equal(t, later, tx.UpdatedAt)

	_, err = advance(tx, models.StatusCompleted, later)
	require.NoError(t, err)
	require.NotNil(t, tx.ReturnTime)
	assert.Equal(t, later, *tx.ReturnTime)
}

func TestAdvanceRejectsIllegalEdge(t *testing.T) {
	tx := &models.Transaction{Status: models.StatusCompleted}
	from, err := advance(tx, models.StatusActive, time.Now())
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, models.StatusCompleted, from)
	assert.Equal(t, models.StatusCompleted, tx.Status, "unchanged")
	assert.Nil(t, tx.BorrowTime)
}
