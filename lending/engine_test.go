package lending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid_locker_lending/logger"
	"rfid_locker_lending/metrics"
	"rfid_locker_lending/models"
)

// fakeStore hands every unit of work to tx, or fails with err.
type fakeStore struct {
	tx   Tx
	err  error
	logs []models.AccessLog
}

func (f *fakeStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(f.tx)
}

func (f *fakeStore) UserByCard(context.Context, string) (*models.User, error) {
	return nil, f.err
}

func (f *fakeStore) ListTransactions(context.Context, models.TransactionFilter) ([]models.TransactionView, error) {
	return nil, f.err
}

func (f *fakeStore) ExpiredPickups(context.Context, time.Time, time.Time, int) ([]string, error) {
	return nil, f.err
}

func (f *fakeStore) LogAccess(_ context.Context, entry *models.AccessLog) error {
	f.logs = append(f.logs, *entry)
	return nil
}

// ambiguousTx serves one user with both a pickup and a return waiting at the
// same locker. Methods it does not override panic through the nil Tx.
type ambiguousTx struct {
	Tx
	user     models.User
	pickup   models.Transaction
	ret      models.Transaction
	advanced []models.TxStatus
}

func (a *ambiguousTx) UserByCard(_ context.Context, cardID string) (*models.User, error) {
	if a.user.RFIDUID == nil || *a.user.RFIDUID != cardID {
		return nil, ErrNoRows
	}
	u := a.user
	return &u, nil
}

func (a *ambiguousTx) LockTransactionAt(_ context.Context, _, _ string, status models.TxStatus) (*models.Transaction, error) {
	switch status {
	case models.StatusPendingPickup:
		t := a.pickup
		return &t, nil
	case models.StatusPendingReturn:
		t := a.ret
		return &t, nil
	}
	return nil, ErrNoRows
}

func (a *ambiguousTx) AdvanceTransaction(_ context.Context, t *models.Transaction, _ models.TxStatus) error {
	a.advanced = append(a.advanced, t.Status)
	return nil
}

func (a *ambiguousTx) EquipmentByID(_ context.Context, id string) (*models.Equipment, error) {
	return &models.Equipment{ID: id, Name: "Oscilloscope", TotalUnits: 2, AvailableUnits: 0}, nil
}

func (a *ambiguousTx) LockerByID(_ context.Context, id string) (*models.Locker, error) {
	return &models.Locker{ID: id, CompartmentNumber: 7, Status: models.LockerOccupied}, nil
}

func TestTapPrefersPickupOverReturn(t *testing.T) {
	card := "04A1B2C3"
	locker := "locker-7"
	tx := &ambiguousTx{
		user:   models.User{ID: "u1", RFIDUID: &card},
		pickup: models.Transaction{ID: "t-pickup", UserID: "u1", EquipmentID: "e1", LockerID: &locker, Status: models.StatusPendingPickup},
		ret:    models.Transaction{ID: "t-return", UserID: "u1", EquipmentID: "e1", LockerID: &locker, Status: models.StatusPendingReturn},
	}
	store := &fakeStore{tx: tx}
	svc := New(logger.Discard(), store, nil, Options{})

	d := svc.Tap(context.Background(), Tap{CardID: card, LockerID: locker})
	require.Equal(t, ActionPickup, d.Action)
	assert.Equal(t, "t-pickup", d.Details.ID)
	assert.Equal(t, 7, *d.Details.CompartmentNumber)
	assert.Equal(t, []models.TxStatus{models.StatusActive}, tx.advanced)

	require.Len(t, store.logs, 1)
	assert.Equal(t, "pickup", store.logs[0].Decision)
	assert.Equal(t, "t-pickup", *store.logs[0].TransactionID)
}

func TestTapFailsClosedWhenStoreIsDown(t *testing.T) {
	store := &fakeStore{err: errors.New("dial tcp: connection refused")}
	m := metrics.New(prometheus.NewRegistry())
	svc := New(logger.Discard(), store, m, Options{})

	d := svc.Tap(context.Background(), Tap{CardID: "04A1B2C3", LockerID: "locker-1"})
	assert.Equal(t, ActionDeny, d.Action)
	assert.False(t, d.Granted())
	require.NotNil(t, d.Reason)
	assert.ErrorIs(t, d.Reason, ErrStoreUnavailable)
	assert.Equal(t, KindTransient, d.Reason.Kind)

	require.Len(t, store.logs, 1)
	assert.Equal(t, "store_unavailable", *store.logs[0].Reason)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("lending.Tap", "transient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("deny", "store_unavailable")))
}

func TestStoreFailureKeepsTypedErrors(t *testing.T) {
	assert.NoError(t, StoreFailure(nil))
	assert.Same(t, ErrNoLockers, StoreFailure(ErrNoLockers))

	err := StoreFailure(context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, KindTransient, KindOf(err))

	assert.Equal(t, KindTransient, KindOf(errors.New("boom")))
	assert.Equal(t, KindConflict, KindOf(ErrStaleWrite))
}
