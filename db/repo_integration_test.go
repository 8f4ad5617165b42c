package db

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid_locker_lending/lending"
	"rfid_locker_lending/logger"
	"rfid_locker_lending/models"
)

// newTestRepo connects to TEST_DATABASE_URL. The database must be disposable:
// the test adds rows and leaves them.
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	conn, err := ConnectDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepo(conn, 5*time.Second)
}

func TestRepoLendingRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := lending.New(logger.Discard(), repo, nil, lending.Options{})

	card := fmt.Sprintf("IT-%08X", gofakeit.Uint32())
	u := models.User{
		ID:      uuid.NewString(),
		SitID:   fmt.Sprint(gofakeit.Number(2000000, 3000000)),
		Name:    gofakeit.Name(),
		Email:   gofakeit.Email(),
		Role:    models.RoleStudent,
		RFIDUID: &card,
	}
	require.NoError(t, repo.CreateUser(ctx, &u))
	assert.ErrorIs(t, repo.CreateUser(ctx, &u), lending.ErrDuplicate)

	eq := models.Equipment{ID: uuid.NewString(), Name: gofakeit.ProductName(), TotalUnits: 1, AvailableUnits: 1}
	require.NoError(t, repo.CreateEquipment(ctx, &eq))

	// a fresh compartment so the run does not depend on what is already there
	require.NoError(t, repo.CreateLockers(ctx, []models.Locker{{
		ID:                uuid.NewString(),
		CompartmentNumber: gofakeit.Number(100000, 999999),
		Status:            models.LockerAvailable,
	}}))

	who := lending.Identity{UserID: u.ID, Role: u.Role}
	view, err := svc.Borrow(ctx, who, lending.BorrowRequest{EquipmentID: eq.ID})
	require.NoError(t, err)
	require.NotNil(t, view.LockerID)

	_, err = svc.Borrow(ctx, who, lending.BorrowRequest{EquipmentID: eq.ID})
	assert.ErrorIs(t, err, lending.ErrEquipmentExhausted)

	d := svc.Tap(ctx, lending.Tap{CardID: card, LockerID: *view.LockerID})
	require.Equal(t, lending.ActionPickup, d.Action, "%v", d.Reason)

	_, err = svc.RequestReturn(ctx, who, view.ID)
	require.NoError(t, err)
	d = svc.Tap(ctx, lending.Tap{CardID: card, LockerID: *view.LockerID})
	require.Equal(t, lending.ActionReturn, d.Action, "%v", d.Reason)

	got, err := repo.FindEquipment(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableUnits)

	rows, err := repo.ListTransactions(ctx, models.TransactionFilter{UserID: u.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusCompleted, rows[0].Status)

	logs, err := repo.ListAccessLogs(ctx, *view.LockerID, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	// malformed ids are not found rather than aborting the transaction
	_, err = svc.RequestReturn(ctx, who, "not-a-uuid")
	assert.ErrorIs(t, err, lending.ErrTransactionNotFound)
}

func TestRepoLastUnitRace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := lending.New(logger.Discard(), repo, nil, lending.Options{})

	eq := models.Equipment{ID: uuid.NewString(), Name: gofakeit.ProductName(), TotalUnits: 1, AvailableUnits: 1}
	require.NoError(t, repo.CreateEquipment(ctx, &eq))
	require.NoError(t, repo.CreateLockers(ctx, []models.Locker{
		{ID: uuid.NewString(), CompartmentNumber: gofakeit.Number(100000, 999999), Status: models.LockerAvailable},
	}))

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		u := models.User{
			ID:    uuid.NewString(),
			SitID: fmt.Sprint(gofakeit.Number(2000000, 3000000)),
			Name:  gofakeit.Name(),
			Email: gofakeit.Email(),
			Role:  models.RoleStudent,
		}
		require.NoError(t, repo.CreateUser(ctx, &u))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Borrow(ctx, lending.Identity{UserID: u.ID, Role: u.Role}, lending.BorrowRequest{EquipmentID: eq.ID})
		}()
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, lending.ErrEquipmentExhausted)
	}
	assert.Equal(t, 1, won)

	got, err := repo.FindEquipment(ctx, eq.ID)
	require.NoError(t, err)
	assert.Zero(t, got.AvailableUnits)
}

func TestRepoConcurrentTapsAtOneLocker(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := lending.New(logger.Discard(), repo, nil, lending.Options{})

	card := fmt.Sprintf("IT-%08X", gofakeit.Uint32())
	u := models.User{
		ID:      uuid.NewString(),
		SitID:   fmt.Sprint(gofakeit.Number(2000000, 3000000)),
		Name:    gofakeit.Name(),
		Email:   gofakeit.Email(),
		Role:    models.RoleStudent,
		RFIDUID: &card,
	}
	require.NoError(t, repo.CreateUser(ctx, &u))
	eq := models.Equipment{ID: uuid.NewString(), Name: gofakeit.ProductName(), TotalUnits: 1, AvailableUnits: 1}
	require.NoError(t, repo.CreateEquipment(ctx, &eq))
	require.NoError(t, repo.CreateLockers(ctx, []models.Locker{
		{ID: uuid.NewString(), CompartmentNumber: gofakeit.Number(100000, 999999), Status: models.LockerAvailable},
	}))

	view, err := svc.Borrow(ctx, lending.Identity{UserID: u.ID, Role: u.Role}, lending.BorrowRequest{EquipmentID: eq.ID})
	require.NoError(t, err)
	require.NotNil(t, view.LockerID)

	const n = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	decisions := make([]lending.Decision, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			decisions[i] = svc.Tap(ctx, lending.Tap{CardID: card, LockerID: *view.LockerID})
		}()
	}
	close(start)
	wg.Wait()

	pickups := 0
	for _, d := range decisions {
		if d.Action == lending.ActionPickup {
			pickups++
			continue
		}
		assert.Equal(t, lending.ActionDeny, d.Action)
		assert.ErrorIs(t, d.Reason, lending.ErrNoAuthorizedTx)
	}
	assert.Equal(t, 1, pickups)

	rows, err := repo.ListTransactions(ctx, models.TransactionFilter{UserID: u.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusActive, rows[0].Status)

	got, err := repo.FindEquipment(ctx, eq.ID)
	require.NoError(t, err)
	assert.Zero(t, got.AvailableUnits)

	logs, err := repo.ListAccessLogs(ctx, *view.LockerID, 2*n)
	require.NoError(t, err)
	assert.Len(t, logs, n, "every tap is audited")
}
