package lending_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid_locker_lending/lending"
	"rfid_locker_lending/logger"
	"rfid_locker_lending/memstore"
	"rfid_locker_lending/metrics"
	"rfid_locker_lending/models"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type env struct {
	ctx     context.Context
	store   *memstore.Store
	svc     *lending.Service
	clock   *clock
	metrics *metrics.Metrics
}

func newEnv(t *testing.T, opts ...func(*lending.Options)) *env {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	o := lending.Options{Now: c.Now}
	for _, f := range opts {
		f(&o)
	}
	store := memstore.New()
	m := metrics.New(prometheus.NewRegistry())
	return &env{
		ctx:     context.Background(),
		store:   store,
		svc:     lending.New(logger.Discard(), store, m, o),
		clock:   c,
		metrics: m,
	}
}

func (e *env) addUser(t *testing.T, role models.Role) (models.User, lending.Identity) {
	t.Helper()
	sit := gofakeit.Number(2000000, 3000000)
	if role == models.RoleStaff {
		sit = gofakeit.Number(1000000, 1999999)
	}
	card := fmt.Sprintf("%08X", gofakeit.Uint32())
	u := models.User{
		ID:      uuid.NewString(),
		SitID:   fmt.Sprint(sit),
		Name:    gofakeit.Name(),
		Email:   gofakeit.Email(),
		Role:    role,
		RFIDUID: &card,
	}
	require.NoError(t, e.store.CreateUser(e.ctx, &u))
	return u, lending.Identity{UserID: u.ID, Role: role}
}

func (e *env) addEquipment(t *testing.T, total, available int) models.Equipment {
	t.Helper()
	eq := models.Equipment{
		ID:             uuid.NewString(),
		Name:           gofakeit.ProductName(),
		Category:       gofakeit.ProductCategory(),
		TotalUnits:     total,
		AvailableUnits: available,
	}
	require.NoError(t, e.store.CreateEquipment(e.ctx, &eq))
	return eq
}

// addLockers creates one available locker per compartment number, in the
// given order.
func (e *env) addLockers(t *testing.T, compartments ...int) []models.Locker {
	t.Helper()
	lockers := make([]models.Locker, 0, len(compartments))
	for _, n := range compartments {
		lockers = append(lockers, models.Locker{
			ID:                uuid.NewString(),
			CompartmentNumber: n,
			Status:            models.LockerAvailable,
		})
	}
	require.NoError(t, e.store.CreateLockers(e.ctx, lockers))
	return lockers
}

func (e *env) equipment(t *testing.T, id string) models.Equipment {
	t.Helper()
	eq, ok := e.store.Equipment(id)
	require.True(t, ok)
	return eq
}

func (e *env) locker(t *testing.T, id string) models.Locker {
	t.Helper()
	l, ok := e.store.Locker(id)
	require.True(t, ok)
	return l
}

func (e *env) transaction(t *testing.T, id string) models.Transaction {
	t.Helper()
	tx, ok := e.store.Transaction(id)
	require.True(t, ok)
	return tx
}

func (e *env) tap(u models.User, lockerID string) lending.Decision {
	return e.svc.Tap(e.ctx, lending.Tap{CardID: *u.RFIDUID, LockerID: lockerID})
}

// assertConsistent checks the cross-entity invariants: a locker is occupied
// exactly when one holding transaction points at it, and every debited unit
// is accounted for by a holding transaction.
func (e *env) assertConsistent(t *testing.T) {
	t.Helper()
	holdingByLocker := map[string]int{}
	holdingByEquipment := map[string]int{}
	for _, tx := range e.store.Transactions() {
		if !tx.Status.Holding() {
			continue
		}
		holdingByEquipment[tx.EquipmentID]++
		if tx.LockerID != nil {
			holdingByLocker[*tx.LockerID]++
		}
	}

	lockers, err := e.store.ListLockers(e.ctx, false)
	require.NoError(t, err)
	for _, l := range lockers {
		n := holdingByLocker[l.ID]
		assert.LessOrEqual(t, n, 1, "locker %d holds several transactions", l.CompartmentNumber)
		assert.Equal(t, l.Status == models.LockerOccupied, n == 1, "locker %d status %s with %d holding", l.CompartmentNumber, l.Status, n)
		assert.Equal(t, l.Status == models.LockerOccupied, l.CurrentEquipmentID != nil)
	}

	items, err := e.store.ListEquipment(e.ctx)
	require.NoError(t, err)
	for _, eq := range items {
		assert.GreaterOrEqual(t, eq.AvailableUnits, 0)
		assert.LessOrEqual(t, eq.AvailableUnits, eq.TotalUnits)
		assert.Equal(t, eq.TotalUnits-eq.AvailableUnits, holdingByEquipment[eq.ID], "equipment %s ledger", eq.Name)
	}
}
