package controllers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid_locker_lending/app"
	"rfid_locker_lending/controllers"
	"rfid_locker_lending/lending"
	"rfid_locker_lending/logger"
	"rfid_locker_lending/memstore"
	"rfid_locker_lending/models"
)

// flakyStore is a memstore whose units of work fail while down is set.
type flakyStore struct {
	*memstore.Store
	down atomic.Bool
}

func (f *flakyStore) InTx(ctx context.Context, fn func(tx lending.Tx) error) error {
	if f.down.Load() {
		return errors.New("dial tcp 10.0.0.5:5432: connection refused")
	}
	return f.Store.InTx(ctx, fn)
}

func TestScanRetryAfterTransientDenyIsDecidedAgain(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := &flakyStore{Store: memstore.New()}
	svc := lending.New(logger.Discard(), store, nil, lending.Options{})

	card := "04BADA55"
	u := models.User{ID: uuid.NewString(), SitID: "2100009", Name: "Reader Retry", Email: "retry@sit.example", Role: models.RoleStudent, RFIDUID: &card}
	require.NoError(t, store.CreateUser(ctx, &u))
	eq := models.Equipment{ID: uuid.NewString(), Name: "Logic Analyzer", TotalUnits: 1, AvailableUnits: 1}
	require.NoError(t, store.CreateEquipment(ctx, &eq))
	require.NoError(t, store.CreateLockers(ctx, []models.Locker{{ID: uuid.NewString(), CompartmentNumber: 1}}))
	view, err := svc.Borrow(ctx, lending.Identity{UserID: u.ID, Role: u.Role}, lending.BorrowRequest{EquipmentID: eq.ID})
	require.NoError(t, err)

	rc := controllers.NewRFIDController(&controllers.Srv{
		Lending: svc,
		Dir:     store,
		Taps:    app.NewTapDebouncer(rdb, time.Minute),
		Log:     logger.Discard(),
	})
	r := gin.New()
	r.POST("/scan", rc.Scan)
	scan := func() (int, string) {
		body := `{"rfid_uid":"` + card + `","locker_id":"` + *view.LockerID + `"}`
		req := httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code, decode(t, w).Error
	}

	store.down.Store(true)
	code, reason := scan()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "store_unavailable", reason)

	store.down.Store(false)
	code, reason = scan()
	assert.Equal(t, http.StatusOK, code, reason)

	// a decided tap still swallows its echo
	code, reason = scan()
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "duplicate_tap", reason)
}
