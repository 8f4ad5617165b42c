package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TapDebouncer drops repeated taps of one card at one locker inside a short
// window. Readers fire several times per physical tap.
type TapDebouncer struct {
	rdb    *redis.Client
	window time.Duration
}

// NewTapDebouncer returns a debouncer. A nil client or a non-positive window
// lets every tap through.
func NewTapDebouncer(rdb *redis.Client, window time.Duration) *TapDebouncer {
	return &TapDebouncer{rdb: rdb, window: window}
}

// First reports whether this is the first tap of cardID at lockerID within
// the window. On a redis error the tap counts as first, so the store still
// decides.
func (d *TapDebouncer) First(ctx context.Context, cardID, lockerID string) (bool, error) {
	if d == nil || d.rdb == nil || d.window <= 0 {
		return true, nil
	}
	ok, err := d.rdb.SetNX(ctx, tapKey(cardID, lockerID), "1", d.window).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}

// Forget clears the mark left by First, so a retry of a tap that could not be
// decided is evaluated again instead of being dropped as a repeat.
func (d *TapDebouncer) Forget(ctx context.Context, cardID, lockerID string) error {
	if d == nil || d.rdb == nil || d.window <= 0 {
		return nil
	}
	return d.rdb.Del(ctx, tapKey(cardID, lockerID)).Err()
}

func tapKey(cardID, lockerID string) string {
	return "tap:seen:" + cardID + ":" + lockerID
}
