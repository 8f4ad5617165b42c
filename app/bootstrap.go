// app/bootstrap.go
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"rfid_locker_lending/models"
)

// BootstrapLockers creates compartments 1..count when the locker table is
// empty. It does nothing once any locker exists.
func BootstrapLockers(ctx context.Context, dir Directory, count int, log *slog.Logger) error {
	const op = "app.BootstrapLockers"
	if count <= 0 {
		return nil
	}
	n, err := dir.CountLockers(ctx)
	if err != nil {
		return fmt.Errorf("%s: count lockers: %w", op, err)
	}
	if n > 0 {
		return nil // 已有柜格，跳过
	}

	lockers := make([]models.Locker, 0, count)
	for i := 1; i <= count; i++ {
		lockers = append(lockers, models.Locker{
			ID:                uuid.NewString(),
			CompartmentNumber: i,
			Status:            models.LockerAvailable,
		})
	}
	if err := dir.CreateLockers(ctx, lockers); err != nil {
		return fmt.Errorf("%s: create lockers: %w", op, err)
	}
	log.Info("bootstrapped lockers", slog.String("op", op), slog.Int("count", count))
	return nil
}
