package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"rfid_locker_lending/models"
)

// ConnectDB opens the Postgres connection and migrates the schema.
func ConnectDB(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}

func holdingStatusList() string {
	quoted := make([]string, 0, 3)
	for _, s := range models.HoldingStatuses() {
		quoted = append(quoted, "'"+string(s)+"'")
	}
	return strings.Join(quoted, ", ")
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Equipment{}, &models.Locker{}, &models.Transaction{}, &models.AccessLog{}); err != nil {
		return err
	}

	// 一个柜格同时最多挂一条未结束的借用
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_holding_per_locker
	  ON %s (locker_id)
	  WHERE status IN (%s);
	`, models.TransactionTable, models.TransactionTable, holdingStatusList())).Error; err != nil {
		return err
	}

	// 过期扫描只看待取件
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_pending_pickup_created
	  ON %s (created_at)
	  WHERE status = '%s';
	`, models.TransactionTable, models.TransactionTable, models.StatusPendingPickup)).Error; err != nil {
		return err
	}

	if err := db.Exec(fmt.Sprintf(`
	  DO $$ BEGIN
	    ALTER TABLE %s ADD CONSTRAINT chk_transactions_status
	      CHECK (status IN ('pending_pickup', 'active', 'pending_return', 'completed', 'cancelled', 'expired'));
	  EXCEPTION WHEN duplicate_object THEN NULL;
	  END $$;
	`, models.TransactionTable)).Error; err != nil {
		return err
	}

	return nil
}
