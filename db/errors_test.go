package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"rfid_locker_lending/lending"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(gorm.ErrRecordNotFound), lending.ErrNoRows)
	assert.ErrorIs(t, classify(fmt.Errorf("find: %w", gorm.ErrRecordNotFound)), lending.ErrNoRows)

	dup := classify(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_rfid_uid"})
	assert.ErrorIs(t, dup, lending.ErrDuplicate)
	assert.Contains(t, dup.Error(), "idx_users_rfid_uid")

	assert.ErrorIs(t, classify(&pgconn.PgError{Code: "22P02"}), lending.ErrNoRows)
	assert.ErrorIs(t, classify(&pgconn.PgError{Code: "23514"}), lending.ErrStaleWrite)

	other := &pgconn.PgError{Code: "55P03"}
	assert.Same(t, other, classify(other), "lock timeouts stay unclassified")

	boom := errors.New("boom")
	assert.Equal(t, boom, classify(boom))
}

func TestValidID(t *testing.T) {
	assert.True(t, validID("3f0c1a52-2a4e-4b7e-9d51-0e1f7b0c9a11"))
	assert.False(t, validID(""))
	assert.False(t, validID("42"))
	assert.False(t, validID("not-a-uuid"))
}
