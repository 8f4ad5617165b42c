package db

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"rfid_locker_lending/lending"
	"rfid_locker_lending/models"
)

type Repo struct {
	DB *gorm.DB
	// LockTimeout bounds how long a unit of work waits on a row lock. Zero
	// waits forever.
	LockTimeout time.Duration
}

func NewRepo(db *gorm.DB, lockTimeout time.Duration) *Repo {
	return &Repo{DB: db, LockTimeout: lockTimeout}
}

func (r *Repo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Users

// 按 ID 查
func (r *Repo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, lending.ErrNoRows
	}
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &u, nil
}

func (r *Repo) FindUserBySitID(ctx context.Context, sitID string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("sit_id = ?", sitID).First(&u).Error; err != nil {
		return nil, classify(err)
	}
	return &u, nil
}

func (r *Repo) UserByCard(ctx context.Context, cardID string) (*models.User, error) {
	return userByCard(r.DB.WithContext(ctx), cardID)
}

func userByCard(db *gorm.DB, cardID string) (*models.User, error) {
	var u models.User
	if err := db.Where("rfid_uid = ?", cardID).First(&u).Error; err != nil {
		return nil, classify(err)
	}
	return &u, nil
}

// 列表（分页 + 关键词，关键词匹配姓名/邮箱/SIT ID）
func (r *Repo) ListUsers(ctx context.Context, q string, page, size int) (models.UserPage, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR sit_id LIKE ?", like, like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return models.UserPage{}, err
	}

	var users []models.User
	if err := tx.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&users).Error; err != nil {
		return models.UserPage{}, err
	}
	return models.UserPage{Users: users, Total: total}, nil
}

func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	return classify(r.DB.WithContext(ctx).Create(u).Error)
}

// SetUserCard binds a card to the user, or unbinds it when card is nil.
func (r *Repo) SetUserCard(ctx context.Context, userID string, card *string) error {
	if !validID(userID) {
		return lending.ErrNoRows
	}
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"rfid_uid": card, "updated_at": time.Now()})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return lending.ErrNoRows
	}
	return nil
}
