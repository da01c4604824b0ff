package review

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) Create(ctx context.Context, rv *Review) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(rv).Error
}

func (r *Repo) CountByClientOrder(ctx context.Context, clientID, orderID string) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	var n int64
	err := db.Model(&Review{}).
		Where("client_id = ? AND order_id = ?", clientID, orderID).
		Count(&n).Error
	return n, err
}

// listEntries 评价 + 订单车辆联查，按评价时间倒序。
func (r *Repo) listEntries(ctx context.Context, clientID string) ([]Entry, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}

	q := db.Table("reviews").
		Select(`reviews.id AS review_id,
			reviews.client_id AS client_id,
			reviews.order_id AS order_id,
			vehicles.brand AS brand,
			vehicles.model AS model,
			reviews.rating AS rating,
			reviews.comment AS comment,
			reviews.review_date AS review_date`).
		Joins("JOIN orders ON orders.id = reviews.order_id").
		Joins("JOIN vehicles ON vehicles.id = orders.vehicle_id")
	if clientID != "" {
		q = q.Where("reviews.client_id = ?", clientID)
	}

	var out []Entry
	if err := q.Order("reviews.review_date DESC").Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ListForClient(ctx context.Context, clientID string) ([]Entry, error) {
	return r.listEntries(ctx, clientID)
}

func (r *Repo) ListAll(ctx context.Context) ([]Entry, error) {
	return r.listEntries(ctx, "")
}
