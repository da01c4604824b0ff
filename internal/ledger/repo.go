package ledger

import (
	"context"
	"fmt"

	"github.com/AutoDreams/AutoDreams/internal/inventory"
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

func (r *Repo) Create(ctx context.Context, o *Order) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(o).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Order, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var o Order
	if err := db.Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkVehicleSold 条件更新：仅当车辆仍在售时把状态翻成已售出。
// 返回受影响行数；0 行意味着车辆不存在或已被别的订单抢先。
// 与订单插入同处一个事务时，这一行保证了并发下单只有一个赢家。
func (r *Repo) MarkVehicleSold(ctx context.Context, vehicleID string) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	res := db.Model(&inventory.Vehicle{}).
		Where("id = ? AND status = ?", vehicleID, inventory.StatusAvailable).
		Update("status", inventory.StatusSold)
	return res.RowsAffected, res.Error
}

// listSummaries 订单 + 车辆 + 销售联查，按成交时间倒序。
func (r *Repo) listSummaries(ctx context.Context, clientID string) ([]Summary, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}

	q := db.Table("orders").
		Select(`orders.id AS order_id,
			orders.client_id AS client_id,
			orders.vehicle_id AS vehicle_id,
			vehicles.brand AS brand,
			vehicles.model AS model,
			vehicles.vin AS vin,
			vehicles.color AS color,
			vehicles.year AS year,
			orders.sale_date AS sale_date,
			orders.final_price AS final_price,
			orders.status AS status,
			employees.first_name AS employee_first_name,
			employees.last_name AS employee_last_name`).
		Joins("JOIN vehicles ON vehicles.id = orders.vehicle_id").
		Joins("LEFT JOIN employees ON employees.id = orders.employee_id")
	if clientID != "" {
		q = q.Where("orders.client_id = ?", clientID)
	}

	var out []Summary
	if err := q.Order("orders.sale_date DESC").Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ListForClient(ctx context.Context, clientID string) ([]Summary, error) {
	return r.listSummaries(ctx, clientID)
}

func (r *Repo) ListAll(ctx context.Context) ([]Summary, error) {
	return r.listSummaries(ctx, "")
}
