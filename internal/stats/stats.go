package stats

import (
	"context"
	"fmt"

	"github.com/AutoDreams/AutoDreams/internal/credential"
	"github.com/AutoDreams/AutoDreams/internal/inventory"
	"github.com/AutoDreams/AutoDreams/internal/ledger"
	"gorm.io/gorm"
)

// Snapshot 展厅实时经营指标，一次查询窗口内的一致快照。
type Snapshot struct {
	TotalVehicles     int64 `json:"total_vehicles"`
	AvailableVehicles int64 `json:"available_vehicles"`
	SoldVehicles      int64 `json:"sold_vehicles"`
	TotalOrders       int64 `json:"total_orders"`
	TotalRevenue      int64 `json:"total_revenue"` // 单位：分
	TotalClients      int64 `json:"total_clients"`
}

// Service 聚合统计查询。
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Collect 在单个只读事务里取全部聚合，保证各计数相互一致。
func (s *Service) Collect(ctx context.Context) (*Snapshot, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	var snap Snapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&inventory.Vehicle{}).Count(&snap.TotalVehicles).Error; err != nil {
			return err
		}
		if err := tx.Model(&inventory.Vehicle{}).
			Where("status = ?", inventory.StatusAvailable).
			Count(&snap.AvailableVehicles).Error; err != nil {
			return err
		}
		if err := tx.Model(&inventory.Vehicle{}).
			Where("status = ?", inventory.StatusSold).
			Count(&snap.SoldVehicles).Error; err != nil {
			return err
		}
		if err := tx.Model(&ledger.Order{}).Count(&snap.TotalOrders).Error; err != nil {
			return err
		}
		// COALESCE：没有订单时 SUM 为 NULL
		if err := tx.Model(&ledger.Order{}).
			Select("COALESCE(SUM(final_price), 0)").
			Scan(&snap.TotalRevenue).Error; err != nil {
			return err
		}
		return tx.Model(&credential.Client{}).Count(&snap.TotalClients).Error
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
