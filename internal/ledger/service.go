package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AutoDreams/AutoDreams/internal/common/metrics"
	"github.com/AutoDreams/AutoDreams/internal/credential"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 订单或其引用的客户/车辆/员工不存在。
	ErrNotFound = errors.New("ledger: not found")
	// ErrVehicleUnavailable 车辆不在售（已被卖掉或并发下单时落败）。
	ErrVehicleUnavailable = errors.New("ledger: vehicle unavailable")
	// ErrInvalidPrice 成交价为负。
	ErrInvalidPrice = errors.New("ledger: invalid final price")
)

// Service 封装成交台账的核心用例。
type Service struct {
	db   *gorm.DB
	repo *Repo
	cred *credential.Service
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, repo: NewRepo(db), cred: credential.NewService(db)}
}

// PlaceOrderInput 下单入参。
type PlaceOrderInput struct {
	ClientID   string
	VehicleID  string
	EmployeeID string
	FinalPrice int64
}

// PlaceOrder 核心成交操作。一个事务内：
//  1. 条件更新把车辆 available -> sold（0 行受影响即失败）
//  2. 插入订单行
//
// 两个写要么都提交要么都回滚；并发抢同一辆车时恰好一个调用成功，
// 其余拿到 ErrVehicleUnavailable。
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	clientID := strings.TrimSpace(in.ClientID)
	vehicleID := strings.TrimSpace(in.VehicleID)
	employeeID := strings.TrimSpace(in.EmployeeID)
	if clientID == "" || vehicleID == "" || employeeID == "" {
		return nil, fmt.Errorf("client_id/vehicle_id/employee_id required")
	}
	if in.FinalPrice < 0 {
		return nil, ErrInvalidPrice
	}

	o := &Order{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		VehicleID:  vehicleID,
		EmployeeID: employeeID,
		SaleDate:   time.Now(),
		FinalPrice: in.FinalPrice,
		Status:     StatusCompleted,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)
		credRepo := credential.NewRepo(tx)

		if _, err := credRepo.FindClientByID(ctx, clientID); errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("client %s: %w", clientID, ErrNotFound)
		} else if err != nil {
			return err
		}

		affected, err := repo.MarkVehicleSold(ctx, vehicleID)
		if err != nil {
			return err
		}
		if affected == 0 {
			// 区分“没有这辆车”与“车已卖掉”
			var n int64
			if err := tx.Table("vehicles").Where("id = ?", vehicleID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
			}
			return ErrVehicleUnavailable
		}

		return repo.Create(ctx, o)
	})
	if err != nil {
		if errors.Is(err, ErrVehicleUnavailable) {
			metrics.VehiclesSoldOut.Inc()
		}
		return nil, err
	}

	metrics.OrdersPlaced.Inc()
	return o, nil
}

// ListForClient 客户自己的订单，按成交时间倒序。
func (s *Service) ListForClient(ctx context.Context, clientID string) ([]Summary, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, fmt.Errorf("client_id required")
	}
	return s.repo.ListForClient(ctx, clientID)
}

// ListAll 全量订单（员工视图）。
func (s *Service) ListAll(ctx context.Context) ([]Summary, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListAll(ctx)
}

// ResolveEmployee 返回订单归属的员工 ID；员工表为空时补建占位员工。
func (s *Service) ResolveEmployee(ctx context.Context) (string, error) {
	if s == nil || s.cred == nil {
		return "", fmt.Errorf("service not initialized")
	}
	return s.cred.EnsureEmployee(ctx)
}
