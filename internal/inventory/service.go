package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 车辆不存在。
	ErrNotFound = errors.New("inventory: vehicle not found")
	// ErrDuplicateVIN VIN 已存在。
	ErrDuplicateVIN = errors.New("inventory: vin already exists")
	// ErrInvalidVIN VIN 为空、超长或含空白。
	ErrInvalidVIN = errors.New("inventory: invalid vin")
	// ErrInvalidVehicle 字段不合法（价格/里程为负等）。
	ErrInvalidVehicle = errors.New("inventory: invalid vehicle fields")
	// ErrVehicleOrdered 车辆已被订单引用，禁止硬删除。
	ErrVehicleOrdered = errors.New("inventory: vehicle referenced by orders")
)

// Service 封装库存域的核心用例。
type Service struct {
	db   *gorm.DB
	repo *Repo
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, repo: NewRepo(db)}
}

// Filter 列表过滤条件。
type Filter struct {
	OnlyAvailable bool
}

// AddInput 新增车辆入参。
type AddInput struct {
	Brand   string
	Model   string
	Year    int
	VIN     string
	Color   string
	Price   int64
	Mileage int
}

// UpdateInput 编辑车辆入参（整行覆盖可编辑字段，状态不在其列）。
type UpdateInput struct {
	Brand   string
	Model   string
	Year    int
	VIN     string
	Color   string
	Price   int64
	Mileage int
}

func (s *Service) List(ctx context.Context, f Filter) ([]Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.List(ctx, f.OnlyAvailable)
}

func (s *Service) Get(ctx context.Context, id string) (*Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	v, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Add 新增车辆，初始状态为在售。
func (s *Service) Add(ctx context.Context, in AddInput) (*Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	v := &Vehicle{
		ID:      uuid.NewString(),
		Brand:   strings.TrimSpace(in.Brand),
		Model:   strings.TrimSpace(in.Model),
		Year:    in.Year,
		VIN:     strings.TrimSpace(in.VIN),
		Color:   strings.TrimSpace(in.Color),
		Price:   in.Price,
		Status:  StatusAvailable,
		Mileage: in.Mileage,
	}
	if err := validateVehicle(v); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)
		n, err := repo.CountByVIN(ctx, v.VIN)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateVIN
		}
		return repo.Create(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Update 整行覆盖可编辑字段；状态只能经由下单流转，这里不动。
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)

		v, err := repo.FindByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		newVIN := strings.TrimSpace(in.VIN)
		if newVIN != v.VIN {
			n, err := repo.CountByVIN(ctx, newVIN)
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrDuplicateVIN
			}
		}

		v.Brand = strings.TrimSpace(in.Brand)
		v.Model = strings.TrimSpace(in.Model)
		v.Year = in.Year
		v.VIN = newVIN
		v.Color = strings.TrimSpace(in.Color)
		v.Price = in.Price
		v.Mileage = in.Mileage
		if err := validateVehicle(v); err != nil {
			return err
		}
		return repo.Save(ctx, v)
	})
}

// Delete 硬删除车辆。已被订单引用的车辆拒绝删除，保证台账外键有意义。
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)

		if _, err := repo.FindByID(ctx, id); errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}

		n, err := repo.CountOrdersForVehicle(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrVehicleOrdered
		}
		return repo.Delete(ctx, id)
	})
}

// BulkAdd 批量入库 quantity 台同品牌/型号车辆，VIN 自动合成。
// 合成 VIN 撞号的行跳过不计入，返回实际插入数；只有撞号不算失败。
func (s *Service) BulkAdd(ctx context.Context, brand, model string, quantity int) (int, error) {
	if s == nil || s.repo == nil {
		return 0, fmt.Errorf("service not initialized")
	}
	brand = strings.TrimSpace(brand)
	model = strings.TrimSpace(model)
	if brand == "" || model == "" {
		return 0, ErrInvalidVehicle
	}
	if quantity <= 0 {
		return 0, nil
	}

	inserted := 0
	for i := 0; i < quantity; i++ {
		v := &Vehicle{
			ID:     uuid.NewString(),
			Brand:  brand,
			Model:  model,
			Year:   time.Now().Year(),
			VIN:    SynthesizeVIN(brand, model, time.Now()),
			Status: StatusAvailable,
		}

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := NewRepo(tx)
			n, err := repo.CountByVIN(ctx, v.VIN)
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrDuplicateVIN
			}
			return repo.Create(ctx, v)
		})
		if errors.Is(err, ErrDuplicateVIN) {
			continue // 撞号跳过
		}
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func validateVehicle(v *Vehicle) error {
	if v.Brand == "" || v.Model == "" {
		return ErrInvalidVehicle
	}
	if v.Price < 0 || v.Mileage < 0 {
		return ErrInvalidVehicle
	}
	if !ValidVIN(v.VIN) {
		return ErrInvalidVIN
	}
	return nil
}
