package inventory

import (
	"time"
)

// Status 车辆状态枚举（持久化为字符串）。
type Status string

const (
	StatusAvailable Status = "available" // 在售
	StatusSold      Status = "sold"      // 已售出
)

// 车辆状态机只有一条单向边：available --下单--> sold。
// 流转本身在订单事务里用条件更新完成（见 ledger 包），这里只定义状态值。

// Vehicle 是 vehicles 表的 GORM 模型。
type Vehicle struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Brand     string    `gorm:"size:100;not null;index:idx_brand_model"`
	Model     string    `gorm:"size:100;not null;index:idx_brand_model"`
	Year      int       `gorm:"not null"`
	VIN       string    `gorm:"uniqueIndex;size:17;not null"`
	Color     string    `gorm:"size:50"`
	Price     int64     `gorm:"not null"` // 单位：分，非负
	Status    Status    `gorm:"type:varchar(16);index;not null"`
	Mileage   int       `gorm:"not null;default:0"` // 公里，非负
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
