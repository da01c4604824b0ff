package ledger

import "time"

// 订单一经写入即为终态：本系统没有退车/撤单，车辆状态也没有反向流转。
const StatusCompleted = "completed"

// Order 是 orders 表的 GORM 模型（成交台账，追加为主，写入后不再修改）。
type Order struct {
	ID         string    `gorm:"primaryKey;size:36"`
	ClientID   string    `gorm:"index;size:36;not null"`
	VehicleID  string    `gorm:"index;size:36;not null"`
	EmployeeID string    `gorm:"index;size:36;not null"`
	SaleDate   time.Time `gorm:"not null"` // 服务端成交时间
	FinalPrice int64     `gorm:"not null"` // 单位：分
	Status     string    `gorm:"size:16;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Summary 订单展示行：订单 + 车辆 + 销售（供列表页直接渲染）。
type Summary struct {
	OrderID           string    `gorm:"column:order_id"`
	ClientID          string    `gorm:"column:client_id"`
	VehicleID         string    `gorm:"column:vehicle_id"`
	Brand             string    `gorm:"column:brand"`
	Model             string    `gorm:"column:model"`
	VIN               string    `gorm:"column:vin"`
	Color             string    `gorm:"column:color"`
	Year              int       `gorm:"column:year"`
	SaleDate          time.Time `gorm:"column:sale_date"`
	FinalPrice        int64     `gorm:"column:final_price"`
	Status            string    `gorm:"column:status"`
	EmployeeFirstName string    `gorm:"column:employee_first_name"`
	EmployeeLastName  string    `gorm:"column:employee_last_name"`
}

// EmployeeName 展示用销售姓名。
func (s Summary) EmployeeName() string {
	switch {
	case s.EmployeeFirstName == "":
		return s.EmployeeLastName
	case s.EmployeeLastName == "":
		return s.EmployeeFirstName
	default:
		return s.EmployeeFirstName + " " + s.EmployeeLastName
	}
}
