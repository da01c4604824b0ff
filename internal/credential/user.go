package credential

import (
	"time"
)

// 角色常量（持久化为字符串）
const (
	RoleClient   = "client"   // 购车客户
	RoleEmployee = "employee" // 门店员工
)

// User 是 users 表的 GORM 模型（登录账号）。
type User struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Username     string    `gorm:"uniqueIndex;size:100;not null"`
	Email        string    `gorm:"uniqueIndex;size:200;not null"`
	PasswordHash string    `gorm:"size:128;not null"`
	PasswordSalt string    `gorm:"size:64;not null"`
	Role         string    `gorm:"size:50;not null;default:'client'"` // client / employee
	FirstName    string    `gorm:"size:100"`
	LastName     string    `gorm:"size:100"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Client 是 clients 表的 GORM 模型（购车档案，区别于登录账号）。
// 约束：一个 User 至多对应一个 Client（user_id 唯一）。
type Client struct {
	ID        string    `gorm:"primaryKey;size:36"`
	FirstName string    `gorm:"size:100"`
	LastName  string    `gorm:"size:100"`
	Phone     string    `gorm:"size:50"`
	Email     string    `gorm:"size:200"`
	UserID    string    `gorm:"uniqueIndex;size:36;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Employee 是 employees 表的 GORM 模型（订单归属的销售）。
type Employee struct {
	ID        string    `gorm:"primaryKey;size:36"`
	FirstName string    `gorm:"size:100"`
	LastName  string    `gorm:"size:100"`
	Position  string    `gorm:"size:100"`
	Phone     string    `gorm:"size:50"`
	Email     string    `gorm:"size:200"`
	UserID    string    `gorm:"index;size:36"` // 可为空：占位员工没有登录账号
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// FullName 展示用姓名。
func (e Employee) FullName() string {
	if e.FirstName == "" {
		return e.LastName
	}
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}
