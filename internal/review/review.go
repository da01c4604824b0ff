package review

import "time"

// Review 是 reviews 表的 GORM 模型。一个客户对同一笔订单只能评价一次
// （client_id + order_id 复合唯一索引兜底）。
type Review struct {
	ID         string    `gorm:"primaryKey;size:36"`
	ClientID   string    `gorm:"size:36;not null;uniqueIndex:idx_client_order"`
	OrderID    string    `gorm:"size:36;not null;uniqueIndex:idx_client_order"`
	Rating     int       `gorm:"not null"` // 1..5
	Comment    string    `gorm:"type:text"`
	ReviewDate time.Time `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Entry 评价展示行：评价 + 所购车辆（供列表页直接渲染）。
type Entry struct {
	ReviewID   string    `gorm:"column:review_id"`
	ClientID   string    `gorm:"column:client_id"`
	OrderID    string    `gorm:"column:order_id"`
	Brand      string    `gorm:"column:brand"`
	Model      string    `gorm:"column:model"`
	Rating     int       `gorm:"column:rating"`
	Comment    string    `gorm:"column:comment"`
	ReviewDate time.Time `gorm:"column:review_date"`
}
