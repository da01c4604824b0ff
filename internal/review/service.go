package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AutoDreams/AutoDreams/internal/ledger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 评价引用的订单不存在。
	ErrNotFound = errors.New("review: not found")
	// ErrForeignOrder 订单不属于发起评价的客户。
	ErrForeignOrder = errors.New("review: order belongs to another client")
	// ErrDuplicateReview 同一客户对同一订单重复评价。
	ErrDuplicateReview = errors.New("review: duplicate review for order")
	// ErrInvalidRating 评分不在 1..5。
	ErrInvalidRating = errors.New("review: rating out of range")
)

// Service 封装购车评价用例。
type Service struct {
	db   *gorm.DB
	repo *Repo
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, repo: NewRepo(db)}
}

// AddInput 发表评价入参。
type AddInput struct {
	ClientID string
	OrderID  string
	Rating   int
	Comment  string
}

// Add 客户对自己的订单发表评价。订单必须存在且归属该客户，
// 同一 (client, order) 只允许一条；评价时间取服务端时钟。
func (s *Service) Add(ctx context.Context, in AddInput) (*Review, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	clientID := strings.TrimSpace(in.ClientID)
	orderID := strings.TrimSpace(in.OrderID)
	if clientID == "" || orderID == "" {
		return nil, fmt.Errorf("client_id/order_id required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}

	rv := &Review{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		OrderID:    orderID,
		Rating:     in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
		ReviewDate: time.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := ledger.NewRepo(tx).GetByID(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		} else if err != nil {
			return err
		}
		if o.ClientID != clientID {
			return ErrForeignOrder
		}

		n, err := NewRepo(tx).CountByClientOrder(ctx, clientID, orderID)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateReview
		}
		if err := NewRepo(tx).Create(ctx, rv); err != nil {
			return mapDuplicate(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rv, nil
}

// ListForClient 客户自己的评价，按评价时间倒序。
func (s *Service) ListForClient(ctx context.Context, clientID string) ([]Entry, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, fmt.Errorf("client_id required")
	}
	return s.repo.ListForClient(ctx, clientID)
}

// ListAll 全量评价（员工视图）。
func (s *Service) ListAll(ctx context.Context) ([]Entry, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListAll(ctx)
}

// mapDuplicate 把复合唯一索引冲突翻译成领域错误（并发兜底）。
func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateReview
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
		return ErrDuplicateReview
	}
	return err
}
