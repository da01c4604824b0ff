package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 用户/客户不存在。
	ErrNotFound = errors.New("credential: not found")
	// ErrDuplicateIdentity username 或 email 已被占用。
	ErrDuplicateIdentity = errors.New("credential: username or email already taken")
	// ErrInvalidCredentials 登录名或密码不正确。
	ErrInvalidCredentials = errors.New("credential: invalid login or password")
)

// Service 封装账号域的核心用例（注册、登录、客户档案）。
type Service struct {
	db   *gorm.DB
	repo *Repo
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, repo: NewRepo(db)}
}

// RegisterInput 注册入参。
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register 注册新用户，并同时建立购车档案。
// users 与 clients 两条插入在同一事务里提交，任一失败整体回滚。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("username/email/password required")
	}

	salt, err := GenerateSaltHex()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password, salt)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
		Role:         RoleClient,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)

		// 事务内复查占用，配合唯一索引双保险
		n, err := repo.CountUsersByIdentity(ctx, username, email)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateIdentity
		}

		if err := repo.CreateUser(ctx, u); err != nil {
			return mapDuplicate(err)
		}
		return repo.CreateClient(ctx, &Client{
			ID:        uuid.NewString(),
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Phone:     "",
			Email:     u.Email,
			UserID:    u.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate 按 username 或 email 查找用户并校验密码。
// 未知登录名与密码错误统一返回 ErrInvalidCredentials，不向调用方泄露区别。
func (s *Service) Authenticate(ctx context.Context, login, password string) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.FindUserByLogin(ctx, login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(password, u.PasswordSalt, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetUser 按 ID 查找用户。
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	u, err := s.repo.FindUserByID(ctx, strings.TrimSpace(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetOrCreateClient 按 user_id 取购车档案，不存在则从账号信息补建。
// get-or-create：同一 User 反复调用必须返回同一个 Client。
func (s *Service) GetOrCreateClient(ctx context.Context, userID string) (*Client, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user_id required")
	}

	var out *Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)

		c, err := repo.FindClientByUserID(ctx, userID)
		if err == nil {
			out = c
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		u, err := repo.FindUserByID(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		c = &Client{
			ID:        uuid.NewString(),
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			UserID:    u.ID,
		}
		if err := repo.CreateClient(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureEmployee 返回一个可用于订单归属的员工 ID。
// 取最早创建的员工；员工表为空时补建一个占位员工，而不是臆造 ID。
func (s *Service) EnsureEmployee(ctx context.Context) (string, error) {
	if s == nil || s.repo == nil {
		return "", fmt.Errorf("service not initialized")
	}

	e, err := s.repo.FirstEmployee(ctx)
	if err == nil {
		return e.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	placeholder := &Employee{
		ID:        uuid.NewString(),
		FirstName: "Showroom",
		LastName:  "Desk",
		Position:  "sales",
	}
	if err := s.repo.CreateEmployee(ctx, placeholder); err != nil {
		return "", err
	}
	return placeholder.ID, nil
}

// mapDuplicate 把底层唯一约束冲突翻译成领域错误。
func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateIdentity
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
		return ErrDuplicateIdentity
	}
	return err
}
