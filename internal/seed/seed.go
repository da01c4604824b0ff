package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/AutoDreams/AutoDreams/internal/credential"
	"github.com/AutoDreams/AutoDreams/internal/inventory"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// demoUser 启动期写入的演示账号。
type demoUser struct {
	username  string
	email     string
	password  string
	role      string
	firstName string
	lastName  string
}

var demoUsers = []demoUser{
	{"admin", "admin@autodreams.local", "admin", credential.RoleEmployee, "Админ", "Системы"},
	{"client1", "client1@autodreams.local", "123", credential.RoleClient, "Иван", "Петров"},
	{"client2", "client2@autodreams.local", "123", credential.RoleClient, "Мария", "Сидорова"},
}

var demoVehicles = []inventory.Vehicle{
	{Brand: "Toyota", Model: "Camry", Year: 2023, Color: "White", Price: 3_300_000_00, Mileage: 0},
	{Brand: "BMW", Model: "X5", Year: 2022, Color: "Black", Price: 8_900_000_00, Mileage: 12_000},
	{Brand: "Mercedes", Model: "E-Class", Year: 2023, Color: "Silver", Price: 7_400_000_00, Mileage: 0},
	{Brand: "Hyundai", Model: "Tucson", Year: 2024, Color: "Blue", Price: 3_100_000_00, Mileage: 0},
	{Brand: "Kia", Model: "Sportage", Year: 2023, Color: "Red", Price: 2_900_000_00, Mileage: 5_500},
}

// Run 写入演示数据：管理员、两个演示客户、若干展厅车辆。
// 可重复执行：已存在的账号/非空车库一律跳过。
func Run(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("seed: db is nil")
	}
	if err := seedUsers(ctx, db); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if err := seedVehicles(ctx, db); err != nil {
		return fmt.Errorf("seed vehicles: %w", err)
	}
	return nil
}

func seedUsers(ctx context.Context, db *gorm.DB) error {
	repo := credential.NewRepo(db)
	for _, du := range demoUsers {
		n, err := repo.CountUsersByIdentity(ctx, du.username, du.email)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}

		salt, err := credential.GenerateSaltHex()
		if err != nil {
			return err
		}
		hash, err := credential.HashPassword(du.password, salt)
		if err != nil {
			return err
		}
		u := &credential.User{
			ID:           uuid.NewString(),
			Username:     du.username,
			Email:        du.email,
			PasswordHash: hash,
			PasswordSalt: salt,
			Role:         du.role,
			FirstName:    du.firstName,
			LastName:     du.lastName,
		}
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txRepo := credential.NewRepo(tx)
			if err := txRepo.CreateUser(ctx, u); err != nil {
				return err
			}
			switch du.role {
			case credential.RoleEmployee:
				return txRepo.CreateEmployee(ctx, &credential.Employee{
					ID:        uuid.NewString(),
					FirstName: du.firstName,
					LastName:  du.lastName,
					Position:  "manager",
					Email:     du.email,
					UserID:    u.ID,
				})
			default:
				return txRepo.CreateClient(ctx, &credential.Client{
					ID:        uuid.NewString(),
					FirstName: du.firstName,
					LastName:  du.lastName,
					Email:     du.email,
					UserID:    u.ID,
				})
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func seedVehicles(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Model(&inventory.Vehicle{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	repo := inventory.NewRepo(db)
	for _, v := range demoVehicles {
		v.ID = uuid.NewString()
		v.VIN = inventory.SynthesizeVIN(v.Brand, v.Model, time.Now())
		v.Status = inventory.StatusAvailable
		if err := repo.Create(ctx, &v); err != nil {
			return err
		}
	}
	return nil
}
