package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/AutoDreams/AutoDreams/internal/common/db"
	"github.com/AutoDreams/AutoDreams/internal/credential"
	"github.com/AutoDreams/AutoDreams/internal/inventory"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.NewSQLiteInMemory()
	if err != nil {
		t.Fatalf("NewSQLiteInMemory: %v", err)
	}
	err = gdb.AutoMigrate(
		&credential.User{}, &credential.Client{}, &credential.Employee{},
		&inventory.Vehicle{}, &Order{},
	)
	if err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return gdb
}

type fixture struct {
	clientID   string
	employeeID string
	vehicleID  string
}

func seedFixture(t *testing.T, gdb *gorm.DB) fixture {
	t.Helper()
	c := &credential.Client{ID: uuid.NewString(), FirstName: "Ivan", LastName: "Petrov", UserID: uuid.NewString()}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	e := &credential.Employee{ID: uuid.NewString(), FirstName: "Sales", LastName: "Rep", Position: "sales"}
	if err := gdb.Create(e).Error; err != nil {
		t.Fatalf("create employee: %v", err)
	}
	v := &inventory.Vehicle{
		ID: uuid.NewString(), Brand: "Toyota", Model: "Camry", Year: 2023,
		VIN: "JTNBE46KX83012345", Price: 3_300_000_00, Status: inventory.StatusAvailable,
	}
	if err := gdb.Create(v).Error; err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return fixture{clientID: c.ID, employeeID: e.ID, vehicleID: v.ID}
}

func TestPlaceOrderMarksVehicleSold(t *testing.T) {
	gdb := testDB(t)
	svc := NewService(gdb)
	ctx := context.Background()
	fx := seedFixture(t, gdb)

	o, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		ClientID: fx.clientID, VehicleID: fx.vehicleID,
		EmployeeID: fx.employeeID, FinalPrice: 3_300_000_00,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if o.Status != StatusCompleted {
		t.Fatalf("expected status completed, got %s", o.Status)
	}

	var v inventory.Vehicle
	if err := gdb.Where("id = ?", fx.vehicleID).First(&v).Error; err != nil {
		t.Fatalf("load vehicle: %v", err)
	}
	if v.Status != inventory.StatusSold {
		t.Fatalf("expected vehicle sold, got %s", v.Status)
	}
}

func TestPlaceOrderRejectsSoldVehicle(t *testing.T) {
	gdb := testDB(t)
	svc := NewService(gdb)
	ctx := context.Background()
	fx := seedFixture(t, gdb)

	in := PlaceOrderInput{
		ClientID: fx.clientID, VehicleID: fx.vehicleID,
		EmployeeID: fx.employeeID, FinalPrice: 3_300_000_00,
	}
	if _, err := svc.PlaceOrder(ctx, in); err != nil {
		t.Fatalf("first PlaceOrder: %v", err)
	}
	if _, err := svc.PlaceOrder(ctx, in); !errors.Is(err, ErrVehicleUnavailable) {
		t.Fatalf("expected ErrVehicleUnavailable, got %v", err)
	}

	var n int64
	if err := gdb.Model(&Order{}).Where("vehicle_id = ?", fx.vehicleID).Count(&n).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one order, got %d", n)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	gdb := testDB(t)
	svc := NewService(gdb)
	ctx := context.Background()
	fx := seedFixture(t, gdb)

	if _, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		ClientID: fx.clientID, VehicleID: "no-such-vehicle",
		EmployeeID: fx.employeeID, FinalPrice: 100,
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing vehicle, got %v", err)
	}

	if _, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		ClientID: "no-such-client", VehicleID: fx.vehicleID,
		EmployeeID: fx.employeeID, FinalPrice: 100,
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing client, got %v", err)
	}

	if _, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		ClientID: fx.clientID, VehicleID: fx.vehicleID,
		EmployeeID: fx.employeeID, FinalPrice: -1,
	}); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}

	// 失败的下单不得留下订单行，车辆保持在售
	var n int64
	if err := gdb.Model(&Order{}).Count(&n).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no orders, got %d", n)
	}
	var v inventory.Vehicle
	if err := gdb.Where("id = ?", fx.vehicleID).First(&v).Error; err != nil {
		t.Fatalf("load vehicle: %v", err)
	}
	if v.Status != inventory.StatusAvailable {
		t.Fatalf("expected vehicle still available, got %s", v.Status)
	}
}

// 并发抢购同一辆车：恰好一个成功，其余 ErrVehicleUnavailable。
// 测试库只开一个连接，事务天然串行，结果是确定性的。
func TestPlaceOrderConcurrentSingleWinner(t *testing.T) {
	gdb := testDB(t)
	svc := NewService(gdb)
	ctx := context.Background()
	fx := seedFixture(t, gdb)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PlaceOrder(ctx, PlaceOrderInput{
				ClientID: fx.clientID, VehicleID: fx.vehicleID,
				EmployeeID: fx.employeeID, FinalPrice: 3_300_000_00,
			})
		}(i)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrVehicleUnavailable):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != workers-1 {
		t.Fatalf("expected 1 winner and %d losers, got %d/%d", workers-1, wins, losses)
	}

	var n int64
	if err := gdb.Model(&Order{}).Where("vehicle_id = ?", fx.vehicleID).Count(&n).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one order for the vehicle, got %d", n)
	}
	var v inventory.Vehicle
	if err := gdb.Where("id = ?", fx.vehicleID).First(&v).Error; err != nil {
		t.Fatalf("load vehicle: %v", err)
	}
	if v.Status != inventory.StatusSold {
		t.Fatalf("expected vehicle sold, got %s", v.Status)
	}
}

func TestListForClientAndListAll(t *testing.T) {
	gdb := testDB(t)
	svc := NewService(gdb)
	ctx := context.Background()
	fx := seedFixture(t, gdb)

	other := &credential.Client{ID: uuid.NewString(), FirstName: "Maria", UserID: uuid.NewString()}
	if err := gdb.Create(other).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	v2 := &inventory.Vehicle{
		ID: uuid.NewString(), Brand: "Kia", Model: "Sportage", Year: 2022,
		VIN: "VIN00000000000002", Price: 2_000_000_00, Status: inventory.StatusAvailable,
	}
	if err := gdb.Create(v2).Error; err != nil {
		t.Fatalf("create vehicle: %v", err)
	}

	if _, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		ClientID: fx.clientID, VehicleID: fx.vehicleID,
		EmployeeID: fx.employeeID, FinalPrice: 3_300_000_00,
	}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if _, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		ClientID: other.ID, VehicleID: v2.ID,
		EmployeeID: fx.employeeID, FinalPrice: 1_900_000_00,
	}); err != nil {
		t.Fatalf("PlaceOrder second: %v", err)
	}

	mine, err := svc.ListForClient(ctx, fx.clientID)
	if err != nil {
		t.Fatalf("ListForClient: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 order for client, got %d", len(mine))
	}
	if mine[0].Brand != "Toyota" || mine[0].Model != "Camry" {
		t.Fatalf("expected joined vehicle fields, got %+v", mine[0])
	}
	if mine[0].EmployeeName() != "Sales Rep" {
		t.Fatalf("expected joined employee name, got %q", mine[0].EmployeeName())
	}

	all, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}
}

func TestResolveEmployee(t *testing.T) {
	gdb := testDB(t)
	svc := NewService(gdb)
	ctx := context.Background()

	// 员工表为空：补建占位员工
	id, err := svc.ResolveEmployee(ctx)
	if err != nil {
		t.Fatalf("ResolveEmployee: %v", err)
	}
	var e credential.Employee
	if err := gdb.Where("id = ?", id).First(&e).Error; err != nil {
		t.Fatalf("expected placeholder employee row: %v", err)
	}
}
