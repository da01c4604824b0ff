package stats

import (
	"context"
	"testing"
	"time"

	"github.com/AutoDreams/AutoDreams/internal/common/db"
	"github.com/AutoDreams/AutoDreams/internal/credential"
	"github.com/AutoDreams/AutoDreams/internal/inventory"
	"github.com/AutoDreams/AutoDreams/internal/ledger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.NewSQLiteInMemory()
	if err != nil {
		t.Fatalf("NewSQLiteInMemory: %v", err)
	}
	err = gdb.AutoMigrate(&credential.Client{}, &inventory.Vehicle{}, &ledger.Order{})
	if err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return gdb
}

func TestCollectEmpty(t *testing.T) {
	svc := NewService(testDB(t))

	snap, err := svc.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if *snap != (Snapshot{}) {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}

func TestCollect(t *testing.T) {
	gdb := testDB(t)
	svc := NewService(gdb)

	for i, st := range []inventory.Status{
		inventory.StatusAvailable, inventory.StatusAvailable, inventory.StatusSold,
	} {
		v := &inventory.Vehicle{
			ID: uuid.NewString(), Brand: "Kia", Model: "Rio", Year: 2020 + i,
			VIN: "VIN" + uuid.NewString()[:14], Price: 100, Status: st,
		}
		if err := gdb.Create(v).Error; err != nil {
			t.Fatalf("create vehicle: %v", err)
		}
	}
	c := &credential.Client{ID: uuid.NewString(), FirstName: "Olga", UserID: uuid.NewString()}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	for _, price := range []int64{1_500_000_00, 2_000_000_00} {
		o := &ledger.Order{
			ID: uuid.NewString(), ClientID: c.ID, VehicleID: uuid.NewString(),
			EmployeeID: uuid.NewString(), SaleDate: time.Now(),
			FinalPrice: price, Status: ledger.StatusCompleted,
		}
		if err := gdb.Create(o).Error; err != nil {
			t.Fatalf("create order: %v", err)
		}
	}

	snap, err := svc.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := Snapshot{
		TotalVehicles: 3, AvailableVehicles: 2, SoldVehicles: 1,
		TotalOrders: 2, TotalRevenue: 3_500_000_00, TotalClients: 1,
	}
	if *snap != want {
		t.Fatalf("snapshot mismatch:\n got %+v\nwant %+v", snap, want)
	}
}
