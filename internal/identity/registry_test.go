package identity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openRegistryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "identity.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Device{}); err != nil {
		t.Fatalf("failed to migrate device schema: %v", err)
	}
	return db
}

func TestTouchCreatesThenRefreshesDevice(t *testing.T) {
	db := openRegistryDB(t)
	current := time.Unix(1700000000, 0)
	registry, err := NewRegistry(RegistryConfig{
		Database: db,
		Clock:    func() time.Time { return current },
	})
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}

	if err := registry.Touch(context.Background(), "abc123"); err != nil {
		t.Fatalf("first touch failed: %v", err)
	}
	current = current.Add(90 * time.Second)
	if err := registry.Touch(context.Background(), "abc123"); err != nil {
		t.Fatalf("second touch failed: %v", err)
	}

	var device Device
	if err := db.Where("device_id = ?", "abc123").First(&device).Error; err != nil {
		t.Fatalf("device lookup failed: %v", err)
	}
	if device.FirstSeenAt != 1700000000 {
		t.Fatalf("expected first_seen_s to keep creation time, got %d", device.FirstSeenAt)
	}
	if device.LastSeenAt != 1700000090 {
		t.Fatalf("expected last_seen_s to advance, got %d", device.LastSeenAt)
	}

	total, err := registry.Count(context.Background())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected a single device row, got %d", total)
	}
}

func TestTouchRejectsEmptyDeviceID(t *testing.T) {
	registry, err := NewRegistry(RegistryConfig{Database: openRegistryDB(t)})
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	if err := registry.Touch(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty device id")
	}
}
