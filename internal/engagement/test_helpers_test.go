package engagement

import (
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "engagement.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Rating{}, &Love{}, &Review{}, &ViewCounter{}, &VisitCounter{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, clock func() time.Time) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func mustAppID(t *testing.T, value string) AppID {
	t.Helper()
	id, err := NewAppID(value)
	if err != nil {
		t.Fatalf("unexpected app id error: %v", err)
	}
	return id
}

func mustDeviceID(t *testing.T, value string) DeviceID {
	t.Helper()
	id, err := NewDeviceID(value)
	if err != nil {
		t.Fatalf("unexpected device id error: %v", err)
	}
	return id
}

func mustRatingValue(t *testing.T, value int) RatingValue {
	t.Helper()
	rating, err := NewRatingValue(value)
	if err != nil {
		t.Fatalf("unexpected rating value error: %v", err)
	}
	return rating
}
