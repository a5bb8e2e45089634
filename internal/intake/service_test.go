package intake

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type uuidProvider struct{}

func (uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "intake.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&ContactSubmission{}, &OrderSubmission{}, &DonationSubmission{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{Database: db, IDProvider: uuidProvider{}})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service, db
}

func TestCreateContactStoresSubmission(t *testing.T) {
	service, db := newTestService(t)

	stored, err := service.CreateContact(context.Background(), ContactRequest{
		FullName: "Asha Nansubuga",
		Email:    "asha@example.com",
		Subject:  "Inquiry",
		Message:  "Hello",
	})
	if err != nil {
		t.Fatalf("create contact failed: %v", err)
	}
	if stored.ContactID == "" {
		t.Fatalf("expected assigned contact id")
	}

	var count int64
	if err := db.Model(&ContactSubmission{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stored contact, got %d", count)
	}
}

func TestCreateContactRejectsMissingFields(t *testing.T) {
	service, db := newTestService(t)

	_, err := service.CreateContact(context.Background(), ContactRequest{
		FullName: "Asha",
		Email:    "asha@example.com",
		Subject:  "  ",
		Message:  "Hello",
	})
	if !errors.Is(err, ErrMissingContactField) {
		t.Fatalf("expected ErrMissingContactField, got %v", err)
	}

	var count int64
	if err := db.Model(&ContactSubmission{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("validation failure must not store a record, found %d", count)
	}
}

func TestCreateOrderRequiresServices(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.CreateOrder(context.Background(), OrderRequest{
		FullName: "Asha",
		Email:    "asha@example.com",
		Phone:    "+256791756647",
		Services: []string{"  "},
	})
	if !errors.Is(err, ErrNoServicesSelected) {
		t.Fatalf("expected ErrNoServicesSelected, got %v", err)
	}
}

func TestCreateOrderStoresServicesAsJSON(t *testing.T) {
	service, db := newTestService(t)

	stored, err := service.CreateOrder(context.Background(), OrderRequest{
		FullName:     "Asha",
		Email:        "asha@example.com",
		Phone:        "+256791756647",
		BusinessName: "Asha Crafts",
		Services:     []string{"web-design", "seo"},
		Timeline:     "1-month",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	var persisted OrderSubmission
	if err := db.Where("order_id = ?", stored.OrderID).First(&persisted).Error; err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	var services []string
	if err := json.Unmarshal([]byte(persisted.ServicesJSON), &services); err != nil {
		t.Fatalf("services column does not decode: %v", err)
	}
	if len(services) != 2 || services[0] != "web-design" || services[1] != "seo" {
		t.Fatalf("unexpected services: %v", services)
	}
}

func TestCreateOrderRequiresCoreFields(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.CreateOrder(context.Background(), OrderRequest{
		FullName: "Asha",
		Email:    "asha@example.com",
		Services: []string{"web-design"},
	})
	if !errors.Is(err, ErrMissingOrderField) {
		t.Fatalf("expected ErrMissingOrderField without phone, got %v", err)
	}
}

func TestCreateDonationValidatesAmount(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateDonation(ctx, DonationRequest{
		FullName: "Asha",
		Email:    "asha@example.com",
		Amount:   0,
		Reason:   "support",
	})
	if !errors.Is(err, ErrInvalidDonationAmount) {
		t.Fatalf("expected ErrInvalidDonationAmount, got %v", err)
	}

	stored, err := service.CreateDonation(ctx, DonationRequest{
		FullName: "Asha",
		Email:    "asha@example.com",
		Amount:   5000,
		Reason:   "support",
		Message:  "keep building",
	})
	if err != nil {
		t.Fatalf("create donation failed: %v", err)
	}
	if stored.Amount != 5000 {
		t.Fatalf("unexpected stored amount: %d", stored.Amount)
	}
}

func TestCreateDonationRequiresReason(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.CreateDonation(context.Background(), DonationRequest{
		FullName: "Asha",
		Email:    "asha@example.com",
		Amount:   100,
	})
	if !errors.Is(err, ErrMissingDonationField) {
		t.Fatalf("expected ErrMissingDonationField, got %v", err)
	}
}
