package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// StoreError marks a failed submission write.
type StoreError struct {
	code string
	err  error
}

func (e *StoreError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *StoreError) Unwrap() error {
	return e.err
}

func (e *StoreError) Code() string {
	return e.code
}

const (
	opServiceNew     = "intake.service.new"
	opCreateContact  = "intake.create_contact"
	opCreateOrder    = "intake.create_order"
	opCreateDonation = "intake.create_donation"
)

func newStoreError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &StoreError{code: code, err: cause}
}

// IDProvider issues identifiers for new submission records.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies for the intake service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service appends contact, order and donation submissions. Submissions are
// write-only: nothing reads them back through this surface.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the intake service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newStoreError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newStoreError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// CreateContact validates and stores a contact submission, returning the
// stored record.
func (s *Service) CreateContact(ctx context.Context, request ContactRequest) (ContactSubmission, error) {
	fullName := strings.TrimSpace(request.FullName)
	email := strings.TrimSpace(request.Email)
	subject := strings.TrimSpace(request.Subject)
	message := strings.TrimSpace(request.Message)
	if fullName == "" || email == "" || subject == "" || message == "" {
		return ContactSubmission{}, ErrMissingContactField
	}

	contactID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateContact, "id_generation_failed", err)
		return ContactSubmission{}, newStoreError(opCreateContact, "id_generation_failed", err)
	}

	submission := ContactSubmission{
		ContactID:        contactID,
		FullName:         fullName,
		Email:            email,
		Subject:          subject,
		Message:          message,
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&submission).Error; err != nil {
		s.logError(opCreateContact, "insert_failed", err)
		return ContactSubmission{}, newStoreError(opCreateContact, "insert_failed", err)
	}
	return submission, nil
}

// CreateOrder validates and stores an order submission.
func (s *Service) CreateOrder(ctx context.Context, request OrderRequest) (OrderSubmission, error) {
	fullName := strings.TrimSpace(request.FullName)
	email := strings.TrimSpace(request.Email)
	phone := strings.TrimSpace(request.Phone)
	if fullName == "" || email == "" || phone == "" {
		return OrderSubmission{}, ErrMissingOrderField
	}
	services := make([]string, 0, len(request.Services))
	for _, service := range request.Services {
		if trimmed := strings.TrimSpace(service); trimmed != "" {
			services = append(services, trimmed)
		}
	}
	if len(services) == 0 {
		return OrderSubmission{}, ErrNoServicesSelected
	}

	orderID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateOrder, "id_generation_failed", err)
		return OrderSubmission{}, newStoreError(opCreateOrder, "id_generation_failed", err)
	}
	servicesJSON, err := json.Marshal(services)
	if err != nil {
		s.logError(opCreateOrder, "services_encode_failed", err)
		return OrderSubmission{}, newStoreError(opCreateOrder, "services_encode_failed", err)
	}

	submission := OrderSubmission{
		OrderID:            orderID,
		FullName:           fullName,
		Email:              email,
		Phone:              phone,
		BusinessName:       strings.TrimSpace(request.BusinessName),
		BusinessType:       strings.TrimSpace(request.BusinessType),
		ServicesJSON:       string(servicesJSON),
		ProjectDescription: strings.TrimSpace(request.ProjectDescription),
		TargetAudience:     strings.TrimSpace(request.TargetAudience),
		DesignStyle:        strings.TrimSpace(request.DesignStyle),
		Timeline:           strings.TrimSpace(request.Timeline),
		BudgetRange:        strings.TrimSpace(request.BudgetRange),
		AdditionalNotes:    strings.TrimSpace(request.AdditionalNotes),
		CreatedAtSeconds:   s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&submission).Error; err != nil {
		s.logError(opCreateOrder, "insert_failed", err)
		return OrderSubmission{}, newStoreError(opCreateOrder, "insert_failed", err)
	}
	return submission, nil
}

// CreateDonation validates and stores a donation submission.
func (s *Service) CreateDonation(ctx context.Context, request DonationRequest) (DonationSubmission, error) {
	fullName := strings.TrimSpace(request.FullName)
	email := strings.TrimSpace(request.Email)
	reason := strings.TrimSpace(request.Reason)
	if fullName == "" || email == "" || reason == "" {
		return DonationSubmission{}, ErrMissingDonationField
	}
	if request.Amount <= 0 {
		return DonationSubmission{}, ErrInvalidDonationAmount
	}

	donationID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateDonation, "id_generation_failed", err)
		return DonationSubmission{}, newStoreError(opCreateDonation, "id_generation_failed", err)
	}

	submission := DonationSubmission{
		DonationID:       donationID,
		FullName:         fullName,
		Email:            email,
		Amount:           request.Amount,
		Reason:           reason,
		Message:          strings.TrimSpace(request.Message),
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&submission).Error; err != nil {
		s.logError(opCreateDonation, "insert_failed", err)
		return DonationSubmission{}, newStoreError(opCreateDonation, "insert_failed", err)
	}
	return submission, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("intake service error", attrs...)
}
