package push

import (
	"context"
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

const (
	opServiceNew  = "push.service.new"
	opSubscribe   = "push.subscribe"
	opUnsubscribe = "push.unsubscribe"
	opList        = "push.list"
)

// StoreError marks a failed subscription store operation.
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

func newStoreError(operation, reason string, cause error) error {
	return &StoreError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// IDProvider issues identifiers for new subscription records.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies for the subscription store.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service stores web-push subscriptions keyed by endpoint.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the subscription store.
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
	return &Service{db: cfg.Database, clock: clock, idProvider: cfg.IDProvider, logger: logger}, nil
}

// Subscribe stores the subscription, replacing any previous record for the
// same endpoint (a browser re-subscribing rotates its keys).
func (s *Service) Subscribe(ctx context.Context, request SubscribeRequest) (Subscription, error) {
	endpoint := strings.TrimSpace(request.Endpoint)
	if endpoint == "" {
		return Subscription{}, ErrMissingEndpoint
	}
	p256dh := strings.TrimSpace(request.Keys.P256dh)
	auth := strings.TrimSpace(request.Keys.Auth)
	if p256dh == "" || auth == "" {
		return Subscription{}, ErrMissingKeys
	}

	subscriptionID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSubscribe, "id_generation_failed", err)
		return Subscription{}, newStoreError(opSubscribe, "id_generation_failed", err)
	}

	subscription := Subscription{
		SubscriptionID:   subscriptionID,
		Endpoint:         endpoint,
		P256dhKey:        p256dh,
		AuthKey:          auth,
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("endpoint = ?", endpoint).Delete(&Subscription{}).Error; err != nil {
			return err
		}
		return tx.Create(&subscription).Error
	})
	if txErr != nil {
		s.logError(opSubscribe, "insert_failed", txErr)
		return Subscription{}, newStoreError(opSubscribe, "insert_failed", txErr)
	}
	return subscription, nil
}

// Unsubscribe removes the subscription for the endpoint, if any.
func (s *Service) Unsubscribe(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ErrMissingEndpoint
	}
	if err := s.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&Subscription{}).Error; err != nil {
		s.logError(opUnsubscribe, "delete_failed", err)
		return newStoreError(opUnsubscribe, "delete_failed", err)
	}
	return nil
}

// List returns every stored subscription.
func (s *Service) List(ctx context.Context) ([]Subscription, error) {
	var subscriptions []Subscription
	if err := s.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, newStoreError(opList, "query_failed", err)
	}
	return subscriptions, nil
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
	s.logger.Error("push service error", attrs...)
}
