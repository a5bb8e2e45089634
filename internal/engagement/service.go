package engagement

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

// StoreError marks a failed store operation. No partial mutation remains
// behind one: every multi-step write runs inside a transaction.
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
	opServiceNew     = "engagement.service.new"
	opCreateRating   = "engagement.create_rating"
	opAverageRating  = "engagement.average_rating"
	opRatingCount    = "engagement.rating_count"
	opToggleLove     = "engagement.toggle_love"
	opLoveCount      = "engagement.love_count"
	opHasLoved       = "engagement.has_loved"
	opCreateReview   = "engagement.create_review"
	opListReviews    = "engagement.list_reviews"
	opIncrementView  = "engagement.increment_view"
	opIncrementVisit = "engagement.increment_visit"
	opVisits         = "engagement.visits"
	opSummary        = "engagement.summary"
)

func newStoreError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &StoreError{code: code, err: cause}
}

// IDProvider issues identifiers for new append-only records.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies for the engagement service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service reads and mutates the engagement collections. All aggregates are
// recomputed from the full matching record set on every call; nothing is
// memoized between calls.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the engagement service.
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

// CreateRating appends a new rating record. Ratings are deliberately not
// deduplicated per device; a repeat rating adds a second row.
func (s *Service) CreateRating(ctx context.Context, appID AppID, deviceID DeviceID, value RatingValue) error {
	ratingID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateRating, "id_generation_failed", err, zap.String("app_id", appID.String()))
		return newStoreError(opCreateRating, "id_generation_failed", err)
	}

	rating := Rating{
		RatingID:         ratingID,
		AppID:            appID.String(),
		DeviceID:         deviceID.String(),
		Value:            value.Int(),
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&rating).Error; err != nil {
		s.logError(opCreateRating, "insert_failed", err, zap.String("app_id", appID.String()))
		return newStoreError(opCreateRating, "insert_failed", err)
	}
	return nil
}

// AverageRating reduces every stored rating for the app to its arithmetic
// mean. Zero records is a defined, non-error outcome of exactly 0.
func (s *Service) AverageRating(ctx context.Context, appID AppID) (float64, error) {
	var ratings []Rating
	if err := s.db.WithContext(ctx).
		Where("app_id = ?", appID.String()).
		Find(&ratings).Error; err != nil {
		s.logError(opAverageRating, "query_failed", err, zap.String("app_id", appID.String()))
		return 0, newStoreError(opAverageRating, "query_failed", err)
	}
	return Average(ratingValues(ratings)), nil
}

// RatingCount returns the number of rating records for the app.
func (s *Service) RatingCount(ctx context.Context, appID AppID) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&Rating{}).
		Where("app_id = ?", appID.String()).
		Count(&total).Error; err != nil {
		s.logError(opRatingCount, "query_failed", err, zap.String("app_id", appID.String()))
		return 0, newStoreError(opRatingCount, "query_failed", err)
	}
	return total, nil
}

// ToggleLove flips the favorite marker for (app, device) and returns the new
// state: true when the love was created, false when it was removed. The
// read-then-write runs in one transaction so repeated calls never leave
// duplicate rows behind.
func (s *Service) ToggleLove(ctx context.Context, appID AppID, deviceID DeviceID) (bool, error) {
	var loved bool
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Love
		err := tx.Where("app_id = ? AND device_id = ?", appID.String(), deviceID.String()).
			Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			love := Love{
				AppID:            appID.String(),
				DeviceID:         deviceID.String(),
				CreatedAtSeconds: s.clock().UTC().Unix(),
			}
			if err := tx.Create(&love).Error; err != nil {
				return err
			}
			loved = true
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("app_id = ? AND device_id = ?", appID.String(), deviceID.String()).
			Delete(&Love{}).Error; err != nil {
			return err
		}
		loved = false
		return nil
	})
	if txErr != nil {
		s.logError(opToggleLove, "toggle_failed", txErr,
			zap.String("app_id", appID.String()),
			zap.String("device_id", deviceID.String()))
		return false, newStoreError(opToggleLove, "toggle_failed", txErr)
	}
	return loved, nil
}

// LoveCount returns the number of devices that have favorited the app.
func (s *Service) LoveCount(ctx context.Context, appID AppID) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&Love{}).
		Where("app_id = ?", appID.String()).
		Count(&total).Error; err != nil {
		s.logError(opLoveCount, "query_failed", err, zap.String("app_id", appID.String()))
		return 0, newStoreError(opLoveCount, "query_failed", err)
	}
	return total, nil
}

// HasLoved reports whether the device currently has the app favorited.
func (s *Service) HasLoved(ctx context.Context, appID AppID, deviceID DeviceID) (bool, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&Love{}).
		Where("app_id = ? AND device_id = ?", appID.String(), deviceID.String()).
		Count(&total).Error; err != nil {
		s.logError(opHasLoved, "query_failed", err,
			zap.String("app_id", appID.String()),
			zap.String("device_id", deviceID.String()))
		return false, newStoreError(opHasLoved, "query_failed", err)
	}
	return total > 0, nil
}

// CreateReview appends a review record. A blank display name or body is a
// validation failure caught before any store call.
func (s *Service) CreateReview(ctx context.Context, appID AppID, userName, reviewText string, value RatingValue) error {
	userName = strings.TrimSpace(userName)
	reviewText = strings.TrimSpace(reviewText)
	if userName == "" || reviewText == "" {
		return ErrEmptyReviewField
	}

	reviewID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateReview, "id_generation_failed", err, zap.String("app_id", appID.String()))
		return newStoreError(opCreateReview, "id_generation_failed", err)
	}

	review := Review{
		ReviewID:         reviewID,
		AppID:            appID.String(),
		UserName:         userName,
		ReviewText:       reviewText,
		Rating:           value.Int(),
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&review).Error; err != nil {
		s.logError(opCreateReview, "insert_failed", err, zap.String("app_id", appID.String()))
		return newStoreError(opCreateReview, "insert_failed", err)
	}
	return nil
}

// Reviews returns all reviews for the app, most recent first.
func (s *Service) Reviews(ctx context.Context, appID AppID) ([]Review, error) {
	var reviews []Review
	if err := s.db.WithContext(ctx).
		Where("app_id = ?", appID.String()).
		Order("created_at_s DESC").
		Find(&reviews).Error; err != nil {
		s.logError(opListReviews, "query_failed", err, zap.String("app_id", appID.String()))
		return nil, newStoreError(opListReviews, "query_failed", err)
	}
	return reviews, nil
}

// IncrementView adds one preview open to the app's counter, creating the
// counter row at 1 when none exists yet.
func (s *Service) IncrementView(ctx context.Context, appID AppID) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated := tx.Model(&ViewCounter{}).
			Where("app_id = ?", appID.String()).
			Update("count", gorm.Expr("count + 1"))
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected > 0 {
			return nil
		}
		return tx.Create(&ViewCounter{AppID: appID.String(), Count: 1}).Error
	})
	if txErr != nil {
		s.logError(opIncrementView, "increment_failed", txErr, zap.String("app_id", appID.String()))
		return newStoreError(opIncrementView, "increment_failed", txErr)
	}
	return nil
}

// ViewCount returns the current preview-open counter for the app, 0 when the
// counter row does not exist yet.
func (s *Service) ViewCount(ctx context.Context, appID AppID) (int64, error) {
	var counter ViewCounter
	err := s.db.WithContext(ctx).
		Where("app_id = ?", appID.String()).
		Take(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		s.logError(opIncrementView, "query_failed", err, zap.String("app_id", appID.String()))
		return 0, newStoreError(opIncrementView, "query_failed", err)
	}
	return counter.Count, nil
}

// IncrementVisit adds one site visit to the fixed site-wide counter.
func (s *Service) IncrementVisit(ctx context.Context) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated := tx.Model(&VisitCounter{}).
			Where("visit_id = ?", siteVisitKey).
			Update("count", gorm.Expr("count + 1"))
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected > 0 {
			return nil
		}
		return tx.Create(&VisitCounter{VisitID: siteVisitKey, Count: 1}).Error
	})
	if txErr != nil {
		s.logError(opIncrementVisit, "increment_failed", txErr)
		return newStoreError(opIncrementVisit, "increment_failed", txErr)
	}
	return nil
}

// Visits returns the site-wide visit counter, 0 before the first visit.
func (s *Service) Visits(ctx context.Context) (int64, error) {
	var counter VisitCounter
	err := s.db.WithContext(ctx).
		Where("visit_id = ?", siteVisitKey).
		Take(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		s.logError(opVisits, "query_failed", err)
		return 0, newStoreError(opVisits, "query_failed", err)
	}
	return counter.Count, nil
}

// Summary bundles the aggregates one preview-page load needs. The deviceID
// may be empty, in which case Loved is reported false.
func (s *Service) Summary(ctx context.Context, appID AppID, deviceID DeviceID) (Summary, error) {
	average, err := s.AverageRating(ctx, appID)
	if err != nil {
		return Summary{}, err
	}
	ratingTotal, err := s.RatingCount(ctx, appID)
	if err != nil {
		return Summary{}, err
	}
	loveTotal, err := s.LoveCount(ctx, appID)
	if err != nil {
		return Summary{}, err
	}
	loved := false
	if deviceID != "" {
		loved, err = s.HasLoved(ctx, appID, deviceID)
		if err != nil {
			return Summary{}, err
		}
	}
	var reviewTotal int64
	if err := s.db.WithContext(ctx).Model(&Review{}).
		Where("app_id = ?", appID.String()).
		Count(&reviewTotal).Error; err != nil {
		s.logError(opSummary, "review_count_failed", err, zap.String("app_id", appID.String()))
		return Summary{}, newStoreError(opSummary, "review_count_failed", err)
	}
	viewTotal, err := s.ViewCount(ctx, appID)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		AppID:         appID.String(),
		AverageRating: average,
		RatingCount:   ratingTotal,
		LoveCount:     loveTotal,
		Loved:         loved,
		ReviewCount:   reviewTotal,
		ViewCount:     viewTotal,
	}, nil
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
	s.logger.Error("engagement service error", attrs...)
}
