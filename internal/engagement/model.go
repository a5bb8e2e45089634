package engagement

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidAppID indicates that an app identifier is empty or exceeds storage bounds.
	ErrInvalidAppID = errors.New("engagement: invalid app id")
	// ErrInvalidDeviceID indicates that a device identifier is empty or exceeds storage bounds.
	ErrInvalidDeviceID = errors.New("engagement: invalid device id")
	// ErrInvalidRatingValue indicates a star value outside the 1..5 range.
	ErrInvalidRatingValue = errors.New("engagement: invalid rating value")
	// ErrEmptyReviewField indicates a review was submitted with a blank name or body.
	ErrEmptyReviewField = errors.New("engagement: review name and text are required")
)

// AppID represents a validated showcased-app identifier.
type AppID string

// NewAppID validates raw input and returns an AppID.
func NewAppID(rawInput string) (AppID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAppID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidAppID, maxIdentifierLength)
	}
	return AppID(trimmed), nil
}

// String returns the underlying string identifier.
func (id AppID) String() string {
	return string(id)
}

// DeviceID represents a validated pseudo-anonymous device token.
type DeviceID string

// NewDeviceID validates raw input and returns a DeviceID.
func NewDeviceID(rawInput string) (DeviceID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDeviceID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidDeviceID, maxIdentifierLength)
	}
	return DeviceID(trimmed), nil
}

// String returns the underlying string token.
func (id DeviceID) String() string {
	return string(id)
}

// RatingValue represents a validated star value in the 1..5 range.
type RatingValue int

// NewRatingValue validates the value and returns a RatingValue.
func NewRatingValue(value int) (RatingValue, error) {
	if value < 1 || value > 5 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRatingValue, value)
	}
	return RatingValue(value), nil
}

// Int exposes the raw star value.
func (v RatingValue) Int() int {
	return int(v)
}

// Rating is one star submission from one device. Ratings are append-only:
// a device that rates again creates a second row and the average counts both.
type Rating struct {
	RatingID         string `gorm:"column:rating_id;primaryKey;size:190;not null"`
	AppID            string `gorm:"column:app_id;size:190;not null;index:idx_ratings_app"`
	DeviceID         string `gorm:"column:device_id;size:190;not null"`
	Value            int    `gorm:"column:value;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Rating) TableName() string {
	return "ratings"
}

// Love marks an app as favorited by a device. Row existence is the toggle
// state: at most one row per (app_id, device_id).
type Love struct {
	AppID            string `gorm:"column:app_id;primaryKey;size:190;not null"`
	DeviceID         string `gorm:"column:device_id;primaryKey;size:190;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Love) TableName() string {
	return "loves"
}

// Review is a free-text review with a self-reported display name. Reviews are
// not bound to a device and are never deduplicated.
type Review struct {
	ReviewID         string `gorm:"column:review_id;primaryKey;size:190;not null" json:"id"`
	AppID            string `gorm:"column:app_id;size:190;not null;index:idx_reviews_app_created,priority:1" json:"appId"`
	UserName         string `gorm:"column:user_name;size:320;not null" json:"userName"`
	ReviewText       string `gorm:"column:review_text;type:text;not null" json:"review"`
	Rating           int    `gorm:"column:rating;not null" json:"rating"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index:idx_reviews_app_created,priority:2" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Review) TableName() string {
	return "reviews"
}

// ViewCounter counts preview opens per app. Keyed by the app id itself so
// every increment targets the same row.
type ViewCounter struct {
	AppID string `gorm:"column:app_id;primaryKey;size:190;not null"`
	Count int64  `gorm:"column:count;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ViewCounter) TableName() string {
	return "views"
}

// siteVisitKey is the deterministic row id for the single site-wide counter.
const siteVisitKey = "site"

// VisitCounter counts site visits under a fixed row key.
type VisitCounter struct {
	VisitID string `gorm:"column:visit_id;primaryKey;size:190;not null"`
	Count   int64  `gorm:"column:count;not null"`
}

// TableName provides the explicit table binding for GORM.
func (VisitCounter) TableName() string {
	return "visits"
}

// Summary bundles the display aggregates for one app.
type Summary struct {
	AppID         string  `json:"appId"`
	AverageRating float64 `json:"averageRating"`
	RatingCount   int64   `json:"ratingCount"`
	LoveCount     int64   `json:"loveCount"`
	Loved         bool    `json:"loved"`
	ReviewCount   int64   `json:"reviewCount"`
	ViewCount     int64   `json:"viewCount"`
}
