package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Device records a device token seen by the engagement surface.
type Device struct {
	DeviceID    string `gorm:"column:device_id;primaryKey;size:190;not null"`
	FirstSeenAt int64  `gorm:"column:first_seen_s;not null"`
	LastSeenAt  int64  `gorm:"column:last_seen_s;not null"`
}

// TableName exposes the table backing known devices.
func (Device) TableName() string {
	return "devices"
}

// RegistryConfig describes the dependencies required for the device registry.
type RegistryConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Registry tracks the set of device tokens that have submitted engagement
// actions. It carries no trust: tokens are self-issued and anonymous.
type Registry struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRegistry constructs the device registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("identity: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Registry{db: cfg.Database, now: clock}, nil
}

// Touch upserts the device row, setting first_seen_s on creation and
// refreshing last_seen_s otherwise.
func (r *Registry) Touch(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("identity: device id required")
	}

	seenAt := r.now().UTC().Unix()
	var device Device
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		First(&device).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		device = Device{
			DeviceID:    deviceID,
			FirstSeenAt: seenAt,
			LastSeenAt:  seenAt,
		}
		return r.db.WithContext(ctx).Create(&device).Error
	}
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Model(&Device{}).
		Where("device_id = ?", deviceID).
		Update("last_seen_s", seenAt).
		Error
}

// Count returns the number of distinct devices seen so far.
func (r *Registry) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&Device{}).Count(&total).Error
	return total, err
}
