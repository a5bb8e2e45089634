package push

import "errors"

var (
	// ErrMissingEndpoint indicates a subscription without an endpoint URL.
	ErrMissingEndpoint = errors.New("push: subscription endpoint is required")
	// ErrMissingKeys indicates a subscription without its encryption keys.
	ErrMissingKeys = errors.New("push: subscription p256dh and auth keys are required")
)

// Subscription is one stored web-push subscription.
type Subscription struct {
	SubscriptionID   string `gorm:"column:subscription_id;primaryKey;size:190;not null" json:"id"`
	Endpoint         string `gorm:"column:endpoint;size:1024;not null;uniqueIndex:idx_push_endpoint" json:"endpoint"`
	P256dhKey        string `gorm:"column:p256dh_key;size:512;not null" json:"-"`
	AuthKey          string `gorm:"column:auth_key;size:512;not null" json:"-"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Subscription) TableName() string {
	return "push_subscriptions"
}

// SubscribeRequest carries the browser subscription payload.
type SubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Notification is the displayed payload: fixed icon and badge, a body, and a
// URL opened on click.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Badge string `json:"badge"`
	URL   string `json:"url"`
}

// Display constants shared with the client worker.
const (
	DefaultTitle = "Liverton Codes"
	DefaultBody  = "New notification from Liverton Codes"
	IconPath     = "/icons/icon-192x192.png"
	BadgePath    = "/icons/icon-72x72.png"
)
