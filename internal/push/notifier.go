package push

import (
	"context"
	"encoding/json"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
)

// Sender delivers one encrypted payload to one subscription. It exists so
// tests can substitute the webpush transport.
type Sender interface {
	Send(ctx context.Context, payload []byte, subscription Subscription) (statusCode int, err error)
}

// NotifierConfig carries the VAPID key material. Empty keys disable sending:
// Broadcast becomes a no-op rather than an error.
type NotifierConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	Sender          Sender
	Logger          *zap.Logger
}

// Notifier broadcasts notifications to every stored subscription.
type Notifier struct {
	store  *Service
	config NotifierConfig
	sender Sender
	logger *zap.Logger
}

// NewNotifier constructs a Notifier over the subscription store.
func NewNotifier(store *Service, cfg NotifierConfig) *Notifier {
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	sender := cfg.Sender
	if sender == nil {
		sender = &webpushSender{config: cfg}
	}
	return &Notifier{store: store, config: cfg, sender: sender, logger: logger}
}

// Enabled reports whether VAPID keys are configured.
func (n *Notifier) Enabled() bool {
	return n.config.VAPIDPublicKey != "" && n.config.VAPIDPrivateKey != ""
}

// Broadcast fills in the fixed display fields and sends the notification to
// every subscription. Endpoints the push service reports gone (404/410) are
// pruned from the store. Individual delivery failures are logged, not
// propagated: one dead endpoint must not fail the broadcast.
func (n *Notifier) Broadcast(ctx context.Context, notification Notification) (int, error) {
	if !n.Enabled() {
		return 0, nil
	}

	if notification.Title == "" {
		notification.Title = DefaultTitle
	}
	if notification.Body == "" {
		notification.Body = DefaultBody
	}
	notification.Icon = IconPath
	notification.Badge = BadgePath
	if notification.URL == "" {
		notification.URL = "/"
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return 0, err
	}

	subscriptions, err := n.store.List(ctx)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, subscription := range subscriptions {
		status, err := n.sender.Send(ctx, payload, subscription)
		if err != nil {
			n.logger.Warn("push delivery failed",
				zap.String("endpoint", subscription.Endpoint), zap.Error(err))
			continue
		}
		if status == http.StatusNotFound || status == http.StatusGone {
			if err := n.store.Unsubscribe(ctx, subscription.Endpoint); err != nil {
				n.logger.Warn("stale subscription prune failed",
					zap.String("endpoint", subscription.Endpoint), zap.Error(err))
			}
			continue
		}
		delivered++
	}
	return delivered, nil
}

type webpushSender struct {
	config NotifierConfig
}

func (s *webpushSender) Send(ctx context.Context, payload []byte, subscription Subscription) (int, error) {
	target := &webpush.Subscription{
		Endpoint: subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: subscription.P256dhKey,
			Auth:   subscription.AuthKey,
		},
	}
	response, err := webpush.SendNotificationWithContext(ctx, payload, target, &webpush.Options{
		Subscriber:      s.config.Subscriber,
		VAPIDPublicKey:  s.config.VAPIDPublicKey,
		VAPIDPrivateKey: s.config.VAPIDPrivateKey,
		TTL:             60,
	})
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()
	return response.StatusCode, nil
}
