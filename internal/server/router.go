package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/liverton-codes/liverton-api/internal/catalog"
	"github.com/liverton-codes/liverton-api/internal/engagement"
	"github.com/liverton-codes/liverton-api/internal/identity"
	"github.com/liverton-codes/liverton-api/internal/intake"
	"github.com/liverton-codes/liverton-api/internal/offline"
	"github.com/liverton-codes/liverton-api/internal/push"
	"go.uber.org/zap"
)

const deviceIDHeader = "X-Device-ID"

var (
	errMissingEngagementService = errors.New("engagement service dependency required")
	errMissingIntakeService     = errors.New("intake service dependency required")
)

// Dependencies wires the router to its collaborating services.
type Dependencies struct {
	EngagementService *engagement.Service
	IntakeService     *intake.Service
	PushService       *push.Service
	Notifier          *push.Notifier
	DeviceRegistry    *identity.Registry
	Dispatcher        *RealtimeDispatcher
	OfflineManifest   offline.Manifest
	AllowedOrigins    []string
	ContactEmail      string
	WhatsAppNumber    string
	Logger            *zap.Logger
}

// NewHTTPHandler builds the gin handler serving the public API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.EngagementService == nil {
		return nil, errMissingEngagementService
	}
	if deps.IntakeService == nil {
		return nil, errMissingIntakeService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = NewRealtimeDispatcher()
	}
	manifest := deps.OfflineManifest
	if manifest.CacheName == "" {
		manifest = offline.DefaultManifest()
	}

	allowedOrigins := deps.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", deviceIDHeader},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		engagement:     deps.EngagementService,
		intake:         deps.IntakeService,
		pushStore:      deps.PushService,
		notifier:       deps.Notifier,
		registry:       deps.DeviceRegistry,
		dispatcher:     dispatcher,
		manifest:       manifest,
		contactEmail:   deps.ContactEmail,
		whatsappNumber: deps.WhatsAppNumber,
		logger:         logger,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group("/api")
	api.GET("/apps", handler.handleListApps)
	api.GET("/apps/:appId/engagement", handler.handleEngagementSummary)
	api.POST("/apps/:appId/ratings", handler.handleCreateRating)
	api.POST("/apps/:appId/love", handler.handleToggleLove)
	api.GET("/apps/:appId/reviews", handler.handleListReviews)
	api.POST("/apps/:appId/reviews", handler.handleCreateReview)
	api.POST("/apps/:appId/views", handler.handleIncrementView)
	api.GET("/apps/:appId/events", handler.handleEngagementEvents)
	api.POST("/visits", handler.handleIncrementVisit)
	api.GET("/visits", handler.handleVisits)
	api.POST("/contacts", handler.handleCreateContact)
	api.POST("/contacts/whatsapp-link", handler.handleWhatsAppLink)
	api.POST("/orders", handler.handleCreateOrder)
	api.POST("/donations", handler.handleCreateDonation)
	api.GET("/offline/manifest", handler.handleOfflineManifest)
	if deps.PushService != nil {
		api.POST("/push/subscriptions", handler.handlePushSubscribe)
		api.DELETE("/push/subscriptions", handler.handlePushUnsubscribe)
	}

	return router, nil
}

type httpHandler struct {
	engagement     *engagement.Service
	intake         *intake.Service
	pushStore      *push.Service
	notifier       *push.Notifier
	registry       *identity.Registry
	dispatcher     *RealtimeDispatcher
	manifest       offline.Manifest
	contactEmail   string
	whatsappNumber string
	logger         *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleListApps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"apps": catalog.All()})
}

// appID resolves and validates the path parameter against the catalog.
func (h *httpHandler) appID(c *gin.Context) (engagement.AppID, bool) {
	raw := c.Param("appId")
	if _, ok := catalog.Lookup(raw); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "app_not_found"})
		return "", false
	}
	appID, err := engagement.NewAppID(raw)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "app_not_found"})
		return "", false
	}
	return appID, true
}

// deviceID reads the optional device header; required marks it mandatory.
func (h *httpHandler) deviceID(c *gin.Context, required bool) (engagement.DeviceID, bool) {
	raw := strings.TrimSpace(c.GetHeader(deviceIDHeader))
	if raw == "" {
		if required {
			c.JSON(http.StatusBadRequest, gin.H{"error": "device_id_required"})
			return "", false
		}
		return "", true
	}
	deviceID, err := engagement.NewDeviceID(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_device_id"})
		return "", false
	}
	return deviceID, true
}

func (h *httpHandler) touchDevice(c *gin.Context, deviceID engagement.DeviceID) {
	if h.registry == nil || deviceID == "" {
		return
	}
	if err := h.registry.Touch(c.Request.Context(), deviceID.String()); err != nil {
		h.logger.Warn("device registry touch failed", zap.Error(err))
	}
}

// publishSummary pushes fresh aggregates to SSE subscribers after a write.
func (h *httpHandler) publishSummary(c *gin.Context, appID engagement.AppID) {
	summary, err := h.engagement.Summary(c.Request.Context(), appID, "")
	if err != nil {
		h.logger.Warn("engagement summary publish failed", zap.Error(err))
		return
	}
	h.dispatcher.Publish(RealtimeMessage{
		AppID:     appID.String(),
		EventType: RealtimeEventEngagement,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	})
}

func (h *httpHandler) handleEngagementSummary(c *gin.Context) {
	appID, ok := h.appID(c)
	if !ok {
		return
	}
	deviceID, ok := h.deviceID(c, false)
	if !ok {
		return
	}

	summary, err := h.engagement.Summary(c.Request.Context(), appID, deviceID)
	if err != nil {
		h.storeFailure(c, "engagement summary failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type ratingRequestPayload struct {
	Value int `json:"value"`
}

func (h *httpHandler) handleCreateRating(c *gin.Context) {
	appID, ok := h.appID(c)
	if !ok {
		return
	}
	deviceID, ok := h.deviceID(c, true)
	if !ok {
		return
	}

	var request ratingRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	value, err := engagement.NewRatingValue(request.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_rating_value"})
		return
	}

	if err := h.engagement.CreateRating(c.Request.Context(), appID, deviceID, value); err != nil {
		h.storeFailure(c, "rating create failed", err)
		return
	}
	h.touchDevice(c, deviceID)
	h.publishSummary(c, appID)
	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

func (h *httpHandler) handleToggleLove(c *gin.Context) {
	appID, ok := h.appID(c)
	if !ok {
		return
	}
	deviceID, ok := h.deviceID(c, true)
	if !ok {
		return
	}

	loved, err := h.engagement.ToggleLove(c.Request.Context(), appID, deviceID)
	if err != nil {
		h.storeFailure(c, "love toggle failed", err)
		return
	}
	h.touchDevice(c, deviceID)
	h.publishSummary(c, appID)
	c.JSON(http.StatusOK, gin.H{"loved": loved})
}

func (h *httpHandler) handleListReviews(c *gin.Context) {
	appID, ok := h.appID(c)
	if !ok {
		return
	}

	reviews, err := h.engagement.Reviews(c.Request.Context(), appID)
	if err != nil {
		h.storeFailure(c, "review list failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

type reviewRequestPayload struct {
	UserName string `json:"userName"`
	Review   string `json:"review"`
	Rating   int    `json:"rating"`
}

func (h *httpHandler) handleCreateReview(c *gin.Context) {
	appID, ok := h.appID(c)
	if !ok {
		return
	}

	var request reviewRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	value, err := engagement.NewRatingValue(request.Rating)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_rating_value"})
		return
	}

	err = h.engagement.CreateReview(c.Request.Context(), appID, request.UserName, request.Review, value)
	if errors.Is(err, engagement.ErrEmptyReviewField) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_fields"})
		return
	}
	if err != nil {
		h.storeFailure(c, "review create failed", err)
		return
	}
	h.publishSummary(c, appID)
	h.notifyNewReview(appID)
	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

// notifyNewReview fans a broadcast out to push subscribers off the request
// path. Broadcast is a no-op when VAPID keys are not configured.
func (h *httpHandler) notifyNewReview(appID engagement.AppID) {
	if h.notifier == nil || !h.notifier.Enabled() {
		return
	}
	app, ok := catalog.Lookup(appID.String())
	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := h.notifier.Broadcast(ctx, push.Notification{
			Title: "New review on " + app.Name,
			Body:  "Someone just reviewed " + app.Name + ". See what they said.",
			URL:   "/",
		}); err != nil {
			h.logger.Warn("review broadcast failed", zap.Error(err))
		}
	}()
}

func (h *httpHandler) handleIncrementView(c *gin.Context) {
	appID, ok := h.appID(c)
	if !ok {
		return
	}

	if err := h.engagement.IncrementView(c.Request.Context(), appID); err != nil {
		h.storeFailure(c, "view increment failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "counted"})
}

func (h *httpHandler) handleEngagementEvents(c *gin.Context) {
	appID, ok := h.appID(c)
	if !ok {
		return
	}

	stream, cleanup := h.dispatcher.Subscribe(c.Request.Context(), appID.String())
	defer cleanup()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case message, open := <-stream:
			if !open {
				return false
			}
			c.SSEvent(message.EventType, message.Summary)
			return true
		case <-heartbeat.C:
			c.SSEvent(realtimeEventHeartbeat, gin.H{"ts": time.Now().UTC().Unix()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *httpHandler) handleIncrementVisit(c *gin.Context) {
	if err := h.engagement.IncrementVisit(c.Request.Context()); err != nil {
		h.storeFailure(c, "visit increment failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "counted"})
}

func (h *httpHandler) handleVisits(c *gin.Context) {
	visits, err := h.engagement.Visits(c.Request.Context())
	if err != nil {
		h.storeFailure(c, "visit read failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visits": visits})
}

func (h *httpHandler) handleCreateContact(c *gin.Context) {
	var request intake.ContactRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	submission, err := h.intake.CreateContact(c.Request.Context(), request)
	if errors.Is(err, intake.ErrMissingContactField) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_fields"})
		return
	}
	if err != nil {
		h.storeFailure(c, "contact create failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":     submission.ContactID,
		"mailto": intake.MailtoLink(h.contactEmail, submission),
	})
}

type whatsappRequestPayload struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (h *httpHandler) handleWhatsAppLink(c *gin.Context) {
	var request whatsappRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	name := strings.TrimSpace(request.Name)
	message := strings.TrimSpace(request.Message)
	if name == "" || message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_fields"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"link": intake.WhatsAppLink(h.whatsappNumber, name, message),
	})
}

func (h *httpHandler) handleCreateOrder(c *gin.Context) {
	var request intake.OrderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	submission, err := h.intake.CreateOrder(c.Request.Context(), request)
	if errors.Is(err, intake.ErrMissingOrderField) || errors.Is(err, intake.ErrNoServicesSelected) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_fields"})
		return
	}
	if err != nil {
		h.storeFailure(c, "order create failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": submission.OrderID})
}

func (h *httpHandler) handleCreateDonation(c *gin.Context) {
	var request intake.DonationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	submission, err := h.intake.CreateDonation(c.Request.Context(), request)
	if errors.Is(err, intake.ErrMissingDonationField) || errors.Is(err, intake.ErrInvalidDonationAmount) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_donation"})
		return
	}
	if err != nil {
		h.storeFailure(c, "donation create failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": submission.DonationID})
}

func (h *httpHandler) handleOfflineManifest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cacheName":    h.manifest.CacheName,
		"staticAssets": h.manifest.StaticAssets,
	})
}

func (h *httpHandler) handlePushSubscribe(c *gin.Context) {
	var request push.SubscribeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	subscription, err := h.pushStore.Subscribe(c.Request.Context(), request)
	if errors.Is(err, push.ErrMissingEndpoint) || errors.Is(err, push.ErrMissingKeys) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_subscription"})
		return
	}
	if err != nil {
		h.storeFailure(c, "push subscribe failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": subscription.SubscriptionID})
}

type unsubscribeRequestPayload struct {
	Endpoint string `json:"endpoint"`
}

func (h *httpHandler) handlePushUnsubscribe(c *gin.Context) {
	var request unsubscribeRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Endpoint) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.pushStore.Unsubscribe(c.Request.Context(), request.Endpoint); err != nil {
		h.storeFailure(c, "push unsubscribe failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// storeFailure maps store-layer failures to a 502: the remote store is the
// upstream this API fronts.
func (h *httpHandler) storeFailure(c *gin.Context, message string, err error) {
	h.logger.Error(message, zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"error": "store_unavailable"})
}
