package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liverton-codes/liverton-api/internal/database"
	"github.com/liverton-codes/liverton-api/internal/engagement"
	"github.com/liverton-codes/liverton-api/internal/identity"
	"github.com/liverton-codes/liverton-api/internal/intake"
	"github.com/liverton-codes/liverton-api/internal/push"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stepClock hands out strictly increasing timestamps so that ordering by
// creation time is deterministic within a test.
type stepClock struct {
	mu      sync.Mutex
	current time.Time
}

func newStepClock() *stepClock {
	return &stepClock{current: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

type testServer struct {
	handler    http.Handler
	dispatcher *RealtimeDispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "api.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	clock := newStepClock()
	idProvider := engagement.NewUUIDProvider()

	engagementService, err := engagement.NewService(engagement.ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: idProvider,
	})
	if err != nil {
		t.Fatalf("engagement service: %v", err)
	}
	intakeService, err := intake.NewService(intake.ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: idProvider,
	})
	if err != nil {
		t.Fatalf("intake service: %v", err)
	}
	pushService, err := push.NewService(push.ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: idProvider,
	})
	if err != nil {
		t.Fatalf("push service: %v", err)
	}
	registry, err := identity.NewRegistry(identity.RegistryConfig{
		Database: db,
		Clock:    clock.Now,
	})
	if err != nil {
		t.Fatalf("device registry: %v", err)
	}

	dispatcher := NewRealtimeDispatcher()
	handler, err := NewHTTPHandler(Dependencies{
		EngagementService: engagementService,
		IntakeService:     intakeService,
		PushService:       pushService,
		DeviceRegistry:    registry,
		Dispatcher:        dispatcher,
		ContactEmail:      "livertoncodes@gmail.com",
		WhatsAppNumber:    "256791756647",
	})
	if err != nil {
		t.Fatalf("http handler: %v", err)
	}

	return &testServer{handler: handler, dispatcher: dispatcher}
}

func (s *testServer) request(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	decoded := map[string]any{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

func deviceHeader(deviceID string) map[string]string {
	return map[string]string{"X-Device-ID": deviceID}
}
