package identity

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StorageKey is the well-known key the device token is persisted under.
const StorageKey = "deviceId"

var noOpLogger = zap.NewNop()

// Provider hands out the pseudo-anonymous device token for the current
// profile. The token is minted once, persisted, and returned unchanged on
// every later call. When the durable store cannot be written the provider
// degrades to an in-memory token valid for the process lifetime.
type Provider struct {
	store    KeyValueStore
	fallback *MemoryStore
	clock    func() time.Time
	logger   *zap.Logger
}

// ProviderConfig describes the dependencies for a Provider.
type ProviderConfig struct {
	Store  KeyValueStore
	Clock  func() time.Time
	Logger *zap.Logger
}

// NewProvider constructs a Provider over the given durable store.
func NewProvider(cfg ProviderConfig) *Provider {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Provider{
		store:    store,
		fallback: NewMemoryStore(),
		clock:    clock,
		logger:   logger,
	}
}

// DeviceID returns the stored device token, minting and persisting a new one
// on first use. It never fails: storage trouble falls back to a process-local
// token.
func (p *Provider) DeviceID() string {
	if token, err := p.store.Get(StorageKey); err == nil && token != "" {
		return token
	} else if err != nil && !errors.Is(err, ErrKeyNotFound) {
		p.logger.Warn("device token read failed, using in-memory fallback", zap.Error(err))
		return p.fallbackToken()
	}

	token := p.mintToken()
	if err := p.store.Set(StorageKey, token); err != nil {
		p.logger.Warn("device token persist failed, using in-memory fallback", zap.Error(err))
		return p.fallbackToken()
	}
	return token
}

func (p *Provider) fallbackToken() string {
	if token, err := p.fallback.Get(StorageKey); err == nil {
		return token
	}
	token := p.mintToken()
	_ = p.fallback.Set(StorageKey, token)
	return token
}

// mintToken builds a random base36 component joined with a base36 timestamp,
// mirroring the token shape existing profiles already carry.
func (p *Provider) mintToken() string {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable; the clock still
		// yields a usable low-entropy token.
		binary.BigEndian.PutUint64(raw[:], uint64(p.clock().UnixNano()))
	}
	randomComponent := strconv.FormatUint(binary.BigEndian.Uint64(raw[:])>>1, 36)
	timeComponent := strconv.FormatInt(p.clock().UnixNano(), 36)
	return strings.ToLower(randomComponent + timeComponent)
}
