package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// State tracks the worker lifecycle.
type State string

const (
	// StateInstalling is the initial state until Install succeeds.
	StateInstalling State = "installing"
	// StateActive means the worker owns the current cache version and serves requests.
	StateActive State = "active"
	// StateRedundant means a newer version took over.
	StateRedundant State = "redundant"
)

// RootDocument is the navigation fallback served when both cache and network fail.
const RootDocument = "/index.html"

var (
	// ErrAssetInstall indicates a listed static asset failed to fetch during install.
	ErrAssetInstall = errors.New("offline: static asset install failed")
	// ErrFetchFailed indicates both cache and network failed for a non-navigation request.
	ErrFetchFailed = errors.New("offline: request failed with no fallback")
	// ErrNotActive indicates a request arrived before the worker activated.
	ErrNotActive = errors.New("offline: worker is not active")
)

// Manifest pins the cache version to its static asset list. CacheName must
// change whenever StaticAssets changes so stale buckets die on activation.
type Manifest struct {
	CacheName        string
	StaticAssets     []string
	ExcludedPatterns []string
}

// DefaultManifest mirrors the assets the site ships.
func DefaultManifest() Manifest {
	return Manifest{
		CacheName: "liverton-codes-v1",
		StaticAssets: []string{
			"/",
			"/index.html",
			"/manifest.json",
			"/icons/icon-192x192.png",
			"/icons/icon-512x512.png",
		},
		ExcludedPatterns: []string{"firebase", "chrome-extension"},
	}
}

// Request is one intercepted outgoing request.
type Request struct {
	Method     string
	URL        string
	Navigation bool
}

// Fetcher performs the live network fetch for a request.
type Fetcher interface {
	Fetch(ctx context.Context, request Request) (Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, request Request) (Response, error)

// Fetch calls the wrapped function.
func (f FetcherFunc) Fetch(ctx context.Context, request Request) (Response, error) {
	return f(ctx, request)
}

// Worker is the offline resource cache as an explicit state machine, driven
// by Install/Activate/HandleRequest calls instead of platform events so the
// policy is testable without a browser runtime.
type Worker struct {
	manifest Manifest
	storage  CacheStorage
	fetcher  Fetcher
	logger   *zap.Logger

	mu    sync.Mutex
	state State
}

// WorkerConfig describes the dependencies for a Worker.
type WorkerConfig struct {
	Manifest Manifest
	Storage  CacheStorage
	Fetcher  Fetcher
	Logger   *zap.Logger
}

// NewWorker constructs a worker in StateInstalling.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("offline: cache storage is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("offline: fetcher is required")
	}
	if cfg.Manifest.CacheName == "" {
		return nil, fmt.Errorf("offline: manifest cache name is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		manifest: cfg.Manifest,
		storage:  cfg.Storage,
		fetcher:  cfg.Fetcher,
		logger:   logger,
		state:    StateInstalling,
	}, nil
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Install fetches every listed static asset into the version's bucket. Any
// failure aborts the whole install: the bucket is discarded and the worker
// stays out of StateActive, leaving the previous version serving.
func (w *Worker) Install(ctx context.Context) error {
	bucket, err := w.storage.Open(w.manifest.CacheName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssetInstall, err)
	}

	for _, asset := range w.manifest.StaticAssets {
		response, err := w.fetcher.Fetch(ctx, Request{Method: http.MethodGet, URL: asset})
		if err != nil {
			w.logger.Warn("static asset fetch failed, install aborted",
				zap.String("asset", asset), zap.Error(err))
			_ = w.storage.Delete(w.manifest.CacheName)
			return fmt.Errorf("%w: %s: %v", ErrAssetInstall, asset, err)
		}
		if err := bucket.Put(asset, response); err != nil {
			_ = w.storage.Delete(w.manifest.CacheName)
			return fmt.Errorf("%w: %s: %v", ErrAssetInstall, asset, err)
		}
	}

	w.logger.Info("offline cache installed",
		zap.String("cache", w.manifest.CacheName),
		zap.Int("assets", len(w.manifest.StaticAssets)))
	return nil
}

// Activate deletes every bucket whose name differs from the current cache
// name and puts the worker in charge immediately.
func (w *Worker) Activate(ctx context.Context) error {
	names, err := w.storage.Keys()
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == w.manifest.CacheName {
			continue
		}
		if err := w.storage.Delete(name); err != nil {
			return err
		}
		w.logger.Info("stale cache deleted", zap.String("cache", name))
	}

	w.mu.Lock()
	w.state = StateActive
	w.mu.Unlock()
	return nil
}

// Retire marks the worker superseded by a newer version.
func (w *Worker) Retire() {
	w.mu.Lock()
	w.state = StateRedundant
	w.mu.Unlock()
}

// HandleRequest applies the caching policy: cache hit wins; a miss goes to
// the network and cacheable GET responses are stored before being returned;
// total failure falls back to the cached root document for navigations only.
func (w *Worker) HandleRequest(ctx context.Context, request Request) (Response, error) {
	if w.State() != StateActive {
		return Response{}, ErrNotActive
	}

	bucket, err := w.storage.Open(w.manifest.CacheName)
	if err != nil {
		return Response{}, err
	}

	if cached, err := bucket.Match(request.URL); err == nil {
		return cached, nil
	}

	fresh, fetchErr := w.fetcher.Fetch(ctx, request)
	if fetchErr == nil {
		if w.cacheable(request) {
			if err := bucket.Put(request.URL, fresh); err != nil {
				w.logger.Warn("response cache write failed",
					zap.String("url", request.URL), zap.Error(err))
			}
		}
		return fresh, nil
	}

	if request.Navigation {
		if fallback, err := bucket.Match(RootDocument); err == nil {
			return fallback, nil
		}
	}
	return Response{}, fmt.Errorf("%w: %s: %v", ErrFetchFailed, request.URL, fetchErr)
}

func (w *Worker) cacheable(request Request) bool {
	if request.Method != http.MethodGet {
		return false
	}
	for _, pattern := range w.manifest.ExcludedPatterns {
		if strings.Contains(request.URL, pattern) {
			return false
		}
	}
	return true
}
