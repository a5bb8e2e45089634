package offline

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
)

type scriptedFetcher struct {
	mu        sync.Mutex
	responses map[string]Response
	failures  map[string]error
	calls     []string
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		responses: map[string]Response{},
		failures:  map[string]error{},
	}
}

func (f *scriptedFetcher) serve(url, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = Response{Status: http.StatusOK, ContentType: "text/html", Body: []byte(body)}
}

func (f *scriptedFetcher) fail(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[url] = errors.New("network unreachable")
}

func (f *scriptedFetcher) Fetch(_ context.Context, request Request) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, request.URL)
	if err, ok := f.failures[request.URL]; ok {
		return Response{}, err
	}
	if response, ok := f.responses[request.URL]; ok {
		return response, nil
	}
	return Response{}, errors.New("unexpected url " + request.URL)
}

func (f *scriptedFetcher) fetchCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, called := range f.calls {
		if called == url {
			total++
		}
	}
	return total
}

func newTestWorker(t *testing.T, storage CacheStorage, fetcher Fetcher, manifest Manifest) *Worker {
	t.Helper()
	worker, err := NewWorker(WorkerConfig{Manifest: manifest, Storage: storage, Fetcher: fetcher})
	if err != nil {
		t.Fatalf("failed to create worker: %v", err)
	}
	return worker
}

func installedManifest() Manifest {
	manifest := DefaultManifest()
	manifest.StaticAssets = []string{"/", "/index.html", "/manifest.json"}
	return manifest
}

func serveManifestAssets(fetcher *scriptedFetcher, manifest Manifest) {
	for _, asset := range manifest.StaticAssets {
		fetcher.serve(asset, "asset:"+asset)
	}
}

func TestInstallFailureKeepsWorkerOutOfActive(t *testing.T) {
	manifest := installedManifest()
	fetcher := newScriptedFetcher()
	serveManifestAssets(fetcher, manifest)
	fetcher.fail("/manifest.json")
	storage := NewMemoryCacheStorage()
	worker := newTestWorker(t, storage, fetcher, manifest)

	err := worker.Install(context.Background())
	if !errors.Is(err, ErrAssetInstall) {
		t.Fatalf("expected ErrAssetInstall, got %v", err)
	}
	if worker.State() != StateInstalling {
		t.Fatalf("expected worker to remain installing, got %v", worker.State())
	}

	names, err := storage.Keys()
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected partial bucket to be discarded, found %v", names)
	}
}

func TestActivateDeletesStaleCaches(t *testing.T) {
	manifest := installedManifest()
	fetcher := newScriptedFetcher()
	serveManifestAssets(fetcher, manifest)
	storage := NewMemoryCacheStorage()

	// A leftover bucket from the previous version.
	stale, err := storage.Open("liverton-codes-v0")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := stale.Put("/old", Response{Status: http.StatusOK, Body: []byte("old")}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	worker := newTestWorker(t, storage, fetcher, manifest)
	if err := worker.Install(context.Background()); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := worker.Activate(context.Background()); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if worker.State() != StateActive {
		t.Fatalf("expected active state, got %v", worker.State())
	}

	names, err := storage.Keys()
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if len(names) != 1 || names[0] != manifest.CacheName {
		t.Fatalf("expected only %q to survive activation, found %v", manifest.CacheName, names)
	}
}

func TestStaticAssetsServedWithoutNetwork(t *testing.T) {
	manifest := installedManifest()
	fetcher := newScriptedFetcher()
	serveManifestAssets(fetcher, manifest)
	worker := newTestWorker(t, NewMemoryCacheStorage(), fetcher, manifest)

	ctx := context.Background()
	if err := worker.Install(ctx); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := worker.Activate(ctx); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	installFetches := fetcher.fetchCount("/index.html")
	response, err := worker.HandleRequest(ctx, Request{Method: http.MethodGet, URL: "/index.html"})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if string(response.Body) != "asset:/index.html" {
		t.Fatalf("unexpected body: %q", response.Body)
	}
	if fetcher.fetchCount("/index.html") != installFetches {
		t.Fatalf("expected cache hit to skip the network")
	}
}

func TestMissCachesGetResponses(t *testing.T) {
	manifest := installedManifest()
	fetcher := newScriptedFetcher()
	serveManifestAssets(fetcher, manifest)
	fetcher.serve("/apps.json", `{"apps":[]}`)
	worker := newTestWorker(t, NewMemoryCacheStorage(), fetcher, manifest)

	ctx := context.Background()
	if err := worker.Install(ctx); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := worker.Activate(ctx); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		response, err := worker.HandleRequest(ctx, Request{Method: http.MethodGet, URL: "/apps.json"})
		if err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
		if string(response.Body) != `{"apps":[]}` {
			t.Fatalf("unexpected body: %q", response.Body)
		}
	}
	if got := fetcher.fetchCount("/apps.json"); got != 1 {
		t.Fatalf("expected one network fetch, got %d", got)
	}
}

func TestNonGetAndExcludedRequestsPassThroughUncached(t *testing.T) {
	manifest := installedManifest()
	fetcher := newScriptedFetcher()
	serveManifestAssets(fetcher, manifest)
	fetcher.serve("/api/ratings", "ok")
	fetcher.serve("https://firebase.example.com/doc", "doc")
	worker := newTestWorker(t, NewMemoryCacheStorage(), fetcher, manifest)

	ctx := context.Background()
	if err := worker.Install(ctx); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := worker.Activate(ctx); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := worker.HandleRequest(ctx, Request{Method: http.MethodPost, URL: "/api/ratings"}); err != nil {
			t.Fatalf("post %d failed: %v", i+1, err)
		}
	}
	if got := fetcher.fetchCount("/api/ratings"); got != 2 {
		t.Fatalf("expected POSTs to always hit the network, got %d fetches", got)
	}

	for i := 0; i < 2; i++ {
		if _, err := worker.HandleRequest(ctx, Request{Method: http.MethodGet, URL: "https://firebase.example.com/doc"}); err != nil {
			t.Fatalf("excluded get %d failed: %v", i+1, err)
		}
	}
	if got := fetcher.fetchCount("https://firebase.example.com/doc"); got != 2 {
		t.Fatalf("expected excluded urls to stay uncached, got %d fetches", got)
	}
}

func TestNavigationFallbackServesRootDocument(t *testing.T) {
	manifest := installedManifest()
	fetcher := newScriptedFetcher()
	serveManifestAssets(fetcher, manifest)
	fetcher.fail("/applications")
	worker := newTestWorker(t, NewMemoryCacheStorage(), fetcher, manifest)

	ctx := context.Background()
	if err := worker.Install(ctx); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := worker.Activate(ctx); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	response, err := worker.HandleRequest(ctx, Request{Method: http.MethodGet, URL: "/applications", Navigation: true})
	if err != nil {
		t.Fatalf("expected navigation fallback, got %v", err)
	}
	if string(response.Body) != "asset:/index.html" {
		t.Fatalf("expected cached root document, got %q", response.Body)
	}
}

func TestNonNavigationTotalFailureSurfacesError(t *testing.T) {
	manifest := installedManifest()
	fetcher := newScriptedFetcher()
	serveManifestAssets(fetcher, manifest)
	fetcher.fail("/missing.png")
	worker := newTestWorker(t, NewMemoryCacheStorage(), fetcher, manifest)

	ctx := context.Background()
	if err := worker.Install(ctx); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := worker.Activate(ctx); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	if _, err := worker.HandleRequest(ctx, Request{Method: http.MethodGet, URL: "/missing.png"}); !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}

func TestRequestsRejectedBeforeActivation(t *testing.T) {
	manifest := installedManifest()
	fetcher := newScriptedFetcher()
	serveManifestAssets(fetcher, manifest)
	worker := newTestWorker(t, NewMemoryCacheStorage(), fetcher, manifest)

	if _, err := worker.HandleRequest(context.Background(), Request{Method: http.MethodGet, URL: "/"}); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}

	worker.Retire()
	if worker.State() != StateRedundant {
		t.Fatalf("expected redundant state, got %v", worker.State())
	}
}

func TestCachedResponsesDoNotShareBuffers(t *testing.T) {
	storage := NewMemoryCacheStorage()
	bucket, err := storage.Open("test")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	original := Response{Status: http.StatusOK, Body: []byte("hello")}
	if err := bucket.Put("/x", original); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	original.Body[0] = 'X'

	cached, err := bucket.Match("/x")
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if string(cached.Body) != "hello" {
		t.Fatalf("cached body was mutated: %q", cached.Body)
	}
	cached.Body[0] = 'Y'

	again, err := bucket.Match("/x")
	if err != nil {
		t.Fatalf("second match failed: %v", err)
	}
	if string(again.Body) != "hello" {
		t.Fatalf("returned body shares cache buffer: %q", again.Body)
	}
}
