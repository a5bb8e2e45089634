package offline

import (
	"errors"
	"sync"
)

// ErrNoMatch indicates the bucket holds no response for the requested URL.
var ErrNoMatch = errors.New("offline: no cached response")

// Response is a stored or freshly fetched resource. The body is copied on
// Put so a cached response and the live one handed to the caller never share
// a buffer (the response-clone rule of the cache API).
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Bucket is one named cache of URL-keyed responses.
type Bucket interface {
	Match(url string) (Response, error)
	Put(url string, response Response) error
}

// CacheStorage manages named cache buckets shared across worker versions.
type CacheStorage interface {
	Open(name string) (Bucket, error)
	Keys() ([]string, error)
	Delete(name string) error
}

// MemoryCacheStorage is the in-process CacheStorage implementation.
type MemoryCacheStorage struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket
}

// NewMemoryCacheStorage returns an empty cache storage.
func NewMemoryCacheStorage() *MemoryCacheStorage {
	return &MemoryCacheStorage{buckets: map[string]*memoryBucket{}}
}

// Open returns the named bucket, creating it when absent.
func (s *MemoryCacheStorage) Open(name string) (Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.buckets[name]
	if !ok {
		bucket = &memoryBucket{entries: map[string]Response{}}
		s.buckets[name] = bucket
	}
	return bucket, nil
}

// Keys lists every existing bucket name.
func (s *MemoryCacheStorage) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	return names, nil
}

// Delete removes the named bucket and everything in it.
func (s *MemoryCacheStorage) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, name)
	return nil
}

type memoryBucket struct {
	mu      sync.Mutex
	entries map[string]Response
}

func (b *memoryBucket) Match(url string) (Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	response, ok := b.entries[url]
	if !ok {
		return Response{}, ErrNoMatch
	}
	return cloneResponse(response), nil
}

func (b *memoryBucket) Put(url string, response Response) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[url] = cloneResponse(response)
	return nil
}

func cloneResponse(response Response) Response {
	cloned := response
	cloned.Body = make([]byte, len(response.Body))
	copy(cloned.Body, response.Body)
	return cloned
}
