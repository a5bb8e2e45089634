package offline

import (
	"context"
	"io"
	"net/http"
)

// HTTPFetcher performs live fetches with a net/http client.
type HTTPFetcher struct {
	client  *http.Client
	baseURL string
}

// NewHTTPFetcher returns a fetcher resolving relative URLs against baseURL.
func NewHTTPFetcher(client *http.Client, baseURL string) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, baseURL: baseURL}
}

// Fetch issues the request and drains the response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, request Request) (Response, error) {
	target := request.URL
	if len(target) > 0 && target[0] == '/' {
		target = f.baseURL + target
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, target, nil)
	if err != nil {
		return Response{}, err
	}
	httpResponse, err := f.client.Do(httpRequest)
	if err != nil {
		return Response{}, err
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Status:      httpResponse.StatusCode,
		ContentType: httpResponse.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
