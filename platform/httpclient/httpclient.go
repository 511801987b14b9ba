// Package httpclient provides an authenticated HTTP client with a
// refresh-once retry policy. It attaches a bearer credential to every
// outgoing request, detects credential expiry (401), refreshes the
// credential at most once, and retries the original request exactly once.
// This is part of the platform layer and contains no business logic.
package httpclient

import (
	"context"
	"io"
	"net/http"
	"sync"
)

// Credentials is the bearer credential pair attached to outgoing requests.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// RefreshFunc exchanges a refresh token for a new credential pair.
type RefreshFunc func(ctx context.Context, refreshToken string) (Credentials, error)

// Doer is the minimal HTTP client interface, satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AuthClient wraps a Doer with credential attachment and the refresh-once
// retry policy. The isRefreshCall predicate guards against the refresh
// endpoint being re-wrapped by its own retry logic: a request it matches is
// never refreshed or retried, whatever its response.
type AuthClient struct {
	base          Doer
	refresh       RefreshFunc
	isRefreshCall func(*http.Request) bool

	mu    sync.Mutex
	creds Credentials
}

// New creates an AuthClient. base defaults to http.DefaultClient and
// isRefreshCall to a predicate that never matches.
func New(base Doer, creds Credentials, refresh RefreshFunc, isRefreshCall func(*http.Request) bool) *AuthClient {
	if base == nil {
		base = http.DefaultClient
	}
	if isRefreshCall == nil {
		isRefreshCall = func(*http.Request) bool { return false }
	}
	return &AuthClient{
		base:          base,
		refresh:       refresh,
		isRefreshCall: isRefreshCall,
		creds:         creds,
	}
}

// Credentials returns the current credential pair.
func (c *AuthClient) Credentials() Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

// SetCredentials replaces the current credential pair.
func (c *AuthClient) SetCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
}

// Do sends the request with the current access token attached. On a 401 for
// a non-refresh call it refreshes the credential once and retries the
// original request exactly once with the new token. A failed refresh, or a
// 401 on the refresh call itself, returns the original response unmodified.
func (c *AuthClient) Do(req *http.Request) (*http.Response, error) {
	usedToken := c.Credentials().AccessToken
	resp, err := c.send(req, usedToken)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || c.isRefreshCall(req) {
		return resp, nil
	}

	newToken, ok := c.refreshOnce(req.Context(), usedToken)
	if !ok {
		return resp, nil
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return resp, nil
	}

	drain(resp)
	return c.send(retry, newToken)
}

// refreshOnce ensures a single refresh is in flight per client. Concurrent
// 401s queue behind the first refresh; whoever enters the critical section
// after the credential already rotated reuses the new token without issuing
// another refresh call.
func (c *AuthClient) refreshOnce(ctx context.Context, usedToken string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.creds.AccessToken != usedToken && c.creds.AccessToken != "" {
		return c.creds.AccessToken, true
	}

	if c.refresh == nil || c.creds.RefreshToken == "" {
		return "", false
	}

	creds, err := c.refresh(ctx, c.creds.RefreshToken)
	if err != nil {
		return "", false
	}

	c.creds = creds
	return creds.AccessToken, true
}

func (c *AuthClient) send(req *http.Request, token string) (*http.Response, error) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.base.Do(req)
}

// cloneRequest rebuilds the request for the single retry. Requests with a
// body must carry GetBody (http.NewRequest sets it for common body types).
func cloneRequest(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.GetBody == nil {
		return retry, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	retry.Body = body
	return retry, nil
}

func drain(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		_ = resp.Body.Close()
	}
}
