package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func newAuthedServer(t *testing.T, validToken *atomic.Value) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+validToken.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
}

func TestExpiredTokenIsRefreshedAndRetriedOnce(t *testing.T) {
	var validToken atomic.Value
	validToken.Store("fresh")
	srv := newAuthedServer(t, &validToken)
	defer srv.Close()

	var refreshCalls int32
	refresh := func(ctx context.Context, refreshToken string) (Credentials, error) {
		atomic.AddInt32(&refreshCalls, 1)
		if refreshToken != "refresh-1" {
			t.Errorf("refresh token = %q, want refresh-1", refreshToken)
		}
		return Credentials{AccessToken: "fresh", RefreshToken: "refresh-2"}, nil
	}

	client := New(srv.Client(), Credentials{AccessToken: "stale", RefreshToken: "refresh-1"}, refresh, nil)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/orders", strings.NewReader(`{"code":"OP-1"}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 after refresh+retry", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"code":"OP-1"}` {
		t.Errorf("retried body = %q, original payload was not replayed", body)
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
	if got := client.Credentials().RefreshToken; got != "refresh-2" {
		t.Errorf("stored refresh token = %q, want rotated refresh-2", got)
	}
}

func TestStill401AfterRefreshIsReturnedWithoutSecondRetry(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	refresh := func(ctx context.Context, refreshToken string) (Credentials, error) {
		return Credentials{AccessToken: "still-bad", RefreshToken: refreshToken}, nil
	}
	client := New(srv.Client(), Credentials{AccessToken: "bad", RefreshToken: "r"}, refresh, nil)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if n := atomic.LoadInt32(&requests); n != 2 {
		t.Fatalf("requests = %d, want exactly 2 (original + one retry)", n)
	}
}

func TestRefreshCallItselfIsNeverRetried(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var refreshCalls int32
	refresh := func(ctx context.Context, refreshToken string) (Credentials, error) {
		atomic.AddInt32(&refreshCalls, 1)
		return Credentials{AccessToken: "x", RefreshToken: "y"}, nil
	}
	client := New(srv.Client(), Credentials{AccessToken: "t", RefreshToken: "r"}, refresh, func(r *http.Request) bool {
		return strings.HasSuffix(r.URL.Path, "/auth/refresh")
	})

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/auth/refresh", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want original 401 passed through", resp.StatusCode)
	}
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("requests = %d, want 1 (no retry of refresh call)", n)
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 0 {
		t.Errorf("refresh calls = %d, want 0", n)
	}
}

func TestFailedRefreshReturnsOriginalResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	refresh := func(ctx context.Context, refreshToken string) (Credentials, error) {
		return Credentials{}, context.DeadlineExceeded
	}
	client := New(srv.Client(), Credentials{AccessToken: "t", RefreshToken: "r"}, refresh, nil)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want original 401", resp.StatusCode)
	}
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	var validToken atomic.Value
	validToken.Store("fresh")
	srv := newAuthedServer(t, &validToken)
	defer srv.Close()

	var refreshCalls int32
	refresh := func(ctx context.Context, refreshToken string) (Credentials, error) {
		atomic.AddInt32(&refreshCalls, 1)
		return Credentials{AccessToken: "fresh", RefreshToken: "r2"}, nil
	}
	client := New(srv.Client(), Credentials{AccessToken: "stale", RefreshToken: "r1"}, refresh, nil)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
			resp, err := client.Do(req)
			if err != nil {
				t.Errorf("Do: %v", err)
				return
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want 200", resp.StatusCode)
			}
			resp.Body.Close()
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Fatalf("refresh calls = %d, want 1 (single-flight)", n)
	}
}
