// Package apiclient is a typed SDK for the production order API. It wraps
// platform/httpclient so an expired access token is refreshed and the
// failed call retried transparently, at most once.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"prodline_backend/internal/auth/transport"
	ordertransport "prodline_backend/internal/orders/transport"
	"prodline_backend/platform/httpclient"
)

const refreshPath = "/api/v1/auth/refresh"

// Client talks to one API instance on behalf of one signed-in user.
type Client struct {
	baseURL string
	http    *httpclient.AuthClient
}

// New creates an unauthenticated client; call SignIn before using the
// order operations.
func New(baseURL string) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	c.http = httpclient.New(
		&http.Client{Timeout: 30 * time.Second},
		httpclient.Credentials{},
		c.refreshCredentials,
		func(r *http.Request) bool { return strings.HasSuffix(r.URL.Path, refreshPath) },
	)
	return c
}

// SignIn exchanges credentials for a token pair and stores it on the
// client.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	var pair transport.TokenPairResponse
	err := c.post(ctx, "/api/v1/auth/signin", transport.SignInRequest{
		Email:    email,
		Password: password,
	}, &pair)
	if err != nil {
		return err
	}

	c.http.SetCredentials(httpclient.Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
	return nil
}

// refreshCredentials is the RefreshFunc wired into the interceptor. It
// goes through the same wrapped client; the path predicate keeps it out
// of the retry loop.
func (c *Client) refreshCredentials(ctx context.Context, refreshToken string) (httpclient.Credentials, error) {
	var pair transport.TokenPairResponse
	err := c.post(ctx, refreshPath, transport.RefreshRequest{RefreshToken: refreshToken}, &pair)
	if err != nil {
		return httpclient.Credentials{}, err
	}
	return httpclient.Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// CreateOrder creates a production order.
func (c *Client) CreateOrder(ctx context.Context, req ordertransport.CreateOrderRequest) (ordertransport.OrderResponse, error) {
	var out ordertransport.OrderResponse
	err := c.post(ctx, "/api/v1/orders", req, &out)
	return out, err
}

// GetOrder retrieves one order.
func (c *Client) GetOrder(ctx context.Context, id int64) (ordertransport.OrderResponse, error) {
	var out ordertransport.OrderResponse
	err := c.get(ctx, fmt.Sprintf("/api/v1/orders/%d", id), &out)
	return out, err
}

// ListOrders retrieves orders; rawQuery carries the filter parameters.
func (c *Client) ListOrders(ctx context.Context, rawQuery string) (ordertransport.OrderListResponse, error) {
	path := "/api/v1/orders"
	if rawQuery != "" {
		path += "?" + rawQuery
	}
	var out ordertransport.OrderListResponse
	err := c.get(ctx, path, &out)
	return out, err
}

// GetHistory retrieves an order's transition ledger.
func (c *Client) GetHistory(ctx context.Context, id int64) (ordertransport.HistoryResponse, error) {
	var out ordertransport.HistoryResponse
	err := c.get(ctx, fmt.Sprintf("/api/v1/orders/%d/history", id), &out)
	return out, err
}

// AdvanceStage moves an order to the next workstation.
func (c *Client) AdvanceStage(ctx context.Context, id int64) (ordertransport.OrderResponse, error) {
	var out ordertransport.OrderResponse
	err := c.post(ctx, fmt.Sprintf("/api/v1/orders/%d/advance", id), nil, &out)
	return out, err
}

// UpdateStatus applies a new operational status.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status, note string) (ordertransport.OrderResponse, error) {
	var out ordertransport.OrderResponse
	err := c.post(ctx, fmt.Sprintf("/api/v1/orders/%d/status", id), ordertransport.UpdateStatusRequest{
		Status: status,
		Note:   note,
	}, &out)
	return out, err
}

// BulkUpdateStatus applies one status to a set of orders.
func (c *Client) BulkUpdateStatus(ctx context.Context, req ordertransport.BulkUpdateStatusRequest) (ordertransport.BulkUpdateStatusResponse, error) {
	var out ordertransport.BulkUpdateStatusResponse
	err := c.post(ctx, "/api/v1/orders/bulk/status", req, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	msg := resp.Status
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
