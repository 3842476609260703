package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// ErrNotAuthenticated is returned by admin calls made before Authenticate
var ErrNotAuthenticated = errors.New("client not authenticated - call Authenticate() first")

// APIError is a non-2xx answer from the admin API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client provides an HTTP client for the admin API
type Client struct {
	config     Config
	httpClient *http.Client
	token      string
	baseURL    *url.URL
}

// NewClient creates a new admin API client
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	if config.ServerURL == "" {
		return nil, fmt.Errorf("ServerURL is required")
	}

	baseURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    baseURL,
	}, nil
}

// Authenticate logs in with the configured credentials and stores the token
func (c *Client) Authenticate(ctx context.Context) error {
	req := LoginRequest{Username: c.config.Username, Password: c.config.Password}

	var resp LoginResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", nil, req, &resp, false); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	c.token = resp.Token
	return nil
}

// GetHealth returns the health status of the server
func (c *Client) GetHealth(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, nil, &resp, false)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && resp.Domain != "" {
		// an unhealthy server still reports its status
		return &resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get health status: %w", err)
	}
	return &resp, nil
}

// ListRoutes returns the routes at or below address; an empty address lists the server domain
// and AllRoutes lists every route
func (c *Client) ListRoutes(ctx context.Context, address string) (*RoutesResponse, error) {
	query := url.Values{}
	if address != "" {
		query.Set("jid", address)
	}

	var resp RoutesResponse
	if err := c.adminGet(ctx, "/api/v1/admin/routes", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return &resp, nil
}

// LookupRoute resolves a single address, optionally falling back to the bare address
func (c *Client) LookupRoute(ctx context.Context, address string, best bool) (*LookupResponse, error) {
	query := url.Values{}
	query.Set("jid", address)
	query.Set("best", strconv.FormatBool(best))

	var resp LookupResponse
	if err := c.adminGet(ctx, "/api/v1/admin/routes/lookup", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to look up route: %w", err)
	}
	return &resp, nil
}

// ListSessions returns the live client sessions
func (c *Client) ListSessions(ctx context.Context) (*SessionsResponse, error) {
	var resp SessionsResponse
	if err := c.adminGet(ctx, "/api/v1/admin/sessions", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return &resp, nil
}

// ListHandlers returns the registered namespace handlers
func (c *Client) ListHandlers(ctx context.Context) (*HandlersResponse, error) {
	var resp HandlersResponse
	if err := c.adminGet(ctx, "/api/v1/admin/handlers", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list handlers: %w", err)
	}
	return &resp, nil
}

// ListPeers returns the connected peer servers
func (c *Client) ListPeers(ctx context.Context) (*PeersResponse, error) {
	var resp PeersResponse
	if err := c.adminGet(ctx, "/api/v1/admin/peers", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list peers: %w", err)
	}
	return &resp, nil
}

// GetStats returns routing counters
func (c *Client) GetStats(ctx context.Context) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.adminGet(ctx, "/api/v1/admin/stats", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &resp, nil
}

func (c *Client) adminGet(ctx context.Context, path string, query url.Values, respBody interface{}) error {
	if c.token == "" {
		return ErrNotAuthenticated
	}
	return c.doRequest(ctx, http.MethodGet, path, query, nil, respBody, true)
}

// doRequest performs an HTTP request with optional authentication
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, reqBody interface{}, respBody interface{}, requireAuth bool) error {
	u := &url.URL{Path: path}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	fullURL := c.baseURL.ResolveReference(u)

	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if respBody != nil && resp.StatusCode == http.StatusServiceUnavailable {
		// health answers 503 with a full body
		_ = json.Unmarshal(bodyBytes, respBody)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(bodyBytes))}
		var errResp ErrorResponse
		if json.Unmarshal(bodyBytes, &errResp) == nil && errResp.Message != "" {
			apiErr.Message = errResp.Message
		}
		return apiErr
	}

	if respBody != nil {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// IsAuthenticated returns whether the client has a token
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// GetToken returns the current authentication token
func (c *Client) GetToken() string {
	return c.token
}

// SetToken sets the authentication token (useful for testing or token reuse)
func (c *Client) SetToken(token string) {
	c.token = token
}
