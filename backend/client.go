package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

var (
	// ErrUnauthorized indicates a rejected or expired auth token.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrNotFound indicates a missing backend resource.
	ErrNotFound = errors.New("backend: not found")
)

const defaultRequestTimeout = 15 * time.Second

var defaultReconnectBackoff = []time.Duration{
	0,
	2 * time.Second,
	5 * time.Second,
	15 * time.Second,
	60 * time.Second,
}

// Options configures a backend client.
type Options struct {
	BaseURL  string
	WSURL    string
	DeviceID string

	// AuthToken overrides the LINGUACHAT_API_TOKEN environment variable.
	AuthToken string

	HTTPClient       *http.Client
	RequestTimeout   time.Duration
	ReconnectBackoff []time.Duration
}

// Client talks to the managed chat backend: REST operations plus live
// websocket feeds.
type Client struct {
	baseURL  string
	wsURL    string
	deviceID string
	token    string

	httpClient       *http.Client
	requestTimeout   time.Duration
	reconnectBackoff []time.Duration
}

// New creates a backend client with validated configuration.
func New(options Options) (*Client, error) {
	if options.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if options.WSURL == "" {
		return nil, errors.New("websocket URL is required")
	}
	if _, err := url.Parse(options.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	token := options.AuthToken
	if token == "" {
		token = os.Getenv("LINGUACHAT_API_TOKEN")
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	requestTimeout := options.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	backoff := options.ReconnectBackoff
	if len(backoff) == 0 {
		backoff = append([]time.Duration(nil), defaultReconnectBackoff...)
	}

	return &Client{
		baseURL:          strings.TrimRight(options.BaseURL, "/"),
		wsURL:            strings.TrimRight(options.WSURL, "/"),
		deviceID:         options.DeviceID,
		token:            token,
		httpClient:       httpClient,
		requestTimeout:   requestTimeout,
		reconnectBackoff: backoff,
	}, nil
}

// CurrentUser fetches the signed-in user's profile, including the block list.
func (c *Client) CurrentUser(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.doJSON(ctx, http.MethodGet, "/v1/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// doJSON performs one REST call with the auth header, JSON body in, JSON body out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeaders(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, method, path); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response for %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) setAuthHeaders(header http.Header) {
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	if c.deviceID != "" {
		header.Set("X-Device-ID", c.deviceID)
	}
}

func statusError(status int, method, path string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, status)
	}
}
