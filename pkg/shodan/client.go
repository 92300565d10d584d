// Package shodan talks to the upstream device-search API. It exposes a thin
// typed client over the REST surface plus the layered query resolver the
// dashboard uses to cope with the upstream's unreliable availability.
package shodan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/exposure-dashboard/pkg/config"
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/models"
)

// ErrNotFound marks upstream 404 responses so callers can distinguish a
// missing domain or alert from an internal failure.
var ErrNotFound = errors.New("not found")

// Provider is the capability set the dashboard consumes from the upstream
// device-search service. Every method may fail; callers on the device-search
// path treat any failure as "no data".
type Provider interface {
	Host(ctx context.Context, ip string) (*models.DeviceRecord, error)
	HostDirect(ctx context.Context, ip string) (*models.DeviceRecord, error)
	Search(ctx context.Context, query string) ([]models.DeviceRecord, error)
	Scan(ctx context.Context, ip string) (map[string]any, error)
	DomainInfo(ctx context.Context, domain string) (map[string]any, error)
	Resolve(ctx context.Context, domain string) (string, error)
	Reverse(ctx context.Context, ips string) (map[string][]string, error)
	CreateAlert(ctx context.Context, name, network string, triggers []string) (map[string]any, error)
	Alerts(ctx context.Context) ([]map[string]any, error)
	AlertDetails(ctx context.Context, alertID string) (map[string]any, error)
	AlertNotifications(ctx context.Context, alertID string) ([]map[string]any, error)
	ExposureReport(ctx context.Context, domain string) (*ExposureReport, error)
	APIInfo(ctx context.Context) (map[string]any, error)
	SetDemoMode(enabled bool)
	DemoMode() bool
}

// Client implements Provider against the live REST API. The demo-mode flag is
// the only mutable shared state; it can be flipped at runtime through the
// settings endpoint, so it sits behind its own lock.
type Client struct {
	apiKey     string
	host       string
	useHTTPS   bool
	httpClient *http.Client
	logger     *logrus.Logger

	mu       sync.RWMutex
	demoMode bool
}

// searchResponse is the wire shape of the upstream search endpoint.
type searchResponse struct {
	Matches []models.DeviceRecord `json:"matches"`
	Total   int                   `json:"total"`
}

// apiError is the upstream's error envelope on non-200 responses.
type apiError struct {
	Error string `json:"error"`
}

// NewClient creates a client for the upstream API. An API key is required
// unless demo mode is on.
func NewClient(cfg config.Config, logger *logrus.Logger) (*Client, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.APIKey == "" && !cfg.DemoMode {
		return nil, errors.New("no API key provided and demo mode is off")
	}

	return &Client{
		apiKey: cfg.APIKey,
		host:   cfg.APIHost,
		// The upstream serves some account tiers over plain HTTP only, so
		// that is the default; HostDirect probes both schemes.
		useHTTPS: false,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger:   logger,
		demoMode: cfg.DemoMode,
	}, nil
}

// SetDemoMode toggles canned responses on or off at runtime.
func (c *Client) SetDemoMode(enabled bool) {
	c.mu.Lock()
	c.demoMode = enabled
	c.mu.Unlock()
}

// DemoMode reports whether canned responses are active.
func (c *Client) DemoMode() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.demoMode
}

// baseURL returns the API root under the currently preferred scheme.
func (c *Client) baseURL() string {
	if c.useHTTPS {
		return "https://" + c.host
	}
	return "http://" + c.host
}

// get performs a GET against the API and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, c.baseURL()+path, params, nil, out)
}

// post performs a POST with a JSON body against the API.
func (c *Client) post(ctx context.Context, path string, params url.Values, body any, out any) error {
	return c.do(ctx, http.MethodPost, c.baseURL()+path, params, body, out)
}

func (c *Client) do(ctx context.Context, method, rawURL string, params url.Values, body any, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.apiKey)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL+"?"+params.Encode(), reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var ae apiError
		if err := json.NewDecoder(resp.Body).Decode(&ae); err == nil && ae.Error != "" {
			return fmt.Errorf("upstream error (%d): %s", resp.StatusCode, ae.Error)
		}
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Host looks up a single IP through the canonical host endpoint.
func (c *Client) Host(ctx context.Context, ip string) (*models.DeviceRecord, error) {
	if c.DemoMode() {
		return demoDevice(ip), nil
	}

	var device models.DeviceRecord
	if err := c.get(ctx, "/shodan/host/"+url.PathEscape(ip), nil, &device); err != nil {
		return nil, err
	}
	migrateLocation(&device)
	return &device, nil
}

// HostDirect probes the host endpoint over each protocol in sequence, plain
// HTTP first. It exists because the canonical path is intermittently
// unavailable for some account tiers; a parseable response from either scheme
// wins. On an HTTP success the client switches its scheme preference so later
// calls skip the failing transport.
func (c *Client) HostDirect(ctx context.Context, ip string) (*models.DeviceRecord, error) {
	if c.DemoMode() {
		return demoDevice(ip), nil
	}

	var lastErr error
	for _, scheme := range []string{"http", "https"} {
		rawURL := scheme + "://" + c.host + "/shodan/host/" + url.PathEscape(ip)
		c.logger.Debugf("trying direct host request via %s", strings.ToUpper(scheme))

		var device models.DeviceRecord
		if err := c.do(ctx, http.MethodGet, rawURL, nil, nil, &device); err != nil {
			c.logger.Debugf("direct %s host request failed: %v", strings.ToUpper(scheme), err)
			lastErr = err
			continue
		}

		if scheme == "http" && c.useHTTPS {
			c.logger.Info("switching to HTTP for future upstream requests")
			c.useHTTPS = false
		}

		migrateLocation(&device)
		return &device, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no protocol succeeded")
	}
	return nil, lastErr
}

// Search runs a free-text search and returns the matching records.
func (c *Client) Search(ctx context.Context, query string) ([]models.DeviceRecord, error) {
	if c.DemoMode() {
		return demoMatches(query), nil
	}

	resp, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func (c *Client) search(ctx context.Context, query string) (*searchResponse, error) {
	params := url.Values{}
	params.Set("query", query)

	var resp searchResponse
	if err := c.get(ctx, "/shodan/host/search", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scan asks the upstream to re-scan an IP. The official endpoint requires a
// paid plan; on failure the request is retried as a direct POST before the
// error is surfaced.
func (c *Client) Scan(ctx context.Context, ip string) (map[string]any, error) {
	if c.DemoMode() {
		return map[string]any{"id": "demo123", "count": 1, "credits_left": 100}, nil
	}

	body := map[string]string{"ips": ip}
	var result map[string]any
	err := c.post(ctx, "/shodan/scan", nil, body, &result)
	if err == nil {
		return result, nil
	}
	c.logger.Warnf("scan request failed, retrying once: %v", err)

	result = nil
	if err := c.post(ctx, "/shodan/scan", nil, body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// APIInfo fetches the account/plan details for the configured key. The
// settings page uses it as a connection test.
func (c *Client) APIInfo(ctx context.Context) (map[string]any, error) {
	if c.DemoMode() {
		return map[string]any{"plan": "demo", "query_credits": 100, "scan_credits": 100}, nil
	}

	var info map[string]any
	if err := c.get(ctx, "/api-info", nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// migrateLocation moves top-level geolocation fields into the nested location
// object. Existing nested values are never overwritten; coordinates move only
// when both are absent from the nested object.
func migrateLocation(device *models.DeviceRecord) {
	if device.CountryName == "" || device.City == "" {
		return
	}
	if device.Location == nil {
		device.Location = &models.Location{}
	}
	loc := device.Location
	if loc.CountryName == "" {
		loc.CountryName = device.CountryName
	}
	if loc.City == "" {
		loc.City = device.City
	}
	if loc.Latitude == nil && loc.Longitude == nil {
		loc.Latitude = device.Latitude
		loc.Longitude = device.Longitude
	}
}

// isRateLimited reports whether an upstream error is the request-limit
// response. The upstream does not use a dedicated status code for it, so this
// is a substring match on the error text.
func isRateLimited(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "request limit reached")
}

// retryDelay is how long the resolver waits before its single retry after a
// rate-limit response.
const retryDelay = 5 * time.Second
