package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// ActionInstall is the action recorded for installer registrations.
	ActionInstall = "install_hopsworks"

	// UnknownInstallationID is used when registration failed.
	UnknownInstallationID = "unknown"
	// DebugInstallationID is used when the user opted out of sending data.
	DebugInstallationID = "debug_mode"

	requestTimeout = 30 * time.Second
)

// Registration is the JSON document posted for each installation.
type Registration struct {
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Company          string      `json:"company"`
	LicenseType      LicenseType `json:"license_type"`
	AgreedToLicense  bool        `json:"agreed_to_license"`
	InstallationID   string      `json:"installation_id"`
	Action           string      `json:"action"`
	InstallationDate string      `json:"installation_date"`
}

// Client posts registrations to the installation service.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
	now      func() time.Time
	newID    func() string
}

// Option configures a Client.
type Option func(*Client)

// WithRetries sets how many times a failed POST is retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.http.RetryMax = n }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithIDGenerator overrides installation id generation.
func WithIDGenerator(gen func() string) Option {
	return func(c *Client) { c.newID = gen }
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 2
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.HTTPClient.Timeout = requestTimeout
	hc.Logger = nil

	c := &Client{
		endpoint: endpoint,
		http:     hc,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register sends user and license details. The generated installation id
// is returned together with any error so callers can still show it.
func (c *Client) Register(ctx context.Context, user UserInfo, license License) (string, error) {
	id := c.newID()
	reg := Registration{
		Name:             user.Name,
		Email:            user.Email,
		Company:          user.Company,
		LicenseType:      license.Type,
		AgreedToLicense:  license.Agreed,
		InstallationID:   id,
		Action:           ActionInstall,
		InstallationDate: c.now().Format("2006-01-02T15:04:05.000000"),
	}

	body, err := json.Marshal(reg)
	if err != nil {
		return id, fmt.Errorf("failed to encode registration: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return id, fmt.Errorf("failed to build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return id, fmt.Errorf("failed to send user data: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return id, fmt.Errorf("failed to send user data: server returned %s", resp.Status)
	}
	return id, nil
}
