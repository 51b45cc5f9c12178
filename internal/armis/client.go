// Package armis is a client for the Armis vulnerabilities API.
package armis

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/openctemio/connector/internal/infra/httpclient"
	"github.com/openctemio/connector/pkg/logger"
)

const (
	findingsPath    = "/api/v1/vulnerabilities/"
	mitigationsPath = "/api/v1/vulnerabilities/mitigations/"
)

// Config holds API connection settings.
type Config struct {
	Host     string
	Username string
	Password string
}

// Client is the Armis API client. It performs no retries of its own;
// retry and timeout policy belong to the transport.
type Client struct {
	baseURL   string
	username  string
	password  string
	transport *httpclient.Client
	logger    *logger.Logger
}

// NewClient creates a new API client.
func NewClient(cfg Config, transport *httpclient.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:   BaseURL(cfg.Host),
		username:  cfg.Username,
		password:  cfg.Password,
		transport: transport,
		logger:    log.With("component", "armis_client"),
	}
}

// BaseURL turns a configured host into a base URL. Bare hostnames get https.
func BaseURL(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}

// FetchFindings fetches one page of findings matching the filter.
func (c *Client) FetchFindings(ctx context.Context, filter Filter, page int) (*FindingsPage, error) {
	var result FindingsPage
	if err := c.get(ctx, findingsPath, filter.Query(page), &result); err != nil {
		return nil, err
	}
	c.logger.Ctx(ctx).Debug("findings page fetched",
		"page", page,
		"total", result.Total,
		"count", len(result.Vulnerabilities),
	)
	return &result, nil
}

// FetchMitigations looks up remediation guidance by vulnerability name.
func (c *Client) FetchMitigations(ctx context.Context, vulnerabilityName string) (*MitigationsResponse, error) {
	var result MitigationsResponse
	query := url.Values{"name": {vulnerabilityName}}
	if err := c.get(ctx, mitigationsPath, query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.transport.Do(ctx, httpclient.Request{
		Method:   "GET",
		URL:      c.baseURL + path,
		Query:    query,
		Username: c.username,
		Password: c.password,
	})
	if err != nil {
		apiErr := &APIError{
			Message:  apiErrorMessage,
			Endpoint: path,
			Err:      err,
		}
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			apiErr.StatusCode = statusErr.StatusCode
		}
		c.logger.Ctx(ctx).Error("API request failed",
			"endpoint", path,
			"status", apiErr.StatusCode,
			"error", err,
		)
		return apiErr
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &DecodeError{Endpoint: path, Err: err}
	}
	return nil
}
