// Package crm integrates with the external deal/notes service: deals are
// located by tracking number and finalized scan batches append one note to
// their deal.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrDealNotFound indicates no deal carries the scanned tracking number.
var ErrDealNotFound = errors.New("crm: deal not found")

// DealLocator resolves a scanned tracking number to a deal identifier.
type DealLocator interface {
	FindDealByTracking(ctx context.Context, tracking string) (string, error)
}

// NoteSink appends one aggregated note to a deal.
type NoteSink interface {
	AppendNote(ctx context.Context, dealID, text string) error
}

// Client talks to the CRM HTTP API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient constructs a CRM client with a bounded request timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type dealResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// FindDealByTracking looks a deal up by its shipment tracking number.
func (c *Client) FindDealByTracking(ctx context.Context, tracking string) (string, error) {
	if c == nil || c.HTTP == nil {
		return "", errors.New("crm: client not configured")
	}
	endpoint := fmt.Sprintf("%s/v1/deals?tracking=%s", c.BaseURL, url.QueryEscape(tracking))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("crm lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrDealNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("crm lookup: unexpected status %d", resp.StatusCode)
	}
	var body dealResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("crm lookup: decode: %w", err)
	}
	if len(body.Data) == 0 || strings.TrimSpace(body.Data[0].ID) == "" {
		return "", ErrDealNotFound
	}
	return body.Data[0].ID, nil
}

// AppendNote posts the aggregated summary text onto the deal.
func (c *Client) AppendNote(ctx context.Context, dealID, text string) error {
	if c == nil || c.HTTP == nil {
		return errors.New("crm: client not configured")
	}
	payload, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/v1/deals/%s/notes", c.BaseURL, url.PathEscape(dealID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("crm append note: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("crm append note: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if strings.TrimSpace(c.Token) != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}
