package hetzner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const dnsBaseURL = "https://dns.hetzner.com/api/v1"

// Zone is a hosted DNS zone.
type Zone struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	NameServers []string `json:"ns"`
}

// DNSAPI is the slice of the Hetzner DNS API the provider needs.
type DNSAPI interface {
	EnsureZone(ctx context.Context, name string) (Zone, error)
}

// DNSClient is a minimal Hetzner DNS API client for zone management. The
// DNS API is separate from the cloud API and uses its own token.
type DNSClient struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
}

// NewDNSClient creates a Hetzner DNS API client.
func NewDNSClient(apiToken string) *DNSClient {
	return &DNSClient{
		apiToken:   apiToken,
		baseURL:    dnsBaseURL,
		httpClient: &http.Client{},
	}
}

type zoneResponse struct {
	Zone Zone `json:"zone"`
}

type zonesResponse struct {
	Zones []Zone `json:"zones"`
}

// EnsureZone returns the zone for name, creating it when it does not exist.
func (c *DNSClient) EnsureZone(ctx context.Context, name string) (Zone, error) {
	zone, found, err := c.getZone(ctx, name)
	if err != nil {
		return Zone{}, err
	}
	if found {
		return zone, nil
	}
	return c.createZone(ctx, name)
}

func (c *DNSClient) getZone(ctx context.Context, name string) (Zone, bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/zones?name="+url.QueryEscape(name), nil)
	if err != nil {
		return Zone{}, false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Zone{}, false, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Zone{}, false, fmt.Errorf("read response: %w", err)
	}

	// The DNS API answers a name filter with no match as 404.
	if resp.StatusCode == http.StatusNotFound {
		return Zone{}, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Zone{}, false, fmt.Errorf("dns API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out zonesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Zone{}, false, fmt.Errorf("parse zones: %w", err)
	}
	for _, z := range out.Zones {
		if z.Name == name {
			return z, true, nil
		}
	}
	return Zone{}, false, nil
}

func (c *DNSClient) createZone(ctx context.Context, name string) (Zone, error) {
	payload, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return Zone{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/zones", bytes.NewReader(payload))
	if err != nil {
		return Zone{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Zone{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Zone{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Zone{}, fmt.Errorf("failed to create zone %s (status %d): %s", name, resp.StatusCode, string(body))
	}

	var out zoneResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Zone{}, fmt.Errorf("parse zone: %w", err)
	}
	return out.Zone, nil
}

func (c *DNSClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Auth-API-Token", c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
