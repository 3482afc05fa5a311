package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 15 * time.Second

	maxErrorBody = 4 << 10
	userAgent    = "Wisedom/1.0"
)

// Default provider API origins.
const (
	GoogleAPIBaseURL   = "https://www.googleapis.com"
	PeopleAPIBaseURL   = "https://people.googleapis.com"
	LinkedInAPIBaseURL = "https://api.linkedin.com"
)

// NewHTTPClient creates the HTTP client used for token exchange and provider
// API calls. It does not follow redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// APIError is a non-2xx response from a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Client calls provider APIs on behalf of a user.
type Client struct {
	httpClient  *http.Client
	googleAPI   string
	peopleAPI   string
	linkedInAPI string
}

// NewClient creates a Client. A nil httpClient uses NewHTTPClient.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Client{
		httpClient:  httpClient,
		googleAPI:   GoogleAPIBaseURL,
		peopleAPI:   PeopleAPIBaseURL,
		linkedInAPI: LinkedInAPIBaseURL,
	}
}

// BaseURLs overrides the provider API origins.
type BaseURLs struct {
	Google   string
	People   string
	LinkedIn string
}

// WithBaseURLs returns a copy of c talking to the given origins.
func (c *Client) WithBaseURLs(u BaseURLs) *Client {
	cp := *c
	if u.Google != "" {
		cp.googleAPI = u.Google
	}
	if u.People != "" {
		cp.peopleAPI = u.People
	}
	if u.LinkedIn != "" {
		cp.linkedInAPI = u.LinkedIn
	}
	return &cp
}

// Context returns ctx carrying the base HTTP client for oauth2 exchanges.
func (c *Client) Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// do sends req with ts credentials and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, provider string, ts oauth2.TokenSource, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := oauth2.NewClient(c.Context(ctx), ts).Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", provider, err)
	}
	return nil
}
