package cas

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a CAS single-sign-on server.
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// New creates a CAS client for the given server base URL
// (e.g. https://secure.its.example.edu/cas).
func New(serverURL string) *Client {
	return &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// LoginURL returns the CAS login URL redirecting back to service.
func (c *Client) LoginURL(service string) string {
	return fmt.Sprintf("%s/login?service=%s", c.serverURL, url.QueryEscape(service))
}

// LogoutURL returns the CAS logout URL redirecting back to service.
func (c *Client) LogoutURL(service string) string {
	return fmt.Sprintf("%s/logout?service=%s", c.serverURL, url.QueryEscape(service))
}

// serviceResponse is the CAS 2/3 serviceValidate XML payload.
type serviceResponse struct {
	XMLName xml.Name     `xml:"serviceResponse"`
	Success *authSuccess `xml:"authenticationSuccess"`
	Failure *authFailure `xml:"authenticationFailure"`
}

type authSuccess struct {
	User string `xml:"user"`
}

type authFailure struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// ValidateTicket validates a CAS service ticket and returns the
// authenticated username.
func (c *Client) ValidateTicket(ctx context.Context, ticket, service string) (string, error) {
	validateURL := fmt.Sprintf("%s/serviceValidate?ticket=%s&service=%s",
		c.serverURL, url.QueryEscape(ticket), url.QueryEscape(service))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, validateURL, nil)
	if err != nil {
		return "", fmt.Errorf("build validate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("validate ticket: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("validate ticket: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read validate response: %w", err)
	}

	var parsed serviceResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse validate response: %w", err)
	}

	if parsed.Success == nil || parsed.Success.User == "" {
		if parsed.Failure != nil {
			return "", fmt.Errorf("cas authentication failed: %s (%s)",
				strings.TrimSpace(parsed.Failure.Message), parsed.Failure.Code)
		}
		return "", fmt.Errorf("cas authentication failed")
	}

	return parsed.Success.User, nil
}
