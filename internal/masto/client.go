// Package masto is a minimal Mastodon API client covering the three
// calls this tool needs: app registration, the OAuth authorization
// code exchange, and posting a status.
package masto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultRedirectURI is the out-of-band redirect used when the caller
// does not provide one; the instance shows the authorization code to
// the user instead of redirecting.
const DefaultRedirectURI = "urn:ietf:wg:oauth:2.0:oob"

// DefaultScopes is the scope set requested at registration when none
// is given.
const DefaultScopes = "read write"

// Client is an HTTP client for one Mastodon instance.
type Client struct {
	instance   string
	httpClient *http.Client
}

// NewClient creates a client for the given instance base URL
// (e.g. "https://mastodon.example"). A bare host is promoted to https.
func NewClient(instance string) *Client {
	instance = strings.TrimRight(instance, "/")
	if !strings.Contains(instance, "://") {
		instance = "https://" + instance
	}
	return &Client{
		instance: instance,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// App is the application credential pair returned by registration.
type App struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// NewStatus is the payload for posting a status.
type NewStatus struct {
	Status      string `json:"status"`
	Visibility  string `json:"visibility,omitempty"`
	Sensitive   bool   `json:"sensitive,omitempty"`
	SpoilerText string `json:"spoiler_text,omitempty"`
	Language    string `json:"language,omitempty"`
	InReplyToID string `json:"in_reply_to_id,omitempty"`
}

// Status is the (partial) posted status returned by the instance.
type Status struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// RegisterApp registers this tool with the instance and returns the
// client credentials to use for login.
func (c *Client) RegisterApp(ctx context.Context, clientName, redirectURI, scopes, website string) (*App, error) {
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}
	if scopes == "" {
		scopes = DefaultScopes
	}

	payload := map[string]string{
		"client_name":   clientName,
		"redirect_uris": redirectURI,
		"scopes":        scopes,
	}
	if website != "" {
		payload["website"] = website
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/api/v1/apps", "", payload)
	if err != nil {
		return nil, err
	}

	var app App
	if err := json.Unmarshal(body, &app); err != nil {
		return nil, fmt.Errorf("unmarshal app: %w", err)
	}
	if app.ClientID == "" || app.ClientSecret == "" {
		return nil, fmt.Errorf("registration response missing client credentials")
	}

	return &app, nil
}

// AuthorizeURL is the browser URL the user opens to authorize the app
// and obtain the code passed to ExchangeCode.
func (c *Client) AuthorizeURL(clientID, redirectURI, scope string) string {
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}
	if scope == "" {
		scope = DefaultScopes
	}

	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", scope)

	return c.instance + "/oauth/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, redirectURI, code string) (string, error) {
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}

	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.instance+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("unmarshal token: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("no access token in response")
	}

	return token.AccessToken, nil
}

// PostStatus publishes a status on behalf of the token's account.
func (c *Client) PostStatus(ctx context.Context, token string, ns NewStatus) (*Status, error) {
	if ns.Status == "" {
		return nil, fmt.Errorf("status text is empty")
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/api/v1/statuses", token, ns)
	if err != nil {
		return nil, err
	}

	var st Status
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("unmarshal status: %w", err)
	}

	return &st, nil
}

// doRequest performs a JSON HTTP request with optional bearer auth.
func (c *Client) doRequest(ctx context.Context, method, path, token string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.instance+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
