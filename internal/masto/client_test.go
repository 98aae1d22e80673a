package masto

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterApp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/apps", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "icalmasto", payload["client_name"])
		assert.Equal(t, DefaultRedirectURI, payload["redirect_uris"])

		json.NewEncoder(w).Encode(App{
			ID:           "42",
			Name:         payload["client_name"],
			ClientID:     "cid",
			ClientSecret: "csecret",
		})
	}))
	defer srv.Close()

	app, err := NewClient(srv.URL).RegisterApp(context.Background(), "icalmasto", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "cid", app.ClientID)
	assert.Equal(t, "csecret", app.ClientSecret)
}

func TestRegisterAppMissingCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"42"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RegisterApp(context.Background(), "icalmasto", "", "", "")
	assert.Error(t, err)
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient("https://mastodon.example")
	raw := c.AuthorizeURL("cid", "", "read")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/oauth/authorize", u.Path)
	assert.Equal(t, "cid", u.Query().Get("client_id"))
	assert.Equal(t, "code", u.Query().Get("response_type"))
	assert.Equal(t, DefaultRedirectURI, u.Query().Get("redirect_uri"))
	assert.Equal(t, "read", u.Query().Get("scope"))
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))

		w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer"}`))
	}))
	defer srv.Close()

	token, err := NewClient(srv.URL).ExchangeCode(context.Background(), "cid", "csecret", "", "the-code")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestExchangeCodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ExchangeCode(context.Background(), "cid", "csecret", "", "bad-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestPostStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/statuses", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		var ns NewStatus
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ns))
		assert.Equal(t, "hello fediverse", ns.Status)
		assert.Equal(t, "unlisted", ns.Visibility)

		json.NewEncoder(w).Encode(Status{ID: "1", URL: "https://mastodon.example/@me/1"})
	}))
	defer srv.Close()

	st, err := NewClient(srv.URL).PostStatus(context.Background(), "tok-123", NewStatus{
		Status:     "hello fediverse",
		Visibility: "unlisted",
	})
	require.NoError(t, err)
	assert.Equal(t, "1", st.ID)
	assert.Equal(t, "https://mastodon.example/@me/1", st.URL)
}

func TestPostStatusEmpty(t *testing.T) {
	_, err := NewClient("https://mastodon.example").PostStatus(context.Background(), "tok", NewStatus{})
	assert.Error(t, err)
}

func TestNewClientNormalizesInstance(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewClient("mastodon.example").AuthorizeURL("c", "", ""), "https://mastodon.example/"))
	assert.True(t, strings.HasPrefix(NewClient("https://mastodon.example/").AuthorizeURL("c", "", ""), "https://mastodon.example/oauth"))
}

func TestCredentialsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	in := &Credentials{
		Instance:     "https://mastodon.example",
		ClientID:     "cid",
		ClientSecret: "csecret",
		AccessToken:  "tok-123",
	}
	require.NoError(t, SaveCredentials(path, in))

	out, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadCredentialsMissing(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "token.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login")
}

func TestLoadCredentialsNoToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveCredentials(path, &Credentials{Instance: "https://x"}))

	_, err := LoadCredentials(path)
	assert.Error(t, err)
}
