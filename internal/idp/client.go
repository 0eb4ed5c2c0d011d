// Package idp talks to the identity provider's management API on behalf of
// the Logger API. Only user creation is supported.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/loggerapp/logger-api/internal/domain"
)

// DefaultConnection is the Auth0 database connection new users are created in.
const DefaultConnection = "Username-Password-Authentication"

// ErrNotConfigured is returned by NewClient when domain or client
// credentials are missing.
var ErrNotConfigured = errors.New("identity provider not configured")

// UpstreamError is a non-2xx response from the management API. Body is the
// provider's JSON error document, passed back to API callers as details.
type UpstreamError struct {
	Status int
	Body   json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("identity provider returned %d", e.Status)
}

// TokenError is a failure to obtain a management API access token.
// Status is zero when the token endpoint could not be reached.
type TokenError struct {
	Status int
	Body   json.RawMessage
	Err    error
}

func (e *TokenError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("identity provider token request returned %d", e.Status)
	}
	return fmt.Sprintf("identity provider token request failed: %v", e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// Config holds management API credentials.
type Config struct {
	Domain       string
	ClientID     string
	ClientSecret string
	// Audience defaults to https://{Domain}/api/v2/.
	Audience string
	// Connection defaults to DefaultConnection.
	Connection string
	// BaseURL overrides https://{Domain}; used by tests.
	BaseURL string
}

// Client creates users through the Auth0 Management API. Access tokens are
// obtained with the client-credentials grant and cached until expiry.
type Client struct {
	http       *http.Client
	baseURL    string
	connection string
}

// NewClient builds a Client. ctx carries the HTTP client used for token
// requests (see oauth2.HTTPClient) and should outlive the Client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if (cfg.Domain == "" && cfg.BaseURL == "") || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNotConfigured
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://" + cfg.Domain
	}
	base = strings.TrimSuffix(base, "/")
	if cfg.Audience == "" {
		cfg.Audience = base + "/api/v2/"
	}
	if cfg.Connection == "" {
		cfg.Connection = DefaultConnection
	}

	cc := clientcredentials.Config{
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		TokenURL:       base + "/oauth/token",
		EndpointParams: url.Values{"audience": {cfg.Audience}},
		AuthStyle:      oauth2.AuthStyleInParams,
	}
	httpClient := cc.Client(ctx)
	httpClient.Timeout = 10 * time.Second

	return &Client{http: httpClient, baseURL: base, connection: cfg.Connection}, nil
}

type createUserRequest struct {
	Email         string `json:"email"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	Connection    string `json:"connection"`
	EmailVerified bool   `json:"email_verified"`
}

// CreateUser creates an unverified user and returns the provider's user
// document as-is. A non-2xx reply is returned as *UpstreamError and a token
// failure as *TokenError.
func (c *Client) CreateUser(ctx context.Context, u domain.NewUser) (json.RawMessage, error) {
	body, err := json.Marshal(createUserRequest{
		Email:      u.Email,
		Username:   u.Username,
		Password:   u.Password,
		Connection: c.connection,
	})
	if err != nil {
		return nil, fmt.Errorf("idp.Client.CreateUser: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/users", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("idp.Client.CreateUser: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			te := &TokenError{Body: jsonOrNil(re.Body), Err: re}
			if re.Response != nil {
				te.Status = re.Response.StatusCode
			}
			return nil, fmt.Errorf("idp.Client.CreateUser: %w", te)
		}
		return nil, fmt.Errorf("idp.Client.CreateUser: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("idp.Client.CreateUser: read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("idp.Client.CreateUser: %w", &UpstreamError{Status: resp.StatusCode, Body: jsonOrNil(raw)})
	}
	return jsonOrNil(raw), nil
}

// jsonOrNil returns b if it is valid JSON, so it can be embedded in a
// response body without breaking the encoding.
func jsonOrNil(b []byte) json.RawMessage {
	if len(b) == 0 || !json.Valid(b) {
		return nil
	}
	return json.RawMessage(b)
}
