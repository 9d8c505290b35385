// Package eda is a client for the EDA REST API. Authentication goes through
// the Keycloak instance proxied by the EDA API server.
package eda

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eda-labs/clab-connector/pkg/config"
	"github.com/eda-labs/clab-connector/pkg/util"
	"github.com/eda-labs/clab-connector/pkg/version"
)

// Keycloak realms and clients
const (
	keycloakAdminRealm    = "master"
	keycloakAdminClientID = "admin-cli"
	edaRealm              = "eda"
	edaClientID           = "eda"
	keycloakPrefix        = "core/httpproxy/v1/keycloak"
)

// Default API groups
const (
	CoreGroup   = "core.eda.nokia.com"
	CoreVersion = "v1"
)

// tokenRefreshMargin is how close to expiry a token is replaced.
const tokenRefreshMargin = 30 * time.Second

// requestTimeout bounds every HTTP request. Transaction details are
// long-polled so this is generous.
var requestTimeout = 5 * time.Minute

// Client talks to one EDA deployment. It accumulates transaction items
// until CommitTransaction is called.
type Client struct {
	baseURL string
	cfg     config.EDA
	http    *http.Client

	mu           sync.Mutex
	clientSecret string
	accessToken  string
	tokenExpiry  time.Time
	version      string

	pending []Item
}

// New creates a client for cfg.URL. No request is made until first use.
func New(cfg config.EDA) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid EDA URL '%s'", cfg.URL)
	}

	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.Verify},
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.URL, "/"),
		cfg:          cfg,
		http:         &http.Client{Transport: transport, Timeout: requestTimeout},
		clientSecret: cfg.KCSecret,
	}, nil
}

// Login acquires an access token through the resource-owner password flow
// in the eda realm. Without a configured client secret the secret is first
// read with Keycloak admin credentials from the master realm.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	if c.clientSecret == "" {
		util.Info("No client secret provided; fetching it via the Keycloak admin API")
		secret, err := c.fetchClientSecret(ctx)
		if err != nil {
			return err
		}
		c.clientSecret = secret
		util.Debug("Retrieved client secret from Keycloak")
	}

	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {edaClientID},
		"client_secret": {c.clientSecret},
		"scope":         {"openid"},
		"username":      {c.cfg.User},
		"password":      {c.cfg.Password},
	}
	token, err := c.fetchToken(ctx, edaRealm, form)
	if err != nil {
		return util.NewConnectionError("login", err.Error())
	}
	c.accessToken = token
	c.tokenExpiry = tokenExpiry(token)
	util.Debug("Keycloak login successful")
	return nil
}

func (c *Client) fetchClientSecret(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {keycloakAdminClientID},
		"username":   {c.cfg.KCUser},
		"password":   {c.cfg.KCPassword},
	}
	adminToken, err := c.fetchToken(ctx, keycloakAdminRealm, form)
	if err != nil {
		return "", util.NewConnectionError("Keycloak admin login", err.Error())
	}

	clientsPath := fmt.Sprintf("%s/admin/realms/%s/clients", keycloakPrefix, edaRealm)
	var clients []struct {
		ID       string `json:"id"`
		ClientID string `json:"clientId"`
	}
	status, body, err := c.do(ctx, http.MethodGet, clientsPath, bearer(adminToken), nil)
	if err != nil {
		return "", util.NewConnectionError("list Keycloak clients", err.Error())
	}
	if status != http.StatusOK {
		return "", util.NewConnectionError("list Keycloak clients", fmt.Sprintf("realm '%s': HTTP %d: %s", edaRealm, status, body))
	}
	if err := json.Unmarshal(body, &clients); err != nil {
		return "", util.NewConnectionError("list Keycloak clients", err.Error())
	}

	var id string
	for _, cl := range clients {
		if cl.ClientID == edaClientID {
			id = cl.ID
			break
		}
	}
	if id == "" {
		return "", util.NewConnectionError("fetch client secret", fmt.Sprintf("client '%s' not found in realm '%s'", edaClientID, edaRealm))
	}

	status, body, err = c.do(ctx, http.MethodGet, clientsPath+"/"+id+"/client-secret", bearer(adminToken), nil)
	if err != nil {
		return "", util.NewConnectionError("fetch client secret", err.Error())
	}
	if status != http.StatusOK {
		return "", util.NewConnectionError("fetch client secret", fmt.Sprintf("HTTP %d: %s", status, body))
	}
	var secret struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(body, &secret); err != nil {
		return "", util.NewConnectionError("fetch client secret", err.Error())
	}
	return secret.Value, nil
}

func (c *Client) fetchToken(ctx context.Context, realm string, form url.Values) (string, error) {
	path := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", keycloakPrefix, realm)
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	status, body, err := c.do(ctx, http.MethodPost, path, headers, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("token request in realm '%s': HTTP %d: %s", realm, status, body)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("no access token in realm '%s' response", realm)
	}
	return tok.AccessToken, nil
}

// tokenExpiry reads the exp claim. The signature is not checked since the
// token came straight from Keycloak over the API connection.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// authHeaders returns the Authorization header, logging in first when there
// is no token or it is about to expire.
func (c *Client) authHeaders(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiring := !c.tokenExpiry.IsZero() && time.Until(c.tokenExpiry) < tokenRefreshMargin
	if c.accessToken == "" || expiring {
		if expiring {
			util.Debug("Access token about to expire; logging in again")
		}
		if err := c.loginLocked(ctx); err != nil {
			return nil, err
		}
	}
	return bearer(c.accessToken), nil
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// do performs one request against path relative to the base URL and returns
// the status code and body.
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body io.Reader) (int, []byte, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	util.Debugf("%s %s", method, u)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// Get performs an authenticated GET.
func (c *Client) Get(ctx context.Context, path string) (int, []byte, error) {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return 0, nil, err
	}
	return c.do(ctx, http.MethodGet, path, headers, nil)
}

// Post performs an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, payload interface{}) (int, []byte, error) {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return 0, nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}
	headers["Content-Type"] = "application/json"
	return c.do(ctx, http.MethodPost, path, headers, bytes.NewReader(data))
}

// IsUp reports whether the health endpoint answers with status UP. No
// authentication is needed.
func (c *Client) IsUp(ctx context.Context) bool {
	util.Info("Checking EDA health")
	status, body, err := c.do(ctx, http.MethodGet, "core/about/health", nil, nil)
	if err != nil {
		util.Debugf("health check failed: %v", err)
		return false
	}
	if status != http.StatusOK {
		return false
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return false
	}
	return health.Status == "UP"
}

// Version returns the EDA release with any build suffix removed. The value
// is cached after the first successful call.
func (c *Client) Version(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.version
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	status, body, err := c.Get(ctx, "core/about/version")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", util.NewConnectionError("version check", fmt.Sprintf("HTTP %d: %s", status, body))
	}
	var v struct {
		EDA struct {
			Version string `json:"version"`
		} `json:"eda"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return "", util.NewConnectionError("version check", err.Error())
	}
	ver, _, _ := strings.Cut(v.EDA.Version, "-")

	c.mu.Lock()
	c.version = ver
	c.mu.Unlock()
	util.Infof("EDA version: %s", ver)
	return ver, nil
}

// IsAuthenticated reports whether the credentials can read the EDA version.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	if _, err := c.Version(ctx); err != nil {
		util.Debugf("authentication check failed: %v", err)
		return false
	}
	return true
}
