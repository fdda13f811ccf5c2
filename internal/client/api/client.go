// Package api implements the HTTP client for the storefront auth API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spec-kit/storefront-service/internal/api/dto"
	"github.com/spec-kit/storefront-service/internal/domain"
)

const defaultTimeout = 10 * time.Second

// APIError carries the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// AuthResult is the outcome of a successful register or login call.
type AuthResult struct {
	User         domain.PublicAccount
	AccessToken  string
	RefreshToken string
}

// Client talks to the auth endpoints. Every call is bounded by the HTTP
// client timeout so a dead server cannot hang the caller indefinitely.
type Client struct {
	baseURL     string
	http        *http.Client
	accessToken string
}

// NewClient builds a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// SetAccessToken sets the bearer credential attached to protected calls.
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, email, password, name string) (AuthResult, error) {
	var out struct {
		Data dto.AuthResponse `json:"data"`
	}
	body := dto.RegisterRequest{Email: email, Password: password, Name: name}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: out.Data.User, AccessToken: out.Data.AccessToken, RefreshToken: out.Data.RefreshToken}, nil
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out struct {
		Data dto.AuthResponse `json:"data"`
	}
	body := dto.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: out.Data.User, AccessToken: out.Data.AccessToken, RefreshToken: out.Data.RefreshToken}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var out struct {
		Data dto.RefreshResponse `json:"data"`
	}
	body := dto.RefreshRequest{RefreshToken: refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", body, &out); err != nil {
		return "", err
	}
	return out.Data.AccessToken, nil
}

// Logout asks the server to revoke the refresh record.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := dto.LogoutRequest{RefreshToken: refreshToken}
	return c.do(ctx, http.MethodPost, "/auth/logout", body, nil)
}

// Me fetches the caller's identity.
func (c *Client) Me(ctx context.Context) (domain.PublicAccount, error) {
	var out struct {
		Data struct {
			User domain.PublicAccount `json:"user"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return domain.PublicAccount{}, err
	}
	return out.Data.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
