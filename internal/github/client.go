// Package github talks to the GitHub REST API for connection checks.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v66/github"

	"github.com/starford/cookbook/internal/apperr"
)

// RepoInfo describes a repository as seen by the authenticated user.
type RepoInfo struct {
	FullName      string          `json:"full_name"`
	DefaultBranch string          `json:"default_branch"`
	Private       bool            `json:"private"`
	Permissions   map[string]bool `json:"permissions"`
}

// Client is a token-authenticated GitHub API client.
type Client struct {
	api *gh.Client
}

type options struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL points the client at another API root, such as a GitHub
// Enterprise server or a test server.
func WithBaseURL(raw string) Option {
	return func(o *options) {
		o.baseURL = raw
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// New creates a Client authenticating with token. An empty token makes
// anonymous requests.
func New(token string, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	api := gh.NewClient(o.httpClient)
	if token != "" {
		api = api.WithAuthToken(token)
	}
	if o.baseURL != "" {
		raw := o.baseURL
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("github: parse base url: %w", err)
		}
		api.BaseURL = u
	}
	return &Client{api: api}, nil
}

// CurrentUser returns the login of the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	u, _, err := c.api.Users.Get(ctx, "")
	if err != nil {
		return "", wrap("get authenticated user", err)
	}
	return u.GetLogin(), nil
}

// Repository returns owner/name with the caller's permissions on it.
func (c *Client) Repository(ctx context.Context, owner, name string) (*RepoInfo, error) {
	r, _, err := c.api.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, wrap("get repository", err)
	}
	perms := r.GetPermissions()
	if perms == nil {
		perms = map[string]bool{}
	}
	return &RepoInfo{
		FullName:      r.GetFullName(),
		DefaultBranch: r.GetDefaultBranch(),
		Private:       r.GetPrivate(),
		Permissions:   perms,
	}, nil
}

// wrap maps API failures onto apperr sentinels. The message keeps the status
// code so callers can tell authentication from missing repositories.
func wrap(op string, err error) error {
	var resp *gh.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		switch resp.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("github: %s: %d not found: %w", op, resp.Response.StatusCode, apperr.ErrNotFound)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("github: %s: %d authentication failed: %w", op, resp.Response.StatusCode, apperr.ErrRemote)
		}
	}
	return fmt.Errorf("github: %s: %v: %w", op, err, apperr.ErrRemote)
}
