// Package github is a thin authenticated GitHub API client used for
// connectivity checks.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v66/github"
)

// Client is an authenticated GitHub client scoped to one repository.
type Client struct {
	api    *gh.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// Config configures the GitHub client.
type Config struct {
	Token string
	Owner string
	Repo  string
	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New creates a GitHub client authenticated with cfg.Token.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	api := gh.NewClient(cfg.HTTPClient).WithAuthToken(cfg.Token)
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("github: invalid base url %q: %w", cfg.BaseURL, err)
		}
		api.BaseURL = u
	}
	return &Client{
		api:    api,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		logger: cfg.Logger,
	}, nil
}

func (c *Client) Name() string { return "github" }

// Repository returns "owner/repo".
func (c *Client) Repository() string { return c.owner + "/" + c.repo }

// WhoAmI returns the login of the authenticated user.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	u, _, err := c.api.Users.Get(ctx, "")
	if err != nil {
		return "", err
	}
	c.logger.DebugContext(ctx, "github authenticated", "login", u.GetLogin())
	return u.GetLogin(), nil
}
