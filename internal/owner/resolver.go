// Package owner resolves the numeric hosting account id of a repository
// owner.
package owner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// ErrResolutionFailed is returned when an owner id cannot be obtained.
var ErrResolutionFailed = errors.New("owner resolution failed")

const (
	// DefaultOwnerID is used by callers when resolution fails.
	DefaultOwnerID = "00000"

	// NoAPIOwnerID is returned for hosts without a lookup API.
	NoAPIOwnerID = "0000"

	// DefaultUserAgent is sent with hosting API requests.
	DefaultUserAgent = "heline-indexer"
)

// Resolver looks up the account id of username on host.
type Resolver interface {
	ResolveOwnerID(ctx context.Context, host, username string) (string, error)
}

// GitHubOptions configures a GitHubResolver.
type GitHubOptions struct {
	Token     string
	BaseURL   string // API root, e.g. https://github.example.com/api/v3/
	UserAgent string
}

// GitHubResolver resolves owner ids through the GitHub users API.
type GitHubResolver struct {
	client *github.Client
}

// NewGitHubResolver creates a GitHubResolver. The token is optional;
// anonymous requests are rate limited by GitHub.
func NewGitHubResolver(ctx context.Context, opts GitHubOptions) (*GitHubResolver, error) {
	var client *github.Client
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	} else {
		client = github.NewClient(nil)
	}

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	client.UserAgent = opts.UserAgent
	if client.UserAgent == "" {
		client.UserAgent = DefaultUserAgent
	}

	return &GitHubResolver{client: client}, nil
}

// ResolveOwnerID returns the GitHub account id of username. The host is not
// consulted.
func (r *GitHubResolver) ResolveOwnerID(ctx context.Context, _ string, username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: empty username", ErrResolutionFailed)
	}

	user, _, err := r.client.Users.Get(ctx, username)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrResolutionFailed, username, err)
	}
	if user.ID == nil {
		return "", fmt.Errorf("%w: %s: response has no id", ErrResolutionFailed, username)
	}
	return strconv.FormatInt(user.GetID(), 10), nil
}

// HostResolver dispatches lookups to per-host resolvers and caches the
// results. Hosts without a registered resolver get a constant id.
type HostResolver struct {
	noAPIID   string
	resolvers map[string]Resolver

	mu    sync.Mutex
	cache map[string]string
}

// NewHostResolver creates a HostResolver returning noAPIID for unregistered
// hosts.
func NewHostResolver(noAPIID string) *HostResolver {
	if noAPIID == "" {
		noAPIID = NoAPIOwnerID
	}
	return &HostResolver{
		noAPIID:   noAPIID,
		resolvers: make(map[string]Resolver),
		cache:     make(map[string]string),
	}
}

// Register sets the resolver used for host.
func (h *HostResolver) Register(host string, r Resolver) {
	h.resolvers[strings.ToLower(host)] = r
}

// ResolveOwnerID implements Resolver.
func (h *HostResolver) ResolveOwnerID(ctx context.Context, host, username string) (string, error) {
	host = strings.ToLower(host)
	r, ok := h.resolvers[host]
	if !ok {
		return h.noAPIID, nil
	}

	key := host + "/" + username
	h.mu.Lock()
	id, cached := h.cache[key]
	h.mu.Unlock()
	if cached {
		slog.Debug("Owner id cache hit", "host", host, "owner", username, "owner_id", id)
		return id, nil
	}

	id, err := r.ResolveOwnerID(ctx, host, username)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	h.cache[key] = id
	h.mu.Unlock()
	return id, nil
}
