package owner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newGitHubServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHubResolver_ResolveOwnerID(t *testing.T) {
	var gotAuth, gotAgent string
	srv := newGitHubServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		if r.URL.Path != "/users/octocat" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"octocat","id":583231}`))
	})

	r, err := NewGitHubResolver(context.Background(), GitHubOptions{
		Token:     "secret-token",
		BaseURL:   srv.URL,
		UserAgent: "test-agent",
	})
	if err != nil {
		t.Fatalf("NewGitHubResolver failed: %v", err)
	}

	id, err := r.ResolveOwnerID(context.Background(), "github.com", "octocat")
	if err != nil {
		t.Fatalf("ResolveOwnerID failed: %v", err)
	}
	if id != "583231" {
		t.Errorf("id = %q, want 583231", id)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotAgent != "test-agent" {
		t.Errorf("User-Agent = %q", gotAgent)
	}
}

func TestGitHubResolver_Failures(t *testing.T) {
	tests := []struct {
		name     string
		username string
		handler  http.HandlerFunc
	}{
		{
			name:     "not found",
			username: "ghost",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			},
		},
		{
			name:     "missing id",
			username: "odd",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"login":"odd"}`))
			},
		},
		{
			name:     "empty username",
			username: "",
			handler: func(w http.ResponseWriter, r *http.Request) {
				t.Error("Empty username should not reach the API")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGitHubServer(t, tt.handler)
			r, err := NewGitHubResolver(context.Background(), GitHubOptions{BaseURL: srv.URL + "/"})
			if err != nil {
				t.Fatal(err)
			}
			_, err = r.ResolveOwnerID(context.Background(), "github.com", tt.username)
			if !errors.Is(err, ErrResolutionFailed) {
				t.Errorf("Expected ErrResolutionFailed, got %v", err)
			}
		})
	}
}

func TestNewGitHubResolver_InvalidBaseURL(t *testing.T) {
	if _, err := NewGitHubResolver(context.Background(), GitHubOptions{BaseURL: "://bad"}); err == nil {
		t.Error("Expected error for invalid base URL")
	}
}

type countingResolver struct {
	calls atomic.Int32
	id    string
	err   error
}

func (c *countingResolver) ResolveOwnerID(_ context.Context, _, _ string) (string, error) {
	c.calls.Add(1)
	return c.id, c.err
}

func TestHostResolver(t *testing.T) {
	gh := &countingResolver{id: "42"}
	h := NewHostResolver("")
	h.Register("GitHub.com", gh)

	ctx := context.Background()
	for range 3 {
		id, err := h.ResolveOwnerID(ctx, "github.com", "org")
		if err != nil || id != "42" {
			t.Fatalf("ResolveOwnerID = %q, %v", id, err)
		}
	}
	if gh.calls.Load() != 1 {
		t.Errorf("Expected one API call with caching, got %d", gh.calls.Load())
	}

	if _, err := h.ResolveOwnerID(ctx, "github.com", "other"); err != nil {
		t.Fatal(err)
	}
	if gh.calls.Load() != 2 {
		t.Errorf("Expected a new lookup for another owner, got %d calls", gh.calls.Load())
	}

	id, err := h.ResolveOwnerID(ctx, "gitlab.com", "group")
	if err != nil {
		t.Fatal(err)
	}
	if id != NoAPIOwnerID {
		t.Errorf("id = %q, want %q for host without API", id, NoAPIOwnerID)
	}
}

func TestHostResolver_ErrorsAreNotCached(t *testing.T) {
	failing := &countingResolver{err: ErrResolutionFailed}
	h := NewHostResolver("1111")
	h.Register("github.com", failing)

	for range 2 {
		if _, err := h.ResolveOwnerID(context.Background(), "github.com", "org"); !errors.Is(err, ErrResolutionFailed) {
			t.Fatalf("Expected ErrResolutionFailed, got %v", err)
		}
	}
	if failing.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", failing.calls.Load())
	}

	if id, _ := h.ResolveOwnerID(context.Background(), "bitbucket.org", "x"); id != "1111" {
		t.Errorf("id = %q, want configured no-API id", id)
	}
}
