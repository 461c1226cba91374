package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sboagy/tablestate"
	"golang.org/x/oauth2"
)

// HTTPOption configures an HTTPGateway.
type HTTPOption func(*httpOptions)

type httpOptions struct {
	client      *http.Client
	tokenSource oauth2.TokenSource
}

// WithHTTPClient uses client as the base for requests. Its transport is
// wrapped, not replaced.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(o *httpOptions) {
		o.client = client
	}
}

// WithTokenSource authenticates requests with tokens from ts, taking
// precedence over Config.Token.
func WithTokenSource(ts oauth2.TokenSource) HTTPOption {
	return func(o *httpOptions) {
		o.tokenSource = ts
	}
}

// HTTPGateway writes table state to
// {base}/settings/table_state/{user}/{scope}/{purpose}/{resource}.
type HTTPGateway struct {
	baseURL *url.URL
	client  *http.Client
}

var _ tablestate.Gateway = (*HTTPGateway)(nil)

// userAgentRoundTripper sets the User-Agent header on every request.
type userAgentRoundTripper struct {
	wrapped   http.RoundTripper
	userAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", rt.userAgent)
	return rt.wrapped.RoundTrip(clone)
}

// NewHTTPGateway builds a gateway from cfg.
func NewHTTPGateway(cfg Config, opts ...HTTPOption) (*HTTPGateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway: base_url: %w", err)
	}

	o := httpOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	client := &http.Client{}
	if o.client != nil {
		copied := *o.client
		client = &copied
	}
	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if cfg.UserAgent != "" {
		transport = &userAgentRoundTripper{wrapped: transport, userAgent: cfg.UserAgent}
	}
	ts := o.tokenSource
	if ts == nil && cfg.Token != "" {
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	}
	if ts != nil {
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	client.Transport = transport
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}

	return &HTTPGateway{baseURL: base, client: client}, nil
}

// UpdateTableState implements tablestate.Gateway. Any HTTP response, 2xx or
// not, is reported through the status with a nil error.
func (g *HTTPGateway) UpdateTableState(ctx context.Context, userID int64, scope tablestate.Scope, purpose tablestate.Purpose, resourceID int64, state tablestate.TableState) (int, error) {
	body, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("gateway: encode state: %w", err)
	}

	endpoint := g.baseURL.JoinPath(
		"settings", "table_state",
		strconv.FormatInt(userID, 10),
		string(scope),
		string(purpose),
		strconv.FormatInt(resourceID, 10),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
