package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"followscope/pkg/auth"
	"followscope/pkg/config"
	errs "followscope/pkg/errors"
	"followscope/pkg/logger"
	"followscope/pkg/metrics"
	"followscope/pkg/ratelimit"
	"followscope/pkg/retry"
)

// rateLimitCode is the X error code for "Rate limit exceeded"
const rateLimitCode = 88

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL     string
	BearerToken string
	Timeout     time.Duration
	HTTPClient  *http.Client
	// Limiter is a hard request ceiling applied before every request
	Limiter ratelimit.Limiter
	// NetworkRetries bounds retries of transport failures (no response at all)
	NetworkRetries int
	Sleep          ratelimit.Sleeper
	Logger         logger.Logger
}

// OptionsFromConfig maps the x and rate_limit config sections to client options
func OptionsFromConfig(cfg *config.Config, log logger.Logger) Options {
	return Options{
		BaseURL:        cfg.X.BaseURL,
		BearerToken:    cfg.X.BearerToken,
		Timeout:        cfg.X.Timeout,
		Limiter:        ratelimit.NewCeiling(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize),
		NetworkRetries: 3,
		Logger:         log,
	}
}

// Client talks to the private v1.1 web API with a browser session
type Client struct {
	httpClient     *http.Client
	baseURL        string
	bearer         string
	session        *auth.Session
	limiter        ratelimit.Limiter
	networkRetries int
	sleep          ratelimit.Sleeper
	logger         logger.Logger
}

// NewClient creates a client bound to session
func NewClient(session *auth.Session, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.BearerToken == "" {
		opts.BearerToken = config.DefaultBearerToken
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited()
	}
	if opts.NetworkRetries <= 0 {
		opts.NetworkRetries = 1
	}
	if opts.Sleep == nil {
		opts.Sleep = ratelimit.Sleep
	}

	return &Client{
		httpClient:     opts.HTTPClient,
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		bearer:         opts.BearerToken,
		session:        session,
		limiter:        opts.Limiter,
		networkRetries: opts.NetworkRetries,
		sleep:          opts.Sleep,
		logger:         opts.Logger,
	}
}

// FetchIDs fetches one page of follower or following ids. An empty body is
// treated as the end of pagination.
func (c *Client) FetchIDs(ctx context.Context, endpoint, userID, cursor string) (*IDPage, error) {
	body, err := c.do(ctx, http.MethodGet, endpoint, idsQuery(userID, cursor), nil)
	if err != nil {
		return nil, err
	}
	if isBlank(body) {
		return &IDPage{NextCursor: "0"}, nil
	}

	var raw rawIDPage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, c.malformed(endpoint, body, err)
	}

	page := &IDPage{
		IDs:        make([]string, 0, len(raw.IDs)),
		NextCursor: pickCursor(raw.NextCursorStr, raw.NextCursor),
	}
	for _, id := range raw.IDs {
		page.IDs = append(page.IDs, string(id))
	}
	return page, nil
}

// FetchProfiles fetches one page of hydrated user objects
func (c *Client) FetchProfiles(ctx context.Context, endpoint, userID, cursor string) (*ProfilePage, error) {
	body, err := c.do(ctx, http.MethodGet, endpoint, listQuery(userID, cursor), nil)
	if err != nil {
		return nil, err
	}
	if isBlank(body) {
		return &ProfilePage{NextCursor: "0"}, nil
	}

	var raw rawProfilePage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, c.malformed(endpoint, body, err)
	}

	return &ProfilePage{
		Users:      raw.Users,
		NextCursor: pickCursor(raw.NextCursorStr, raw.NextCursor),
	}, nil
}

// Unfollow destroys the friendship with userID
func (c *Client) Unfollow(ctx context.Context, userID string) error {
	form := url.Values{}
	form.Set("user_id", userID)
	_, err := c.do(ctx, http.MethodPost, FriendshipDestroyEndpoint, "", form)
	return err
}

// do performs one logical request. Transport failures are retried up to
// networkRetries times; HTTP statuses are returned as typed errors for the
// caller to handle. Once sent, a request runs to completion even if ctx is
// cancelled; ctx only interrupts waits.
func (c *Client) do(ctx context.Context, method, endpoint, query string, form url.Values) ([]byte, error) {
	authToken, ct0, err := c.session.Credentials()
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	target := c.baseURL + endpoint
	if query != "" {
		target += "?" + query
	}

	cfg := &retry.Config{
		MaxAttempts: c.networkRetries,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf: func(err error) bool {
			return errs.TypeOf(err) == errs.ErrorTypeNetwork
		},
		Context: ctx,
		Sleep:   c.sleep,
		Logger:  c.logger,
	}

	var body []byte
	err = retry.Do(func() error {
		var encoded io.Reader
		if form != nil {
			encoded = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), method, target, encoded)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		for k, v := range sessionHeaders(c.bearer, authToken, ct0, c.session.UserAgent()) {
			req.Header.Set(k, v)
		}
		if form != nil {
			req.Header.Set("content-type", "application/x-www-form-urlencoded")
		}

		body, err = c.send(req, endpoint)
		return err
	}, cfg)

	return body, err
}

func (c *Client) send(req *http.Request, endpoint string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveRequest(endpoint, 0, start)
		c.logger.ErrorWithFields("request failed", map[string]interface{}{
			"method":   req.Method,
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		return nil, errs.Network(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Network(endpoint, fmt.Errorf("failed to read response body: %w", err))
	}

	metrics.ObserveRequest(endpoint, resp.StatusCode, start)
	logger.LogRequest(c.logger, req.Method, endpoint, resp.StatusCode, time.Since(start))

	c.rotateCT0(resp)

	if apiErr := errs.FromStatus(endpoint, resp.StatusCode); apiErr != nil {
		if apiErr.Type == errs.ErrorTypeRequestFailed && hasCode(errorCodes(body), rateLimitCode) {
			return nil, errs.RateLimited(endpoint)
		}
		return nil, apiErr
	}
	return body, nil
}

// rotateCT0 adopts a ct0 cookie the server set on this response
func (c *Client) rotateCT0(resp *http.Response) {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "ct0" && c.session.UpdateCT0(cookie.Value) {
			c.logger.Debug("ct0 rotated by server")
		}
	}
}

func (c *Client) malformed(endpoint string, body []byte, err error) error {
	preview := string(body)
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
		"endpoint":     endpoint,
		"error":        err.Error(),
		"body_preview": preview,
	})
	return errs.MalformedResponse(endpoint, err.Error())
}

func hasCode(codes []int, want int) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}
