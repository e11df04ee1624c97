package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/swiftyco/go-intra-client/internal/config"
	interrors "github.com/swiftyco/go-intra-client/internal/errors"
	"github.com/swiftyco/go-intra-client/session"
)

// refreshTimeout bounds a refresh once its originating request has been
// abandoned; the refresh keeps running on a background context so the
// shared session store stays consistent for other callers.
const refreshTimeout = 30 * time.Second

// Condition is a session-level authentication outcome the pipeline cannot
// resolve on its own. It is reported to the session controller, which owns
// the resulting state transition.
type Condition int

const (
	// ConditionSignedOut means refresh was exhausted and the session was
	// cleared; the user must authenticate again.
	ConditionSignedOut Condition = iota + 1

	// ConditionSecretExpired means the application secret itself has
	// expired. No amount of refreshing helps; the user must install a new
	// secret out-of-band.
	ConditionSecretExpired
)

func (c Condition) String() string {
	switch c {
	case ConditionSignedOut:
		return "signed_out"
	case ConditionSecretExpired:
		return "secret_expired"
	default:
		return "unknown"
	}
}

// Refresher is the subset of the token exchanger the pipeline drives.
type Refresher interface {
	Refresh(ctx context.Context, current *session.Session) (*session.Session, error)
}

// Client wraps every outbound resource call: it injects the current bearer
// token, and on a 401 it refreshes the session once and retries the call
// exactly once. Concurrent 401s collapse into a single refresh.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	repo        session.Repo
	refresher   Refresher
	onCondition func(Condition)
	nowTime     func() time.Time // nowTime function (injectable for testing)

	// refreshGroup serializes refresh attempts per refresh token so two
	// in-flight 401s never burn the same (rotating) refresh token twice.
	refreshGroup singleflight.Group
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// WithConditionHandler registers the callback invoked when the pipeline
// detects a session-level condition (see Condition).
func WithConditionHandler(handler func(Condition)) ClientOption {
	return func(c *Client) {
		c.onCondition = handler
	}
}

// NewClient initializes an authenticated API client.
func NewClient(cfg config.OAuthConfig, repo session.Repo, refresher Refresher, options ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("[NewClient] config is required")
	}
	if repo == nil {
		return nil, errors.New("[NewClient] session repo is required")
	}
	if refresher == nil {
		return nil, errors.New("[NewClient] refresher is required")
	}

	client := &Client{
		baseURL:    strings.TrimSuffix(cfg.GetAPIBaseURL(), "/"),
		httpClient: &http.Client{Timeout: cfg.GetHTTPTimeout()},
		repo:       repo,
		refresher:  refresher,
		nowTime:    time.Now,
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// Get performs an authenticated GET against the resource API and returns
// the response body. Non-2xx statuses other than 401 are passed through as
// a ProviderError; 401 is arbitrated by the refresh protocol.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.get(ctx, path, query, true)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, allowRetry bool) ([]byte, error) {
	sess, err := c.repo.Get()
	if err != nil {
		return nil, errors.Wrap(err, "[Get] reading session")
	}

	body, status, err := c.dispatch(ctx, sess, path, query)
	if err != nil {
		return nil, err
	}

	switch {
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return body, nil
	case status == http.StatusUnauthorized:
		if !allowRetry {
			return nil, interrors.ErrUnauthorized
		}
		return c.retryAfterRefresh(ctx, sess, path, query)
	default:
		return nil, &interrors.ProviderError{StatusCode: status}
	}
}

// retryAfterRefresh handles the first 401 of a logical call: it refreshes
// the session (unless the secret itself is expired) and replays the call
// once with the new token. The second attempt's outcome is final.
func (c *Client) retryAfterRefresh(ctx context.Context, sess *session.Session, path string, query url.Values) ([]byte, error) {
	if sess == nil {
		// Nothing to refresh with; an unauthenticated call simply failed.
		return nil, interrors.ErrUnauthorized
	}

	if sess.SecretExpired(c.nowTime()) {
		log.Warn().Msg("application secret expired; refresh suppressed")
		c.notify(ConditionSecretExpired)
		return nil, interrors.ErrUnauthorized
	}

	if err := c.refreshSession(ctx, sess); err != nil {
		if ctx.Err() != nil {
			// The caller abandoned the request. The refresh itself keeps
			// running in the background; only this caller gives up.
			return nil, ctx.Err()
		}
		log.Debug().Err(err).Msg("refresh exhausted; clearing session")
		if clearErr := c.repo.Clear(); clearErr != nil {
			log.Warn().Err(clearErr).Msg("failed to clear session after refresh failure")
		}
		c.notify(ConditionSignedOut)
		return nil, errors.Wrap(err, "[Get] session refresh")
	}

	return c.get(ctx, path, query, false)
}

// refreshSession refreshes the session at most once per refresh token,
// however many callers hit a 401 concurrently. Waiters that are cancelled
// return early while the shared refresh completes in the background.
func (c *Client) refreshSession(ctx context.Context, sess *session.Session) error {
	ch := c.refreshGroup.DoChan(sess.RefreshToken, func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		return c.refresher.Refresh(refreshCtx, sess)
	})

	select {
	case result := <-ch:
		return result.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) dispatch(ctx context.Context, sess *session.Session, path string, query url.Values) ([]byte, int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "[dispatch] building request")
	}
	req.Header.Set("Accept", "application/json")
	if sess != nil {
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "[dispatch] transport")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "[dispatch] reading response")
	}
	return body, resp.StatusCode, nil
}

func (c *Client) notify(cond Condition) {
	if c.onCondition != nil {
		c.onCondition(cond)
	}
}
