package token

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/swiftyco/go-intra-client/internal/config"
	interrors "github.com/swiftyco/go-intra-client/internal/errors"
	"github.com/swiftyco/go-intra-client/internal/utils"
	"github.com/swiftyco/go-intra-client/session"
)

// Exchanger performs the two token endpoint operations: exchanging an
// authorization code for a session, and refreshing an existing session.
//
// Both operations are idempotent-on-failure: a failed call leaves the
// session repo exactly as it was, so the caller may retry with a fresh
// authorization code or abandon the attempt safely.
type Exchanger struct {
	cfg        config.OAuthConfig
	repo       session.Repo
	httpClient *http.Client
	nowTime    func() time.Time // nowTime function (injectable for testing)
}

// ExchangerOption defines a function type to modify the Exchanger instance.
type ExchangerOption func(*Exchanger)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ExchangerOption {
	return func(e *Exchanger) {
		e.httpClient = httpClient
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ExchangerOption {
	return func(e *Exchanger) {
		e.nowTime = nowFunc
	}
}

// NewExchanger initializes an Exchanger with required dependencies.
func NewExchanger(cfg config.OAuthConfig, repo session.Repo, options ...ExchangerOption) (*Exchanger, error) {
	if cfg == nil {
		return nil, errors.New("[NewExchanger] config is required")
	}
	if repo == nil {
		return nil, errors.New("[NewExchanger] session repo is required")
	}

	exchanger := &Exchanger{
		cfg:        cfg,
		repo:       repo,
		httpClient: &http.Client{Timeout: cfg.GetHTTPTimeout()},
		nowTime:    time.Now,
	}

	for _, opt := range options {
		opt(exchanger)
	}

	return exchanger, nil
}

// ExchangeCode exchanges a single-use authorization code for a session and
// persists it. On any transport, provider or parse failure the repo is left
// untouched.
func (e *Exchanger) ExchangeCode(ctx context.Context, code string) (*session.Session, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("[ExchangeCode] empty authorization code")
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {e.cfg.GetClientID()},
		"client_secret": {e.cfg.GetClientSecret()},
		"code":          {code},
		"redirect_uri":  {e.cfg.GetRedirectURI()},
	}

	sess, err := e.requestToken(ctx, form)
	if err != nil {
		return nil, errors.Wrap(err, "[ExchangeCode] token endpoint")
	}
	if err := e.repo.Put(sess); err != nil {
		return nil, errors.Wrap(err, "[ExchangeCode] persisting session")
	}

	log.Info().
		Time("access_token_expires_at", sess.AccessTokenExpiresAt).
		Bool("secret_expiry_declared", sess.SecretExpiresAt != nil).
		Msg("session established")
	return sess, nil
}

// Refresh exchanges the session's refresh token for a rotated token pair
// and overwrites the stored session. The previous refresh token becomes
// invalid on success and must not be reused.
//
// Precondition: the caller has already verified the application secret is
// not expired; the provider fails opaquely otherwise.
func (e *Exchanger) Refresh(ctx context.Context, current *session.Session) (*session.Session, error) {
	if current == nil || current.RefreshToken == "" {
		return nil, errors.Wrap(interrors.ErrNoSession, "[Refresh] missing refresh token")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {e.cfg.GetClientID()},
		"client_secret": {e.cfg.GetClientSecret()},
		"refresh_token": {current.RefreshToken},
	}

	sess, err := e.requestToken(ctx, form)
	if err != nil {
		return nil, errors.Wrap(err, "[Refresh] token endpoint")
	}
	if err := e.repo.Put(sess); err != nil {
		return nil, errors.Wrap(err, "[Refresh] persisting session")
	}

	log.Debug().
		Time("access_token_expires_at", sess.AccessTokenExpiresAt).
		Msg("session refreshed")
	return sess, nil
}

// requestToken posts a form to the token endpoint and normalizes the
// response into a Session. It does not touch the repo.
func (e *Exchanger) requestToken(ctx context.Context, form url.Values) (*session.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.GetTokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "transport")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &interrors.ProviderError{StatusCode: resp.StatusCode}
	}

	var tr Response
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, interrors.ErrMalformedResponse
	}
	if utils.Value(tr.AccessToken) == "" || utils.Value(tr.RefreshToken) == "" || tr.ExpiresIn == nil {
		return nil, interrors.ErrMalformedResponse
	}

	now := e.nowTime()
	sess := &session.Session{
		AccessToken:          *tr.AccessToken,
		RefreshToken:         *tr.RefreshToken,
		AccessTokenExpiresAt: now.Add(time.Duration(*tr.ExpiresIn) * time.Second),
	}
	// expires_in is relative seconds while secret_valid_until is absolute
	// seconds since epoch; both are normalized here and nowhere else.
	if tr.SecretValidUntil != nil {
		sess.SecretExpiresAt = utils.Ptr(time.Unix(*tr.SecretValidUntil, 0))
	}
	return sess, nil
}
