package token

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// AuthorizationURL returns the provider URL the user must visit to approve
// access. The redirect back to the client carries the single-use
// authorization code.
func (e *Exchanger) AuthorizationURL(state string) string {
	conf := &oauth2.Config{
		ClientID:    e.cfg.GetClientID(),
		RedirectURL: e.cfg.GetRedirectURI(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  e.cfg.GetAuthorizeURL(),
			TokenURL: e.cfg.GetTokenURL(),
		},
	}
	return conf.AuthCodeURL(state)
}

// NewState returns a fresh opaque state parameter for an authorization
// request.
func NewState() string {
	return uuid.New().String()
}

// ParseAuthorizationCode extracts the authorization code and state from a
// provider redirect URL. A redirect carrying an error parameter is reported
// as a failure.
func ParseAuthorizationCode(rawURL string) (code, state string, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", errors.Wrap(err, "[ParseAuthorizationCode] invalid redirect URL")
	}

	query := parsed.Query()
	if errParam := query.Get("error"); errParam != "" {
		return "", "", fmt.Errorf("[ParseAuthorizationCode] authorization failed: %s - %s", errParam, query.Get("error_description"))
	}

	code = query.Get("code")
	if code == "" {
		return "", "", errors.New("[ParseAuthorizationCode] redirect carries no code")
	}
	return code, query.Get("state"), nil
}
