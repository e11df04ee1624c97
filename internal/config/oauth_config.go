package config

import "time"

const (
	clientIDVar     = "INTRA_CLIENT_ID"
	clientSecretVar = "INTRA_CLIENT_SECRET"
	authorizeURLVar = "INTRA_AUTHORIZE_URL"
	tokenURLVar     = "INTRA_TOKEN_URL"
	apiBaseURLVar   = "INTRA_API_BASE_URL"
	redirectURIVar  = "INTRA_REDIRECT_URI"
)

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetAuthorizeURL() string
	GetTokenURL() string
	GetAPIBaseURL() string
	GetRedirectURI() string
	GetHTTPTimeout() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetClientID returns the OAuth application id. There is no default: the
// credential must be provided via the environment.
func (OAuth) GetClientID() string {
	return GetEnv(clientIDVar, "")
}

// GetClientSecret returns the OAuth application secret.
// Security: never log or expose this value.
func (OAuth) GetClientSecret() string {
	return GetEnv(clientSecretVar, "")
}

func (OAuth) GetAuthorizeURL() string {
	return GetEnv(authorizeURLVar, "https://api.intra.42.fr/oauth/authorize")
}

func (OAuth) GetTokenURL() string {
	return GetEnv(tokenURLVar, "https://api.intra.42.fr/oauth/token")
}

func (OAuth) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "https://api.intra.42.fr/v2")
}

func (OAuth) GetRedirectURI() string {
	return GetEnv(redirectURIVar, "http://localhost:3000/oauth/callback")
}

func (OAuth) GetHTTPTimeout() time.Duration {
	return 30 * time.Second
}
