package token

// Response represents the provider's token endpoint response body, returned
// for both the authorization_code and refresh_token grants.
//
// Required fields are pointers so that a missing field can be told apart
// from an empty one: a 2xx body lacking any of access_token, refresh_token
// or expires_in is a malformed response and must not produce a session.
type Response struct {
	// AccessToken is the bearer credential for resource calls.
	AccessToken *string `json:"access_token,omitempty"`

	// TokenType is always "bearer" for this provider.
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds, relative to issue
	// time.
	ExpiresIn *int64 `json:"expires_in,omitempty"`

	// RefreshToken replaces the previous refresh token. The provider
	// rotates it on every grant.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope is the space-separated list of granted scopes.
	Scope string `json:"scope,omitempty"`

	// CreatedAt is the issue time in seconds since epoch.
	CreatedAt int64 `json:"created_at,omitempty"`

	// SecretValidUntil is a provider-specific extension: the expiry of the
	// OAuth application secret itself, in seconds since epoch. Note the
	// unit mismatch with ExpiresIn -- this one is absolute.
	SecretValidUntil *int64 `json:"secret_valid_until,omitempty"`
}
