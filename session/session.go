package session

import "time"

// Session is the persisted authenticated state: the bearer token pair plus
// the absolute expiries needed to decide between a silent refresh and a full
// re-authentication.
//
// A session is either fully present or fully absent. Repos must treat a
// partially persisted session (e.g. an access token without its refresh
// token) as absent.
type Session struct {
	// AccessToken is the short-lived bearer credential for resource calls.
	AccessToken string `json:"accessToken"`

	// RefreshToken is exchanged for a new token pair when the access token
	// expires. The provider rotates it on every refresh: the previous value
	// becomes invalid and must not be reused.
	RefreshToken string `json:"refreshToken"`

	// AccessTokenExpiresAt is the absolute access token expiry
	// (issue time + the provider-declared lifetime).
	AccessTokenExpiresAt time.Time `json:"accessTokenExpiresAt"`

	// SecretExpiresAt is when the OAuth application secret itself stops
	// being accepted by the provider. Nil means the secret does not expire,
	// or the provider did not say; either way it is treated as valid.
	SecretExpiresAt *time.Time `json:"secretExpiresAt,omitempty"`
}

// Complete reports whether all required fields are present.
func (s *Session) Complete() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != "" && !s.AccessTokenExpiresAt.IsZero()
}

// AccessTokenExpired reports whether the access token has expired at now.
// An absent session counts as expired.
func (s *Session) AccessTokenExpired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !now.Before(s.AccessTokenExpiresAt)
}

// SecretExpired reports whether the application secret has expired at now.
// An absent session, or a session without a declared secret expiry, counts
// as not expired.
func (s *Session) SecretExpired(now time.Time) bool {
	if s == nil || s.SecretExpiresAt == nil {
		return false
	}
	return !now.Before(*s.SecretExpiresAt)
}
