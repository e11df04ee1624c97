package session

// Repo persists the single session held by this client.
//
// Put must replace all fields atomically as observed by any reader: no
// reader may see an access token paired with a stale refresh token. Get
// returns (nil, nil) when no session is stored.
type Repo interface {
	Get() (*Session, error)
	Put(session *Session) error
	Clear() error
}
