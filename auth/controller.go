package auth

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/swiftyco/go-intra-client/api"
	interrors "github.com/swiftyco/go-intra-client/internal/errors"
	"github.com/swiftyco/go-intra-client/profile"
	"github.com/swiftyco/go-intra-client/session"
)

// State is the session lifecycle state observed by the UI layer.
type State int

const (
	// StateBootstrapping is the initial state while the stored session is
	// being evaluated.
	StateBootstrapping State = iota

	// StateSignedOut means there is no usable session.
	StateSignedOut

	// StateSignedIn means a session is live and the user profile is loaded.
	StateSignedIn

	// StateSecretExpired means the application secret has expired. The only
	// way out is signing out; a new secret must be installed out-of-band.
	StateSecretExpired
)

func (s State) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateSignedOut:
		return "signed_out"
	case StateSignedIn:
		return "signed_in"
	case StateSecretExpired:
		return "secret_expired"
	default:
		return "unknown"
	}
}

// Status is a state snapshot. User is set only in StateSignedIn.
type Status struct {
	State State
	User  *profile.User
}

// Exchanger performs the provider token grants.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code string) (*session.Session, error)
	Refresh(ctx context.Context, current *session.Session) (*session.Session, error)
}

// ProfileFetcher loads the authenticated user's profile.
type ProfileFetcher interface {
	Me(ctx context.Context) (*profile.User, error)
}

// Controller owns the session state machine. All transitions funnel through
// it; observers subscribe rather than poll.
type Controller struct {
	repo      session.Repo
	exchanger Exchanger
	profiles  ProfileFetcher
	nowTime   func() time.Time // nowTime function (injectable for testing)

	lock        sync.Mutex
	status      Status
	subscribers map[int]chan Status
	nextSubID   int
}

// ControllerOption defines a function type to modify the Controller instance.
type ControllerOption func(*Controller)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.nowTime = nowFunc
	}
}

// NewController initializes the session controller in StateBootstrapping.
func NewController(repo session.Repo, exchanger Exchanger, profiles ProfileFetcher, options ...ControllerOption) (*Controller, error) {
	if repo == nil {
		return nil, errors.New("[NewController] session repo is required")
	}
	if exchanger == nil {
		return nil, errors.New("[NewController] exchanger is required")
	}
	if profiles == nil {
		return nil, errors.New("[NewController] profile fetcher is required")
	}

	controller := &Controller{
		repo:        repo,
		exchanger:   exchanger,
		profiles:    profiles,
		nowTime:     time.Now,
		status:      Status{State: StateBootstrapping},
		subscribers: make(map[int]chan Status),
	}

	for _, opt := range options {
		opt(controller)
	}

	return controller, nil
}

// Bootstrap resolves the stored session into a definite state. Provider
// failures resolve to SignedOut rather than erroring; only a broken local
// store is reported to the caller.
func (c *Controller) Bootstrap(ctx context.Context) error {
	sess, err := c.repo.Get()
	if err != nil {
		return errors.Wrap(err, "[Bootstrap] reading session")
	}
	if sess == nil {
		c.setStatus(Status{State: StateSignedOut})
		return nil
	}

	now := c.nowTime()
	if sess.SecretExpired(now) {
		log.Warn().Msg("stored session's application secret has expired")
		c.setStatus(Status{State: StateSecretExpired})
		return nil
	}

	if sess.AccessTokenExpired(now) {
		refreshed, refreshErr := c.exchanger.Refresh(ctx, sess)
		if refreshErr != nil {
			log.Info().Err(refreshErr).Msg("stored session could not be refreshed; signing out")
			if clearErr := c.repo.Clear(); clearErr != nil {
				return errors.Wrap(clearErr, "[Bootstrap] clearing unusable session")
			}
			c.setStatus(Status{State: StateSignedOut})
			return nil
		}
		sess = refreshed
	}

	user, err := c.profiles.Me(ctx)
	if err != nil {
		log.Info().Err(err).Msg("profile load failed during bootstrap; signing out")
		if clearErr := c.repo.Clear(); clearErr != nil {
			return errors.Wrap(clearErr, "[Bootstrap] clearing unusable session")
		}
		c.setStatus(Status{State: StateSignedOut})
		return nil
	}

	c.setStatus(Status{State: StateSignedIn, User: user})
	return nil
}

// SignIn exchanges an authorization code and loads the user's profile.
// Refused while the secret is expired; signing out first is the only path.
func (c *Controller) SignIn(ctx context.Context, code string) error {
	if c.Status().State == StateSecretExpired {
		return interrors.ErrSecretExpired
	}

	if _, err := c.exchanger.ExchangeCode(ctx, code); err != nil {
		return errors.Wrap(err, "[SignIn] code exchange")
	}

	user, err := c.profiles.Me(ctx)
	if err != nil {
		return errors.Wrap(err, "[SignIn] loading profile")
	}

	c.setStatus(Status{State: StateSignedIn, User: user})
	log.Info().Str("login", user.Login).Msg("signed in")
	return nil
}

// SignOut clears the stored session unconditionally. It is the only exit
// from StateSecretExpired.
func (c *Controller) SignOut() error {
	if err := c.repo.Clear(); err != nil {
		return errors.Wrap(err, "[SignOut] clearing session")
	}
	c.setStatus(Status{State: StateSignedOut})
	log.Info().Msg("signed out")
	return nil
}

// ReplaceUser swaps the displayed profile while staying signed in. Ignored
// in any other state.
func (c *Controller) ReplaceUser(user *profile.User) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.status.State != StateSignedIn || user == nil {
		return
	}
	c.publishLocked(Status{State: StateSignedIn, User: user})
}

// HandleCondition maps a pipeline condition onto a state transition. Only a
// live session is demoted; conditions arriving in other states are stale.
func (c *Controller) HandleCondition(cond api.Condition) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.status.State != StateSignedIn {
		return
	}

	switch cond {
	case api.ConditionSignedOut:
		c.publishLocked(Status{State: StateSignedOut})
	case api.ConditionSecretExpired:
		c.publishLocked(Status{State: StateSecretExpired})
	}
}

// Status returns the current state snapshot.
func (c *Controller) Status() Status {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.status
}

// Subscribe registers an observer. The current status is delivered
// immediately, then every transition. The returned cancel function releases
// the subscription.
func (c *Controller) Subscribe() (<-chan Status, func()) {
	c.lock.Lock()
	defer c.lock.Unlock()

	id := c.nextSubID
	c.nextSubID++

	ch := make(chan Status, 8)
	ch <- c.status
	c.subscribers[id] = ch

	cancel := func() {
		c.lock.Lock()
		defer c.lock.Unlock()
		if sub, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (c *Controller) setStatus(status Status) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.publishLocked(status)
}

// publishLocked records the status and fans it out. Slow observers lose
// intermediate snapshots rather than blocking the state machine.
func (c *Controller) publishLocked(status Status) {
	c.status = status
	for _, ch := range c.subscribers {
		select {
		case ch <- status:
		default:
		}
	}
}
