package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swiftyco/go-intra-client/api"
	"github.com/swiftyco/go-intra-client/auth"
	interrors "github.com/swiftyco/go-intra-client/internal/errors"
	"github.com/swiftyco/go-intra-client/profile"
	"github.com/swiftyco/go-intra-client/session"
	"github.com/swiftyco/go-intra-client/session/repofake"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeExchanger struct {
	exchangeResult *session.Session
	exchangeErr    error
	exchangeCalls  int

	refreshResult *session.Session
	refreshErr    error
	refreshCalls  int
}

func (e *fakeExchanger) ExchangeCode(ctx context.Context, code string) (*session.Session, error) {
	e.exchangeCalls++
	if e.exchangeErr != nil {
		return nil, e.exchangeErr
	}
	return e.exchangeResult, nil
}

func (e *fakeExchanger) Refresh(ctx context.Context, current *session.Session) (*session.Session, error) {
	e.refreshCalls++
	if e.refreshErr != nil {
		return nil, e.refreshErr
	}
	return e.refreshResult, nil
}

type fakeProfiles struct {
	user  *profile.User
	err   error
	calls int
}

func (p *fakeProfiles) Me(ctx context.Context) (*profile.User, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.user, nil
}

type testFixture struct {
	repo       *repofake.FakeSessionRepo
	exchanger  *fakeExchanger
	profiles   *fakeProfiles
	controller *auth.Controller
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo:      repofake.NewFakeSessionRepo(),
		exchanger: &fakeExchanger{},
		profiles:  &fakeProfiles{user: &profile.User{ID: 42, Login: "anolivei"}},
	}

	controller, err := auth.NewController(
		f.repo,
		f.exchanger,
		f.profiles,
		auth.WithNowTime(func() time.Time { return testNow }),
	)
	require.NoError(t, err)
	f.controller = controller
	return f
}

func liveSession() *session.Session {
	return &session.Session{
		AccessToken:          "access-1",
		RefreshToken:         "refresh-1",
		AccessTokenExpiresAt: testNow.Add(time.Hour),
	}
}

func TestControllerStartsBootstrapping(t *testing.T) {
	f := setupTestFixture(t)
	require.Equal(t, auth.StateBootstrapping, f.controller.Status().State)
}

func TestBootstrapWithoutSession(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.controller.Bootstrap(context.Background()))
	require.Equal(t, auth.StateSignedOut, f.controller.Status().State)
	require.Zero(t, f.exchanger.refreshCalls)
}

func TestBootstrapWithLiveSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.repo.Put(liveSession()))

	require.NoError(t, f.controller.Bootstrap(context.Background()))

	status := f.controller.Status()
	require.Equal(t, auth.StateSignedIn, status.State)
	require.Equal(t, "anolivei", status.User.Login)
	require.Zero(t, f.exchanger.refreshCalls)
}

func TestBootstrapRefreshesExpiredAccessToken(t *testing.T) {
	f := setupTestFixture(t)

	expired := liveSession()
	expired.AccessTokenExpiresAt = testNow.Add(-time.Minute)
	require.NoError(t, f.repo.Put(expired))

	f.exchanger.refreshResult = &session.Session{
		AccessToken:          "access-2",
		RefreshToken:         "refresh-2",
		AccessTokenExpiresAt: testNow.Add(7200 * time.Second),
	}

	require.NoError(t, f.controller.Bootstrap(context.Background()))
	require.Equal(t, auth.StateSignedIn, f.controller.Status().State)
	require.Equal(t, 1, f.exchanger.refreshCalls)
}

func TestBootstrapRefreshFailureSignsOut(t *testing.T) {
	f := setupTestFixture(t)

	expired := liveSession()
	expired.AccessTokenExpiresAt = testNow.Add(-time.Minute)
	require.NoError(t, f.repo.Put(expired))
	f.exchanger.refreshErr = interrors.ErrUnauthorized

	// Provider failure is not the caller's error; it resolves to a state.
	require.NoError(t, f.controller.Bootstrap(context.Background()))
	require.Equal(t, auth.StateSignedOut, f.controller.Status().State)
	require.Equal(t, 1, f.repo.ClearCount())
}

func TestBootstrapSecretExpiredSkipsRefresh(t *testing.T) {
	f := setupTestFixture(t)

	sess := liveSession()
	sess.AccessTokenExpiresAt = testNow.Add(-time.Minute)
	secretExpiry := testNow.Add(-time.Hour)
	sess.SecretExpiresAt = &secretExpiry
	require.NoError(t, f.repo.Put(sess))

	require.NoError(t, f.controller.Bootstrap(context.Background()))
	require.Equal(t, auth.StateSecretExpired, f.controller.Status().State)
	require.Zero(t, f.exchanger.refreshCalls)
	require.Zero(t, f.repo.ClearCount())
}

func TestBootstrapProfileFailureSignsOut(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.repo.Put(liveSession()))
	f.profiles.err = interrors.ErrUnauthorized

	require.NoError(t, f.controller.Bootstrap(context.Background()))
	require.Equal(t, auth.StateSignedOut, f.controller.Status().State)
	require.Equal(t, 1, f.repo.ClearCount())
}

func TestSignIn(t *testing.T) {
	f := setupTestFixture(t)
	f.exchanger.exchangeResult = liveSession()

	require.NoError(t, f.controller.SignIn(context.Background(), "validcode"))

	status := f.controller.Status()
	require.Equal(t, auth.StateSignedIn, status.State)
	require.Equal(t, 42, status.User.ID)
	require.Equal(t, 1, f.exchanger.exchangeCalls)
}

func TestSignInExchangeFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.exchanger.exchangeErr = interrors.ErrMalformedResponse

	err := f.controller.SignIn(context.Background(), "badcode")
	require.ErrorIs(t, err, interrors.ErrMalformedResponse)
	require.Equal(t, auth.StateBootstrapping, f.controller.Status().State)
}

func TestSignInRefusedWhileSecretExpired(t *testing.T) {
	f := setupTestFixture(t)

	sess := liveSession()
	secretExpiry := testNow.Add(-time.Hour)
	sess.SecretExpiresAt = &secretExpiry
	require.NoError(t, f.repo.Put(sess))
	require.NoError(t, f.controller.Bootstrap(context.Background()))
	require.Equal(t, auth.StateSecretExpired, f.controller.Status().State)

	err := f.controller.SignIn(context.Background(), "validcode")
	require.ErrorIs(t, err, interrors.ErrSecretExpired)
	require.Zero(t, f.exchanger.exchangeCalls)
}

func TestSignOutIsTheOnlyExitFromSecretExpired(t *testing.T) {
	f := setupTestFixture(t)

	sess := liveSession()
	secretExpiry := testNow.Add(-time.Hour)
	sess.SecretExpiresAt = &secretExpiry
	require.NoError(t, f.repo.Put(sess))
	require.NoError(t, f.controller.Bootstrap(context.Background()))
	require.Equal(t, auth.StateSecretExpired, f.controller.Status().State)

	require.NoError(t, f.controller.SignOut())
	require.Equal(t, auth.StateSignedOut, f.controller.Status().State)

	stored, err := f.repo.Get()
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestHandleConditionDemotesLiveSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.repo.Put(liveSession()))
	require.NoError(t, f.controller.Bootstrap(context.Background()))
	require.Equal(t, auth.StateSignedIn, f.controller.Status().State)

	f.controller.HandleCondition(api.ConditionSignedOut)
	require.Equal(t, auth.StateSignedOut, f.controller.Status().State)
}

func TestHandleConditionIgnoredWhenNotSignedIn(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.controller.Bootstrap(context.Background()))
	require.Equal(t, auth.StateSignedOut, f.controller.Status().State)

	f.controller.HandleCondition(api.ConditionSecretExpired)
	require.Equal(t, auth.StateSignedOut, f.controller.Status().State)
}

func TestReplaceUserOnlyWhileSignedIn(t *testing.T) {
	f := setupTestFixture(t)

	other := &profile.User{ID: 7, Login: "someone"}
	f.controller.ReplaceUser(other)
	require.Equal(t, auth.StateBootstrapping, f.controller.Status().State)

	require.NoError(t, f.repo.Put(liveSession()))
	require.NoError(t, f.controller.Bootstrap(context.Background()))

	f.controller.ReplaceUser(other)
	status := f.controller.Status()
	require.Equal(t, auth.StateSignedIn, status.State)
	require.Equal(t, "someone", status.User.Login)
}

func TestSubscribeObservesTransitions(t *testing.T) {
	f := setupTestFixture(t)

	ch, cancel := f.controller.Subscribe()
	defer cancel()

	initial := <-ch
	require.Equal(t, auth.StateBootstrapping, initial.State)

	require.NoError(t, f.controller.Bootstrap(context.Background()))
	next := <-ch
	require.Equal(t, auth.StateSignedOut, next.State)

	cancel()
	_, open := <-ch
	require.False(t, open)
}
