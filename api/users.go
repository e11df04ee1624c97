package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	interrors "github.com/swiftyco/go-intra-client/internal/errors"
	"github.com/swiftyco/go-intra-client/profile"
)

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*profile.User, error) {
	body, err := c.Get(ctx, "/me", nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Me]")
	}

	var user profile.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, errors.Wrap(err, "[Me] decoding profile")
	}
	return &user, nil
}

// UserByLogin searches for a user by login and returns their full profile.
// The search endpoint returns summary records only, so the hit is followed
// by a lookup of the complete payload.
func (c *Client) UserByLogin(ctx context.Context, login string) (*profile.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return nil, errors.New("[UserByLogin] empty login")
	}

	query := url.Values{}
	query.Set("filter[login]", login)

	body, err := c.Get(ctx, "/users", query)
	if err != nil {
		return nil, errors.Wrap(err, "[UserByLogin]")
	}

	var results []profile.User
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, errors.Wrap(err, "[UserByLogin] decoding search results")
	}
	if len(results) == 0 {
		return nil, interrors.ErrUserNotFound
	}

	return c.UserByID(ctx, results[0].ID)
}

// UserByID returns the full profile for a user id.
func (c *Client) UserByID(ctx context.Context, id int) (*profile.User, error) {
	body, err := c.Get(ctx, fmt.Sprintf("/users/%d", id), nil)
	if err != nil {
		return nil, errors.Wrap(err, "[UserByID]")
	}

	var user profile.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, errors.Wrap(err, "[UserByID] decoding profile")
	}
	return &user, nil
}
