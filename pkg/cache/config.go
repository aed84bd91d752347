// Package cache keeps the last known upstream connection parameters in a
// single in-process slot with a fixed freshness window. The slot dies with
// the process, there is no explicit invalidation.
package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tvsync/tvsync/pkg/emby"
	"github.com/tvsync/tvsync/pkg/model"
)

// DefaultTTL bounds how long a loaded entry is served without re-reading
// the settings store.
const DefaultTTL = 5 * time.Minute

// Entry is the resolved connection info served to callers.
type Entry struct {
	ServerURL string
	APIKey    string
	UserID    string
	FetchedAt time.Time
}

type settingsProvider interface {
	MediaServerSettings(ctx context.Context) (*model.MediaServerSettings, error)
	SaveAuthToken(ctx context.Context, token, userID string) error
}

type authenticator interface {
	Login(ctx context.Context, serverURL, username, password string) (token, userID string, err error)
}

// ConfigCache memoizes the settings row behind Get. The slot is a plain
// pointer swap without a lock: concurrent refreshes may race and the last
// writer wins. Refreshed values are idempotent, so readers never observe a
// torn entry, only a possibly repeated reload.
type ConfigCache struct {
	storage settingsProvider
	auth    authenticator
	ttl     time.Duration
	now     func() time.Time

	slot *Entry
}

type Option func(*ConfigCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *ConfigCache) {
		c.ttl = ttl
	}
}

func WithAuthenticator(auth authenticator) Option {
	return func(c *ConfigCache) {
		c.auth = auth
	}
}

func New(storage settingsProvider, opts ...Option) *ConfigCache {
	c := &ConfigCache{
		storage: storage,
		auth:    embyAuth{},
		ttl:     DefaultTTL,
		now:     time.Now,
	}

	for _, fn := range opts {
		fn(c)
	}

	return c
}

// Get returns the cached entry while it is fresh, otherwise reloads from the
// settings store. A failed reload is not cached and will be retried on the
// very next call.
func (c *ConfigCache) Get(ctx context.Context) (*Entry, error) {
	if entry := c.slot; entry != nil && c.now().Sub(entry.FetchedAt) < c.ttl {
		return entry, nil
	}

	return c.refresh(ctx)
}

func (c *ConfigCache) refresh(ctx context.Context) (*Entry, error) {
	settings, err := c.storage.MediaServerSettings(ctx)
	if err != nil {
		return nil, err
	}

	if !settings.Enabled || settings.ServerURL == "" {
		return nil, model.ErrConfigUnavailable
	}

	key := settings.APIKey
	if key == "" {
		key = settings.AuthToken
	}

	userID := settings.UserID

	// No stored credential: fall back to logging in with username/password
	// and persist the token for subsequent reloads.
	if key == "" && settings.Username != "" {
		token, uid, err := c.auth.Login(ctx, settings.ServerURL, settings.Username, settings.Password)
		if err != nil {
			return nil, errors.Wrap(err, "failed to authenticate with media server")
		}

		if err := c.storage.SaveAuthToken(ctx, token, uid); err != nil {
			return nil, err
		}

		key, userID = token, uid
	}

	if key == "" {
		return nil, model.ErrConfigUnavailable
	}

	entry := &Entry{
		ServerURL: settings.ServerURL,
		APIKey:    key,
		UserID:    userID,
		FetchedAt: c.now(),
	}

	c.slot = entry
	return entry, nil
}

type embyAuth struct{}

func (embyAuth) Login(ctx context.Context, serverURL, username, password string) (string, string, error) {
	res, err := emby.New(serverURL, "").AuthenticateByName(ctx, username, password)
	if err != nil {
		return "", "", err
	}

	return res.Token, res.UserID, nil
}
