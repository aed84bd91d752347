package storage

import (
	"context"

	"github.com/tvsync/tvsync/pkg/model"
)

// Storage persists the upstream media-server connection settings. The row is
// edited outside of this service and re-read by the config cache on expiry.
type Storage interface {
	// MediaServerSettings returns the settings row, or
	// model.ErrConfigUnavailable if none exists.
	MediaServerSettings(ctx context.Context) (*model.MediaServerSettings, error)

	// SaveAuthToken persists a token obtained by authenticating with
	// username/password, so subsequent reloads can reuse it.
	SaveAuthToken(ctx context.Context, token, userID string) error

	Close() error
}
