package storage

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"

	"github.com/tvsync/tvsync/pkg/model"
)

// Single row table, see installScript.
const settingsRowID = 1

type Postgres struct {
	db *pg.DB
}

func NewPG(connectionURL string, ping bool) (*Postgres, error) {
	opts, err := pg.ParseURL(connectionURL)
	if err != nil {
		return nil, err
	}

	db := pg.Connect(opts)

	// Check database connectivity
	if ping {
		if _, err := db.Exec("SELECT 1"); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "failed to check database connectivity")
		}
	}

	if _, err := db.Exec(installScript); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to upgrade database structure")
	}

	return &Postgres{db: db}, nil
}

func (p *Postgres) MediaServerSettings(ctx context.Context) (*model.MediaServerSettings, error) {
	settings := &model.MediaServerSettings{}

	err := p.db.ModelContext(ctx, settings).Where("id = ?", settingsRowID).Select()
	if err == pg.ErrNoRows {
		return nil, model.ErrConfigUnavailable
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to query media server settings")
	}

	return settings, nil
}

func (p *Postgres) SaveAuthToken(ctx context.Context, token, userID string) error {
	settings := &model.MediaServerSettings{
		ID:        settingsRowID,
		AuthToken: token,
		UserID:    userID,
		UpdatedAt: time.Now().UTC(),
	}

	_, err := p.db.ModelContext(ctx, settings).
		Column("auth_token", "user_id", "updated_at").
		WherePK().
		Update()

	return errors.Wrap(err, "failed to save auth token")
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
