package storage

const installScript = `
BEGIN;

CREATE TABLE IF NOT EXISTS media_settings (
	id BIGINT PRIMARY KEY,
	enabled BOOLEAN NOT NULL DEFAULT FALSE,
	server_url TEXT NOT NULL DEFAULT '',
	api_key TEXT NOT NULL DEFAULT '',
	auth_token TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL DEFAULT '',
	password TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

INSERT INTO media_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING;

COMMIT;
`
