package model

import (
	"errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConfigUnavailable = errors.New("media server configuration unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
)
