package store

import "errors"

var (
	// ErrDuplicateHostname is returned by Create when the hostname already
	// belongs to another domain.
	ErrDuplicateHostname = errors.New("store: hostname already registered")

	// Database errors.
	ErrUnknownFamily            = errors.New("store: unknown verification family")
	ErrFailedToParseDBConfig    = errors.New("store: failed to parse database configuration")
	ErrFailedToOpenDBConnection = errors.New("store: failed to open database connection")
	ErrQuery                    = errors.New("store: query failed")
	ErrSetDialect               = errors.New("store migrator: failed to set dialect")
	ErrApplyMigrations          = errors.New("store migrator: failed to apply migrations")
)
