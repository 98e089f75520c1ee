package alpm

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors for database and package operations. Callers match
// them with errors.Is; the messages follow libalpm's error strings.
var (
	// ErrPkgNotFound is returned when no database entry satisfies a target.
	ErrPkgNotFound = errors.New("could not find or read package")

	// ErrPkgInvalid is returned when a package archive cannot be read.
	ErrPkgInvalid = errors.New("invalid or corrupted package")

	// ErrSigMissing is returned when a required detached signature file
	// does not exist.
	ErrSigMissing = errors.New("missing PGP signature")

	// ErrSigInvalid is returned when a signature exists but does not
	// verify against the configured keyring.
	ErrSigInvalid = errors.New("invalid PGP signature")

	// ErrServerNone is returned when a database operation needs a mirror
	// but none are configured.
	ErrServerNone = errors.New("no servers configured for repository")

	// ErrDBInvalid is returned when a database file exists but cannot be
	// read as a package database.
	ErrDBInvalid = errors.New("invalid or corrupted database")
)
