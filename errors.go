package domainauth

import "errors"

var (
	// ErrAlreadyVerified is returned by Recheck when ownership is already proven.
	ErrAlreadyVerified = errors.New("domainauth: domain already verified")

	// ErrDomainNotFound is returned when the domain does not exist or is not
	// owned by the caller.
	ErrDomainNotFound = errors.New("domainauth: domain not found")

	// ErrInvalidHostname is returned when a hostname is empty, malformed, a
	// single label, or a public suffix.
	ErrInvalidHostname = errors.New("domainauth: invalid hostname")

	// Builder errors, returned by Build when a required dependency is unset.
	ErrMissingSecret        = errors.New("domainauth: verification secret is not configured")
	ErrMissingMailHostname  = errors.New("domainauth: mail hostname is not configured")
	ErrMissingServiceDomain = errors.New("domainauth: service domain is not configured")
	ErrMissingStore         = errors.New("domainauth: store is not configured")
	ErrMissingFetcher       = errors.New("domainauth: record fetcher is not configured")
)
