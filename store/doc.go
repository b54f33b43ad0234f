// Package store provides domainauth.Store implementations.
//
// Memory keeps domains in process and is meant for tests, examples and
// sandbox deployments. Postgres persists to a "domains" table through a pgx
// pool; Migrate creates the table with goose.
//
// Both compute Domain.DomainCount when a domain is loaded: the number of
// domains the owner has at that moment. MarkVerified only ever sets a
// timestamp that is still NULL and touches no other column.
package store
