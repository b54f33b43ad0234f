package domainauth

import "context"

// Store is the persistence collaborator. Implementations live in the store
// package.
type Store interface {
	// Get loads a domain by id with DomainCount populated.
	// Returns ErrDomainNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Domain, error)

	// GetOwned is Get restricted to domains owned by ownerID.
	GetOwned(ctx context.Context, ownerID, id string) (*Domain, error)

	// ListPending returns up to limit active domains whose family timestamp
	// is not set yet, oldest first.
	ListPending(ctx context.Context, f Family, limit int) ([]*Domain, error)

	// MarkVerified writes the transition's timestamp and nothing else.
	// A timestamp that is already set is left unchanged.
	MarkVerified(ctx context.Context, t Transition) error
}

// Observer receives the outcome of every check the Service runs.
type Observer interface {
	ObserveCheck(f Family, r Result)
}
