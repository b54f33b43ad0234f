package domainauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Domain is a custom domain as seen by the verification engine.
// Only the three verification timestamps are ever written by this package.
type Domain struct {
	ID       string
	OwnerID  string
	Hostname string

	// DomainCount is the number of domains the owner has, captured when the
	// domain is loaded for a check. The ownership token depends on it.
	DomainCount int

	VerifiedAt        *time.Time
	MXValidatedAt     *time.Time
	SendingVerifiedAt *time.Time

	Active      bool
	CatchAll    bool
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsVerified reports whether ownership has been proven.
func (d *Domain) IsVerified() bool {
	return d.VerifiedAt != nil
}

// IsMXValidated reports whether the MX records have been validated.
func (d *Domain) IsMXValidated() bool {
	return d.MXValidatedAt != nil
}

// IsVerifiedForSending reports whether SPF, DMARC and DKIM delegation have been verified.
func (d *Domain) IsVerifiedForSending() bool {
	return d.SendingVerifiedAt != nil
}

// State returns the current state of the given check family.
func (d *Domain) State(f Family) State {
	if d.Timestamp(f) != nil {
		return f.doneState()
	}
	return f.initialState()
}

// Timestamp returns the timestamp backing family f, or nil if unset.
func (d *Domain) Timestamp(f Family) *time.Time {
	switch f {
	case FamilyOwnership:
		return d.VerifiedAt
	case FamilyMX:
		return d.MXValidatedAt
	case FamilySending:
		return d.SendingVerifiedAt
	}
	return nil
}

// Apply sets the timestamp for t.Family if it is not already set.
// It reports whether the domain changed.
func (d *Domain) Apply(t Transition) bool {
	if d.Timestamp(t.Family) != nil {
		return false
	}
	at := t.At
	switch t.Family {
	case FamilyOwnership:
		d.VerifiedAt = &at
	case FamilyMX:
		d.MXValidatedAt = &at
	case FamilySending:
		d.SendingVerifiedAt = &at
	default:
		return false
	}
	return true
}

// Clone returns a deep copy of d.
func (d *Domain) Clone() *Domain {
	if d == nil {
		return nil
	}
	c := *d
	c.VerifiedAt = cloneTime(d.VerifiedAt)
	c.MXValidatedAt = cloneTime(d.MXValidatedAt)
	c.SendingVerifiedAt = cloneTime(d.SendingVerifiedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Family is one independent verification concern.
type Family string

// Verification families.
const (
	FamilyOwnership Family = "ownership"
	FamilyMX        Family = "mx"
	FamilySending   Family = "sending"
)

// Column returns the persisted timestamp field backing the family.
func (f Family) Column() string {
	switch f {
	case FamilyOwnership:
		return "domain_verified_at"
	case FamilyMX:
		return "domain_mx_validated_at"
	case FamilySending:
		return "domain_sending_verified_at"
	}
	return ""
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	return f.Column() != ""
}

func (f Family) initialState() State {
	switch f {
	case FamilyMX:
		return StateUnvalidated
	case FamilySending:
		return StateUnverifiedForSending
	}
	return StateUnverified
}

func (f Family) doneState() State {
	switch f {
	case FamilyMX:
		return StateValidated
	case FamilySending:
		return StateVerifiedForSending
	}
	return StateVerified
}

// State is the verification state of one family. Transitions are one-way.
type State string

// Verification states, unverified and verified per family.
const (
	StateUnverified           State = "UNVERIFIED"
	StateVerified             State = "VERIFIED"
	StateUnvalidated          State = "UNVALIDATED"
	StateValidated            State = "VALIDATED"
	StateUnverifiedForSending State = "UNVERIFIED_FOR_SENDING"
	StateVerifiedForSending   State = "VERIFIED_FOR_SENDING"
)

// Transition moves a domain's family into its terminal state. It is produced
// by the Engine and applied by the persistence collaborator.
type Transition struct {
	DomainID string
	Family   Family
	At       time.Time
}

// NormalizeHostname lowercases a domain name, strips surrounding whitespace
// and the trailing root dot, and converts internationalized names to their
// ASCII form. Bare public suffixes such as "com" or "co.uk" are rejected.
func NormalizeHostname(name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".")
	if name == "" {
		return "", ErrInvalidHostname
	}

	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", errors.Join(ErrInvalidHostname, err)
	}
	ascii = strings.ToLower(ascii)

	if !strings.Contains(ascii, ".") {
		return "", fmt.Errorf("%w: %q has a single label", ErrInvalidHostname, ascii)
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(ascii); err != nil {
		return "", fmt.Errorf("%w: %q is a public suffix", ErrInvalidHostname, ascii)
	}

	return ascii, nil
}
