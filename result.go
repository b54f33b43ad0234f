package domainauth

import "time"

// ReasonCode classifies the outcome of a check.
type ReasonCode string

// Reason codes.
const (
	ReasonVerified          ReasonCode = "verified"
	ReasonAlreadyVerified   ReasonCode = "already_verified"
	ReasonSandbox           ReasonCode = "sandbox"
	ReasonOwnershipMismatch ReasonCode = "ownership_mismatch"
	ReasonMXMissing         ReasonCode = "mx_missing"
	ReasonMXMismatch        ReasonCode = "mx_mismatch"
	ReasonSPFMissing        ReasonCode = "spf_missing"
	ReasonDMARCMissing      ReasonCode = "dmarc_missing"
	ReasonDKIMMissing       ReasonCode = "dkim_missing"
	ReasonLookupFailed      ReasonCode = "lookup_failed"
)

const propagationHint = "This could be due to DNS caching, please try again later."

// User-facing messages.
const (
	MsgVerified          = "Domain successfully verified."
	MsgAlreadyVerified   = "Domain already verified."
	MsgOwnershipNotFound = "Verification TXT record not found. " + propagationHint
	MsgMXValidated       = "MX records successfully validated."
	MsgMXNotFound        = "MX record not found. " + propagationHint
	MsgMXMismatch        = "MX record does not point to the mail server. " + propagationHint
	MsgSPFNotFound       = "SPF record not found. " + propagationHint
	MsgDMARCNotFound     = "DMARC record not found. " + propagationHint
	MsgDKIMNotFound      = "CNAME default._domainkey record not found. " + propagationHint
	MsgSendingVerified   = "Records successfully verified."
	MsgSandboxSending    = "Records verified for sending."
)

// lookupFailedMessage names the record whose lookup failed.
func lookupFailedMessage(label string) string {
	return label + " lookup failed. " + propagationHint
}

// Result is the outcome of one check invocation. It is never cached.
type Result struct {
	Success bool
	Reason  ReasonCode
	Message string

	// Domain is a refreshed snapshot, set after a successful sending check.
	Domain *Domain
}

// Payload is the JSON shape returned to the surrounding HTTP layer.
type Payload struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    *DomainView `json:"data,omitempty"`
}

// DomainView is the external representation of a domain.
type DomainView struct {
	ID                string  `json:"id"`
	OwnerID           string  `json:"user_id"`
	Domain            string  `json:"domain"`
	Description       string  `json:"description,omitempty"`
	Active            bool    `json:"active"`
	CatchAll          bool    `json:"catch_all"`
	VerifiedAt        *string `json:"domain_verified_at"`
	MXValidatedAt     *string `json:"domain_mx_validated_at"`
	SendingVerifiedAt *string `json:"domain_sending_verified_at"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

const viewTimeLayout = "2006-01-02 15:04:05"

// View renders d for API responses.
func (d *Domain) View() *DomainView {
	if d == nil {
		return nil
	}
	return &DomainView{
		ID:                d.ID,
		OwnerID:           d.OwnerID,
		Domain:            d.Hostname,
		Description:       d.Description,
		Active:            d.Active,
		CatchAll:          d.CatchAll,
		VerifiedAt:        formatTime(d.VerifiedAt),
		MXValidatedAt:     formatTime(d.MXValidatedAt),
		SendingVerifiedAt: formatTime(d.SendingVerifiedAt),
		CreatedAt:         d.CreatedAt.UTC().Format(viewTimeLayout),
		UpdatedAt:         d.UpdatedAt.UTC().Format(viewTimeLayout),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(viewTimeLayout)
	return &s
}

// Payload renders r for API responses.
func (r Result) Payload() Payload {
	return Payload{
		Success: r.Success,
		Message: r.Message,
		Data:    r.Domain.View(),
	}
}

func success(reason ReasonCode, msg string) Result {
	return Result{Success: true, Reason: reason, Message: msg}
}

func failure(reason ReasonCode, msg string) Result {
	return Result{Success: false, Reason: reason, Message: msg}
}
