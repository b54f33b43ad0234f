package domainauth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHostname(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Example.COM", want: "example.com"},
		{in: "  mail.example.org.  ", want: "mail.example.org"},
		{in: "bücher.example", want: "xn--bcher-kva.example"},
		{in: "", wantErr: true},
		{in: ".", wantErr: true},
		{in: "localhost", wantErr: true},
		{in: "com", wantErr: true},
		{in: "co.uk", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeHostname(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidHostname)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDomainStates(t *testing.T) {
	d := &Domain{ID: "d1"}
	for _, f := range []Family{FamilyOwnership, FamilyMX, FamilySending} {
		assert.Equal(t, f.initialState(), d.State(f))
	}
	assert.Equal(t, StateUnverified, d.State(FamilyOwnership))
	assert.Equal(t, StateUnvalidated, d.State(FamilyMX))
	assert.Equal(t, StateUnverifiedForSending, d.State(FamilySending))

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, f := range []Family{FamilyOwnership, FamilyMX, FamilySending} {
		assert.True(t, d.Apply(Transition{DomainID: "d1", Family: f, At: at}))
	}
	assert.Equal(t, StateVerified, d.State(FamilyOwnership))
	assert.Equal(t, StateValidated, d.State(FamilyMX))
	assert.Equal(t, StateVerifiedForSending, d.State(FamilySending))
}

func TestApplyIsMonotonic(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := &Domain{}

	assert.True(t, d.Apply(Transition{Family: FamilyMX, At: first}))
	assert.False(t, d.Apply(Transition{Family: FamilyMX, At: first.Add(time.Hour)}))
	assert.Equal(t, first, *d.MXValidatedAt)

	assert.False(t, d.Apply(Transition{Family: Family("dkim"), At: first}))
}

func TestCloneIsDeep(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := &Domain{ID: "d1", VerifiedAt: &at}

	c := d.Clone()
	*c.VerifiedAt = at.Add(time.Hour)
	assert.Equal(t, at, *d.VerifiedAt)

	var nilDomain *Domain
	assert.Nil(t, nilDomain.Clone())
}

func TestFamilyColumns(t *testing.T) {
	assert.Equal(t, "domain_verified_at", FamilyOwnership.Column())
	assert.Equal(t, "domain_mx_validated_at", FamilyMX.Column())
	assert.Equal(t, "domain_sending_verified_at", FamilySending.Column())
	assert.False(t, Family("spf").Valid())
}

func TestPayloadJSON(t *testing.T) {
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	r := Result{
		Success: true,
		Message: MsgSendingVerified,
		Domain: &Domain{
			ID:                "d1",
			OwnerID:           "owner-1",
			Hostname:          "example.com",
			Active:            true,
			SendingVerifiedAt: &at,
			CreatedAt:         at,
			UpdatedAt:         at,
		},
	}

	raw, err := json.Marshal(r.Payload())
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, MsgSendingVerified, body["message"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "example.com", data["domain"])
	assert.Equal(t, "2026-05-06 07:08:09", data["domain_sending_verified_at"])
	assert.Nil(t, data["domain_verified_at"])

	raw, err = json.Marshal(Result{Message: MsgDKIMNotFound}.Payload())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"data"`)
}
