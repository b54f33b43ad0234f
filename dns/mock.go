package dns

import (
	"context"
	"net"
	"slices"
	"sync"
)

// MockResolver is a Resolver used for testing.
// Set DNS records in the fields, which map FQDNs (with trailing dot) to values.
// Use a pointer; the resolver counts calls and is safe for concurrent use.
type MockResolver struct {
	TXT   map[string][]string
	MX    map[string][]*net.MX
	CNAME map[string][]string

	// Fail contains requests that return ErrDNSServFail.
	// Format: "type name", e.g. "txt example.com." where type is lowercase.
	Fail []string

	// Hang contains requests that block until the context is done,
	// simulating an unresponsive nameserver. Same format as Fail.
	Hang []string

	// AllAuthentic sets Authentic on every answer.
	AllAuthentic bool

	mu    sync.Mutex
	calls map[string]int
}

var _ Resolver = (*MockResolver)(nil)

// mockReq represents a mock DNS request.
type mockReq struct {
	Type string // E.g. "txt", "mx", "cname"
	Name string // FQDN with trailing dot
}

func (mr mockReq) String() string {
	return mr.Type + " " + mr.Name
}

// Calls returns how many times a request was made, e.g. Calls("txt", "example.com.").
func (r *MockResolver) Calls(typ, name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[mockReq{typ, Absolute(name)}.String()]
}

// TotalCalls returns the number of lookups of any kind.
func (r *MockResolver) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.calls {
		total += n
	}
	return total
}

// begin records the call and applies configured failures.
func (r *MockResolver) begin(ctx context.Context, mr mockReq) error {
	r.mu.Lock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[mr.String()]++
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return contextError(err)
	}

	if slices.Contains(r.Hang, mr.String()) {
		<-ctx.Done()
		return contextError(ctx.Err())
	}

	if slices.Contains(r.Fail, mr.String()) {
		return ErrDNSServFail
	}
	return nil
}

// LookupTXT returns TXT records for the given name.
func (r *MockResolver) LookupTXT(ctx context.Context, name string) (Result[string], error) {
	fqdn := Absolute(name)
	result := Result[string]{Authentic: r.AllAuthentic}

	if err := r.begin(ctx, mockReq{"txt", fqdn}); err != nil {
		return result, err
	}

	records := r.TXT[fqdn]
	if len(records) == 0 {
		return result, ErrDNSNotFound
	}

	result.Records = records
	return result, nil
}

// LookupMX returns MX records for the given name.
func (r *MockResolver) LookupMX(ctx context.Context, name string) (Result[*net.MX], error) {
	fqdn := Absolute(name)
	result := Result[*net.MX]{Authentic: r.AllAuthentic}

	if err := r.begin(ctx, mockReq{"mx", fqdn}); err != nil {
		return result, err
	}

	records := r.MX[fqdn]
	if len(records) == 0 {
		return result, ErrDNSNotFound
	}

	result.Records = records
	return result, nil
}

// LookupCNAME returns CNAME targets for the given name.
func (r *MockResolver) LookupCNAME(ctx context.Context, name string) (Result[string], error) {
	fqdn := Absolute(name)
	result := Result[string]{Authentic: r.AllAuthentic}

	if err := r.begin(ctx, mockReq{"cname", fqdn}); err != nil {
		return result, err
	}

	records := r.CNAME[fqdn]
	if len(records) == 0 {
		return result, ErrDNSNotFound
	}

	result.Records = records
	return result, nil
}
