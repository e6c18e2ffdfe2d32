package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/veltacrm/whatsapp-bridge/internal/store"
	"github.com/veltacrm/whatsapp-bridge/pkg/gateway"
)

type fakeContacts struct {
	contact     *store.Contact
	phoneWrites []string
}

func (f *fakeContacts) Get(ctx context.Context, tenantID string, id string) (*store.Contact, error) {
	if f.contact == nil {
		return nil, store.ErrNotFound
	}
	return f.contact, nil
}

func (f *fakeContacts) UpdatePhone(ctx context.Context, id string, phone string) error {
	f.phoneWrites = append(f.phoneWrites, phone)
	f.contact.Phone = phone
	return nil
}

type stubGateway struct {
	gateway.Client

	resolveCalls int
	listCalls    int
	checkCalls   int

	resolvePhone string
	resolveErr   error
	snapshot     []gateway.RemoteContact
	listErr      error
	exists       bool
	checkErr     error
}

func (s *stubGateway) ResolveLID(ctx context.Context, name string, lid string) (string, error) {
	s.resolveCalls++
	return s.resolvePhone, s.resolveErr
}

func (s *stubGateway) ListContacts(ctx context.Context, name string) ([]gateway.RemoteContact, error) {
	s.listCalls++
	return s.snapshot, s.listErr
}

func (s *stubGateway) CheckNumber(ctx context.Context, name string, number string) (bool, error) {
	s.checkCalls++
	return s.exists, s.checkErr
}

func TestResolveIsIdempotentForResolvedContact(t *testing.T) {
	gw := &stubGateway{}
	contacts := &fakeContacts{contact: &store.Contact{
		ID:          "c1",
		Phone:       "5547999998888",
		WhatsappLID: "123456789012345678",
	}}
	r := NewResolver(gw, contacts)

	resp, err := r.Resolve(context.Background(), "t1", "c1", "wa-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !resp.Resolved || resp.Phone != "5547999998888" {
		t.Errorf("resp = %+v", resp)
	}
	if gw.resolveCalls+gw.listCalls+gw.checkCalls != 0 {
		t.Error("resolved contact triggered backend calls")
	}
	if len(contacts.phoneWrites) != 0 {
		t.Error("resolved contact was rewritten")
	}
}

func TestResolveDirectStrategy(t *testing.T) {
	gw := &stubGateway{resolvePhone: "5547999998888"}
	contacts := &fakeContacts{contact: &store.Contact{ID: "c1", WhatsappLID: "123456789012345678"}}
	r := NewResolver(gw, contacts)

	resp, err := r.Resolve(context.Background(), "t1", "c1", "wa-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resp.Strategy != StrategyDirect {
		t.Errorf("strategy = %q", resp.Strategy)
	}
	if len(contacts.phoneWrites) != 1 || contacts.phoneWrites[0] != "5547999998888" {
		t.Errorf("phone writes = %v", contacts.phoneWrites)
	}
}

func TestResolveFallsBackToCorrelation(t *testing.T) {
	gw := &stubGateway{
		resolveErr: gateway.ErrNotSupported,
		snapshot: []gateway.RemoteContact{
			{JID: "123456789012345678@lid", PushName: "João"},
			{JID: "5547999998888@s.whatsapp.net", PushName: "João", Phone: "5547999998888"},
		},
	}
	contacts := &fakeContacts{contact: &store.Contact{ID: "c1", WhatsappLID: "123456789012345678"}}
	r := NewResolver(gw, contacts)

	resp, err := r.Resolve(context.Background(), "t1", "c1", "wa-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resp.Strategy != StrategyCorrelation {
		t.Errorf("strategy = %q", resp.Strategy)
	}
	if resp.Phone != "5547999998888" {
		t.Errorf("phone = %q", resp.Phone)
	}
}

func TestResolveSelfProbe(t *testing.T) {
	// Some LID values are the phone number itself; a stored "LID" of
	// dialable length is probed directly.
	gw := &stubGateway{exists: true}
	contacts := &fakeContacts{contact: &store.Contact{ID: "c1", WhatsappLID: "5547999998888"}}
	r := NewResolver(gw, contacts)

	resp, err := r.Resolve(context.Background(), "t1", "c1", "wa-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resp.Strategy != StrategySelfProbe {
		t.Errorf("strategy = %q", resp.Strategy)
	}
	if resp.Phone != "5547999998888" {
		t.Errorf("phone = %q", resp.Phone)
	}
}

func TestResolveCachesDefinitiveNotFound(t *testing.T) {
	gw := &stubGateway{}
	contacts := &fakeContacts{contact: &store.Contact{ID: "c1", WhatsappLID: "123456789012345678"}}
	r := NewResolver(gw, contacts)

	resp, err := r.Resolve(context.Background(), "t1", "c1", "wa-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resp.Resolved {
		t.Fatal("expected not-found outcome")
	}
	if resp.Guidance == "" {
		t.Error("not-found outcome carries no guidance")
	}

	callsAfterFirst := gw.resolveCalls + gw.listCalls + gw.checkCalls
	if _, err := r.Resolve(context.Background(), "t1", "c1", "wa-1"); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if total := gw.resolveCalls + gw.listCalls + gw.checkCalls; total != callsAfterFirst {
		t.Errorf("cached not-found re-ran strategies: %d calls, want %d", total, callsAfterFirst)
	}
}

func TestResolveDoesNotCacheTransientFailures(t *testing.T) {
	gw := &stubGateway{
		resolveErr: errors.New("connection refused"),
		listErr:    errors.New("connection refused"),
	}
	contacts := &fakeContacts{contact: &store.Contact{ID: "c1", WhatsappLID: "123456789012345678"}}
	r := NewResolver(gw, contacts)

	if _, err := r.Resolve(context.Background(), "t1", "c1", "wa-1"); err == nil {
		t.Fatal("expected transient error to propagate")
	}

	// Once the backend recovers, the same contact resolves without waiting
	// out any negative-cache TTL.
	gw.resolveErr = nil
	gw.listErr = nil
	gw.resolvePhone = "5547999998888"

	resp, err := r.Resolve(context.Background(), "t1", "c1", "wa-1")
	if err != nil {
		t.Fatalf("Resolve after recovery: %v", err)
	}
	if !resp.Resolved {
		t.Error("transient failure was cached as not-found")
	}
}

func TestInvalidateDropsNegativeCache(t *testing.T) {
	gw := &stubGateway{}
	contacts := &fakeContacts{contact: &store.Contact{ID: "c1", WhatsappLID: "123456789012345678"}}
	r := NewResolver(gw, contacts)

	if _, err := r.Resolve(context.Background(), "t1", "c1", "wa-1"); err != nil {
		t.Fatal(err)
	}
	r.Invalidate("c1")
	gw.resolvePhone = "5547999998888"

	resp, err := r.Resolve(context.Background(), "t1", "c1", "wa-1")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Resolved {
		t.Error("invalidated contact still served from negative cache")
	}
}

func TestResolveWithSnapshotSkipsListFetch(t *testing.T) {
	gw := &stubGateway{resolveErr: gateway.ErrNotSupported}
	contacts := &fakeContacts{contact: &store.Contact{ID: "c1", WhatsappLID: "123456789012345678"}}
	r := NewResolver(gw, contacts)

	snapshot := []gateway.RemoteContact{
		{JID: "123456789012345678@lid", PushName: "João"},
		{JID: "5547999998888@s.whatsapp.net", PushName: "João", Phone: "5547999998888"},
	}

	resp, err := r.ResolveWithSnapshot(context.Background(), "t1", "c1", "wa-1", snapshot, nil)
	if err != nil {
		t.Fatalf("ResolveWithSnapshot: %v", err)
	}
	if !resp.Resolved || resp.Phone != "5547999998888" || resp.Strategy != StrategyCorrelation {
		t.Errorf("resp = %+v", resp)
	}
	if gw.listCalls != 0 {
		t.Errorf("listCalls = %d, want 0 (caller already holds the snapshot)", gw.listCalls)
	}
}

func TestResolveWithSnapshotTreatsFetchErrorAsTransient(t *testing.T) {
	gw := &stubGateway{resolveErr: gateway.ErrNotSupported}
	contacts := &fakeContacts{contact: &store.Contact{ID: "c1", WhatsappLID: "123456789012345678"}}
	r := NewResolver(gw, contacts)

	_, err := r.ResolveWithSnapshot(context.Background(), "t1", "c1", "wa-1", nil, errors.New("connection refused"))
	if err == nil {
		t.Fatal("expected the snapshot fetch error to propagate")
	}
	if gw.listCalls != 0 {
		t.Errorf("listCalls = %d, want 0 (no refetch on a failed snapshot)", gw.listCalls)
	}

	// A transient failure is never recorded as a definitive miss.
	resp, err := r.ResolveWithSnapshot(context.Background(), "t1", "c1", "wa-1", []gateway.RemoteContact{
		{JID: "123456789012345678@lid", PushName: "João"},
		{JID: "5547999998888@s.whatsapp.net", PushName: "João", Phone: "5547999998888"},
	}, nil)
	if err != nil {
		t.Fatalf("ResolveWithSnapshot: %v", err)
	}
	if !resp.Resolved {
		t.Errorf("resp = %+v", resp)
	}
}
