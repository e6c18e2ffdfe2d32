package identity

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/veltacrm/whatsapp-bridge/internal/store"
	typBridge "github.com/veltacrm/whatsapp-bridge/internal/types"
	"github.com/veltacrm/whatsapp-bridge/pkg/env"
	"github.com/veltacrm/whatsapp-bridge/pkg/gateway"
	"github.com/veltacrm/whatsapp-bridge/pkg/log"
	"github.com/veltacrm/whatsapp-bridge/pkg/validation"
)

// NotFoundGuidance is surfaced when every strategy fails: the real fix is an
// external event, a fresh inbound message carrying the true identifier.
const NotFoundGuidance = "Automatic recovery failed. Ask the contact to send a new message; its envelope carries the real phone identifier."

const (
	StrategyDirect      = "direct-resolve"
	StrategyCorrelation = "contact-list-correlation"
	StrategySelfProbe   = "self-probe"
)

// ContactRepo is the slice of the contact store the resolver touches.
type ContactRepo interface {
	Get(ctx context.Context, tenantID string, id string) (*store.Contact, error)
	UpdatePhone(ctx context.Context, id string, phone string) error
}

// Resolver recovers dialable phone numbers for LID-only contacts. Definitive
// "not found" outcomes are cached per contact with an explicit TTL so known
// unresolvable contacts do not hammer the backend; the cache is invalidated
// the moment a resolution succeeds.
type Resolver struct {
	gw       gateway.Client
	contacts ContactRepo
	notFound *gocache.Cache

	// listGroup collapses concurrent full contact-list fetches for the same
	// session into one backend call.
	listGroup singleflight.Group
}

func NewResolver(gw gateway.Client, contacts ContactRepo) *Resolver {
	ttl := env.GetEnvDurationOrDefault("IDENTITY_NOT_FOUND_TTL", 6*time.Hour)
	return &Resolver{
		gw:       gw,
		contacts: contacts,
		notFound: gocache.New(ttl, 10*time.Minute),
	}
}

// snapshotResult carries a pre-fetched contact list into the correlation
// strategy, together with the error its fetch produced.
type snapshotResult struct {
	contacts []gateway.RemoteContact
	err      error
}

// Resolve applies the ordered strategies, stopping at the first success. An
// already-resolved contact (plausible non-LID phone) is a no-op with no store
// write and no backend call.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, contactID string, session string) (*typBridge.ResponseResolveIdentity, error) {
	return r.resolve(ctx, tenantID, contactID, session, nil)
}

// ResolveWithSnapshot is Resolve with the contact-list fetch replaced by a
// list the caller already holds. The reconciliation sweep fetches the list
// once and feeds it to every candidate through here; snapshotErr stands in
// for the fetch outcome, so a failed sweep-level fetch still counts as a
// transient correlation failure instead of triggering a fresh fetch.
func (r *Resolver) ResolveWithSnapshot(ctx context.Context, tenantID string, contactID string, session string, snapshot []gateway.RemoteContact, snapshotErr error) (*typBridge.ResponseResolveIdentity, error) {
	return r.resolve(ctx, tenantID, contactID, session, &snapshotResult{contacts: snapshot, err: snapshotErr})
}

func (r *Resolver) resolve(ctx context.Context, tenantID string, contactID string, session string, pre *snapshotResult) (*typBridge.ResponseResolveIdentity, error) {
	contact, err := r.contacts.Get(ctx, tenantID, contactID)
	if err != nil {
		return nil, err
	}

	phone := validation.CleanDigits(contact.Phone)
	lid := validation.CleanDigits(contact.WhatsappLID)

	if validation.IsPlausiblePhone(phone) && phone != lid {
		return &typBridge.ResponseResolveIdentity{
			ContactID: contact.ID,
			Phone:     phone,
			Resolved:  true,
		}, nil
	}

	if _, cached := r.notFound.Get(contact.ID); cached {
		return r.notFoundResponse(contact.ID), nil
	}

	// When the LID landed in the phone column, use it as the candidate.
	if lid == "" {
		lid = phone
	}
	if lid == "" {
		r.notFound.SetDefault(contact.ID, struct{}{})
		return r.notFoundResponse(contact.ID), nil
	}

	resolved, strategy, transientErr := r.runStrategies(ctx, session, lid, pre)
	if resolved == "" {
		if transientErr != nil {
			return nil, transientErr
		}
		r.notFound.SetDefault(contact.ID, struct{}{})
		return r.notFoundResponse(contact.ID), nil
	}

	if err := r.contacts.UpdatePhone(ctx, contact.ID, resolved); err != nil {
		return nil, err
	}
	// The phone write is durable before the cache invalidation; a crash in
	// between leaves only stale cache, corrected on the next read.
	r.notFound.Delete(contact.ID)

	log.Print(nil).WithField("contact_id", contact.ID).WithField("strategy", strategy).Info("Recovered phone for LID-only contact")

	return &typBridge.ResponseResolveIdentity{
		ContactID: contact.ID,
		Phone:     resolved,
		Strategy:  strategy,
		Resolved:  true,
	}, nil
}

// Invalidate drops a contact's cached "not found" state; inbound processing
// calls this when a fresh message supplies the real identifier.
func (r *Resolver) Invalidate(contactID string) {
	r.notFound.Delete(contactID)
}

// Snapshot fetches the backend's full contact list, deduplicating concurrent
// fetches per session. The reconciliation sweep reuses one snapshot for its
// whole candidate set.
func (r *Resolver) Snapshot(ctx context.Context, session string) ([]gateway.RemoteContact, error) {
	result, err, _ := r.listGroup.Do(session, func() (interface{}, error) {
		return r.gw.ListContacts(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return result.([]gateway.RemoteContact), nil
}

func (r *Resolver) runStrategies(ctx context.Context, session string, lid string, pre *snapshotResult) (phone string, strategy string, transientErr error) {
	// 1. Direct resolve: the backend may already track the LID→phone mapping.
	resolved, err := r.gw.ResolveLID(ctx, session, lid)
	if err != nil && !errors.Is(err, gateway.ErrNotSupported) {
		transientErr = err
	}
	resolved = validation.CleanDigits(resolved)
	if validation.IsPlausiblePhone(resolved) {
		return resolved, StrategyDirect, nil
	}

	// 2. Contact-list correlation by shared push-name.
	var snapshot []gateway.RemoteContact
	if pre != nil {
		snapshot, err = pre.contacts, pre.err
	} else {
		snapshot, err = r.Snapshot(ctx, session)
	}
	if err != nil {
		if !errors.Is(err, gateway.ErrNotSupported) {
			transientErr = err
		}
	} else if correlated, _, ok := CorrelateByPushName(snapshot, lid); ok {
		return correlated, StrategyCorrelation, nil
	}

	// 3. Self-probe: some LID values are the phone number itself.
	if validation.IsPlausiblePhone(lid) {
		exists, err := r.gw.CheckNumber(ctx, session, lid)
		if err != nil && !errors.Is(err, gateway.ErrNotSupported) {
			transientErr = err
		}
		if err == nil && exists {
			return lid, StrategySelfProbe, nil
		}
	}

	return "", "", transientErr
}

func (r *Resolver) notFoundResponse(contactID string) *typBridge.ResponseResolveIdentity {
	return &typBridge.ResponseResolveIdentity{
		ContactID: contactID,
		Resolved:  false,
		Guidance:  NotFoundGuidance,
	}
}
