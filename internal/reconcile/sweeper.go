package reconcile

import (
	"context"
	"strings"

	"golang.org/x/time/rate"

	"github.com/veltacrm/whatsapp-bridge/internal/identity"
	"github.com/veltacrm/whatsapp-bridge/internal/store"
	typBridge "github.com/veltacrm/whatsapp-bridge/internal/types"
	"github.com/veltacrm/whatsapp-bridge/pkg/env"
	"github.com/veltacrm/whatsapp-bridge/pkg/gateway"
	"github.com/veltacrm/whatsapp-bridge/pkg/log"
	"github.com/veltacrm/whatsapp-bridge/pkg/validation"
)

// DefaultPlaceholderNames are display names known to be written by automation
// instead of the contact. RECONCILE_PLACEHOLDER_NAMES extends the list.
var DefaultPlaceholderNames = []string{"Chatbot Whats", "WhatsApp User"}

const (
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// ContactRepo is the slice of the contact store the sweep touches.
type ContactRepo interface {
	ListReconcileCandidates(ctx context.Context, tenantID string, placeholderNames []string) ([]store.Contact, error)
	UpdateName(ctx context.Context, id string, name string) error
}

// Sweeper walks a tenant's anomalous contacts in batch: LID-only contacts get
// the same strategy chain as on-demand resolution, placeholder display names
// are repaired from the backend's push-names. It repairs in place and never
// deletes or merges rows.
type Sweeper struct {
	resolver     *identity.Resolver
	contacts     ContactRepo
	limiter      *rate.Limiter
	placeholders []string
}

func NewSweeper(resolver *identity.Resolver, contacts ContactRepo) *Sweeper {
	perSecond := env.GetEnvIntOrDefault("RECONCILE_RATE_PER_SECOND", 5)
	if perSecond < 1 {
		perSecond = 1
	}

	placeholders := append([]string{}, DefaultPlaceholderNames...)
	if extra := env.GetEnvStringOrDefault("RECONCILE_PLACEHOLDER_NAMES", ""); extra != "" {
		for _, name := range strings.Split(extra, ",") {
			if name = strings.TrimSpace(name); name != "" {
				placeholders = append(placeholders, name)
			}
		}
	}

	return &Sweeper{
		resolver:     resolver,
		contacts:     contacts,
		limiter:      rate.NewLimiter(rate.Limit(perSecond), 1),
		placeholders: placeholders,
	}
}

// Run sweeps one tenant against one backend session. The contact list is
// fetched exactly once and reused for every candidate's correlation and name
// repair; per-contact resolution failures are recorded and do not abort the
// sweep.
func (s *Sweeper) Run(ctx context.Context, tenantID string, session string) (*typBridge.ResponseSweep, error) {
	candidates, err := s.contacts.ListReconcileCandidates(ctx, tenantID, s.placeholders)
	if err != nil {
		return nil, err
	}

	report := &typBridge.ResponseSweep{Scanned: len(candidates)}
	if len(candidates) == 0 {
		return report, nil
	}

	snapshot, snapshotErr := s.resolver.Snapshot(ctx, session)
	if snapshotErr != nil {
		// Name repair degrades to a no-op; direct resolve and the self-probe
		// still run per candidate, with the fetch error carried into each
		// correlation attempt rather than refetching.
		log.Print(nil).WithField("tenant_id", tenantID).Warn("Reconcile sweep running without contact snapshot: ", snapshotErr)
		snapshot = nil
	}

	for i := range candidates {
		if err := s.limiter.Wait(ctx); err != nil {
			return report, err
		}

		outcome := s.sweepOne(ctx, tenantID, session, &candidates[i], snapshot, snapshotErr)
		switch outcome.Outcome {
		case OutcomeUpdated:
			report.Updated++
		case OutcomeFailed:
			report.Failed++
		default:
			report.Skipped++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report, nil
}

func (s *Sweeper) sweepOne(ctx context.Context, tenantID string, session string, contact *store.Contact, snapshot []gateway.RemoteContact, snapshotErr error) typBridge.SweepOutcome {
	outcome := typBridge.SweepOutcome{ContactID: contact.ID, Outcome: OutcomeSkipped}

	if identity.IsLidOnlyContact(contact) {
		resp, err := s.resolver.ResolveWithSnapshot(ctx, tenantID, contact.ID, session, snapshot, snapshotErr)
		if err != nil {
			outcome.Outcome = OutcomeFailed
			outcome.Reason = err.Error()
			return outcome
		}
		if resp.Resolved {
			outcome.Outcome = OutcomeUpdated
			outcome.Phone = resp.Phone
		} else {
			outcome.Reason = "no strategy produced a phone"
		}
	}

	if name, ok := s.repairName(ctx, contact, snapshot); ok {
		outcome.Outcome = OutcomeUpdated
		outcome.Name = name
	}

	return outcome
}

// repairName replaces an automation-written placeholder with the push-name
// the contact broadcasts, when the snapshot carries one.
func (s *Sweeper) repairName(ctx context.Context, contact *store.Contact, snapshot []gateway.RemoteContact) (string, bool) {
	if len(snapshot) == 0 || !s.isPlaceholder(contact.Name) {
		return "", false
	}

	lid := validation.CleanDigits(contact.WhatsappLID)
	if lid == "" {
		lid = validation.CleanDigits(contact.Phone)
	}

	_, pushName, _ := identity.CorrelateByPushName(snapshot, lid)
	pushName = strings.TrimSpace(pushName)
	if pushName == "" || s.isPlaceholder(pushName) || pushName == contact.Name {
		return "", false
	}

	if err := s.contacts.UpdateName(ctx, contact.ID, pushName); err != nil {
		log.Print(nil).WithField("contact_id", contact.ID).Warn("Failed repair contact name: ", err)
		return "", false
	}
	return pushName, true
}

func (s *Sweeper) isPlaceholder(name string) bool {
	for _, placeholder := range s.placeholders {
		if strings.EqualFold(strings.TrimSpace(name), placeholder) {
			return true
		}
	}
	return false
}
