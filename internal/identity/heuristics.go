package identity

import (
	"strings"

	"github.com/veltacrm/whatsapp-bridge/internal/store"
	"github.com/veltacrm/whatsapp-bridge/pkg/gateway"
	"github.com/veltacrm/whatsapp-bridge/pkg/validation"
)

// IsLidOnlyContact flags a contact that cannot receive outbound sends: a LID
// with no phone, a phone that is really the LID, or an implausibly long
// phone (>15 digits) with no LID recorded.
func IsLidOnlyContact(contact *store.Contact) bool {
	phone := validation.CleanDigits(contact.Phone)
	lid := validation.CleanDigits(contact.WhatsappLID)

	if lid != "" && phone == "" {
		return true
	}
	if lid != "" && phone == lid {
		return true
	}
	if lid == "" && len(phone) > 15 {
		return true
	}
	return false
}

// CorrelateByPushName implements the contact-list correlation strategy:
// WhatsApp sometimes exposes the same person under an opaque @lid identity
// and a normal phone identity, correlated only by the display name both
// broadcast. Given one snapshot of the backend's contact list, find the @lid
// entry containing the LID, then a different non-LID entry with the identical
// push-name; its phone is the answer.
//
// Known correctness risk, preserved deliberately: two distinct contacts
// sharing a display name will be misattributed. There is no stronger key
// available from the backend.
func CorrelateByPushName(snapshot []gateway.RemoteContact, lid string) (phone string, pushName string, ok bool) {
	if lid == "" {
		return "", "", false
	}

	var lidEntry *gateway.RemoteContact
	for i := range snapshot {
		if snapshot[i].IsLID() && strings.Contains(snapshot[i].JID, lid) {
			lidEntry = &snapshot[i]
			break
		}
	}
	if lidEntry == nil || strings.TrimSpace(lidEntry.PushName) == "" {
		return "", "", false
	}

	for i := range snapshot {
		entry := &snapshot[i]
		if entry.IsLID() || entry.JID == lidEntry.JID {
			continue
		}
		if entry.PushName != lidEntry.PushName {
			continue
		}
		candidate := validation.CleanDigits(entry.Phone)
		if validation.IsPlausiblePhone(candidate) {
			return candidate, lidEntry.PushName, true
		}
	}

	return "", lidEntry.PushName, false
}
