package identity

import (
	"testing"

	"github.com/veltacrm/whatsapp-bridge/internal/store"
	"github.com/veltacrm/whatsapp-bridge/pkg/gateway"
)

func TestIsLidOnlyContact(t *testing.T) {
	tests := []struct {
		name    string
		contact store.Contact
		want    bool
	}{
		{"lid without phone", store.Contact{WhatsappLID: "123456789012345678"}, true},
		{"phone equals lid", store.Contact{Phone: "123456789012345678", WhatsappLID: "123456789012345678"}, true},
		{"formatted phone equals lid", store.Contact{Phone: "+12345678901234 5678", WhatsappLID: "123456789012345678"}, true},
		{"overlong phone without lid", store.Contact{Phone: "12345678901234567890"}, true},
		{"normal phone", store.Contact{Phone: "5547999998888"}, false},
		{"normal phone with lid", store.Contact{Phone: "5547999998888", WhatsappLID: "123456789012345678"}, false},
		{"empty contact", store.Contact{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsLidOnlyContact(&tc.contact); got != tc.want {
				t.Errorf("IsLidOnlyContact = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCorrelateByPushName(t *testing.T) {
	snapshot := []gateway.RemoteContact{
		{JID: "123456789012345678@lid", PushName: "João"},
		{JID: "5547999998888@s.whatsapp.net", PushName: "João", Phone: "5547999998888"},
		{JID: "5511888887777@s.whatsapp.net", PushName: "Maria", Phone: "5511888887777"},
	}

	phone, pushName, ok := CorrelateByPushName(snapshot, "123456789012345678")
	if !ok {
		t.Fatal("expected a correlation")
	}
	if phone != "5547999998888" {
		t.Errorf("phone = %q", phone)
	}
	if pushName != "João" {
		t.Errorf("pushName = %q", pushName)
	}
}

func TestCorrelateByPushNameNoLidEntry(t *testing.T) {
	snapshot := []gateway.RemoteContact{
		{JID: "5547999998888@s.whatsapp.net", PushName: "João", Phone: "5547999998888"},
	}
	if _, _, ok := CorrelateByPushName(snapshot, "123456789012345678"); ok {
		t.Error("correlation without a LID entry")
	}
}

func TestCorrelateByPushNameNoPhoneMatch(t *testing.T) {
	// The LID identity exists but nobody else broadcasts the same name; the
	// push-name is still surfaced for display repair.
	snapshot := []gateway.RemoteContact{
		{JID: "123456789012345678@lid", PushName: "João"},
		{JID: "5511888887777@s.whatsapp.net", PushName: "Maria", Phone: "5511888887777"},
	}
	phone, pushName, ok := CorrelateByPushName(snapshot, "123456789012345678")
	if ok || phone != "" {
		t.Errorf("unexpected correlation: %q", phone)
	}
	if pushName != "João" {
		t.Errorf("pushName = %q", pushName)
	}
}

func TestCorrelateByPushNameIgnoresOtherLidEntries(t *testing.T) {
	// A second LID identity with the same name must never be taken as the
	// phone source.
	snapshot := []gateway.RemoteContact{
		{JID: "123456789012345678@lid", PushName: "João"},
		{JID: "987654321098765432@lid", PushName: "João"},
	}
	if _, _, ok := CorrelateByPushName(snapshot, "123456789012345678"); ok {
		t.Error("correlated against a LID entry")
	}
}

func TestCorrelateByPushNameEmptyLid(t *testing.T) {
	if _, _, ok := CorrelateByPushName(nil, ""); ok {
		t.Error("empty lid correlated")
	}
}
