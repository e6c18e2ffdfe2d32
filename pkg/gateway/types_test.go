package gateway

import (
	"encoding/json"
	"testing"
)

func TestResolveLIDResponsePhonePreference(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"top-level phone wins", `{"phone":"111","number":"222","data":{"phone":"333"}}`, "111"},
		{"nested phone over numbers", `{"number":"222","data":{"phone":"333","number":"444"}}`, "333"},
		{"number fallback", `{"number":"222","data":{"number":"444"}}`, "222"},
		{"nested number last", `{"data":{"number":"444"}}`, "444"},
		{"empty", `{}`, ""},
		{"whitespace ignored", `{"phone":"  ","number":"222"}`, "222"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var resp resolveLIDResponse
			if err := json.Unmarshal([]byte(tc.body), &resp); err != nil {
				t.Fatal(err)
			}
			if got := resp.phone(); got != tc.want {
				t.Errorf("phone() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSessionStatusResponseVariants(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantOpen bool
	}{
		{"state open", `{"state":"open"}`, true},
		{"upper case", `{"state":"OPEN"}`, true},
		{"nested status", `{"data":{"status":"open"}}`, true},
		{"connected flag only", `{"connected":true,"state":"unknown"}`, true},
		{"nested connected flag", `{"data":{"connected":true}}`, true},
		{"closed", `{"state":"close"}`, false},
		{"connecting", `{"data":{"status":"connecting"}}`, false},
		{"empty", `{}`, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var resp sessionStatusResponse
			if err := json.Unmarshal([]byte(tc.body), &resp); err != nil {
				t.Fatal(err)
			}
			if got := resp.sessionState().IsOpen(); got != tc.wantOpen {
				t.Errorf("IsOpen() = %v, want %v", got, tc.wantOpen)
			}
		})
	}
}

func TestContactListResponseNormalization(t *testing.T) {
	body := `{"data":[
		{"id":"123456789012345678@lid","notify":"João"},
		{"jid":"5547999998888@s.whatsapp.net","pushName":"João"}
	]}`

	var resp contactListResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatal(err)
	}
	contacts := resp.contacts()
	if len(contacts) != 2 {
		t.Fatalf("contacts = %d", len(contacts))
	}

	if !contacts[0].IsLID() {
		t.Error("first entry should be a LID identity")
	}
	if contacts[0].PushName != "João" {
		t.Errorf("notify fallback: PushName = %q", contacts[0].PushName)
	}

	if contacts[1].IsLID() {
		t.Error("second entry should not be a LID identity")
	}
	// Phone derived from the JID when the payload omits it.
	if contacts[1].Phone != "5547999998888" {
		t.Errorf("Phone = %q", contacts[1].Phone)
	}
}

func TestCheckNumberResponsePreference(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{`{"exists":true}`, true},
		{`{"exists":false,"valid":true}`, false},
		{`{"data":{"exists":true}}`, true},
		{`{"valid":true}`, true},
		{`{"numberExists":true}`, true},
		{`{}`, false},
	}

	for _, tc := range tests {
		var resp checkNumberResponse
		if err := json.Unmarshal([]byte(tc.body), &resp); err != nil {
			t.Fatal(err)
		}
		if got := resp.exists(); got != tc.want {
			t.Errorf("exists() for %s = %v, want %v", tc.body, got, tc.want)
		}
	}
}

func TestSendResponseResult(t *testing.T) {
	var resp sendResponse
	if err := json.Unmarshal([]byte(`{"data":{"id":"ABCD"}}`), &resp); err != nil {
		t.Fatal(err)
	}
	if got := resp.result().MessageID; got != "ABCD" {
		t.Errorf("MessageID = %q", got)
	}
}
