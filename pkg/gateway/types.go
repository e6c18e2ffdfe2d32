package gateway

import "strings"

// SessionState is the backend's view of one paired connection. StateOpen is
// the only state the health sweep treats as connected.
type SessionState struct {
	State       string `json:"state"`
	Connected   bool   `json:"connected"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

const StateOpen = "open"

func (s SessionState) IsOpen() bool {
	return s.Connected || strings.EqualFold(s.State, StateOpen)
}

// QRCode is the transient pairing artifact: the raw code string the daemon
// hands out, plus its validity window in seconds.
type QRCode struct {
	Code    string
	Timeout int
}

type SendResult struct {
	MessageID string
}

// Media is a downloaded binary payload with whatever metadata the backend
// reported alongside it.
type Media struct {
	Data     []byte
	Mimetype string
	Filename string
}

// RemoteContact is one entry of the backend's contact list. JID is either
// phone-based (@s.whatsapp.net) or LID-based (@lid); PushName is the display
// name the account broadcasts and is only a weak correlation key.
type RemoteContact struct {
	JID      string
	PushName string
	Phone    string
}

func (c RemoteContact) IsLID() bool {
	return strings.HasSuffix(c.JID, "@lid")
}

// The self-hosted daemon has shipped several response shapes for the same
// logical endpoints across versions. Each wire type below is the union of the
// shapes observed in the field, with a single ordered-preference extractor so
// the ambiguity is documented here and nowhere else.

type resolveLIDResponse struct {
	Phone  string `json:"phone"`
	Number string `json:"number"`
	Data   struct {
		Phone  string `json:"phone"`
		Number string `json:"number"`
	} `json:"data"`
}

func (r *resolveLIDResponse) phone() string {
	for _, candidate := range []string{r.Phone, r.Data.Phone, r.Number, r.Data.Number} {
		if strings.TrimSpace(candidate) != "" {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

type downloadMediaResponse struct {
	Base64   string `json:"base64"`
	Mimetype string `json:"mimetype"`
	Filename string `json:"filename"`
	Data     struct {
		Base64   string `json:"base64"`
		Mimetype string `json:"mimetype"`
		Filename string `json:"filename"`
	} `json:"data"`
}

func (r *downloadMediaResponse) base64Payload() string {
	if strings.TrimSpace(r.Base64) != "" {
		return r.Base64
	}
	return r.Data.Base64
}

func (r *downloadMediaResponse) mimetype() string {
	if strings.TrimSpace(r.Mimetype) != "" {
		return r.Mimetype
	}
	return r.Data.Mimetype
}

func (r *downloadMediaResponse) filename() string {
	if strings.TrimSpace(r.Filename) != "" {
		return r.Filename
	}
	return r.Data.Filename
}

type sessionStatusResponse struct {
	State     string `json:"state"`
	Status    string `json:"status"`
	Connected *bool  `json:"connected"`
	Phone     string `json:"phone"`
	Data      struct {
		State     string `json:"state"`
		Status    string `json:"status"`
		Connected *bool  `json:"connected"`
		Phone     string `json:"phone"`
	} `json:"data"`
}

func (r *sessionStatusResponse) sessionState() SessionState {
	state := firstNonEmpty(r.State, r.Data.State, r.Status, r.Data.Status)
	connected := false
	if r.Connected != nil {
		connected = *r.Connected
	} else if r.Data.Connected != nil {
		connected = *r.Data.Connected
	}
	return SessionState{
		State:       state,
		Connected:   connected,
		PhoneNumber: firstNonEmpty(r.Phone, r.Data.Phone),
	}
}

type qrResponse struct {
	QR      string `json:"qr"`
	Code    string `json:"code"`
	Timeout int    `json:"timeout"`
	Data    struct {
		QR      string `json:"qr"`
		Code    string `json:"code"`
		Timeout int    `json:"timeout"`
	} `json:"data"`
}

func (r *qrResponse) qrCode() QRCode {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = r.Data.Timeout
	}
	return QRCode{
		Code:    firstNonEmpty(r.QR, r.Data.QR, r.Code, r.Data.Code),
		Timeout: timeout,
	}
}

type checkNumberResponse struct {
	Exists       *bool `json:"exists"`
	Valid        *bool `json:"valid"`
	NumberExists *bool `json:"numberExists"`
	Data         struct {
		Exists *bool `json:"exists"`
		Valid  *bool `json:"valid"`
	} `json:"data"`
}

func (r *checkNumberResponse) exists() bool {
	for _, candidate := range []*bool{r.Exists, r.Data.Exists, r.Valid, r.Data.Valid, r.NumberExists} {
		if candidate != nil {
			return *candidate
		}
	}
	return false
}

type remoteContactPayload struct {
	JID      string `json:"jid"`
	ID       string `json:"id"`
	PushName string `json:"pushName"`
	Name     string `json:"name"`
	Notify   string `json:"notify"`
	Phone    string `json:"phone"`
}

func (p *remoteContactPayload) contact() RemoteContact {
	jid := firstNonEmpty(p.JID, p.ID)
	phone := strings.TrimSpace(p.Phone)
	if phone == "" && strings.HasSuffix(jid, "@s.whatsapp.net") {
		phone = strings.TrimSuffix(jid, "@s.whatsapp.net")
	}
	return RemoteContact{
		JID:      jid,
		PushName: firstNonEmpty(p.PushName, p.Name, p.Notify),
		Phone:    phone,
	}
}

type contactListResponse struct {
	Contacts []remoteContactPayload `json:"contacts"`
	Data     []remoteContactPayload `json:"data"`
}

func (r *contactListResponse) contacts() []RemoteContact {
	payloads := r.Contacts
	if len(payloads) == 0 {
		payloads = r.Data
	}
	contacts := make([]RemoteContact, 0, len(payloads))
	for i := range payloads {
		contacts = append(contacts, payloads[i].contact())
	}
	return contacts
}

type sendResponse struct {
	MessageID string `json:"messageId"`
	ID        string `json:"id"`
	Data      struct {
		MessageID string `json:"messageId"`
		ID        string `json:"id"`
	} `json:"data"`
}

func (r *sendResponse) result() SendResult {
	return SendResult{MessageID: firstNonEmpty(r.MessageID, r.Data.MessageID, r.ID, r.Data.ID)}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
