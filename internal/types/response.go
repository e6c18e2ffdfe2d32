package types

// ResponseQRCode carries the pairing artifact rendered as a PNG data URI.
type ResponseQRCode struct {
	QRCode  string `json:"qr_code"`
	Timeout int    `json:"timeout"`
}

// ResponseResolveIdentity reports a recovered phone, or guidance when none of
// the strategies succeeded.
type ResponseResolveIdentity struct {
	ContactID string `json:"contact_id"`
	Phone     string `json:"phone,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
	Resolved  bool   `json:"resolved"`
	Guidance  string `json:"guidance,omitempty"`
}

// ResponseMedia is the persisted media location.
type ResponseMedia struct {
	MessageID    string `json:"message_id"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Mimetype     string `json:"mimetype"`
}

// ResponseSweep aggregates a reconciliation run.
type ResponseSweep struct {
	Scanned  int            `json:"scanned"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Outcomes []SweepOutcome `json:"outcomes,omitempty"`
}

// SweepOutcome is one contact's result within a sweep.
type SweepOutcome struct {
	ContactID string `json:"contact_id"`
	Outcome   string `json:"outcome"`
	Phone     string `json:"phone,omitempty"`
	Name      string `json:"name,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
