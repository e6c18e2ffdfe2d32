package types

// RequestCreateConnection starts the pairing flow for a new tenant device.
type RequestCreateConnection struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// RequestSendMessage is the outbound send payload. Connection is optional;
// empty means the tenant's default connected connection.
type RequestSendMessage struct {
	ConnectionID   string `json:"connection_id,omitempty"`
	ConversationID string `json:"conversation_id"`
	To             string `json:"to"`
	Type           string `json:"type"`
	Text           string `json:"text,omitempty"`
	MediaURL       string `json:"media_url,omitempty"`
	Caption        string `json:"caption,omitempty"`
}

// RequestSendReaction reacts to an existing message.
type RequestSendReaction struct {
	ConnectionID string `json:"connection_id,omitempty"`
	To           string `json:"to"`
	MessageID    string `json:"message_id"`
	Emoji        string `json:"emoji"`
}

// RequestRetrieveMedia asks the media engine to fetch and persist a
// message's binary. InlineData carries webhook-pushed base64 payloads and
// skips the gateway fetch.
type RequestRetrieveMedia struct {
	MessageID  string `json:"message_id"`
	Kind       string `json:"kind"`
	Session    string `json:"session"`
	InlineData string `json:"inline_data,omitempty"`
	Mimetype   string `json:"mimetype,omitempty"`
	Filename   string `json:"filename,omitempty"`
}

// RequestResolveIdentity recovers a dialable phone for a LID-only contact.
type RequestResolveIdentity struct {
	ContactID    string `json:"contact_id"`
	ConnectionID string `json:"connection_id,omitempty"`
}

// RequestReconcile runs the batch sweep for a tenant.
type RequestReconcile struct {
	ConnectionID string `json:"connection_id,omitempty"`
}

// InboundWebhook is the self-hosted daemon's message push.
type InboundWebhook struct {
	Session        string `json:"session"`
	MessageID      string `json:"messageId"`
	From           string `json:"from"`
	PushName       string `json:"pushName,omitempty"`
	Type           string `json:"type"`
	Text           string `json:"text,omitempty"`
	Base64         string `json:"base64,omitempty"`
	Mimetype       string `json:"mimetype,omitempty"`
	Filename       string `json:"filename,omitempty"`
	Timestamp      int64  `json:"timestamp,omitempty"`
	TenantID       string `json:"tenantId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}
