package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/veltacrm/whatsapp-bridge/pkg/transport"
)

// CloudAPIClient talks to a WhatsApp Business API gateway. The session name
// maps to the gateway's phone-number id. Cloud accounts are provisioned out of
// band, so there is no QR pairing, no contact list, and no LID directory;
// those operations report ErrNotSupported and the callers surface that text.
type CloudAPIClient struct {
	baseURL   string
	transport *transport.Transport
}

func NewCloudAPIClient(baseURL string, tr *transport.Transport) *CloudAPIClient {
	return &CloudAPIClient{baseURL: baseURL, transport: tr}
}

func (g *CloudAPIClient) numberURL(name string, parts ...string) string {
	u := g.baseURL + "/" + url.PathEscape(name)
	for _, part := range parts {
		u += "/" + url.PathEscape(part)
	}
	return u
}

func (g *CloudAPIClient) CreateSession(ctx context.Context, name string) error {
	// Registration is a no-op when the number is already provisioned; the
	// gateway responds with its current registration state.
	return g.transport.DoJSON(ctx, http.MethodPost, g.numberURL(name, "register"), map[string]string{}, nil)
}

func (g *CloudAPIClient) DeleteSession(ctx context.Context, name string) error {
	return g.transport.DoJSON(ctx, http.MethodPost, g.numberURL(name, "deregister"), map[string]string{}, nil)
}

func (g *CloudAPIClient) LogoutSession(ctx context.Context, name string) error {
	return g.DeleteSession(ctx, name)
}

func (g *CloudAPIClient) SessionStatus(ctx context.Context, name string) (SessionState, error) {
	var resp sessionStatusResponse
	if err := g.transport.DoJSON(ctx, http.MethodGet, g.numberURL(name), nil, &resp); err != nil {
		return SessionState{}, err
	}
	state := resp.sessionState()
	// The Business API has no socket to observe; a reachable, registered
	// number is reported as open.
	if state.State == "" {
		state.State = StateOpen
		state.Connected = true
	}
	return state, nil
}

func (g *CloudAPIClient) QRCode(ctx context.Context, name string) (QRCode, error) {
	return QRCode{}, ErrNotSupported
}

func (g *CloudAPIClient) SendText(ctx context.Context, name string, to string, text string) (SendResult, error) {
	body := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	var resp sendResponse
	if err := g.transport.DoJSON(ctx, http.MethodPost, g.numberURL(name, "messages"), body, &resp); err != nil {
		return SendResult{}, err
	}
	return resp.result(), nil
}

func (g *CloudAPIClient) SendMedia(ctx context.Context, name string, to string, kind string, mediaURL string, caption string) (SendResult, error) {
	body := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              kind,
		kind: map[string]string{
			"link":    mediaURL,
			"caption": caption,
		},
	}
	var resp sendResponse
	if err := g.transport.DoJSON(ctx, http.MethodPost, g.numberURL(name, "messages"), body, &resp); err != nil {
		return SendResult{}, err
	}
	return resp.result(), nil
}

func (g *CloudAPIClient) SendReaction(ctx context.Context, name string, to string, messageID string, emoji string) error {
	body := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "reaction",
		"reaction": map[string]string{
			"message_id": messageID,
			"emoji":      emoji,
		},
	}
	return g.transport.DoJSON(ctx, http.MethodPost, g.numberURL(name, "messages"), body, nil)
}

func (g *CloudAPIClient) DownloadMedia(ctx context.Context, name string, messageID string) (Media, error) {
	// Two-step fetch: the gateway resolves the message's media id to a signed
	// URL, then serves the binary from it.
	var meta struct {
		URL      string `json:"url"`
		Mimetype string `json:"mime_type"`
		Data     struct {
			URL      string `json:"url"`
			Mimetype string `json:"mime_type"`
		} `json:"data"`
	}
	if err := g.transport.DoJSON(ctx, http.MethodGet, g.numberURL(name, "media", messageID), nil, &meta); err != nil {
		return Media{}, err
	}
	mediaURL := firstNonEmpty(meta.URL, meta.Data.URL)
	if mediaURL == "" {
		return Media{}, errors.New("gateway returned no media URL for message " + messageID)
	}

	data, status, err := g.transport.Do(ctx, http.MethodGet, mediaURL, nil, "")
	if err != nil {
		return Media{}, err
	}
	if status < 200 || status >= 300 {
		return Media{}, &transport.BackendError{StatusCode: status, Body: string(data)}
	}
	return Media{Data: data, Mimetype: firstNonEmpty(meta.Mimetype, meta.Data.Mimetype)}, nil
}

func (g *CloudAPIClient) ResolveLID(ctx context.Context, name string, lid string) (string, error) {
	return "", ErrNotSupported
}

func (g *CloudAPIClient) ListContacts(ctx context.Context, name string) ([]RemoteContact, error) {
	return nil, ErrNotSupported
}

func (g *CloudAPIClient) CheckNumber(ctx context.Context, name string, number string) (bool, error) {
	var resp checkNumberResponse
	body := map[string]interface{}{"contacts": []string{"+" + number}}
	if err := g.transport.DoJSON(ctx, http.MethodPost, g.numberURL(name, "contacts"), body, &resp); err != nil {
		return false, err
	}
	return resp.exists(), nil
}
