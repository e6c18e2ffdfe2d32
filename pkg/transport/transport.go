package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/veltacrm/whatsapp-bridge/pkg/env"
	"github.com/veltacrm/whatsapp-bridge/pkg/log"
)

// Transport wraps outbound gateway and storage calls. Self-hosted gateways are
// routinely deployed behind inconsistent TLS termination, so a request that
// fails the secure negotiation is retried exactly once against the plaintext
// equivalent of the same URL. Any other failure propagates untouched.
//
// The default timeout applies only when the caller's context carries no
// deadline; the session-create path passes its own 55s ceiling, which must
// not be cut short here.
type Transport struct {
	client         *http.Client
	defaultTimeout time.Duration
	apiKeyHeader   string
	apiKey         string
}

// BackendError carries a non-2xx gateway response. The body text is surfaced
// verbatim to the caller.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
	}
	return e.Body
}

type Option func(*Transport)

// WithAPIKey attaches a static API key header to every request.
func WithAPIKey(header string, key string) Option {
	return func(t *Transport) {
		t.apiKeyHeader = header
		t.apiKey = key
	}
}

// WithHTTPClient overrides the underlying client; used by tests.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		t.client = client
	}
}

func New(opts ...Option) *Transport {
	t := &Transport{
		client:         &http.Client{},
		defaultTimeout: env.GetEnvDurationOrDefault("GATEWAY_HTTP_TIMEOUT", 30*time.Second),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do issues the request and applies the one-shot protocol downgrade. The
// caller's context carries any per-call ceiling tighter than the client
// default.
func (t *Transport) Do(ctx context.Context, method string, rawURL string, body []byte, contentType string) ([]byte, int, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && t.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.defaultTimeout)
		defer cancel()
	}

	respBody, status, err := t.doOnce(ctx, method, rawURL, body, contentType)
	if err == nil {
		return respBody, status, nil
	}

	if !IsTLSNegotiationError(err) {
		return nil, 0, err
	}

	downgraded, ok := downgradeScheme(rawURL)
	if !ok {
		return nil, 0, err
	}

	log.Print(nil).WithField("url", downgraded).Warn("TLS negotiation failed, retrying once over plaintext: " + err.Error())
	return t.doOnce(ctx, method, downgraded, body, contentType)
}

func (t *Transport) doOnce(ctx context.Context, method string, rawURL string, body []byte, contentType string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, 0, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if t.apiKey != "" {
		header := t.apiKeyHeader
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return respBody, resp.StatusCode, nil
}

// DoJSON issues a request with a JSON body and decodes a JSON response into
// out. Non-2xx responses become a BackendError carrying the body verbatim.
func (t *Transport) DoJSON(ctx context.Context, method string, rawURL string, in interface{}, out interface{}) error {
	var payload []byte
	contentType := ""
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = encoded
		contentType = "application/json"
	}

	body, status, err := t.Do(ctx, method, rawURL, payload, contentType)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &BackendError{StatusCode: status, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding backend response: %w", err)
	}
	return nil
}

var tlsErrorSignatures = []string{
	"certificate",
	"ssl",
	"tls",
	"handshake",
	"secure connection",
	"first record does not look like",
}

// IsTLSNegotiationError classifies an outbound failure as a failed secure
// negotiation. Only these errors qualify for the plaintext downgrade retry.
func IsTLSNegotiationError(err error) bool {
	if err == nil {
		return false
	}

	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return true
	}

	message := strings.ToLower(err.Error())
	for _, signature := range tlsErrorSignatures {
		if strings.Contains(message, signature) {
			return true
		}
	}
	return false
}

func downgradeScheme(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme != "https" {
		return "", false
	}
	parsed.Scheme = "http"
	return parsed.String(), true
}
