package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsTLSNegotiationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"record header", tls.RecordHeaderError{Msg: "first record does not look like a TLS handshake"}, true},
		{"unknown authority", x509.UnknownAuthorityError{}, true},
		{"hostname mismatch", x509.HostnameError{Certificate: &x509.Certificate{}, Host: "gateway.local"}, true},
		{"cert invalid", x509.CertificateInvalidError{Reason: x509.Expired}, true},
		{"wrapped handshake failure", fmt.Errorf("Get \"https://gw\": %w", errors.New("remote error: tls: handshake failure")), true},
		{"ssl signature", errors.New("SSL routines: wrong version number"), true},
		{"secure connection", errors.New("could not establish a secure connection"), true},
		{"connection refused", errors.New("dial tcp 127.0.0.1:8080: connect: connection refused"), false},
		{"timeout", errors.New("context deadline exceeded"), false},
		{"plain 404", errors.New("unexpected status 404"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTLSNegotiationError(tc.err); got != tc.want {
				t.Errorf("IsTLSNegotiationError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestDowngradeScheme(t *testing.T) {
	if got, ok := downgradeScheme("https://gw.local:3000/sessions"); !ok || got != "http://gw.local:3000/sessions" {
		t.Errorf("downgradeScheme = %q, %v", got, ok)
	}
	if _, ok := downgradeScheme("http://gw.local/sessions"); ok {
		t.Error("plain http must not downgrade again")
	}
}

// A gateway terminating TLS inconsistently looks like a plain HTTP listener
// addressed over https. The first attempt fails the negotiation and the
// single plaintext retry must succeed.
func TestDoDowngradesOnceOnTLSFailure(t *testing.T) {
	var served int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&served, 1)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	secureURL := "https://" + strings.TrimPrefix(srv.URL, "http://")

	tr := New()
	body, status, err := tr.Do(context.Background(), http.MethodGet, secureURL, nil, "")
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %q", body)
	}
	if n := atomic.LoadInt32(&served); n != 1 {
		t.Errorf("server handled %d requests, want 1", n)
	}
}

type countingRoundTripper struct {
	calls int32
	err   error
}

func (rt *countingRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	atomic.AddInt32(&rt.calls, 1)
	return nil, rt.err
}

func TestDoDoesNotRetryNonTLSFailures(t *testing.T) {
	rt := &countingRoundTripper{err: errors.New("connect: connection refused")}
	tr := New(WithHTTPClient(&http.Client{Transport: rt}))

	_, _, err := tr.Do(context.Background(), http.MethodGet, "https://gw.local/sessions", nil, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&rt.calls); n != 1 {
		t.Errorf("attempts = %d, want 1", n)
	}
}

type deadlineRoundTripper struct {
	deadline time.Time
	ok       bool
}

func (rt *deadlineRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.deadline, rt.ok = req.Context().Deadline()
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Header: http.Header{}}, nil
}

func TestDoKeepsCallerDeadline(t *testing.T) {
	rt := &deadlineRoundTripper{}
	tr := New(WithHTTPClient(&http.Client{Transport: rt}))

	ceiling := 55 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), ceiling)
	defer cancel()

	if _, _, err := tr.Do(ctx, http.MethodPost, "http://gw.local/sessions", nil, ""); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !rt.ok {
		t.Fatal("request carried no deadline")
	}
	// The 30s client default must not shrink the caller's wider ceiling.
	if remaining := time.Until(rt.deadline); remaining < 50*time.Second {
		t.Errorf("deadline truncated to %v", remaining)
	}
}

func TestDoJSONWrapsNon2xxAsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("session not found"))
	}))
	defer srv.Close()

	tr := New()
	err := tr.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if backendErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", backendErr.StatusCode)
	}
	if backendErr.Error() != "session not found" {
		t.Errorf("message = %q, want backend body verbatim", backendErr.Error())
	}
}

func TestDoJSONDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		w.Write([]byte(`{"phone":"5547999998888"}`))
	}))
	defer srv.Close()

	tr := New()
	var out struct {
		Phone string `json:"phone"`
	}
	if err := tr.DoJSON(context.Background(), http.MethodPost, srv.URL, map[string]string{"lid": "123"}, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.Phone != "5547999998888" {
		t.Errorf("phone = %q", out.Phone)
	}
}
