package media

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/veltacrm/whatsapp-bridge/internal/store"
	"github.com/veltacrm/whatsapp-bridge/pkg/gateway"
)

type fakeGateway struct {
	gateway.Client

	downloads int
	failUntil int
	media     gateway.Media
}

func (f *fakeGateway) DownloadMedia(ctx context.Context, name string, messageID string) (gateway.Media, error) {
	f.downloads++
	if f.downloads <= f.failUntil {
		return gateway.Media{}, errors.New("backend unavailable")
	}
	return f.media, nil
}

type fakeMessages struct {
	msg       *store.Message
	setCalls  int
	mediaURL  string
	thumbnail string
}

func (f *fakeMessages) Get(ctx context.Context, tenantID string, id string) (*store.Message, error) {
	if f.msg == nil {
		return nil, store.ErrNotFound
	}
	return f.msg, nil
}

func (f *fakeMessages) SetMediaURL(ctx context.Context, id string, mediaURL string, thumbnailURL string) error {
	f.setCalls++
	f.mediaURL = mediaURL
	f.thumbnail = thumbnailURL
	return nil
}

type fakeObjects struct {
	uploads int
}

func (f *fakeObjects) Upload(ctx context.Context, kind string, filename string, contentType string, data []byte) (string, error) {
	f.uploads++
	return "https://objects.local/public/" + kind + "/" + filename, nil
}

func newTestEngine(gw gateway.Client, messages *fakeMessages, objects *fakeObjects) (*Engine, *[]time.Duration) {
	e := NewEngine(gw, messages, objects)
	var slept []time.Duration
	e.sleep = func(d time.Duration) { slept = append(slept, d) }
	return e, &slept
}

func TestDelayForAttempt(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{9, 8 * time.Second},
	}
	for _, tc := range tests {
		if got := delayForAttempt(tc.attempt); got != tc.want {
			t.Errorf("delayForAttempt(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestRetrieveInlineSkipsGatewayFetch(t *testing.T) {
	gw := &fakeGateway{}
	messages := &fakeMessages{msg: &store.Message{ID: "m1", MessageType: store.MessageAudio}}
	objects := &fakeObjects{}
	engine, _ := newTestEngine(gw, messages, objects)

	resp, err := engine.Retrieve(context.Background(), nil, Request{
		TenantID:   "t1",
		MessageID:  "m1",
		Kind:       KindAudio,
		InlineData: base64.StdEncoding.EncodeToString([]byte("voice-note")),
		Mimetype:   "audio/ogg; codecs=opus",
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if gw.downloads != 0 {
		t.Errorf("inline payload fetched from gateway %d times", gw.downloads)
	}
	if resp.Mimetype != "audio/ogg" {
		t.Errorf("mimetype = %q", resp.Mimetype)
	}
	if messages.setCalls != 1 || messages.mediaURL != resp.MediaURL {
		t.Errorf("message row not updated: calls=%d url=%q", messages.setCalls, messages.mediaURL)
	}
}

func TestRetrieveWithRetryRecoversOnThirdAttempt(t *testing.T) {
	gw := &fakeGateway{failUntil: 2, media: gateway.Media{Data: []byte("clip"), Mimetype: "video/mp4"}}
	messages := &fakeMessages{msg: &store.Message{ID: "m1", ExternalID: "WAMID.1", MessageType: store.MessageVideo}}
	objects := &fakeObjects{}
	engine, slept := newTestEngine(gw, messages, objects)

	resp, err := engine.RetrieveWithRetry(context.Background(), NewCancelToken(), Request{
		TenantID:  "t1",
		MessageID: "m1",
		Kind:      KindVideo,
		Session:   "wa-1",
	})
	if err != nil {
		t.Fatalf("RetrieveWithRetry: %v", err)
	}
	if resp.MediaURL == "" {
		t.Error("empty media URL")
	}
	if gw.downloads != 3 {
		t.Errorf("downloads = %d, want 3", gw.downloads)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, (*slept)[i], want[i])
		}
	}
}

func TestRetrieveWithRetryExhaustionIsTerminal(t *testing.T) {
	gw := &fakeGateway{failUntil: 10}
	messages := &fakeMessages{msg: &store.Message{ID: "m1", MessageType: store.MessageImage}}
	engine, _ := newTestEngine(gw, messages, &fakeObjects{})

	_, err := engine.RetrieveWithRetry(context.Background(), NewCancelToken(), Request{
		TenantID:  "t1",
		MessageID: "m1",
		Kind:      KindImage,
		Session:   "wa-1",
	})

	var terminal *TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected TerminalError, got %v", err)
	}
	if terminal.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", terminal.Attempts)
	}
	if gw.downloads != 3 {
		t.Errorf("downloads = %d, want 3", gw.downloads)
	}
	if messages.setCalls != 0 {
		t.Error("exhausted retrieval must not write the message row")
	}
}

func TestCancelledTokenLeavesNoSideEffects(t *testing.T) {
	gw := &fakeGateway{media: gateway.Media{Data: []byte("pic"), Mimetype: "image/png"}}
	messages := &fakeMessages{msg: &store.Message{ID: "m1", MessageType: store.MessageImage}}
	objects := &fakeObjects{}
	engine, _ := newTestEngine(gw, messages, objects)

	token := NewCancelToken()
	token.Cancel()

	_, err := engine.Retrieve(context.Background(), token, Request{
		TenantID:  "t1",
		MessageID: "m1",
		Kind:      KindImage,
		Session:   "wa-1",
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if objects.uploads != 0 {
		t.Error("cancelled retrieval uploaded an object")
	}
	if messages.setCalls != 0 {
		t.Error("cancelled retrieval wrote the message row")
	}
}

func TestCancelledTokenStopsScheduledRetry(t *testing.T) {
	gw := &fakeGateway{failUntil: 10}
	messages := &fakeMessages{msg: &store.Message{ID: "m1", MessageType: store.MessageImage}}
	engine, _ := newTestEngine(gw, messages, &fakeObjects{})

	token := NewCancelToken()
	engine.sleep = func(time.Duration) { token.Cancel() }

	_, err := engine.RetrieveWithRetry(context.Background(), token, Request{
		TenantID:  "t1",
		MessageID: "m1",
		Kind:      KindImage,
		Session:   "wa-1",
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if gw.downloads != 1 {
		t.Errorf("downloads = %d, want 1 (retry must not fire after cancel)", gw.downloads)
	}
}
