package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veltacrm/whatsapp-bridge/internal/store"
)

func TestDisconnectedRequestCancelsToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	token := NewCancelToken()
	stop := cancelOnDisconnect(ctx, token)
	defer stop()

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for !token.Cancelled() {
		if time.Now().After(deadline) {
			t.Fatal("token not cancelled after request context ended")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFinishedRequestLeavesTokenAlone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := NewCancelToken()
	stop := cancelOnDisconnect(ctx, token)

	// The handler returned before the context ended.
	stop()
	cancel()

	time.Sleep(20 * time.Millisecond)
	if token.Cancelled() {
		t.Error("token cancelled after the retrieval already finished")
	}
}

func TestDisconnectMidBackoffSkipsRemainingAttempts(t *testing.T) {
	gw := &fakeGateway{failUntil: 99}
	messages := &fakeMessages{msg: &store.Message{ID: "m1", MessageType: store.MessageImage}}
	objects := &fakeObjects{}
	engine, _ := newTestEngine(gw, messages, objects)

	ctx, cancel := context.WithCancel(context.Background())
	token := NewCancelToken()
	stop := cancelOnDisconnect(ctx, token)
	defer stop()

	// The client goes away while the first backoff is pending.
	engine.sleep = func(time.Duration) {
		cancel()
		deadline := time.Now().Add(2 * time.Second)
		for !token.Cancelled() {
			if time.Now().After(deadline) {
				t.Fatal("token not cancelled during backoff")
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

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
		t.Errorf("downloads = %d, want 1", gw.downloads)
	}
	if objects.uploads != 0 || messages.setCalls != 0 {
		t.Error("abandoned retrieval left side effects")
	}
}
