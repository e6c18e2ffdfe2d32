package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sunshineplan/imgconv"

	"github.com/veltacrm/whatsapp-bridge/internal/store"
	typBridge "github.com/veltacrm/whatsapp-bridge/internal/types"
	"github.com/veltacrm/whatsapp-bridge/pkg/gateway"
	"github.com/veltacrm/whatsapp-bridge/pkg/log"
	"github.com/veltacrm/whatsapp-bridge/pkg/storage"
)

// MessageRepo is the slice of the message store the engine mutates.
type MessageRepo interface {
	Get(ctx context.Context, tenantID string, id string) (*store.Message, error)
	SetMediaURL(ctx context.Context, id string, mediaURL string, thumbnailURL string) error
}

// Request describes one retrieval. InlineData carries webhook-pushed base64
// payloads and skips the gateway fetch entirely.
type Request struct {
	TenantID   string
	MessageID  string
	Kind       string
	Session    string
	InlineData string
	Mimetype   string
	Filename   string
}

// Engine fetches a message's binary media, persists it to object storage and
// updates the owning message record. Concurrent retrievals for the same
// message are not deduplicated: the operation is idempotent and the last
// media_url write wins.
type Engine struct {
	gw       gateway.Client
	messages MessageRepo
	objects  storage.ObjectStore

	// sleep is swapped out by tests to observe the retry schedule.
	sleep func(time.Duration)
}

func NewEngine(gw gateway.Client, messages MessageRepo, objects storage.ObjectStore) *Engine {
	return &Engine{gw: gw, messages: messages, objects: objects, sleep: time.Sleep}
}

// Retrieve runs a single attempt end to end.
func (e *Engine) Retrieve(ctx context.Context, token *CancelToken, req Request) (*typBridge.ResponseMedia, error) {
	msg, err := e.messages.Get(ctx, req.TenantID, req.MessageID)
	if err != nil {
		return nil, err
	}

	payload, err := e.fetch(ctx, req, msg)
	if err != nil {
		return nil, err
	}

	ext, contentType := InferFileType(req.Kind, payload.Mimetype, payload.Filename)
	objectName := storage.ObjectName(ext)
	if req.Kind == KindDocument && payload.Filename != "" {
		objectName = fmt.Sprintf("%d-%s", time.Now().UnixMilli(), payload.Filename)
	}

	if token.Cancelled() {
		return nil, ErrCancelled
	}

	mediaURL, err := e.objects.Upload(ctx, req.Kind, objectName, contentType, payload.Data)
	if err != nil {
		return nil, err
	}

	thumbnailURL := ""
	if req.Kind == KindImage {
		thumbnailURL = e.uploadThumbnail(ctx, payload.Data)
	}

	// The cancellation token is re-checked before the completion applies its
	// result; an abandoned caller leaves the row untouched.
	if token.Cancelled() {
		return nil, ErrCancelled
	}

	if err := e.messages.SetMediaURL(ctx, msg.ID, mediaURL, thumbnailURL); err != nil {
		return nil, err
	}

	return &typBridge.ResponseMedia{
		MessageID:    msg.ID,
		MediaURL:     mediaURL,
		ThumbnailURL: thumbnailURL,
		Mimetype:     contentType,
	}, nil
}

// RetrieveWithRetry applies the bounded retry policy: up to 3 attempts with
// fixed 2s/4s/8s delays. Each scheduled retry checks the token before it
// fires. Exhaustion yields a TerminalError, distinct from the in-flight
// state, and a later manual re-trigger starts over at attempt 1.
func (e *Engine) RetrieveWithRetry(ctx context.Context, token *CancelToken, req Request) (*typBridge.ResponseMedia, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			e.sleep(delayForAttempt(attempt - 1))
			if token.Cancelled() {
				return nil, ErrCancelled
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			log.Print(nil).WithField("message_id", req.MessageID).WithField("attempt", attempt).Info("Retrying media retrieval")
		}

		resp, err := e.Retrieve(ctx, token, req)
		if err == nil {
			return resp, nil
		}
		if err == ErrCancelled {
			return nil, err
		}
		lastErr = err
	}

	return nil, &TerminalError{Attempts: maxAttempts, Err: lastErr}
}

func (e *Engine) fetch(ctx context.Context, req Request, msg *store.Message) (gateway.Media, error) {
	if req.InlineData != "" {
		data, err := base64.StdEncoding.DecodeString(req.InlineData)
		if err != nil {
			return gateway.Media{}, fmt.Errorf("decoding inline media payload: %w", err)
		}
		return gateway.Media{Data: data, Mimetype: req.Mimetype, Filename: req.Filename}, nil
	}

	// The backend knows the message by its own identifier, not ours.
	externalID := msg.ExternalID
	if externalID == "" {
		externalID = req.MessageID
	}

	media, err := e.gw.DownloadMedia(ctx, req.Session, externalID)
	if err != nil {
		return gateway.Media{}, err
	}
	if media.Mimetype == "" {
		media.Mimetype = req.Mimetype
	}
	if media.Filename == "" {
		media.Filename = req.Filename
	}
	return media, nil
}

// uploadThumbnail stores a 72px JPEG preview next to the full image.
// Best-effort: a thumbnail failure never fails the retrieval.
func (e *Engine) uploadThumbnail(ctx context.Context, data []byte) string {
	decoded, err := imgconv.Decode(bytes.NewReader(data))
	if err != nil {
		log.Print(nil).Warn("Failed to decode image for thumbnail: " + err.Error())
		return ""
	}

	encoded := new(bytes.Buffer)
	err = imgconv.Write(encoded,
		imgconv.Resize(decoded, &imgconv.ResizeOption{Width: 72}),
		&imgconv.FormatOption{Format: imgconv.JPEG})
	if err != nil {
		log.Print(nil).Warn("Failed to encode image thumbnail: " + err.Error())
		return ""
	}

	thumbURL, err := e.objects.Upload(ctx, KindImage, "thumb-"+storage.ObjectName("jpg"), "image/jpeg", encoded.Bytes())
	if err != nil {
		log.Print(nil).Warn("Failed to upload image thumbnail: " + err.Error())
		return ""
	}
	return thumbURL
}
