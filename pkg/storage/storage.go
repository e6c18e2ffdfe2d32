package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veltacrm/whatsapp-bridge/pkg/env"
	"github.com/veltacrm/whatsapp-bridge/pkg/transport"
)

// ObjectStore persists media binaries to the durable object storage service
// and returns a public URL synchronously after upload. Objects are namespaced
// by media kind (audio/, image/, video/, document/).
type ObjectStore interface {
	Upload(ctx context.Context, kind string, filename string, contentType string, data []byte) (string, error)
}

// HTTPObjectStore talks to an S3-compatible storage HTTP API.
type HTTPObjectStore struct {
	baseURL   string
	bucket    string
	transport *transport.Transport
}

func New() *HTTPObjectStore {
	baseURL := strings.TrimRight(env.MustGetEnvString("STORAGE_BASE_URL"), "/")
	bucket := env.GetEnvStringOrDefault("STORAGE_BUCKET", "media")

	var opts []transport.Option
	if key, err := env.GetEnvString("STORAGE_API_KEY"); err == nil {
		opts = append(opts, transport.WithAPIKey("Authorization", "Bearer "+key))
	}

	return &HTTPObjectStore{
		baseURL:   baseURL,
		bucket:    bucket,
		transport: transport.New(opts...),
	}
}

func NewWithTransport(baseURL string, bucket string, tr *transport.Transport) *HTTPObjectStore {
	return &HTTPObjectStore{baseURL: strings.TrimRight(baseURL, "/"), bucket: bucket, transport: tr}
}

func (s *HTTPObjectStore) objectPath(kind string, filename string) string {
	return url.PathEscape(s.bucket) + "/" + url.PathEscape(kind) + "/" + url.PathEscape(filename)
}

// Upload writes the object and returns its public URL. The storage service
// answers uploads synchronously; there is no separate publish step.
func (s *HTTPObjectStore) Upload(ctx context.Context, kind string, filename string, contentType string, data []byte) (string, error) {
	uploadURL := s.baseURL + "/object/" + s.objectPath(kind, filename)

	body, status, err := s.transport.Do(ctx, http.MethodPost, uploadURL, data, contentType)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", &transport.BackendError{StatusCode: status, Body: strings.TrimSpace(string(body))}
	}

	return s.baseURL + "/object/public/" + s.objectPath(kind, filename), nil
}

// ObjectName builds a collision-free object name without coordination:
// millisecond timestamp plus a random suffix.
func ObjectName(ext string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%d-%s.%s", time.Now().UnixMilli(), suffix, ext)
}
