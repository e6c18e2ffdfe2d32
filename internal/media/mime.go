package media

import (
	"path/filepath"
	"strings"
)

// Kind is the declared media kind of a message.
const (
	KindImage    = "image"
	KindAudio    = "audio"
	KindVideo    = "video"
	KindDocument = "document"
)

func ValidKind(kind string) bool {
	switch kind {
	case KindImage, KindAudio, KindVideo, KindDocument:
		return true
	}
	return false
}

// InferFileType maps the declared kind and whatever MIME value the backend
// reported onto the extension and content type the object is stored under.
// Gateways are sloppy about MIME values, so each kind has a safe default and
// a small set of sniffed overrides.
func InferFileType(kind string, reportedMime string, declaredFilename string) (ext string, contentType string) {
	mime := strings.ToLower(strings.TrimSpace(reportedMime))

	switch kind {
	case KindAudio:
		switch {
		case strings.Contains(mime, "webm"):
			return "webm", "audio/webm"
		case strings.Contains(mime, "mp4"), strings.Contains(mime, "m4a"):
			return "m4a", "audio/mp4"
		case strings.Contains(mime, "mpeg"), strings.Contains(mime, "mp3"):
			return "mp3", "audio/mpeg"
		default:
			return "ogg", "audio/ogg"
		}
	case KindImage:
		switch {
		case strings.Contains(mime, "png"):
			return "png", "image/png"
		case strings.Contains(mime, "webp"):
			return "webp", "image/webp"
		default:
			return "jpg", "image/jpeg"
		}
	case KindVideo:
		return "mp4", "video/mp4"
	case KindDocument:
		if declaredExt := strings.TrimPrefix(filepath.Ext(declaredFilename), "."); declaredExt != "" {
			if mime == "" {
				mime = "application/octet-stream"
			}
			return strings.ToLower(declaredExt), mime
		}
		if strings.Contains(mime, "pdf") {
			return "pdf", "application/pdf"
		}
		return "bin", "application/octet-stream"
	default:
		return "bin", "application/octet-stream"
	}
}
