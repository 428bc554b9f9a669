package media

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Kind is the coarse media class of an upload.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindOther Kind = "other"
)

// ErrCorruptImage is returned when bytes carry the signature of a decodable image format
// but the header does not decode.
var ErrCorruptImage = errors.New("invalid image file")

// Info describes an inspected upload. Width and Height are zero when the format has no
// registered decoder.
type Info struct {
	Kind        Kind
	ContentType string
	Width       int
	Height      int
}

// ISO base media brands that carry still images rather than video.
var imageBrands = map[string]string{
	"heic": "image/heic", "heix": "image/heic", "hevc": "image/heic", "heim": "image/heic",
	"heis": "image/heic", "mif1": "image/heif", "msf1": "image/heif",
	"avif": "image/avif", "avis": "image/avif",
}

// Inspect classifies an upload. The sniffed bytes win; an ISO base media box, then the
// declared content type, then the file extension are consulted when sniffing is
// inconclusive. Unrecognised files are KindOther, not an error.
func Inspect(data []byte, name, declaredType string) (Info, error) {
	contentType := detect(data, name, declaredType)
	info := Info{ContentType: contentType, Kind: KindOther}

	switch {
	case strings.HasPrefix(contentType, "image/"):
		info.Kind = KindImage
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		switch {
		case err == nil:
			info.Width, info.Height = cfg.Width, cfg.Height
		case !errors.Is(err, image.ErrFormat):
			return info, ErrCorruptImage
		}
	case strings.HasPrefix(contentType, "video/"):
		info.Kind = KindVideo
	}
	return info, nil
}

func detect(data []byte, name, declaredType string) string {
	sniffed := http.DetectContentType(data)
	if isMedia(sniffed) {
		return sniffed
	}
	if ct := ftypContentType(data); ct != "" {
		return ct
	}
	if ct, _, err := mime.ParseMediaType(declaredType); err == nil && isMedia(ct) {
		return ct
	}
	if ct, _, err := mime.ParseMediaType(mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))); err == nil && isMedia(ct) {
		return ct
	}
	return sniffed
}

func isMedia(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}

// ftypContentType reads the major brand of an ISO base media file (MP4, QuickTime, HEIF).
func ftypContentType(data []byte) string {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return ""
	}
	brand := string(data[8:12])
	if ct, ok := imageBrands[brand]; ok {
		return ct
	}
	if brand == "qt  " {
		return "video/quicktime"
	}
	return "video/mp4"
}

// PostTransform returns the pre-transformation for a post upload.
// Only images are transformed: width capped at 600, aspect from the hint.
func PostTransform(kind Kind, aspectHint string) string {
	if kind != KindImage {
		return ""
	}
	switch aspectHint {
	case "square":
		return "w-600,ar-1-1"
	case "wide":
		return "w-600,ar-16-9"
	default:
		return "w-600"
	}
}
