package media

import (
	"github.com/gabriel-vasile/mimetype"
)

type imageFormat string

const (
	formatJPEG imageFormat = "jpeg"
	formatPNG  imageFormat = "png"
	formatWEBP imageFormat = "webp"
)

var formatsByMime = map[string]imageFormat{
	"image/jpeg": formatJPEG,
	"image/png":  formatPNG,
	"image/webp": formatWEBP,
}

var allowedMimeTypes = []string{"image/jpeg", "image/png", "image/webp"}

// sniffImage detects the payload type from its bytes; the client supplied
// content type is never trusted.
func sniffImage(data []byte) (string, imageFormat, bool) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if mimetype.EqualsAny(m.String(), allowedMimeTypes...) {
			return m.String(), formatsByMime[m.String()], true
		}
	}
	return detected.String(), "", false
}
