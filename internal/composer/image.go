package composer

import (
	"encoding/base64"

	"github.com/gabriel-vasile/mimetype"

	"github.com/vovakirdan/chatpad-sync/internal/core"
)

var acceptedImageTypes = []string{"image/png", "image/gif", "image/jpeg"}

// EncodeImage turns raw image bytes into the data URL form the backend
// stores as a message body.
func EncodeImage(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), acceptedImageTypes...) {
		return "", core.Wrap(core.ErrCodeUnsupportedImage, "unsupported image type "+mt.String(), nil)
	}
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
