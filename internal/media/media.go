// Package media inspects uploaded image payloads before they are forwarded
// upstream.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"mime"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var ErrEmpty = errors.New("media: image is empty")

// Formats the vision endpoints accept as-is, keyed by image.DecodeConfig name.
var passthroughFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Formats that decode locally but must be converted before going upstream.
var convertedFormats = map[string]bool{
	"bmp":  true,
	"tiff": true,
}

// Image is an inspected payload ready to send upstream.
type Image struct {
	Data        []byte
	ContentType string
}

// Inspect decodes data and returns it with the MIME type of its actual format.
// The declared type is only a hint for error messages; the bytes decide.
// BMP and TIFF are re-encoded as PNG.
func Inspect(data []byte, declared string) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmpty
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("media: unsupported image type (declared %q): %w", baseType(declared), err)
	}

	contentType, passthrough := passthroughFormats[format]
	if !passthrough && !convertedFormats[format] {
		return Image{}, fmt.Errorf("media: unsupported image type %q", format)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("media: decode %s: %w", format, err)
	}
	if passthrough {
		return Image{Data: data, ContentType: contentType}, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Image{}, fmt.Errorf("media: convert %s to png: %w", format, err)
	}
	return Image{Data: buf.Bytes(), ContentType: "image/png"}, nil
}

func baseType(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(v); err == nil {
		return parsed
	}
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}
