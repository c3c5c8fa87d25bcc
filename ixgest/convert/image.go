package convert

import (
	"bytes"
	"image"

	// Decoders for the formats accepted in upload archives.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
)

// sniffImage checks that data decodes as a supported image format and
// returns its MIME type.
func sniffImage(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "unrecognized image data")
	}
	return "image/" + format, nil
}
