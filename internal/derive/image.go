package derive

import (
	"bytes"
	"image"
	"io"

	"github.com/disintegration/imaging"

	// webp sources are decodable but re-encoded as JPEG like everything else.
	_ "golang.org/x/image/webp"
)

// ImageOptions bound the derived artifacts of an accepted image.
type ImageOptions struct {
	ThumbSize     int // square crop dimension
	ThumbQuality  int
	MaxWidth      int // resize bounding box
	MaxHeight     int
	ResizeQuality int
}

func DefaultImageOptions() ImageOptions {
	return ImageOptions{
		ThumbSize:     200,
		ThumbQuality:  80,
		MaxWidth:      800,
		MaxHeight:     600,
		ResizeQuality: 85,
	}
}

// Decode reads an uploaded image, honoring EXIF orientation. A failure here
// means the blob passed the type gate but is not a decodable image.
func Decode(r io.Reader) (image.Image, error) {
	return imaging.Decode(r, imaging.AutoOrientation(true))
}

// Thumbnail produces the fixed-size square crop: scaled to cover the square,
// center-cropped, JPEG-encoded.
func Thumbnail(src image.Image, opts ImageOptions) ([]byte, error) {
	thumb := imaging.Fill(src, opts.ThumbSize, opts.ThumbSize, imaging.Center, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(opts.ThumbQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Resize produces the bounded display variant. Fit only shrinks: a source
// already inside the bounding box is re-encoded at its own dimensions.
func Resize(src image.Image, opts ImageOptions) ([]byte, error) {
	resized := imaging.Fit(src, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(opts.ResizeQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
