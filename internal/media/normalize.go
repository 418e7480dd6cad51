package media

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// NormalizeOptions bounds the stored image. Zero width or height disables the
// corresponding bound.
type NormalizeOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

type normalizedImage struct {
	data        []byte
	contentType string
	ext         string
	width       int
	height      int
}

// normalizeImage decodes data honouring EXIF orientation, shrinks it to fit the
// configured box and re-encodes it. PNG stays PNG so transparency survives;
// everything else becomes JPEG.
func normalizeImage(data []byte, format imageFormat, opts NormalizeOptions) (*normalizedImage, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	maxW, maxH := opts.MaxWidth, opts.MaxHeight
	if maxW <= 0 {
		maxW = bounds.Dx()
	}
	if maxH <= 0 {
		maxH = bounds.Dy()
	}
	if bounds.Dx() > maxW || bounds.Dy() > maxH {
		img = imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	}

	out := &normalizedImage{contentType: "image/jpeg", ext: ".jpg"}
	var buf bytes.Buffer
	if format == formatPNG {
		out.contentType, out.ext = "image/png", ".png"
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestSpeed))
	} else {
		quality := opts.Quality
		if quality <= 0 || quality > 100 {
			quality = 85
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	out.data = buf.Bytes()
	out.width = img.Bounds().Dx()
	out.height = img.Bounds().Dy()
	return out, nil
}
