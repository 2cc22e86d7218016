package objects

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

// thumbnailMaxDim bounds the longer side of a derived thumbnail.
const thumbnailMaxDim = 100

// makeThumbnail decodes an image payload and scales it down so the longer
// side is at most thumbnailMaxDim pixels, re-encoded as JPEG. It is called
// before encryption; the caller discards the plaintext afterwards.
func makeThumbnail(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty image")
	}

	if w > h {
		h = h * thumbnailMaxDim / w
		w = thumbnailMaxDim
	} else {
		w = w * thumbnailMaxDim / h
		h = thumbnailMaxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
