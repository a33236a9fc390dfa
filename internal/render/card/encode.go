package card

import (
	"bytes"
	"image"
	"image/png"
	"io"
)

var encoder = png.Encoder{CompressionLevel: png.BestCompression}

// EncodePNG writes img as PNG at a fixed compression level.
func EncodePNG(w io.Writer, img image.Image) error {
	return encoder.Encode(w, img)
}

// PNGBytes is EncodePNG into a fresh buffer.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
