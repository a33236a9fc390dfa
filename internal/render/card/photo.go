package card

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // registered for image.Decode
	_ "image/jpeg" // registered for image.Decode
	_ "image/png"  // registered for image.Decode
	"io"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // registered for image.Decode
)

// MaxPhotoPixels bounds the decoded size of a photo (4096 x 4096).
const MaxPhotoPixels = 4096 * 4096

// CheckPhotoDimensions reads only the image header of data and returns
// ErrPhotoTooLarge when the declared size exceeds MaxPhotoPixels. Headers that
// cannot be parsed are reported as ErrPhotoDecode.
func CheckPhotoDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPhotoDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty image", ErrPhotoDecode)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPhotoPixels {
		return fmt.Errorf("%w: %dx%d", ErrPhotoTooLarge, cfg.Width, cfg.Height)
	}
	return nil
}

// DecodePhoto decodes a PNG, JPEG, GIF or WebP photo. The header is checked
// against MaxPhotoPixels before any pixel data is decoded.
func DecodePhoto(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPhotoDecode, err)
	}
	if err := CheckPhotoDimensions(data); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPhotoDecode, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrPhotoDecode)
	}
	return img, nil
}

// aspectFill crops the centered region of src matching w:h and scales it to w x h.
func aspectFill(src image.Image, w, h int) *image.RGBA {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	cropW, cropH := sw, sh
	if sw*h > sh*w {
		cropW = sh * w / h
	} else {
		cropH = sw * h / w
	}
	x0 := sb.Min.X + (sw-cropW)/2
	y0 := sb.Min.Y + (sh-cropH)/2
	crop := image.Rect(x0, y0, x0+cropW, y0+cropH)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, xdraw.Src, nil)
	return dst
}

// scaleTo resizes src to exactly w x h.
func scaleTo(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
