package card

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image/color"
	"testing"
)

// pngHeader returns a PNG signature and IHDR chunk declaring w x h RGB pixels,
// with no image data after it.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(ihdr)))
	buf.Write(length[:])
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	var crc [4]byte
	binary.BigEndian.PutUint32(crc[:], crc32.ChecksumIEEE(chunk))
	buf.Write(crc[:])
	return buf.Bytes()
}

func TestDecodePhoto_OversizedDimensions(t *testing.T) {
	t.Parallel()

	huge := pngHeader(40000, 40000)
	_, err := DecodePhoto(bytes.NewReader(huge))
	if !errors.Is(err, ErrPhotoTooLarge) || !errors.Is(err, ErrPhotoDecode) {
		t.Fatalf("DecodePhoto(40000x40000) err=%v, want ErrPhotoTooLarge", err)
	}
	if err := CheckPhotoDimensions(huge); !errors.Is(err, ErrPhotoTooLarge) {
		t.Fatalf("CheckPhotoDimensions(40000x40000) err=%v, want ErrPhotoTooLarge", err)
	}
	// Just over the limit on one side.
	if err := CheckPhotoDimensions(pngHeader(4097, 4096)); !errors.Is(err, ErrPhotoTooLarge) {
		t.Fatalf("CheckPhotoDimensions(4097x4096) err=%v, want ErrPhotoTooLarge", err)
	}
}

func TestCheckPhotoDimensions_AcceptsNormalPhotos(t *testing.T) {
	t.Parallel()

	b, err := PNGBytes(solid(640, 480, color.White))
	if err != nil {
		t.Fatalf("PNGBytes() err=%v", err)
	}
	if err := CheckPhotoDimensions(b); err != nil {
		t.Fatalf("CheckPhotoDimensions(640x480) err=%v", err)
	}
	if err := CheckPhotoDimensions(pngHeader(4096, 4096)); err != nil {
		t.Fatalf("CheckPhotoDimensions(4096x4096) err=%v", err)
	}
	if err := CheckPhotoDimensions([]byte("not an image")); !errors.Is(err, ErrPhotoDecode) || errors.Is(err, ErrPhotoTooLarge) {
		t.Fatalf("CheckPhotoDimensions(garbage) err=%v, want plain ErrPhotoDecode", err)
	}
}
