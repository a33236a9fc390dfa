package card

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const ellipsis = "..."

// Truncate shortens s when it has more than budget runes, keeping the first
// budget-3 runes followed by "...". Shorter strings are returned unchanged.
func Truncate(s string, budget int) string {
	r := []rune(s)
	if budget <= 0 || len(r) <= budget {
		return s
	}
	keep := budget - len(ellipsis)
	if keep < 0 {
		keep = 0
	}
	return string(r[:keep]) + ellipsis
}

var upper = cases.Upper(language.French)

// DisplayName upper-cases a full name the way it is printed on the card.
func DisplayName(name string) string {
	return upper.String(name)
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// anchor mirrors the two text anchors the layouts use.
type anchor int

const (
	anchorLeftMiddle anchor = iota
	anchorMiddleMiddle
)

// drawText draws s with its vertical middle on y. x is the left edge or the
// horizontal center depending on a.
func drawText(dst draw.Image, face font.Face, c color.Color, x, y int, a anchor, s string) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	m := face.Metrics()
	dot := fixed.Point26_6{
		X: fixed.I(x),
		Y: fixed.I(y) + (m.Ascent-m.Descent)/2,
	}
	if a == anchorMiddleMiddle {
		dot.X -= d.MeasureString(s) / 2
	}
	d.Dot = dot
	d.DrawString(s)
}
