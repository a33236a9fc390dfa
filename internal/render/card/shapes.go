package card

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

type point struct{ X, Y float32 }

var (
	primaryBlue     = color.RGBA{R: 0x1E, G: 0x5B, B: 0xA8, A: 0xFF}
	lightGray       = color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	placeholderGray = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xFF}
	textBlack       = color.RGBA{A: 0xFF}
	white           = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// fillPolygon rasterizes the closed polygon pts onto dst, clipped to dst's bounds.
func fillPolygon(dst draw.Image, c color.Color, pts []point) {
	if len(pts) < 3 {
		return
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	box := image.Rect(
		int(math.Floor(float64(minX))), int(math.Floor(float64(minY))),
		int(math.Ceil(float64(maxX))), int(math.Ceil(float64(maxY))),
	).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}

	r := vector.NewRasterizer(box.Dx(), box.Dy())
	ox, oy := float32(box.Min.X), float32(box.Min.Y)
	r.MoveTo(pts[0].X-ox, pts[0].Y-oy)
	for _, p := range pts[1:] {
		r.LineTo(p.X-ox, p.Y-oy)
	}
	r.ClosePath()
	r.Draw(dst, box, image.NewUniform(c), image.Point{})
}

func fillRect(dst draw.Image, c color.Color, rect image.Rectangle) {
	draw.Draw(dst, rect, image.NewUniform(c), image.Point{}, draw.Src)
}

// strokeLine draws a straight segment of the given width as a filled quad.
func strokeLine(dst draw.Image, c color.Color, a, b point, width float32) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	fillPolygon(dst, c, []point{
		{a.X + nx, a.Y + ny},
		{b.X + nx, b.Y + ny},
		{b.X - nx, b.Y - ny},
		{a.X - nx, a.Y - ny},
	})
}

// hexagonPoints returns a flat-topped hexagon with vertices every 60 degrees from 0.
func hexagonPoints(cx, cy, radius float64) []point {
	pts := make([]point, 6)
	for i := range pts {
		angle := float64(i) * math.Pi / 3
		pts[i] = point{
			X: float32(cx + radius*math.Cos(angle)),
			Y: float32(cy + radius*math.Sin(angle)),
		}
	}
	return pts
}

// outlinedHexagon fills a hexagon with fill inside a border of the given width.
func outlinedHexagon(dst draw.Image, fill, border color.Color, cx, cy, radius, width float64) {
	fillPolygon(dst, border, hexagonPoints(cx, cy, radius))
	fillPolygon(dst, fill, hexagonPoints(cx, cy, radius-width))
}

func outlinedRect(dst draw.Image, fill, border color.Color, rect image.Rectangle, width int) {
	fillRect(dst, border, rect)
	fillRect(dst, fill, rect.Inset(width))
}

// kappa places cubic control points so four curves approximate a circle.
const kappa = 0.5522847498

func circlePath(r *vector.Rasterizer, cx, cy, radius float32) {
	k := radius * kappa
	r.MoveTo(cx+radius, cy)
	r.CubeTo(cx+radius, cy+k, cx+k, cy+radius, cx, cy+radius)
	r.CubeTo(cx-k, cy+radius, cx-radius, cy+k, cx-radius, cy)
	r.CubeTo(cx-radius, cy-k, cx-k, cy-radius, cx, cy-radius)
	r.CubeTo(cx+k, cy-radius, cx+radius, cy-k, cx+radius, cy)
	r.ClosePath()
}

// circleMask returns a 2r x 2r alpha mask holding a filled, anti-aliased circle.
func circleMask(radius int) *image.Alpha {
	size := 2 * radius
	mask := image.NewAlpha(image.Rect(0, 0, size, size))
	r := vector.NewRasterizer(size, size)
	circlePath(r, float32(radius), float32(radius), float32(radius))
	r.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// fillCircle paints a filled circle centered on (cx, cy).
func fillCircle(dst draw.Image, c color.Color, cx, cy, radius int) {
	mask := circleMask(radius)
	rect := image.Rect(cx-radius, cy-radius, cx+radius, cy+radius)
	draw.DrawMask(dst, rect, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}

// hexagonMask returns a mask of the given square size holding a centered hexagon.
func hexagonMask(size int, radius float64) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, size, size))
	c := float64(size) / 2
	fillPolygon(mask, color.Opaque, hexagonPoints(c, c, radius))
	return mask
}
