package card

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

type fontSizes struct {
	Company, Name, Title, Label, Info float64
}

type photoShape int

const (
	shapeHexagon photoShape = iota
	shapeRect
)

// Text budgets in runes.
const (
	emailBudget = 30
	valueBudget = 28
)

// Layout is the constant geometry of one preset.
type Layout struct {
	Preset        Preset
	Width, Height int
	Sizes         fontSizes

	Header       [][]point
	CompanyAt    image.Point
	CompanyColor color.RGBA

	PhotoShape  photoShape
	PhotoCenter image.Point
	// PhotoRadius is the hexagon circumradius (portrait) or the overlay circle radius.
	PhotoRadius float64
	PhotoRect   image.Rectangle
	PhotoSize   int
	BorderWidth float64

	NameAt     image.Point
	NameAnchor anchor
	NameBudget int
	RoleAt     image.Point
	RoleAnchor anchor

	Separator      [2]point
	SeparatorWidth float32

	LabelX, ValueX int
	RowY, RowStep  int

	Footer       []point
	FooterTextAt image.Point
}

func portraitLayout() Layout {
	const w, h = 630, 1000
	return Layout{
		Preset: PresetPortrait,
		Width:  w,
		Height: h,
		Sizes:  fontSizes{Company: 24, Name: 40, Title: 16, Label: 14, Info: 14},
		Header: [][]point{
			{{0, 0}, {280, 0}, {250, 200}},
			{{w, 0}, {w - 280, 0}, {w - 250, 200}},
		},
		CompanyAt:    image.Pt(w/2, 40),
		CompanyColor: textBlack,

		PhotoShape:  shapeHexagon,
		PhotoCenter: image.Pt(w/2, 280),
		PhotoRadius: 100,
		PhotoSize:   180,
		BorderWidth: 2,

		NameAt:     image.Pt(w/2, 450),
		NameAnchor: anchorMiddleMiddle,
		NameBudget: 24,
		RoleAt:     image.Pt(w/2, 510),
		RoleAnchor: anchorMiddleMiddle,

		Separator:      [2]point{{150, 540}, {w - 150, 540}},
		SeparatorWidth: 2,

		LabelX:  80,
		ValueX:  320,
		RowY:    590,
		RowStep: 60,

		Footer:       footerCurve(w, h, 900, 30),
		FooterTextAt: image.Pt(w/2, h-50),
	}
}

func creditCardLayout() Layout {
	const w, h = 1011, 638
	return Layout{
		Preset: PresetCreditCard,
		Width:  w,
		Height: h,
		Sizes:  fontSizes{Company: 32, Name: 34, Title: 16, Label: 16, Info: 16},
		Header: [][]point{
			{{0, 0}, {w, 0}, {w, 110}, {0, 110}},
			{{0, 110}, {180, 110}, {0, 190}},
		},
		CompanyAt:    image.Pt(w/2, 55),
		CompanyColor: white,

		PhotoShape:  shapeRect,
		PhotoCenter: image.Pt(180, 310),
		PhotoRadius: 120,
		PhotoRect:   image.Rect(60, 160, 300, 460),
		BorderWidth: 3,

		NameAt:     image.Pt(340, 200),
		NameAnchor: anchorLeftMiddle,
		NameBudget: 28,
		RoleAt:     image.Pt(340, 245),
		RoleAnchor: anchorLeftMiddle,

		Separator:      [2]point{{340, 275}, {950, 275}},
		SeparatorWidth: 2,

		LabelX:  340,
		ValueX:  520,
		RowY:    320,
		RowStep: 45,

		Footer:       footerCurve(w, h, 590, 20),
		FooterTextAt: image.Pt(w/2, 614),
	}
}

func layoutFor(p Preset) (Layout, error) {
	switch p {
	case PresetPortrait:
		return portraitLayout(), nil
	case PresetCreditCard:
		return creditCardLayout(), nil
	}
	return Layout{}, fmt.Errorf("%w: %q", ErrUnknownPreset, p)
}

// overlayLayoutFor keeps the text anchors of the generated layout; the template
// supplies the background so the shapes are dropped and the photo becomes a circle.
func overlayLayoutFor(p Preset) (Layout, error) {
	l, err := layoutFor(p)
	if err != nil {
		return Layout{}, err
	}
	l.Header = nil
	l.Footer = nil
	l.PhotoRadius = 120
	return l, nil
}

// footerCurve samples y = base - depth + depth*sqrt(|x-mid|/mid) every 20px and
// closes the band along the bottom edge.
func footerCurve(w, h int, base, depth float64) []point {
	mid := float64(w / 2)
	pts := make([]point, 0, w/20+6)
	for x := 0; x <= w; x += 20 {
		y := base - depth + depth*math.Sqrt(math.Abs(float64(x)-mid)/mid)
		pts = append(pts, point{float32(x), float32(y)})
	}
	return append(pts,
		point{float32(w), float32(base)},
		point{float32(w), float32(h)},
		point{0, float32(h)},
		point{0, float32(base)},
	)
}

type cardRow struct {
	label string
	value string
}

func rowsFor(d MemberData) []cardRow {
	return []cardRow{
		{"ID No", Truncate(valueOrNA(d.MemberNumber), valueBudget)},
		{"DOB", Truncate(valueOrNA(d.BirthDate), valueBudget)},
		{"Email", Truncate(valueOrNA(d.Email), emailBudget)},
		{"Phone", Truncate(valueOrNA(d.Phone), valueBudget)},
	}
}
