package card

import (
	"context"
	"image"
	"image/draw"

	"go.uber.org/zap"
)

// GeneratedRenderer draws the full card on a blank canvas.
type GeneratedRenderer struct {
	layout Layout
	fonts  *FontResolver
	opts   Options
}

// Layout returns the geometry in use.
func (g *GeneratedRenderer) Layout() Layout { return g.layout }

func (g *GeneratedRenderer) Render(ctx context.Context, data MemberData, photo image.Image) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := g.layout
	img := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	fillRect(img, white, img.Bounds())

	f := g.fonts.facesFor(l.Sizes)
	if f.fallback {
		g.opts.Logger.Warn("card rendered with bitmap font fallback", zap.String("member_number", data.MemberNumber))
	}

	for _, poly := range l.Header {
		fillPolygon(img, primaryBlue, poly)
	}
	drawText(img, f.company, l.CompanyColor, l.CompanyAt.X, l.CompanyAt.Y, anchorMiddleMiddle, g.opts.AssociationName)

	switch l.PhotoShape {
	case shapeRect:
		g.drawRectPhoto(img, f, photo)
	default:
		g.drawHexagonPhoto(img, f, photo)
	}

	strokeLine(img, primaryBlue, l.Separator[0], l.Separator[1], l.SeparatorWidth)
	if len(l.Footer) > 0 {
		fillPolygon(img, primaryBlue, l.Footer)
	}
	drawFields(img, l, f, data, g.opts)
	return img, nil
}

func (g *GeneratedRenderer) drawHexagonPhoto(img *image.RGBA, f faces, photo image.Image) {
	l := g.layout
	cx, cy := float64(l.PhotoCenter.X), float64(l.PhotoCenter.Y)
	outlinedHexagon(img, lightGray, primaryBlue, cx, cy, l.PhotoRadius, l.BorderWidth)
	if photo == nil {
		drawText(img, f.title, placeholderGray, l.PhotoCenter.X, l.PhotoCenter.Y, anchorMiddleMiddle, "PHOTO")
		return
	}
	side := l.PhotoSize
	scaled := aspectFill(photo, side, side)
	mask := hexagonMask(side, l.PhotoRadius-l.BorderWidth)
	at := image.Pt(l.PhotoCenter.X-side/2, l.PhotoCenter.Y-side/2)
	draw.DrawMask(img, image.Rectangle{Min: at, Max: at.Add(image.Pt(side, side))}, scaled, image.Point{}, mask, image.Point{}, draw.Over)
}

func (g *GeneratedRenderer) drawRectPhoto(img *image.RGBA, f faces, photo image.Image) {
	l := g.layout
	outlinedRect(img, lightGray, primaryBlue, l.PhotoRect, int(l.BorderWidth))
	inner := l.PhotoRect.Inset(int(l.BorderWidth))
	if photo == nil {
		c := inner.Min.Add(inner.Size().Div(2))
		drawText(img, f.title, placeholderGray, c.X, c.Y, anchorMiddleMiddle, "PHOTO")
		return
	}
	scaled := aspectFill(photo, inner.Dx(), inner.Dy())
	draw.Draw(img, inner, scaled, image.Point{}, draw.Src)
}

// drawFields prints the name, role, data rows and footer text.
func drawFields(img *image.RGBA, l Layout, f faces, data MemberData, opts Options) {
	name := Truncate(DisplayName(data.FullName), l.NameBudget)
	drawText(img, f.name, primaryBlue, l.NameAt.X, l.NameAt.Y, l.NameAnchor, name)
	drawText(img, f.title, textBlack, l.RoleAt.X, l.RoleAt.Y, l.RoleAnchor, opts.Role)

	for i, row := range rowsFor(data) {
		y := l.RowY + i*l.RowStep
		drawText(img, f.label, textBlack, l.LabelX, y, anchorLeftMiddle, row.label)
		drawText(img, f.info, textBlack, l.ValueX, y, anchorLeftMiddle, ": "+row.value)
	}

	if data.MemberSince != "" {
		drawText(img, f.info, white, l.FooterTextAt.X, l.FooterTextAt.Y, anchorMiddleMiddle, opts.MemberSinceLabel+": "+data.MemberSince)
	}
}
