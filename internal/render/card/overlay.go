package card

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// TemplateSource loads the background bitmap for the overlay renderer.
// A missing template yields an error matching ErrTemplateNotFound.
type TemplateSource interface {
	Load(ctx context.Context) (image.Image, error)
}

// FileTemplate reads a template image from disk on every Load.
type FileTemplate struct {
	Path string
}

func (t FileTemplate) Load(ctx context.Context) (image.Image, error) {
	_ = ctx
	f, err := os.Open(t.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, t.Path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode template %s: %w", t.Path, err)
	}
	return img, nil
}

// ImageTemplate serves an already decoded image.
type ImageTemplate struct {
	Image image.Image
}

func (t ImageTemplate) Load(ctx context.Context) (image.Image, error) {
	_ = ctx
	if t.Image == nil {
		return nil, ErrTemplateNotFound
	}
	return t.Image, nil
}

// OverlayRenderer paints member fields and a circular photo over a template.
type OverlayRenderer struct {
	layout Layout
	source TemplateSource
	fonts  *FontResolver
	opts   Options
}

func (o *OverlayRenderer) Render(ctx context.Context, data MemberData, photo image.Image) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bg, err := o.source.Load(ctx)
	if err != nil {
		return nil, err
	}

	l := o.layout
	img := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	if bg.Bounds().Size() == img.Bounds().Size() {
		draw.Draw(img, img.Bounds(), bg, bg.Bounds().Min, draw.Src)
	} else {
		o.opts.Logger.Debug("scaling card template",
			zap.Int("template_width", bg.Bounds().Dx()),
			zap.Int("template_height", bg.Bounds().Dy()),
			zap.Int("width", l.Width),
			zap.Int("height", l.Height))
		draw.Draw(img, img.Bounds(), scaleTo(bg, l.Width, l.Height), image.Point{}, draw.Src)
	}

	f := o.fonts.facesFor(l.Sizes)
	if f.fallback {
		o.opts.Logger.Warn("card rendered with bitmap font fallback", zap.String("member_number", data.MemberNumber))
	}

	r := int(l.PhotoRadius)
	cx, cy := l.PhotoCenter.X, l.PhotoCenter.Y
	if photo != nil {
		scaled := aspectFill(photo, 2*r, 2*r)
		draw.DrawMask(img, image.Rect(cx-r, cy-r, cx+r, cy+r), scaled, image.Point{}, circleMask(r), image.Point{}, draw.Over)
	} else {
		fillCircle(img, lightGray, cx, cy, r)
		drawText(img, f.title, placeholderGray, cx, cy, anchorMiddleMiddle, "PHOTO")
	}

	drawFields(img, l, f, data, o.opts)
	return img, nil
}
