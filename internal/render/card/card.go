// Package card renders membership cards as bitmaps.
//
// Two strategies exist. The generated renderer draws the whole layout on a blank
// canvas for a fixed preset. The overlay renderer paints fields and a circular
// photo on top of a pre-rendered template. Geometry is constant per preset and
// no text is measured to pick sizes, so equal inputs yield identical pixels.
package card

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"
)

var (
	// ErrTemplateNotFound is returned when the overlay template cannot be loaded.
	ErrTemplateNotFound = errors.New("card template not found")
	// ErrPhotoDecode wraps failures to decode an uploaded photo.
	ErrPhotoDecode = errors.New("decode photo")
	// ErrPhotoTooLarge is returned when a photo declares more than MaxPhotoPixels.
	// It wraps ErrPhotoDecode.
	ErrPhotoTooLarge = fmt.Errorf("%w: photo dimensions too large", ErrPhotoDecode)
	// ErrUnknownPreset is returned by New for a preset with no layout.
	ErrUnknownPreset = errors.New("unknown card preset")
	// ErrUnknownVariant is returned by New for a variant other than generated or overlay.
	ErrUnknownVariant = errors.New("unknown card variant")
)

// Variant selects the rendering strategy.
type Variant string

const (
	VariantGenerated Variant = "generated"
	VariantOverlay   Variant = "overlay"
)

// Preset selects the card geometry.
type Preset string

const (
	PresetPortrait   Preset = "portrait"
	PresetCreditCard Preset = "credit-card"
)

// TemplateSpec picks the renderer. Template is required for VariantOverlay.
type TemplateSpec struct {
	Variant  Variant
	Preset   Preset
	Template TemplateSource
}

// MemberData is what gets printed on a card. Empty values print as "N/A".
type MemberData struct {
	FullName     string
	MemberNumber string
	BirthDate    string
	Email        string
	Phone        string
	// MemberSince is printed in the footer when non-empty (YYYY-MM-DD).
	MemberSince string
}

// Options holds the fixed wording printed on every card.
type Options struct {
	AssociationName  string
	Role             string
	MemberSinceLabel string
	Logger           *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.AssociationName == "" {
		o.AssociationName = "ALUBILLES"
	}
	if o.Role == "" {
		o.Role = "MEMBER"
	}
	if o.MemberSinceLabel == "" {
		o.MemberSinceLabel = "Member since"
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Renderer composes a card. photo may be nil, in which case a placeholder is drawn.
type Renderer interface {
	Render(ctx context.Context, data MemberData, photo image.Image) (*image.RGBA, error)
}

// New returns the renderer described by spec. A nil fonts uses DefaultFontResolver.
func New(spec TemplateSpec, fonts *FontResolver, opts Options) (Renderer, error) {
	opts = opts.withDefaults()
	if fonts == nil {
		fonts = DefaultFontResolver("", opts.Logger)
	}
	if spec.Preset == "" {
		spec.Preset = PresetPortrait
	}
	if spec.Variant == "" {
		spec.Variant = VariantGenerated
	}

	switch spec.Variant {
	case VariantGenerated:
		l, err := layoutFor(spec.Preset)
		if err != nil {
			return nil, err
		}
		return &GeneratedRenderer{layout: l, fonts: fonts, opts: opts}, nil
	case VariantOverlay:
		if spec.Template == nil {
			return nil, ErrTemplateNotFound
		}
		l, err := overlayLayoutFor(spec.Preset)
		if err != nil {
			return nil, err
		}
		return &OverlayRenderer{layout: l, source: spec.Template, fonts: fonts, opts: opts}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, spec.Variant)
	}
}
