package card

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Weight selects the regular or bold cut of a font family.
type Weight int

const (
	WeightRegular Weight = iota
	WeightBold
)

func (w Weight) String() string {
	if w == WeightBold {
		return "bold"
	}
	return "regular"
}

// FontSource provides parsed fonts. Sources are tried in order by FontResolver.
type FontSource interface {
	Name() string
	Font(w Weight) (*opentype.Font, error)
}

// DirSource loads DejaVuSans.ttf / DejaVuSans-Bold.ttf from a directory.
type DirSource struct {
	Dir string
}

func (s DirSource) Name() string { return "dir:" + s.Dir }

func (s DirSource) Font(w Weight) (*opentype.Font, error) {
	file := "DejaVuSans.ttf"
	if w == WeightBold {
		file = "DejaVuSans-Bold.ttf"
	}
	b, err := os.ReadFile(filepath.Join(s.Dir, file))
	if err != nil {
		return nil, err
	}
	return opentype.Parse(b)
}

// GoFontSource serves the Go fonts compiled into the binary.
type GoFontSource struct{}

func (GoFontSource) Name() string { return "gofont" }

func (GoFontSource) Font(w Weight) (*opentype.Font, error) {
	if w == WeightBold {
		return opentype.Parse(gobold.TTF)
	}
	return opentype.Parse(goregular.TTF)
}

// FontResolution is the face picked for one (weight, size) request.
type FontResolution struct {
	Face   font.Face
	Source string
	// Fallback is true when no scalable font was found and the 7x13 bitmap face is used.
	Fallback bool
}

const bitmapSource = "basicfont"

type fontKey struct {
	source int
	weight Weight
}

// FontResolver walks its sources in order and returns the first usable face.
// Parsed fonts are cached; faces are created per call because opentype faces
// are not safe for concurrent use.
type FontResolver struct {
	sources []FontSource
	log     *zap.Logger

	mu     sync.Mutex
	parsed map[fontKey]*opentype.Font
	failed map[fontKey]bool
}

func NewFontResolver(log *zap.Logger, sources ...FontSource) *FontResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &FontResolver{
		sources: sources,
		log:     log,
		parsed:  make(map[fontKey]*opentype.Font),
		failed:  make(map[fontKey]bool),
	}
}

// DefaultFontResolver prefers dir (when set), then the system DejaVu directory,
// then the embedded Go fonts.
func DefaultFontResolver(dir string, log *zap.Logger) *FontResolver {
	var sources []FontSource
	if dir != "" {
		sources = append(sources, DirSource{Dir: dir})
	}
	sources = append(sources, DirSource{Dir: "/usr/share/fonts/truetype/dejavu"}, GoFontSource{})
	return NewFontResolver(log, sources...)
}

// Resolve returns a face of the given weight and point size. It never fails:
// when every source is unusable the built-in bitmap face is returned.
func (r *FontResolver) Resolve(w Weight, size float64) FontResolution {
	for i, src := range r.sources {
		f := r.font(i, src, w)
		if f == nil {
			continue
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
		if err != nil {
			r.log.Warn("font face creation failed", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		return FontResolution{Face: face, Source: src.Name()}
	}
	return FontResolution{Face: basicfont.Face7x13, Source: bitmapSource, Fallback: true}
}

func (r *FontResolver) font(i int, src FontSource, w Weight) *opentype.Font {
	key := fontKey{source: i, weight: w}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.parsed[key]; ok {
		return f
	}
	if r.failed[key] {
		return nil
	}
	f, err := src.Font(w)
	if err != nil {
		r.failed[key] = true
		r.log.Debug("font source unavailable",
			zap.String("source", src.Name()),
			zap.String("weight", w.String()),
			zap.Error(err))
		return nil
	}
	r.parsed[key] = f
	return f
}

// faces bundles the faces one render needs.
type faces struct {
	company, name, title, label, info font.Face
	fallback                          bool
}

func (r *FontResolver) facesFor(s fontSizes) faces {
	var out faces
	pick := func(dst *font.Face, w Weight, size float64) {
		res := r.Resolve(w, size)
		*dst = res.Face
		out.fallback = out.fallback || res.Fallback
	}
	pick(&out.company, WeightBold, s.Company)
	pick(&out.name, WeightBold, s.Name)
	pick(&out.title, WeightRegular, s.Title)
	pick(&out.label, WeightBold, s.Label)
	pick(&out.info, WeightRegular, s.Info)
	return out
}
