// Package cards renders member cards and stores them as PNG artifacts.
package cards

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/alubilles/membership-api/internal/domain"
	"github.com/alubilles/membership-api/internal/platform/logging"
	"github.com/alubilles/membership-api/internal/platform/metrics"
	"github.com/alubilles/membership-api/internal/platform/telemetry"
	"github.com/alubilles/membership-api/internal/ports/out/blobstore"
	"github.com/alubilles/membership-api/internal/render/card"
)

const ContentTypePNG = "image/png"

// Key is the artifact key of the card for member number n.
func Key(n domain.MemberNumber) string {
	return "cards/" + FileName(n)
}

// FileName is the download file name of the card for member number n.
func FileName(n domain.MemberNumber) string {
	return fmt.Sprintf("card_%s.png", n)
}

// DataFor maps a member onto the fields printed on its card.
func DataFor(m domain.Member) card.MemberData {
	d := card.MemberData{
		FullName:     m.FullName(),
		MemberNumber: string(m.Number),
		BirthDate:    m.BirthDate,
		Email:        m.Email,
		Phone:        m.Phone,
	}
	if !m.RegisteredAt.IsZero() {
		d.MemberSince = m.RegisteredAt.Format("2006-01-02")
	}
	return d
}

// Issuer renders a member's card and writes it to artifact storage.
type Issuer struct {
	renderer card.Renderer
	blobs    blobstore.Store
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewIssuer(renderer card.Renderer, blobs blobstore.Store, log *zap.Logger, m *metrics.Metrics) *Issuer {
	return &Issuer{renderer: renderer, blobs: blobs, log: logging.OrNop(log), metrics: metrics.OrNew(m)}
}

// Issue renders m's card and stores it under Key(m.Number), returning the key.
//
// The artifact is written only after rendering and encoding succeed, so a failed
// issue leaves any previous card in place. A missing or undecodable photo falls
// back to the placeholder.
func (i *Issuer) Issue(ctx context.Context, m domain.Member) (ref string, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "cards.Issue")
	span.SetAttributes(attribute.String("member.number", string(m.Number)))
	start := time.Now()
	defer func() {
		i.metrics.CardRenderSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			i.metrics.CardRenders.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "card issue failed")
		} else {
			i.metrics.CardRenders.WithLabelValues("ok").Inc()
		}
		span.End()
	}()

	if m.Number == "" {
		return "", errors.New("issue card: member has no number")
	}

	photo := i.loadPhoto(ctx, m)
	img, err := i.renderer.Render(ctx, DataFor(m), photo)
	if err != nil {
		return "", fmt.Errorf("render card %s: %w", m.Number, err)
	}
	b, err := card.PNGBytes(img)
	if err != nil {
		return "", fmt.Errorf("encode card %s: %w", m.Number, err)
	}

	key := Key(m.Number)
	_, err = i.blobs.Put(ctx, key, bytes.NewReader(b), blobstore.PutOptions{
		ContentType: ContentTypePNG,
		Metadata:    map[string]string{"member-number": string(m.Number)},
	})
	if err != nil {
		return "", fmt.Errorf("store card %s: %w", m.Number, err)
	}
	i.log.Info("card issued", zap.String("member_number", string(m.Number)), zap.String("card_ref", key), zap.Int("bytes", len(b)))
	return key, nil
}

func (i *Issuer) loadPhoto(ctx context.Context, m domain.Member) image.Image {
	if m.PhotoRef == nil || *m.PhotoRef == "" {
		return nil
	}
	_, rc, err := i.blobs.Get(ctx, *m.PhotoRef)
	if err != nil {
		i.log.Warn("card photo unavailable, using placeholder",
			zap.String("member_number", string(m.Number)), zap.String("photo_ref", *m.PhotoRef), zap.Error(err))
		return nil
	}
	defer rc.Close()
	img, err := card.DecodePhoto(rc)
	if err != nil {
		i.log.Warn("card photo undecodable, using placeholder",
			zap.String("member_number", string(m.Number)), zap.String("photo_ref", *m.PhotoRef), zap.Error(err))
		return nil
	}
	return img
}

// BlobTemplate loads the overlay template from blob storage on every render.
type BlobTemplate struct {
	Store blobstore.Store
	Key   string
}

func (t BlobTemplate) Load(ctx context.Context) (image.Image, error) {
	_, rc, err := t.Store.Get(ctx, t.Key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", card.ErrTemplateNotFound, t.Key)
	}
	if err != nil {
		return nil, fmt.Errorf("load card template %s: %w", t.Key, err)
	}
	defer rc.Close()
	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode card template %s: %w", t.Key, err)
	}
	return img, nil
}
