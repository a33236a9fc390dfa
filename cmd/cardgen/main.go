// Command cardgen renders a membership card for the given fields to a PNG file.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"

	"go.uber.org/zap"

	"github.com/alubilles/membership-api/internal/platform/logging"
	"github.com/alubilles/membership-api/internal/render/card"
)

func main() {
	var (
		out      = flag.String("out", "card.png", "output PNG path")
		variant  = flag.String("variant", string(card.VariantGenerated), "generated or overlay")
		preset   = flag.String("preset", string(card.PresetPortrait), "portrait or credit-card")
		tmpl     = flag.String("template", "", "overlay template image (overlay variant)")
		photo    = flag.String("photo", "", "member photo (optional)")
		fontDir  = flag.String("fonts", "", "directory holding DejaVuSans.ttf / DejaVuSans-Bold.ttf")
		assoc    = flag.String("association", "ALUBILLES", "association name")
		name     = flag.String("name", "Alioune Sylla", "full name")
		number   = flag.String("number", "ALU-2025-0001", "member number")
		birth    = flag.String("birth", "", "birth date")
		email    = flag.String("email", "", "email")
		phone    = flag.String("phone", "", "phone")
		since    = flag.String("since", "", "member since (YYYY-MM-DD)")
		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	log, err := logging.New(*logLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	spec := card.TemplateSpec{Variant: card.Variant(*variant), Preset: card.Preset(*preset)}
	if *tmpl != "" {
		spec.Template = card.FileTemplate{Path: *tmpl}
	}
	r, err := card.New(spec, card.DefaultFontResolver(*fontDir, log), card.Options{AssociationName: *assoc, Logger: log})
	if err != nil {
		log.Fatal("renderer", zap.Error(err))
	}

	var img image.Image
	if *photo != "" {
		f, err := os.Open(*photo)
		if err != nil {
			log.Fatal("open photo", zap.Error(err))
		}
		img, err = card.DecodePhoto(f)
		_ = f.Close()
		if err != nil {
			log.Warn("photo unusable, drawing placeholder", zap.Error(err))
			img = nil
		}
	}

	rendered, err := r.Render(context.Background(), card.MemberData{
		FullName:     *name,
		MemberNumber: *number,
		BirthDate:    *birth,
		Email:        *email,
		Phone:        *phone,
		MemberSince:  *since,
	}, img)
	if err != nil {
		log.Fatal("render", zap.Error(err))
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal("create output", zap.Error(err))
	}
	if err := card.EncodePNG(f, rendered); err != nil {
		_ = f.Close()
		log.Fatal("encode", zap.Error(err))
	}
	if err := f.Close(); err != nil {
		log.Fatal("close output", zap.Error(err))
	}
	log.Info("card written", zap.String("path", *out), zap.Stringer("size", rendered.Bounds().Size()))
}
