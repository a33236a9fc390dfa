package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alubilles/membership-api/internal/adapters/filesystem/blobstore"
	"github.com/alubilles/membership-api/internal/adapters/mail"
	memblob "github.com/alubilles/membership-api/internal/adapters/memory/blobstore"
	memidempotency "github.com/alubilles/membership-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/alubilles/membership-api/internal/adapters/memory/memberrepo"
	memsequence "github.com/alubilles/membership-api/internal/adapters/memory/sequence"
	postgres "github.com/alubilles/membership-api/internal/adapters/postgres"
	pgidempotency "github.com/alubilles/membership-api/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/alubilles/membership-api/internal/adapters/postgres/memberrepo"
	pgsequence "github.com/alubilles/membership-api/internal/adapters/postgres/sequence"
	s3blob "github.com/alubilles/membership-api/internal/adapters/s3/blobstore"
	"github.com/alubilles/membership-api/internal/adapters/sqlite"
	sqliteidempotency "github.com/alubilles/membership-api/internal/adapters/sqlite/idempotency"
	sqlitememberrepo "github.com/alubilles/membership-api/internal/adapters/sqlite/memberrepo"
	sqlitesequence "github.com/alubilles/membership-api/internal/adapters/sqlite/sequence"
	"github.com/alubilles/membership-api/internal/app/cards"
	"github.com/alubilles/membership-api/internal/platform/config"
	blobport "github.com/alubilles/membership-api/internal/ports/out/blobstore"
	idempotencyport "github.com/alubilles/membership-api/internal/ports/out/idempotency"
	memberrepoport "github.com/alubilles/membership-api/internal/ports/out/memberrepo"
	"github.com/alubilles/membership-api/internal/ports/out/notifier"
	sequenceport "github.com/alubilles/membership-api/internal/ports/out/sequence"
	"github.com/alubilles/membership-api/internal/render/card"
)

type storage struct {
	members memberrepoport.Repository
	seq     sequenceport.Sequencer
	idem    idempotencyport.Store
	close   func()
}

func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (storage, error) {
	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{MaxConns: cfg.DBMaxConns})
		if err != nil {
			return storage{}, fmt.Errorf("invalid postgres config: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return storage{}, fmt.Errorf("migrate: %w", err)
		}
		return storage{
			members: pgmemberrepo.NewRepo(pool),
			seq:     pgsequence.NewSequencer(pool),
			idem:    pgidempotency.NewStore(pool),
			close:   pool.Close,
		}, nil
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return storage{}, err
		}
		return storage{
			members: sqlitememberrepo.NewRepo(db),
			seq:     sqlitesequence.NewSequencer(db),
			idem:    sqliteidempotency.NewStore(db),
			close:   func() { _ = db.Close() },
		}, nil
	default:
		log.Warn("memory storage: members are lost on restart")
		return storage{
			members: memmemberrepo.NewRepo(),
			seq:     memsequence.NewSequencer(),
			idem:    memidempotency.NewStore(),
			close:   func() {},
		}, nil
	}
}

func openBlobs(ctx context.Context, cfg config.BlobConfig) (blobport.Store, error) {
	switch cfg.Driver {
	case "s3":
		s, err := s3blob.New(ctx, s3blob.Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PathStyle:       cfg.S3PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 blob store: %w", err)
		}
		return s, nil
	case "memory":
		return memblob.NewStore(), nil
	default:
		s, err := blobstore.New(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("fs blob store: %w", err)
		}
		return s, nil
	}
}

func newCardRenderer(cfg config.CardConfig, blobs blobport.Store, log *zap.Logger) (card.Renderer, error) {
	spec := card.TemplateSpec{
		Variant: card.Variant(cfg.Variant),
		Preset:  card.Preset(cfg.Preset),
	}
	if spec.Variant == card.VariantOverlay {
		spec.Template = cards.BlobTemplate{Store: blobs, Key: cfg.TemplateKey}
	}
	r, err := card.New(spec, card.DefaultFontResolver(cfg.FontDir, log), card.Options{
		AssociationName: cfg.AssociationName,
		Role:            cfg.Role,
		Logger:          log,
	})
	if err != nil {
		return nil, fmt.Errorf("card renderer: %w", err)
	}
	return r, nil
}

func newMailSender(cfg config.Config, log *zap.Logger) (notifier.Notifier, error) {
	r, err := mail.NewRenderer(cfg.Card.AssociationName)
	if err != nil {
		return nil, fmt.Errorf("mail templates: %w", err)
	}
	if cfg.Mail.Transport != "smtp" {
		return mail.NewLogSender(log, r), nil
	}
	s, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
		Username: cfg.Mail.SMTPUser,
		Password: cfg.Mail.SMTPPass,
		From:     cfg.Mail.From,
	}, r)
	if err != nil {
		return nil, fmt.Errorf("smtp: %w", err)
	}
	return s, nil
}
