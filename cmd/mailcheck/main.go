// Command mailcheck sends one notification of each kind through the configured
// mail transport (MAIL_TRANSPORT, SMTP_*), for checking a deployment's settings.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/alubilles/membership-api/internal/adapters/mail"
	"github.com/alubilles/membership-api/internal/platform/config"
	"github.com/alubilles/membership-api/internal/platform/logging"
	"github.com/alubilles/membership-api/internal/ports/out/notifier"
)

// mailEnv is the subset of configuration mailcheck needs.
type mailEnv struct {
	Mail            config.MailConfig
	AssociationName string `env:"ASSOCIATION_NAME" envDefault:"ALUBILLES"`
}

func main() {
	to := flag.String("to", "", "recipient for member notifications")
	all := flag.Bool("all", false, "send every kind instead of registration and admin only")
	flag.Parse()

	log, err := logging.New("info", "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	var cfg mailEnv
	if err := config.ParseEnv(&cfg); err != nil {
		log.Fatal("config", zap.Error(err))
	}
	if *to == "" {
		log.Fatal("-to is required")
	}

	r, err := mail.NewRenderer(cfg.AssociationName)
	if err != nil {
		log.Fatal("mail templates", zap.Error(err))
	}
	var sender notifier.Notifier = mail.NewLogSender(log, r)
	if cfg.Mail.Transport == "smtp" {
		sender, err = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUser,
			Password: cfg.Mail.SMTPPass,
			From:     cfg.Mail.From,
		}, r)
		if err != nil {
			log.Fatal("smtp", zap.Error(err))
		}
	}

	fields := map[string]string{
		notifier.FieldFirstName:    "Alioune",
		notifier.FieldLastName:     "Sylla",
		notifier.FieldMemberNumber: "ALU-2025-0001",
		notifier.FieldReason:       "test message",
	}
	batch := []notifier.Notification{
		{To: *to, Kind: notifier.KindRegistration, Fields: fields},
		{To: firstNonEmpty(cfg.Mail.AdminEmail, *to), Kind: notifier.KindAdminNewRegistration, Fields: fields},
	}
	if *all {
		batch = append(batch,
			notifier.Notification{To: *to, Kind: notifier.KindApproval, Fields: fields},
			notifier.Notification{To: *to, Kind: notifier.KindRejection, Fields: fields},
			notifier.Notification{To: *to, Kind: notifier.KindSuspension, Fields: fields},
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	failed := 0
	for _, n := range batch {
		if err := sender.Notify(ctx, n); err != nil {
			failed++
			log.Error("send failed", zap.String("kind", string(n.Kind)), zap.String("to", n.To), zap.Error(err))
			continue
		}
		log.Info("sent", zap.String("kind", string(n.Kind)), zap.String("to", n.To))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
