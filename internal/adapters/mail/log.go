package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/alubilles/membership-api/internal/platform/logging"
	"github.com/alubilles/membership-api/internal/ports/out/notifier"
)

// LogSender is a notifier.Notifier that renders mail and logs it instead of sending.
// It is the development transport.
type LogSender struct {
	log      *zap.Logger
	renderer *Renderer
}

func NewLogSender(log *zap.Logger, r *Renderer) *LogSender {
	return &LogSender{log: logging.OrNop(log), renderer: r}
}

func (s *LogSender) Notify(ctx context.Context, n notifier.Notification) error {
	_ = ctx
	msg, err := s.renderer.Render(n)
	if err != nil {
		return err
	}
	s.log.Info("mail",
		zap.String("to", msg.To),
		zap.String("kind", string(n.Kind)),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text))
	return nil
}
