package auth

import (
	"context"
	"fmt"

	"github.com/thecolognehub/colognehub-backend/pkg/config"
	"github.com/thecolognehub/colognehub-backend/pkg/logger"
)

// CodeSender delivers verification codes to users. The production deployment
// plugs a real mail provider in behind this interface.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

// LogCodeSender writes codes to the structured log instead of sending mail.
// Used in dev and in tests.
type LogCodeSender struct {
	logg *logger.Logger
	from string
}

// NewLogCodeSender builds the logging sender.
func NewLogCodeSender(logg *logger.Logger, cfg config.MailConfig) (*LogCodeSender, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LogCodeSender{logg: logg, from: cfg.FromAddress}, nil
}

// SendVerificationCode logs the code at info level.
func (s *LogCodeSender) SendVerificationCode(ctx context.Context, email, code string) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"from": s.from,
		"to":   email,
		"code": code,
	})
	s.logg.Info(logCtx, "verification code issued")
	return nil
}
