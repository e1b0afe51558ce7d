package email

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// EmailSender represents an interface for sending emails.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to" validate:"required,email"`
	Subject  string `json:"subject" validate:"required,max=255"`
	BodyHTML string `json:"body_html" validate:"required"`
	Tag      string `json:"tag,omitempty" validate:"omitempty,max=100"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the recipient address and required fields.
func (p SendEmailParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Join(ErrInvalidParams, err)
	}
	return nil
}

// New returns a Postmark sender when cfg carries a server token,
// otherwise a DevSender writing to cfg.DevDir.
func New(cfg Config, logger *slog.Logger) (EmailSender, error) {
	if !cfg.Production() {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Info("postmark token not set, writing emails to disk", slog.String("dir", cfg.DevDir))
		return NewDevSender(cfg.DevDir), nil
	}
	return NewPostmarkClient(cfg)
}
