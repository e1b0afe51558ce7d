package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender writes each email to dir as an HTML body plus a JSON envelope.
type DevSender struct {
	dir string
	now func() time.Time
}

// NewDevSender creates a sender for local development. dir is created on first send.
func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir, now: time.Now}
}

type envelope struct {
	SentAt  time.Time `json:"sent_at"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Tag     string    `json:"tag,omitempty"`
	Body    string    `json:"body_file"`
}

// SendEmail implements EmailSender.
func (d *DevSender) SendEmail(_ context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}

	now := d.now()
	name := params.Tag
	if name == "" {
		name = params.Subject
	}
	base := fmt.Sprintf("%s_%s", now.Format("20060102_150405.000"), slugify(name))

	htmlFile := base + ".html"
	if err := os.WriteFile(filepath.Join(d.dir, htmlFile), []byte(params.BodyHTML), 0o644); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}

	meta, err := json.MarshalIndent(envelope{
		SentAt:  now.UTC(),
		To:      params.SendTo,
		Subject: params.Subject,
		Tag:     params.Tag,
		Body:    htmlFile,
	}, "", "  ")
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), meta, 0o644); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9\-_.]+`)

func slugify(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ToLower(strings.ReplaceAll(s, " ", "_")), "")
	if len(s) > 80 {
		s = s[:80]
	}
	if s == "" {
		return "email"
	}
	return s
}
