package email

// Config holds email service configuration.
// Without a Postmark server token messages are written to DevDir instead.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	PostmarkBaseURL      string `env:"POSTMARK_BASE_URL"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}

// Production reports whether a Postmark token is configured.
func (c Config) Production() bool {
	return c.PostmarkServerToken != ""
}
