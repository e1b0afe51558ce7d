package email_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/shopflow/pkg/email"
)

func validParams() email.SendEmailParams {
	return email.SendEmailParams{
		SendTo:   "customer@example.com",
		Subject:  "Payment received",
		BodyHTML: "<p>Thanks</p>",
		Tag:      "payment-receipt",
	}
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*email.SendEmailParams)
		valid  bool
	}{
		{"valid", func(*email.SendEmailParams) {}, true},
		{"tag optional", func(p *email.SendEmailParams) { p.Tag = "" }, true},
		{"missing recipient", func(p *email.SendEmailParams) { p.SendTo = "" }, false},
		{"bad recipient", func(p *email.SendEmailParams) { p.SendTo = "not-an-email" }, false},
		{"missing subject", func(p *email.SendEmailParams) { p.Subject = "" }, false},
		{"missing body", func(p *email.SendEmailParams) { p.BodyHTML = "" }, false},
		{"long tag", func(p *email.SendEmailParams) { p.Tag = strings.Repeat("x", 101) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, email.ErrInvalidParams)
			}
		})
	}
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	sender := email.NewDevSender(dir)

	require.NoError(t, sender.SendEmail(context.Background(), validParams()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var htmlFile, jsonFile string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".html":
			htmlFile = e.Name()
		case ".json":
			jsonFile = e.Name()
		}
	}
	require.NotEmpty(t, htmlFile)
	require.NotEmpty(t, jsonFile)
	assert.Contains(t, htmlFile, "payment-receipt")

	body, err := os.ReadFile(filepath.Join(dir, htmlFile))
	require.NoError(t, err)
	assert.Equal(t, "<p>Thanks</p>", string(body))

	raw, err := os.ReadFile(filepath.Join(dir, jsonFile))
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "customer@example.com", meta["to"])
	assert.Equal(t, htmlFile, meta["body_file"])
}

func TestDevSender_InvalidParams(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := email.NewDevSender(dir).SendEmail(context.Background(), email.SendEmailParams{})
	assert.ErrorIs(t, err, email.ErrInvalidParams)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNew_SelectsSender(t *testing.T) {
	t.Parallel()

	dev, err := email.New(email.Config{DevDir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &email.DevSender{}, dev)

	prod, err := email.New(email.Config{
		PostmarkServerToken: "server-token",
		SenderEmail:         "noreply@example.com",
		SupportEmail:        "support@example.com",
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, prod)
}

func TestNewPostmarkClient_InvalidConfig(t *testing.T) {
	t.Parallel()

	base := email.Config{
		PostmarkServerToken: "server-token",
		SenderEmail:         "noreply@example.com",
		SupportEmail:        "support@example.com",
	}

	tests := []struct {
		name    string
		mutate  func(*email.Config)
		message string
	}{
		{"missing token", func(c *email.Config) { c.PostmarkServerToken = "" }, "PostmarkServerToken"},
		{"bad sender", func(c *email.Config) { c.SenderEmail = "nope" }, "SenderEmail"},
		{"bad support", func(c *email.Config) { c.SupportEmail = "" }, "SupportEmail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			tt.mutate(&cfg)
			client, err := email.NewPostmarkClient(cfg)
			assert.Nil(t, client)
			assert.ErrorIs(t, err, email.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	assert.Panics(t, func() { email.MustNewPostmarkClient(email.Config{}) })
}

func newPostmarkServer(t *testing.T, response map[string]any, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postmarkConfig(baseURL string) email.Config {
	return email.Config{
		PostmarkServerToken: "server-token",
		PostmarkBaseURL:     baseURL,
		SenderEmail:         "noreply@example.com",
		SupportEmail:        "support@example.com",
	}
}

func TestPostmarkClient_SendEmail(t *testing.T) {
	t.Parallel()

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()

		var got map[string]any
		srv := newPostmarkServer(t, map[string]any{"ErrorCode": 0, "Message": "OK", "MessageID": "m-1"}, &got)

		client, err := email.NewPostmarkClient(postmarkConfig(srv.URL))
		require.NoError(t, err)
		require.NoError(t, client.SendEmail(context.Background(), validParams()))

		assert.Equal(t, "customer@example.com", got["To"])
		assert.Equal(t, "noreply@example.com", got["From"])
		assert.Equal(t, "support@example.com", got["ReplyTo"])
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()

		srv := newPostmarkServer(t, map[string]any{"ErrorCode": 406, "Message": "Inactive recipient"}, nil)

		client, err := email.NewPostmarkClient(postmarkConfig(srv.URL))
		require.NoError(t, err)
		err = client.SendEmail(context.Background(), validParams())
		assert.ErrorIs(t, err, email.ErrRejected)
		assert.NotErrorIs(t, err, email.ErrFailedToSendEmail)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		client, err := email.NewPostmarkClient(postmarkConfig(url))
		require.NoError(t, err)
		err = client.SendEmail(context.Background(), validParams())
		assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
	})

	t.Run("invalid params never reach postmark", func(t *testing.T) {
		t.Parallel()

		client, err := email.NewPostmarkClient(postmarkConfig("http://127.0.0.1:1"))
		require.NoError(t, err)
		err = client.SendEmail(context.Background(), email.SendEmailParams{SendTo: "x"})
		assert.ErrorIs(t, err, email.ErrInvalidParams)
	})
}
