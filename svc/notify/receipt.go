package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/dmitrymomot/shopflow/pkg/logger"
	"github.com/dmitrymomot/shopflow/svc/jobs"
	"github.com/dmitrymomot/shopflow/svc/order"
)

var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": formatMoney,
}).Parse(`<!doctype html>
<html>
<body style="font-family: sans-serif">
<h2>Payment received</h2>
<p>Thank you. We have received your payment for order <strong>{{.ID}}</strong>.</p>
<table>
<tr><td>Amount</td><td>{{money .Payment.Amount .Payment.Currency}}</td></tr>
{{- with .Payment.Method}}
<tr><td>Method</td><td>{{.}}</td></tr>
{{- end}}
{{- with .Payment.PaidAt}}
<tr><td>Paid at</td><td>{{.Format "2006-01-02 15:04 MST"}}</td></tr>
{{- end}}
</table>
</body>
</html>`))

// ReceiptMailer queues a receipt email for orders whose payment succeeded.
// The email job is keyed by order, so repeated notifications queue one email.
type ReceiptMailer struct {
	client *jobs.Client
	logger *slog.Logger
}

func NewReceiptMailer(client *jobs.Client, log *slog.Logger) *ReceiptMailer {
	if log == nil {
		log = slog.Default()
	}
	return &ReceiptMailer{client: client, logger: log.With(logger.Component("notify.receipt"))}
}

func (m *ReceiptMailer) NotifyPaymentSuccess(ctx context.Context, o *order.Order) {
	if o.CustomerEmail == "" {
		return
	}

	var body bytes.Buffer
	if err := receiptTemplate.Execute(&body, o); err != nil {
		m.logger.ErrorContext(ctx, "render receipt", logger.OrderID(o.ID), logger.Error(err))
		return
	}

	_, created, err := m.client.EnqueueIfAbsent(ctx, jobs.SendEmail{
		To:       o.CustomerEmail,
		Subject:  fmt.Sprintf("Payment received for order %s", o.ID),
		BodyHTML: body.String(),
		Tag:      "payment-receipt",
		DedupKey: "receipt:" + o.ID,
	})
	if err != nil {
		m.logger.WarnContext(ctx, "enqueue receipt email", logger.OrderID(o.ID), logger.Error(err))
		return
	}
	if created {
		m.logger.DebugContext(ctx, "receipt email queued", logger.OrderID(o.ID))
	}
}

func formatMoney(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	s := fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
	if currency != "" {
		s += " " + currency
	}
	return s
}
