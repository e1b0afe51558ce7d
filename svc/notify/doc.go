// Package notify tells the outside world about order state changes.
//
// OrderNotifier posts a signed payment_success event to ORDER_WEBHOOK_URL
// through pkg/webhook. Delivery happens in the background on a context
// detached from the caller, so a slow or failing endpoint never holds up
// payment reconciliation. Call Wait during shutdown to let pending
// deliveries finish.
//
// ReceiptMailer queues a sendEmail job with a receipt for the customer.
//
// Both satisfy payment.Notifier.
package notify
