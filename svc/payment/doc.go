// Package payment reconciles order payments against external payment
// gateways.
//
// A Gateway reports the state of one payment in gateway-neutral terms
// (pending, success or failed). Paddle Billing and Square are supported;
// Gateways picks one per order by its platform source.
//
// Reconciler.Handle is the checkPaymentStatus job handler:
//
//	rec := payment.NewReconciler(orders, gateways,
//		payment.WithNotifiers(webhookNotifier),
//	)
//	handlers := jobs.Handlers{CheckPaymentStatus: rec.Handle}
//
// The order is settled with a compare-and-set on its pending status, so a
// success notification goes out once per order however many checks run.
//
// Sweeper enqueues checks for orders that stayed pending longer than a
// threshold and is driven by the sweepPendingPayments periodic task.
package payment
