// Package order holds the order entity as seen by payment reconciliation.
//
// An order payment moves from pending to success or failed exactly once.
// Repositories enforce it with SettlePayment, which only writes while the
// stored payment is still pending and touches nothing but the payment
// sub-document.
package order
