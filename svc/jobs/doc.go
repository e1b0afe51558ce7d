// Package jobs defines every job the system runs: its payload, queue, key
// and validation.
//
//	checkPaymentStatus   orders           key = order id
//	sweepPendingPayments orders           periodic
//	publishScheduledPost scheduled-posts  key = post id
//	sendEmail            emails           key = optional dedup key
//
// Payload is sealed, so a new job kind means a new type here and a new
// field in Handlers. Invalid payloads fail with ErrInvalidPayload, which
// handlers report as terminal.
package jobs
