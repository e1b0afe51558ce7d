// Package requestid correlates HTTP requests with their log records.
//
// Middleware assigns every request an id, taken from a valid X-Request-ID
// header or generated, returns it in the response header and makes it
// available through FromContext and on every record logged with the
// request context.
package requestid
