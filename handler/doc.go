// Package handler provides typed JSON HTTP handlers.
//
// A HandlerFunc receives a request struct filled by binders from the
// binder package and returns a Response. Wrap turns it into an
// http.HandlerFunc:
//
//	r.Get("/orders/{id}", handler.Wrap(getOrder,
//		handler.WithBinders[GetOrderRequest](binder.Path(chi.URLParam)),
//		handler.WithErrorHandler[GetOrderRequest](errorHandler),
//	))
//
// Successful responses use the {"data": ...} envelope and failures the
// {"error": {"code", "message", "details"}} envelope. Handlers return
// Fail(err) to let the error handler pick the status, log the failure and
// render it; HTTPError and ValidationError carry explicit statuses.
package handler
