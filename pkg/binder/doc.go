// Package binder decodes HTTP requests into typed request structs.
//
// JSON binds a strict JSON body and Path binds router path parameters
// through an extractor such as chi.URLParam. Binders return
// ErrBinderNotApplicable when a request carries nothing for them, and the
// handler package skips such binders.
package binder
