// Package shopflow wires the job orchestration core of the shop backend.
//
// LoadConfig reads every component's configuration from the environment.
// NewContainer connects the document store and the queue store once at
// process start and builds the shared services: repositories, the job
// client, the post scheduler and the platform adapter factory.
// Container.JobHandlers builds the worker-side engines: payment
// reconciliation with its notifiers, scheduled publication, email delivery
// and the pending payment sweep.
//
// The cmd/worker and cmd/api binaries are thin shells around a Container.
package shopflow
