// Package publishing runs scheduled multi-platform post publication.
//
// Scheduler is used by the API when a post's schedule changes. It removes
// the waiting publishScheduledPost job keyed by the post id and, for a
// future time, enqueues a new one delayed until then, so at most one
// publication per post is ever pending.
//
// Publisher is the job handler. It fans the post out to every target
// platform with pkg/async, waits for all of them, and stores one result
// entry per platform in a single write. Partial and even total platform
// failure completes the job; the failures live on the post.
package publishing
