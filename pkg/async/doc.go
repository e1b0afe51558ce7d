// Package async runs functions concurrently and collects their results
// through typed futures.
//
// Settle is the fan-out primitive: it waits for every future and reports each
// outcome separately, so one failing target never hides the others.
//
//	futures := make([]*async.Future[*Result], 0, len(targets))
//	for _, target := range targets {
//		futures = append(futures, async.Async(ctx, target, publish))
//	}
//	for i, r := range async.Settle(futures...) {
//		if r.Err != nil {
//			log.Printf("%s failed: %v", targets[i], r.Err)
//		}
//	}
//
// Panics inside the function are recovered and surface as errors wrapping
// ErrPanic.
package async
