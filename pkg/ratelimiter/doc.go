// Package ratelimiter limits calls toward external APIs.
//
// Two limiters share the RateLimiter interface. Bucket is a token bucket that
// allows bursts up to its capacity. Window admits at most a fixed number of
// operations in any rolling window and is what queue workers use.
//
// MemoryStore keeps state in process; RedisStore keeps it in Redis so that
// several worker processes share one quota. A denied check never consumes.
//
// # Basic Usage
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	// At most 10 operations in any second toward the payment gateway
//	limiter, err := ratelimiter.NewWindow(store, 10, time.Second)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := limiter.Allow(ctx, "orders")
//	if err == nil && !res.Allowed() {
//		time.Sleep(res.RetryAfter())
//	}
//
// Wait blocks until the limiter admits one operation:
//
//	if err := ratelimiter.Wait(ctx, limiter, "orders"); err != nil {
//		return err
//	}
package ratelimiter
