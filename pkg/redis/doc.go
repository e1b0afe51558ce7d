// Package redis connects to the Redis server backing the job queue store and
// the shared rate limiter buckets.
//
//	client, err := redis.Connect(ctx, cfg)
//	store, err := queue.NewRedisStorage(client, queueCfg.RedisOptions()...)
package redis
