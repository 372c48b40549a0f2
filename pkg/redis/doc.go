// Package redis connects to the Redis instance that backs the shared tenant
// cache (see tenant.NewRedisCache) and exposes a health check for it.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	cache := tenant.NewRedisCache(client, "tenant:", log)
package redis
