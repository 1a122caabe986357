// Package redis connects the shared Redis instance the distributed stores
// depend on: single-use tokens and challenges, sessions, rate-limit windows
// and passkey credentials.
//
// It wraps the go-redis client with a retrying Connect and a health-check
// helper; the stores themselves take the resulting client directly.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	sessions := session.NewRedisStore(client)
//	tokens := singleuse.NewRedisTokenStore(client)
//
// Register the health check in a readiness probe:
//
//	check := redis.Healthcheck(client)
//	if err := check(ctx); err != nil {
//	    // redis is not healthy
//	}
//
// Sentinel errors wrap the underlying go-redis errors with errors.Join, so
// errors.Is works against both.
package redis
