// Package pg bootstraps the PostgreSQL pool backing the identity projection:
// pooled connections via pgx/v5, schema migrations via goose/v3, and a
// health-check helper for readiness probes.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    log.Fatal(err)
//	}
//
//	store := projection.NewStore(pool)
//
// Connect retries with linear backoff so a service can start while the
// database is still coming up. Migrate bridges the pgx pool into the
// database/sql interface goose expects and routes goose output through the
// application logger.
//
// IsNotFoundError classifies empty query results without leaking driver
// types into callers.
package pg
