// Package pg wires PostgreSQL connectivity for the application: pgx pool
// construction with retrying ping, goose migrations, and a readiness probe.
//
// Usage:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
package pg
