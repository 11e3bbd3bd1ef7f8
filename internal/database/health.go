package database

import (
	"context"
	"time"
)

// Pinger is satisfied by *pgxpool.Pool and by the SQLite catalog.
type Pinger interface {
	Ping(ctx context.Context) error
}

func CheckHealth(ctx context.Context, db Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Ping(ctx)
}
