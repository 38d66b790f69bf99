package warehouse

import (
	"context"
	"database/sql"
	"fmt"
)

// driverName is registered by the gosnowflake import in profile.go.
const driverName = "snowflake"

// SnowflakeConnector returns a ConnectFunc that resolves the named profile,
// opens the driver and pings so the session is authenticated before the handle
// is handed out.
func SnowflakeConnector(connectionsFile, profileName string) ConnectFunc {
	return func(ctx context.Context) (Handle, error) {
		profile, err := LoadProfile(connectionsFile, profileName)
		if err != nil {
			return nil, err
		}
		dsn, err := profile.DSN()
		if err != nil {
			return nil, err
		}
		return openAndPing(ctx, driverName, dsn)
	}
}

func openAndPing(ctx context.Context, driver, dsn string) (Handle, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	// sql.Open is lazy; the ping is what actually logs in.
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}
