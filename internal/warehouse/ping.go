package warehouse

import (
	"context"
	"fmt"
)

// PingInfo is what the connection smoke test reports.
type PingInfo struct {
	Database string
	Schema   string
	Version  string
}

// Ping runs the connection smoke test.
func (db *DB) Ping(ctx context.Context) (*PingInfo, error) {
	var info PingInfo
	var schema *string
	err := db.pool.QueryRow(ctx,
		`SELECT current_database(), current_schema(), version()`,
	).Scan(&info.Database, &schema, &info.Version)
	if err != nil {
		return nil, fmt.Errorf("smoke test failed: %w", err)
	}
	if schema != nil {
		info.Schema = *schema
	}

	db.logger.Info("warehouse reachable", "database", info.Database, "schema", info.Schema)
	return &info, nil
}
