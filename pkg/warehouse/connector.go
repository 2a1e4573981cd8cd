// pkg/warehouse/connector.go
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/model"
)

// Warehouse is a destination for snapshot rows. Implementations manage
// their own connection pool and translate the backend-neutral table specs
// into native DDL and DML.
type Warehouse interface {
	// EnsureTable creates the snapshot table if it does not exist,
	// including partition or clustering layout.
	EnsureTable(ctx context.Context, spec model.TableSpec) error

	// DeleteSnapshot removes all rows for one snapshot date, returning the
	// number of rows removed.
	DeleteSnapshot(ctx context.Context, spec model.TableSpec, snapshotDate string) (int64, error)

	// InsertRows bulk-appends rows, returning the number inserted.
	InsertRows(ctx context.Context, spec model.TableSpec, rows []model.Row) (int64, error)

	// CountSnapshot returns the number of rows stored for one snapshot date.
	CountSnapshot(ctx context.Context, spec model.TableSpec, snapshotDate string) (int64, error)

	// Validate verifies the connection and permissions.
	Validate() error

	// Close closes the connection and releases resources.
	Close() error
}

// ConnStats contains standardized connection statistics
type ConnStats struct {
	OpenConnections int
	InUse           int
	Idle            int
	MaxOpenConns    int
}

// GetConnectionStats returns connection pool statistics for logging
func GetConnectionStats(db *sql.DB) ConnStats {
	stats := db.Stats()
	return ConnStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		MaxOpenConns:    stats.MaxOpenConnections,
	}
}

// LogConnectionStats logs connection pool statistics
func LogConnectionStats(logger *zap.Logger, name string, db *sql.DB) {
	stats := GetConnectionStats(db)
	logger.Debug("Connection pool stats",
		zap.String("database", name),
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int("max_open", stats.MaxOpenConns),
	)
}

// PingWithTimeout attempts to ping a database with a timeout
func PingWithTimeout(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- db.PingContext(pingCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-pingCtx.Done():
		return fmt.Errorf("ping timed out after %v: %w", timeout, pingCtx.Err())
	}
}

// ApplyConnectionSettings configures database connection pool settings
func ApplyConnectionSettings(db *sql.DB, maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}
	if maxIdleTime > 0 {
		db.SetConnMaxIdleTime(maxIdleTime)
	}
}

// flattenRows collects the value slices of every row up front so insert
// batching can slice freely.
func flattenRows(rows []model.Row) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = r.Values()
	}
	return values
}
